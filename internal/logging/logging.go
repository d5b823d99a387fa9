// Package logging configures the zerolog logger shared by every service.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ahinestrog/librarymanager/internal/envcfg"
)

type Config struct {
	Level  string // trace|debug|info|warn|error
	Format string // json|console
}

func ConfigFromEnv() Config {
	return Config{
		Level:  envcfg.Get("LOG_LEVEL", "info"),
		Format: envcfg.Get("LOG_FORMAT", "json"),
	}
}

// Init installs the global logger and returns a child tagged with service.
func Init(service string, cfg Config) zerolog.Logger {
	return InitWriter(os.Stdout, service, cfg)
}

func InitWriter(out io.Writer, service string, cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger.With().Str("service", service).Logger()
}
