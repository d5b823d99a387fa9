package main

import (
	"time"

	"github.com/ahinestrog/librarymanager/internal/envcfg"
	"github.com/ahinestrog/librarymanager/internal/logging"
)

type Config struct {
	HTTPAddr      string
	IdentityURL   string
	IdentityKey   string
	RedisURL      string
	RoleCacheSize int
	RoleCacheTTL  time.Duration
	SecureCookie  bool
	Log           logging.Config
	ShutdownGrace time.Duration
}

func LoadConfig() Config {
	envcfg.Load()
	return Config{
		HTTPAddr:      envcfg.Get("AUTH_HTTP_ADDR", ":8080"),
		IdentityURL:   envcfg.Get("IDENTITY_BASE_URL", "https://identitytoolkit.googleapis.com/v1"),
		IdentityKey:   envcfg.Get("IDENTITY_API_KEY", ""),
		RedisURL:      envcfg.Get("REDIS_URL", "redis://localhost:6379/0"),
		RoleCacheSize: envcfg.Int("ROLE_CACHE_SIZE", 1024),
		RoleCacheTTL:  envcfg.Duration("ROLE_CACHE_TTL", time.Minute),
		SecureCookie:  envcfg.Bool("COOKIE_SECURE", false),
		Log:           logging.ConfigFromEnv(),
		ShutdownGrace: envcfg.Duration("SHUTDOWN_GRACE", 10*time.Second),
	}
}
