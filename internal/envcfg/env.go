// Package envcfg reads service configuration from the environment, after
// loading an optional .env file from the working directory.
package envcfg

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var loadOnce sync.Once

// Load reads .env (or the files named in ENV_FILE, comma separated) into the
// process environment. Variables already set win over file values.
func Load() {
	loadOnce.Do(func() {
		files := []string{}
		if v := os.Getenv("ENV_FILE"); v != "" {
			for _, f := range strings.Split(v, ",") {
				if f = strings.TrimSpace(f); f != "" {
					files = append(files, f)
				}
			}
		}
		// a missing .env is normal outside local development
		_ = godotenv.Load(files...)
	})
}

func Get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func Int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func Bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Duration accepts Go duration strings ("750ms", "5s").
func Duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
