// Package storage owns the process-wide database pool: DSN building for both
// SQLite drivers, schema migrations, seed data and constraint helpers.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // driver "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // driver "sqlite" (pure Go)

	"github.com/ahinestrog/librarymanager/internal/envcfg"
)

const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

type Config struct {
	Driver       string
	Path         string
	MaxOpenConns int
	BusyTimeout  time.Duration
	AutoMigrate  bool
}

func ConfigFromEnv() Config {
	return Config{
		Driver:       envcfg.Get("DB_DRIVER", DriverModernc),
		Path:         envcfg.Get("DB_PATH", "./data/library.db"),
		MaxOpenConns: envcfg.Int("DB_MAX_OPEN_CONNS", 1),
		BusyTimeout:  envcfg.Duration("DB_BUSY_TIMEOUT", 5*time.Second),
		AutoMigrate:  envcfg.Bool("DB_AUTO_MIGRATE", false),
	}
}

// DSN builds the connection string for the configured driver. Both variants
// enable foreign keys, WAL, a busy timeout and BEGIN IMMEDIATE transactions
// so that several services can share one database file.
func (c Config) DSN() (string, error) {
	busy := c.BusyTimeout.Milliseconds()
	if busy <= 0 {
		busy = 5000
	}
	switch c.Driver {
	case DriverModernc, "":
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_txlock=immediate",
			c.Path, busy), nil
	case DriverMattn:
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=%d&_journal_mode=WAL&_txlock=immediate",
			c.Path, busy), nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q (want %q or %q)", c.Driver, DriverModernc, DriverMattn)
	}
}

// Open returns a pinged pool. With AutoMigrate unset the schema must already
// be at the current version (run `librarydb migrate` at deployment).
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		err = Migrate(ctx, db)
	} else {
		err = RequireSchema(ctx, db)
	}
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Connect opens and pings the pool without looking at the schema.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DriverModernc
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// Timestamp is the text format of every date column.
func Timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// NullID maps non-positive ids to NULL for optional foreign keys.
func NullID(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}

// IsUniqueViolation reports a UNIQUE/PRIMARY KEY failure from either driver.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports a FOREIGN KEY failure from either driver.
func IsForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
