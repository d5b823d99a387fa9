// Package storagetest opens migrated throwaway databases for tests.
package storagetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/ahinestrog/librarymanager/internal/storage"
)

// Open returns a migrated database in t.TempDir(), closed on cleanup.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	return OpenWith(t, storage.Config{Driver: storage.DriverModernc})
}

// OpenWith lets tests pick the driver or pool size; Path and AutoMigrate are
// always overridden.
func OpenWith(t testing.TB, cfg storage.Config) *sql.DB {
	t.Helper()
	cfg.Path = filepath.Join(t.TempDir(), "library.db")
	cfg.AutoMigrate = true
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	db, err := storage.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("storage.Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Book inserts a book with the given price and stock and returns its id.
func Book(t testing.TB, db *sql.DB, title string, price float64, stock int) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO books(title, price, stock) VALUES(?,?,?)`, title, price, stock)
	if err != nil {
		t.Fatalf("insert book: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// User inserts an active user with a placeholder hash and returns its id.
func User(t testing.TB, db *sql.DB, username, email string) int64 {
	t.Helper()
	res, err := db.Exec(`
INSERT INTO users(username, email, password_hash, role, registration_date, is_active)
VALUES(?,?,'x','customer',?,1)`, username, email, storage.Timestamp(time.Now()))
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// Customer inserts a customer profile for userID and returns its id.
func Customer(t testing.TB, db *sql.DB, userID int64, first, last string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO customers(user_id, first_name, last_name, city) VALUES(?,?,?,'Budapest')`,
		userID, first, last)
	if err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// Stock reads the current stock of a book.
func Stock(t testing.TB, db *sql.DB, bookID int64) int {
	t.Helper()
	var s int
	if err := db.QueryRow(`SELECT stock FROM books WHERE book_id = ?`, bookID).Scan(&s); err != nil {
		t.Fatalf("read stock: %v", err)
	}
	return s
}

// Count returns SELECT COUNT(*) of a table.
func Count(t testing.TB, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
