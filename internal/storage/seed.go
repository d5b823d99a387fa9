package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type seedBook struct {
	title, author, category, isbn, publisher string
	year                                     int
	price                                    float64
	stock                                    int
}

var seedBooks = []seedBook{
	{"A Pál utcai fiúk", "Molnár Ferenc", "Regény", "9789631192375", "Móra", 1907, 2990, 10},
	{"Egri csillagok", "Gárdonyi Géza", "Történelmi", "9789631193426", "Móra", 1899, 3490, 5},
	{"Az ember tragédiája", "Madách Imre", "Dráma", "9789630797915", "Osiris", 1861, 2490, 0},
	{"Abigél", "Szabó Magda", "Regény", "9789631435090", "Európa", 1970, 3990, 20},
	{"Légy jó mindhalálig", "Móricz Zsigmond", "Regény", "9789631194461", "Móra", 1920, 2790, 1},
}

// Seed fills an empty catalog with sample books plus an admin and a demo
// customer account. It returns the number of books inserted (0 when the
// catalog already had rows).
func Seed(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	adminHash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	demoHash, err := bcrypt.GenerateFromPassword([]byte("demo"), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, b := range seedBooks {
		authorID, err := upsertLookup(ctx, tx, "authors", "author_id", b.author)
		if err != nil {
			return 0, err
		}
		categoryID, err := upsertLookup(ctx, tx, "categories", "category_id", b.category)
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO books(title, author_id, category_id, price, stock, isbn, publisher, published_year)
VALUES(?,?,?,?,?,?,?,?)`,
			b.title, authorID, categoryID, b.price, b.stock, b.isbn, b.publisher, b.year); err != nil {
			return 0, fmt.Errorf("seed book %q: %w", b.title, err)
		}
	}

	now := Timestamp(time.Now())
	stmt := `
INSERT INTO users(username, email, password_hash, role, registration_date, is_active)
VALUES(?,?,?,?,?,1)
ON CONFLICT(username) DO NOTHING`
	if _, err := tx.ExecContext(ctx, stmt, "admin", "admin@library.local", string(adminHash), "admin", now); err != nil {
		return 0, fmt.Errorf("seed admin: %w", err)
	}
	if _, err := tx.ExecContext(ctx, stmt, "demo", "demo@library.local", string(demoHash), "customer", now); err != nil {
		return 0, fmt.Errorf("seed demo user: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO customers(user_id, first_name, last_name, city)
SELECT user_id, 'Demo', 'Vásárló', 'Budapest' FROM users WHERE username = 'demo'
ON CONFLICT(user_id) DO NOTHING`); err != nil {
		return 0, fmt.Errorf("seed demo customer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(seedBooks), nil
}

func upsertLookup(ctx context.Context, tx *sql.Tx, table, idCol, name string) (int64, error) {
	q := fmt.Sprintf(`INSERT INTO %s(name) VALUES(?) ON CONFLICT(name) DO NOTHING`, table)
	if _, err := tx.ExecContext(ctx, q, name); err != nil {
		return 0, fmt.Errorf("seed %s %q: %w", table, name, err)
	}
	var id int64
	q = fmt.Sprintf(`SELECT %s FROM %s WHERE name = ?`, idCol, table)
	if err := tx.QueryRowContext(ctx, q, name).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
