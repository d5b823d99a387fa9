package main

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// GetAvailability maps book id to stock. With no ids it covers every book;
// unknown ids are simply absent.
func (r *Repository) GetAvailability(ctx context.Context, bookIDs []int64) (map[int64]int, error) {
	levels, err := r.Levels(ctx, bookIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int, len(levels))
	for _, l := range levels {
		out[l.BookID] = l.Stock
	}
	return out, nil
}

func (r *Repository) Levels(ctx context.Context, bookIDs []int64) ([]StockLevel, error) {
	q := `SELECT book_id, title, stock FROM books`
	var args []any
	if len(bookIDs) > 0 {
		q += ` WHERE book_id IN (` + placeholders(len(bookIDs)) + `)`
		args = toAny(bookIDs)
	}
	rows, err := r.DB.QueryContext(ctx, q+` ORDER BY book_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StockLevel{}
	for rows.Next() {
		var l StockLevel
		if err := rows.Scan(&l.BookID, &l.Title, &l.Stock); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Low lists books at or below threshold, emptiest first.
func (r *Repository) Low(ctx context.Context, threshold int) ([]StockLevel, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT book_id, title, stock FROM books WHERE stock <= ? ORDER BY stock, book_id`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []StockLevel{}
	for rows.Next() {
		var l StockLevel
		if err := rows.Scan(&l.BookID, &l.Title, &l.Stock); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Restock adds qty in a single statement and returns the new level.
func (r *Repository) Restock(ctx context.Context, bookID int64, qty int) (StockLevel, error) {
	if bookID <= 0 || qty <= 0 {
		return StockLevel{}, ErrValidation{Msg: "book_id and a positive quantity are required"}
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return StockLevel{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE books SET stock = stock + ? WHERE book_id = ?`, qty, bookID)
	if err != nil {
		return StockLevel{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return StockLevel{}, err
	} else if n == 0 {
		return StockLevel{}, ErrNoStockForBook{BookID: bookID}
	}

	l := StockLevel{BookID: bookID}
	err = tx.QueryRowContext(ctx, `SELECT title, stock FROM books WHERE book_id = ?`, bookID).Scan(&l.Title, &l.Stock)
	if errors.Is(err, sql.ErrNoRows) {
		return StockLevel{}, ErrNoStockForBook{BookID: bookID}
	}
	if err != nil {
		return StockLevel{}, err
	}
	return l, tx.Commit()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toAny(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
