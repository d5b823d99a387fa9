package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ahinestrog/librarymanager/internal/storage"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

// ListByBook returns a book's reviews, newest first. The display name falls
// back from the stored reviewer name to the customer's full name, the
// username, the email and finally user_<customer_id>.
func (r *Repository) ListByBook(ctx context.Context, bookID int64) ([]*Review, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT r.review_id, r.book_id, r.customer_id,
       COALESCE(NULLIF(TRIM(r.reviewer_name), ''),
                NULLIF(TRIM(COALESCE(c.first_name, '') || ' ' || COALESCE(c.last_name, '')), ''),
                u.username, u.email, 'user_' || r.customer_id, ''),
       r.rating, COALESCE(r.comment, ''), r.review_date
FROM reviews r
LEFT JOIN customers c ON c.customer_id = r.customer_id
LEFT JOIN users u ON u.user_id = c.user_id
WHERE r.book_id = ?
ORDER BY r.review_date DESC, r.review_id DESC`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := []*Review{}
	for rows.Next() {
		var rv Review
		var customerID sql.NullInt64
		var date string
		if err := rows.Scan(&rv.ID, &rv.BookID, &customerID, &rv.Username, &rv.Rating, &rv.Comment, &date); err != nil {
			return nil, err
		}
		if customerID.Valid {
			rv.CustomerID = &customerID.Int64
		}
		if rv.ReviewDate, err = time.Parse(time.RFC3339, date); err != nil {
			return nil, fmt.Errorf("parse review_date %q: %w", date, err)
		}
		out = append(out, &rv)
	}
	return out, rows.Err()
}

// Create resolves the user by username or email, provisions an empty
// customer profile when the user has none, and stores the review, all in
// one transaction.
func (r *Repository) Create(ctx context.Context, req CreateRequest, now time.Time) (*Review, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var userID int64
	err = tx.QueryRowContext(ctx, `
SELECT user_id FROM users WHERE username = ? OR email = ? ORDER BY user_id LIMIT 1`,
		req.Username, req.Username).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	customerID, err := ensureCustomer(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	var books int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM books WHERE book_id = ?`, req.BookID).Scan(&books); err != nil {
		return nil, err
	}
	if books == 0 {
		return nil, ErrInvalidBook
	}

	rv := &Review{
		BookID:     req.BookID,
		CustomerID: &customerID,
		Username:   req.Username,
		Rating:     req.Rating,
		Comment:    req.Comment,
		ReviewDate: now.UTC().Truncate(time.Second),
	}
	var comment any
	if req.Comment != "" {
		comment = req.Comment
	}
	res, err := tx.ExecContext(ctx, `
INSERT INTO reviews(book_id, customer_id, rating, comment, reviewer_name, review_date)
VALUES(?,?,?,?,?,?)`, rv.BookID, customerID, rv.Rating, comment, rv.Username, storage.Timestamp(rv.ReviewDate))
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	if rv.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return rv, tx.Commit()
}

// ensureCustomer returns the user's customer id, inserting a blank profile
// first if needed. customers.user_id is unique, so concurrent callers end up
// with the same row.
func ensureCustomer(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO customers(user_id) VALUES(?) ON CONFLICT(user_id) DO NOTHING`, userID); err != nil {
		return 0, fmt.Errorf("provision customer: %w", err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT customer_id FROM customers WHERE user_id = ?`, userID).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup customer: %w", err)
	}
	return id, nil
}
