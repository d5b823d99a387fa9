package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ahinestrog/librarymanager/internal/storage"
)

type Repository interface {
	CountBooks(ctx context.Context, q string) (int64, error)
	ListBooks(ctx context.Context, q ListQuery) ([]*Book, error)
	GetBook(ctx context.Context, id int64) (*Book, error)
	CreateBook(ctx context.Context, in BookInput) (int64, error)
	UpdateBook(ctx context.Context, id int64, in BookInput) error
	DeleteBook(ctx context.Context, id int64) error

	ListLookup(ctx context.Context, kind LookupKind) ([]Lookup, error)
	CreateLookup(ctx context.Context, kind LookupKind, name string) (int64, error)
}

// LookupKind selects one of the name tables. Only the constants below are
// valid; they are spliced into SQL.
type LookupKind struct {
	table, idCol, label string
}

var (
	Authors    = LookupKind{table: "authors", idCol: "author_id", label: "author"}
	Categories = LookupKind{table: "categories", idCol: "category_id", label: "category"}
)

const bookSelect = `
SELECT b.book_id, b.title, b.author_id, b.category_id, b.price, b.stock,
       COALESCE(b.isbn, ''), COALESCE(b.publisher, ''), b.published_year, b.description, b.cover_image,
       COALESCE(c.name, ''), COALESCE(a.name, '')
FROM books b
LEFT JOIN categories c ON c.category_id = b.category_id
LEFT JOIN authors a ON a.author_id = b.author_id`

const bookSearch = ` WHERE lower(b.title) LIKE ? OR lower(COALESCE(a.name, '')) LIKE ?`

type sqliteRepo struct{ db *sql.DB }

func NewSQLiteRepo(db *sql.DB) Repository { return &sqliteRepo{db: db} }

func searchArgs(q string) (string, []any) {
	if strings.TrimSpace(q) == "" {
		return "", nil
	}
	qp := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	return bookSearch, []any{qp, qp}
}

func (r *sqliteRepo) CountBooks(ctx context.Context, q string) (int64, error) {
	where, args := searchArgs(q)
	var c int64
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(1) FROM books b
LEFT JOIN authors a ON a.author_id = b.author_id`+where, args...).Scan(&c)
	return c, err
}

// ListBooks returns books in id order. PageSize 0 returns everything.
func (r *sqliteRepo) ListBooks(ctx context.Context, lq ListQuery) ([]*Book, error) {
	where, args := searchArgs(lq.Q)
	query := bookSelect + where + ` ORDER BY b.book_id`
	if lq.PageSize > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, lq.PageSize, (max(lq.Page, 1)-1)*lq.PageSize)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	out := []*Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanBook(s scanner) (*Book, error) {
	var b Book
	var authorID, categoryID sql.NullInt64
	if err := s.Scan(&b.ID, &b.Title, &authorID, &categoryID, &b.Price, &b.Stock,
		&b.ISBN, &b.Publisher, &b.PublishedYear, &b.Description, &b.CoverImage,
		&b.CategoryName, &b.AuthorName); err != nil {
		return nil, err
	}
	if authorID.Valid {
		b.AuthorID = &authorID.Int64
	}
	if categoryID.Valid {
		b.CategoryID = &categoryID.Int64
	}
	return &b, nil
}

func (r *sqliteRepo) GetBook(ctx context.Context, id int64) (*Book, error) {
	b, err := scanBook(r.db.QueryRowContext(ctx, bookSelect+` WHERE b.book_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound{What: "book", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	return b, nil
}

func (r *sqliteRepo) CreateBook(ctx context.Context, in BookInput) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO books(title, author_id, category_id, price, stock, isbn, publisher, published_year, description, cover_image)
VALUES(?,?,?,?,?,?,?,?,?,?)`,
		in.Title, storage.NullID(in.AuthorID), storage.NullID(in.CategoryID), in.Price, in.Stock,
		in.ISBN, in.Publisher, in.PublishedYear, in.Description, in.CoverImage)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return res.LastInsertId()
}

func (r *sqliteRepo) UpdateBook(ctx context.Context, id int64, in BookInput) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE books SET title=?, author_id=?, category_id=?, price=?, stock=?, isbn=?, publisher=?,
       published_year=?, description=?, cover_image=?
WHERE book_id=?`,
		in.Title, storage.NullID(in.AuthorID), storage.NullID(in.CategoryID), in.Price, in.Stock,
		in.ISBN, in.Publisher, in.PublishedYear, in.Description, in.CoverImage, id)
	if err != nil {
		return mapWriteErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound{What: "book", ID: id}
	}
	return nil
}

// DeleteBook refuses books that appear on an order; their reviews go with
// them.
func (r *sqliteRepo) DeleteBook(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var ordered bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM order_items WHERE book_id = ?)`, id).Scan(&ordered); err != nil {
		return err
	}
	if ordered {
		return ErrConflict{Msg: "book is referenced by orders"}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM books WHERE book_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound{What: "book", ID: id}
	}
	// order_items.book_id is a deferred key: violations surface at commit
	if err := tx.Commit(); err != nil {
		if storage.IsForeignKeyViolation(err) {
			return ErrConflict{Msg: "book is referenced by orders"}
		}
		return err
	}
	return nil
}

func (r *sqliteRepo) ListLookup(ctx context.Context, kind LookupKind) ([]Lookup, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+kind.idCol+`, name FROM `+kind.table+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.table, err)
	}
	defer rows.Close()
	out := []Lookup{}
	for rows.Next() {
		var l Lookup
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *sqliteRepo) CreateLookup(ctx context.Context, kind LookupKind, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrValidation{Msg: "name is required"}
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO `+kind.table+`(name) VALUES(?)`, name)
	if storage.IsUniqueViolation(err) {
		return 0, ErrConflict{Msg: kind.label + " already exists"}
	}
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", kind.label, err)
	}
	return res.LastInsertId()
}

func mapWriteErr(err error) error {
	switch {
	case storage.IsForeignKeyViolation(err):
		return ErrValidation{Msg: "unknown author_id or category_id"}
	case storage.IsUniqueViolation(err):
		return ErrConflict{Msg: "book already exists"}
	}
	return err
}
