package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ahinestrog/librarymanager/internal/storage"
)

const (
	sqlInsertOrder = `
INSERT INTO orders(customer_id, order_date, status, total_amount, shipping_address, payment_method)
VALUES(?,?,?,?,?,?)`
	sqlInsertItem = `INSERT INTO order_items(order_id, book_id, quantity, price) VALUES(?,?,?,?)`
	// Guard and mutation stay in one statement; a separate read would race.
	sqlDecrementStock = `UPDATE books SET stock = stock - ? WHERE book_id = ? AND stock >= ?`

	orderColumns = `o.order_id, o.customer_id, o.order_date, o.status, o.total_amount, o.shipping_address, o.payment_method`
)

// itemsChunk stays well under SQLite's bound parameter limit.
const itemsChunk = 500

type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewRepository(db *sql.DB, logger zerolog.Logger) *Repository {
	return &Repository{db: db, log: logger}
}

// PlaceOrder creates the order and its items and decrements stock in one
// transaction. On any error nothing is persisted.
func (r *Repository) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if req.CustomerID <= 0 {
		return nil, ErrValidation{Msg: "customer_id is required"}
	}
	if len(req.Items) == 0 {
		return nil, ErrValidation{Msg: "items must not be empty"}
	}
	for i, it := range req.Items {
		if err := it.check(i); err != nil {
			return nil, err
		}
	}
	total, ok := orderTotal(req.Items)
	if !ok {
		return nil, ErrValidation{Msg: "order total out of range"}
	}

	o := &Order{
		CustomerID:      req.CustomerID,
		OrderDate:       time.Now().UTC().Truncate(time.Second),
		Status:          StatusPending,
		TotalAmount:     total,
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		PaymentMethod:   NormalizePaymentMethod(req.PaymentMethod),
		Items:           make([]OrderItem, 0, len(req.Items)),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin order tx: %w", err)
	}
	defer r.rollback(tx)

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM customers WHERE customer_id = ?`, req.CustomerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check customer: %w", err)
	}

	res, err := tx.ExecContext(ctx, sqlInsertOrder,
		o.CustomerID, storage.Timestamp(o.OrderDate), o.Status, o.TotalAmount, o.ShippingAddress, o.PaymentMethod)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	if o.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}

	insertItem, err := tx.PrepareContext(ctx, sqlInsertItem)
	if err != nil {
		return nil, err
	}
	defer insertItem.Close()
	decrement, err := tx.PrepareContext(ctx, sqlDecrementStock)
	if err != nil {
		return nil, err
	}
	defer decrement.Close()

	for i, it := range req.Items {
		price := it.unitPrice().InexactFloat64()
		res, err := insertItem.ExecContext(ctx, o.ID, it.BookID, it.Quantity, price)
		if err != nil {
			return nil, fmt.Errorf("insert item %d: %w", i, err)
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}

		res, err = decrement.ExecContext(ctx, it.Quantity, it.BookID, it.Quantity)
		if err != nil {
			return nil, fmt.Errorf("decrement stock of book %d: %w", it.BookID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrInsufficient{Index: i, BookID: it.BookID, Need: it.Quantity}
		}
		o.Items = append(o.Items, OrderItem{
			ID: itemID, OrderID: o.ID, BookID: it.BookID, Quantity: it.Quantity, Price: price,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}
	return o, nil
}

func (r *Repository) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		r.log.Warn().Err(err).Msg("order rollback failed")
	}
}

func (r *Repository) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+orderColumns+`, c.first_name, c.last_name, c.phone, c.address, c.city
FROM orders o
JOIN customers c ON c.customer_id = o.customer_id
WHERE o.order_id = ?`, orderID)

	var o Order
	var date string
	err := row.Scan(&o.ID, &o.CustomerID, &date, &o.Status, &o.TotalAmount, &o.ShippingAddress, &o.PaymentMethod,
		&o.FirstName, &o.LastName, &o.Phone, &o.CustomerAddress, &o.City)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}
	if o.OrderDate, err = parseDate(date); err != nil {
		return nil, err
	}
	orders := []*Order{&o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByCustomer returns the customer's orders, newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID int64) ([]*Order, error) {
	orders, err := r.queryOrders(ctx, false, `
SELECT `+orderColumns+`
FROM orders o
WHERE o.customer_id = ?
ORDER BY o.order_date DESC, o.order_id DESC`, customerID)
	if err != nil {
		return nil, err
	}
	return orders, r.attachItems(ctx, orders)
}

// ListByUsername resolves username to its customer and lists that
// customer's orders.
func (r *Repository) ListByUsername(ctx context.Context, username string) ([]*Order, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrValidation{Msg: "username is required"}
	}
	var userID int64
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM users WHERE username = ?`, username).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	var customerID int64
	err = r.db.QueryRowContext(ctx, `SELECT customer_id FROM customers WHERE user_id = ?`, userID).Scan(&customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNoCustomerOfUser
	}
	if err != nil {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}
	return r.ListByCustomer(ctx, customerID)
}

// ListAll returns every order with the customer's name and username.
func (r *Repository) ListAll(ctx context.Context) ([]*Order, error) {
	orders, err := r.queryOrders(ctx, true, `
SELECT `+orderColumns+`, c.first_name, c.last_name, u.username
FROM orders o
JOIN customers c ON c.customer_id = o.customer_id
JOIN users u ON u.user_id = c.user_id
ORDER BY o.order_date DESC, o.order_id DESC`)
	if err != nil {
		return nil, err
	}
	return orders, r.attachItems(ctx, orders)
}

func (r *Repository) queryOrders(ctx context.Context, withUser bool, query string, args ...any) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []*Order{}
	for rows.Next() {
		var o Order
		var date string
		dest := []any{&o.ID, &o.CustomerID, &date, &o.Status, &o.TotalAmount, &o.ShippingAddress, &o.PaymentMethod}
		if withUser {
			dest = append(dest, &o.FirstName, &o.LastName, &o.Username)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if o.OrderDate, err = parseDate(date); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

// attachItems loads the items of all orders with one query per chunk. The
// order rows must already be closed: the pool may hold a single connection.
func (r *Repository) attachItems(ctx context.Context, orders []*Order) error {
	byID := make(map[int64]*Order, len(orders))
	ids := make([]any, 0, len(orders))
	for _, o := range orders {
		o.Items = []OrderItem{}
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}
	for start := 0; start < len(ids); start += itemsChunk {
		end := min(start+itemsChunk, len(ids))
		chunk := ids[start:end]
		rows, err := r.db.QueryContext(ctx, `
SELECT oi.order_item_id, oi.order_id, oi.book_id, oi.quantity, oi.price,
       COALESCE(b.title, ''), COALESCE(b.cover_image, ''), COALESCE(a.name, '')
FROM order_items oi
LEFT JOIN books b ON b.book_id = oi.book_id
LEFT JOIN authors a ON a.author_id = b.author_id
WHERE oi.order_id IN (`+placeholders(len(chunk))+`)
ORDER BY oi.order_id, oi.order_item_id`, chunk...)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		for rows.Next() {
			var it OrderItem
			if err := rows.Scan(&it.ID, &it.OrderID, &it.BookID, &it.Quantity, &it.Price,
				&it.Title, &it.CoverImage, &it.AuthorName); err != nil {
				rows.Close()
				return err
			}
			if o := byID[it.OrderID]; o != nil {
				o.Items = append(o.Items, it)
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse order_date %q: %w", s, err)
	}
	return t, nil
}
