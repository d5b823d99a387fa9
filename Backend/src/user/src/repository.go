package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ahinestrog/librarymanager/internal/storage"
)

const userColumns = `user_id, username, email, role, registration_date, is_active`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(s interface{ Scan(...any) error }) (*User, error) {
	var u User
	var reg string
	if err := s.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &reg, &u.IsActive); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, reg)
	if err != nil {
		return nil, fmt.Errorf("parse registration_date %q: %w", reg, err)
	}
	u.RegistrationDate = t
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	out := []*User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// PasswordHash finds an active user by username or email.
func (r *UserRepository) PasswordHash(ctx context.Context, login string) (int64, string, error) {
	var id int64
	var hash string
	err := r.db.QueryRowContext(ctx, `
SELECT user_id, password_hash FROM users
WHERE (username = ? OR email = ?) AND is_active = 1
ORDER BY user_id LIMIT 1`, login, login).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrUserNotFound
	}
	return id, hash, err
}

func (r *UserRepository) Create(ctx context.Context, in CreateUserInput, hash string, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO users(username, email, password_hash, role, registration_date, is_active)
VALUES(?,?,?,?,?,1)`, in.Username, in.Email, hash, in.Role, storage.Timestamp(now))
	if storage.IsUniqueViolation(err) {
		return 0, ErrConflict{Msg: "username or email already registered"}
	}
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return res.LastInsertId()
}

// Update overwrites username, email and role; is_active only when given.
func (r *UserRepository) Update(ctx context.Context, in UpdateUserInput) error {
	var active any
	if in.IsActive != nil {
		active = *in.IsActive
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE users SET username = ?, email = ?, role = ?, is_active = COALESCE(?, is_active)
WHERE user_id = ?`, in.Username, in.Email, in.Role, active, in.UserID)
	if storage.IsUniqueViolation(err) {
		return ErrConflict{Msg: "username or email already registered"}
	}
	if err != nil {
		return fmt.Errorf("update user %d: %w", in.UserID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes the user and its customer profile. Users whose customer
// has orders cannot be deleted.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, id)
	if storage.IsForeignKeyViolation(err) {
		return ErrConflict{Msg: "user has orders"}
	}
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

const customerColumns = `customer_id, user_id, first_name, last_name, phone, address, city, postal_code`

func scanCustomer(s interface{ Scan(...any) error }) (*Customer, error) {
	var c Customer
	err := s.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Phone, &c.Address, &c.City, &c.PostalCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *UserRepository) CustomerByID(ctx context.Context, id int64) (*Customer, error) {
	return scanCustomer(r.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE customer_id = ?`, id))
}

func (r *UserRepository) CustomerByUser(ctx context.Context, userID int64) (*Customer, error) {
	return scanCustomer(r.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE user_id = ?`, userID))
}

func (r *UserRepository) CreateCustomer(ctx context.Context, c Customer) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO customers(user_id, first_name, last_name, phone, address, city, postal_code)
VALUES(?,?,?,?,?,?,?)`, c.UserID, c.FirstName, c.LastName, c.Phone, c.Address, c.City, c.PostalCode)
	switch {
	case storage.IsForeignKeyViolation(err):
		return 0, ErrUserNotFound
	case storage.IsUniqueViolation(err):
		return 0, ErrConflict{Msg: "customer profile already exists for this user"}
	case err != nil:
		return 0, fmt.Errorf("insert customer: %w", err)
	}
	return res.LastInsertId()
}
