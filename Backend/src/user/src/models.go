package main

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// normalizeRole keeps admin and maps everything else to customer.
func normalizeRole(r string) string {
	if strings.EqualFold(strings.TrimSpace(r), RoleAdmin) {
		return RoleAdmin
	}
	return RoleCustomer
}

// User never carries the password hash out of the repository.
type User struct {
	ID               int64     `json:"user_id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	RegistrationDate time.Time `json:"registration_date"`
	IsActive         bool      `json:"is_active"`
}

type CreateUserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UpdateUserInput struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active"`
}

type Customer struct {
	ID         int64  `json:"customer_id"`
	UserID     int64  `json:"user_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

func (c *Customer) trim() {
	for _, f := range []*string{&c.FirstName, &c.LastName, &c.Phone, &c.Address, &c.City, &c.PostalCode} {
		*f = strings.TrimSpace(*f)
	}
}

type ErrValidation struct{ Msg string }

func (e ErrValidation) Error() string { return e.Msg }

type ErrConflict struct{ Msg string }

func (e ErrConflict) Error() string { return e.Msg }

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
