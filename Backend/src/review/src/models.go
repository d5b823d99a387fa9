package main

import (
	"errors"
	"strings"
	"time"
)

type Review struct {
	ID         int64     `json:"review_id"`
	BookID     int64     `json:"book_id"`
	CustomerID *int64    `json:"customer_id"`
	Username   string    `json:"username"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	ReviewDate time.Time `json:"review_date"`
}

// CreateRequest is the POST /reviews body. Username is the signed-in
// user's username or email as sent by the client.
type CreateRequest struct {
	Action   string `json:"action"`
	BookID   int64  `json:"book_id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}

func (r *CreateRequest) validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Comment = strings.TrimSpace(r.Comment)
	if r.BookID <= 0 || r.Rating < 1 || r.Rating > 5 {
		return ErrValidation{Msg: "book_id and rating (1-5) required"}
	}
	if r.Username == "" {
		return ErrUnauthenticated
	}
	return nil
}

type ErrValidation struct{ Msg string }

func (e ErrValidation) Error() string { return e.Msg }

var (
	ErrUnauthenticated = errors.New("authentication required (username)")
	ErrUnknownUser     = errors.New("unknown user")
	ErrInvalidBook     = errors.New("invalid book_id")
)
