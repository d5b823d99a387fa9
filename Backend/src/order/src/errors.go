package main

import "fmt"

type ErrValidation struct{ Msg string }

func (e ErrValidation) Error() string { return e.Msg }

type ErrInvalidItem struct {
	Index  int
	BookID int64
	Reason string
}

func (e ErrInvalidItem) Error() string {
	return fmt.Sprintf("invalid item %d: %s", e.Index, e.Reason)
}

// ErrInsufficient means the guarded decrement touched no row: the book has
// less stock than requested or does not exist.
type ErrInsufficient struct {
	Index  int
	BookID int64
	Need   int
}

func (e ErrInsufficient) Error() string {
	return fmt.Sprintf("insufficient stock for book %d", e.BookID)
}

type ErrNotFound struct{ Msg string }

func (e ErrNotFound) Error() string { return e.Msg }

var (
	errCustomerNotFound = ErrNotFound{Msg: "customer not found"}
	errOrderNotFound    = ErrNotFound{Msg: "order not found"}
	errUserNotFound     = ErrNotFound{Msg: "user not found"}
	errNoCustomerOfUser = ErrNotFound{Msg: "customer not found for this user"}
)
