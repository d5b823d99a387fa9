package main

import "fmt"

// StockLevel is a book's sellable count. books.stock is the only counter;
// order placement decrements it and restock increments it.
type StockLevel struct {
	BookID int64  `json:"book_id"`
	Title  string `json:"title"`
	Stock  int    `json:"stock"`
}

type RestockRequest struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

type ErrNoStockForBook struct{ BookID int64 }

func (e ErrNoStockForBook) Error() string { return fmt.Sprintf("book %d not found", e.BookID) }

type ErrValidation struct{ Msg string }

func (e ErrValidation) Error() string { return e.Msg }
