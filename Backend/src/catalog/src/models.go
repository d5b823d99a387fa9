package main

import (
	"fmt"
	"strings"
)

type Book struct {
	ID            int64   `json:"book_id"`
	Title         string  `json:"title"`
	AuthorID      *int64  `json:"author_id"`
	CategoryID    *int64  `json:"category_id"`
	Price         float64 `json:"price"`
	Stock         int     `json:"stock"`
	ISBN          string  `json:"isbn"`
	Publisher     string  `json:"publisher"`
	PublishedYear int     `json:"published_year"`
	Description   string  `json:"description"`
	CoverImage    string  `json:"cover_image"`
	CategoryName  string  `json:"category_name"`
	AuthorName    string  `json:"author_name"`
}

// BookInput is the body of POST and PUT /books. Zero author or category ids
// leave the reference empty.
type BookInput struct {
	Title         string  `json:"title"`
	AuthorID      int64   `json:"author_id"`
	CategoryID    int64   `json:"category_id"`
	Price         float64 `json:"price"`
	Stock         int     `json:"stock"`
	ISBN          string  `json:"isbn"`
	Publisher     string  `json:"publisher"`
	PublishedYear int     `json:"published_year"`
	Description   string  `json:"description"`
	CoverImage    string  `json:"cover_image"`
}

func (in *BookInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.ISBN = strings.TrimSpace(in.ISBN)
	in.Publisher = strings.TrimSpace(in.Publisher)
	switch {
	case in.Title == "":
		return ErrValidation{Msg: "title is required"}
	case in.Price < 0:
		return ErrValidation{Msg: "price must not be negative"}
	case in.Stock < 0:
		return ErrValidation{Msg: "stock must not be negative"}
	case in.AuthorID < 0 || in.CategoryID < 0:
		return ErrValidation{Msg: "author_id and category_id must not be negative"}
	}
	return nil
}

// Lookup is a row of the authors or categories table.
type Lookup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ListQuery struct {
	Q        string
	Page     int
	PageSize int
}

type ErrValidation struct{ Msg string }

func (e ErrValidation) Error() string { return e.Msg }

type ErrNotFound struct {
	What string
	ID   int64
}

func (e ErrNotFound) Error() string { return fmt.Sprintf("%s %d not found", e.What, e.ID) }

type ErrConflict struct{ Msg string }

func (e ErrConflict) Error() string { return e.Msg }
