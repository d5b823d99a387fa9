package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahinestrog/librarymanager/internal/events"
	"github.com/ahinestrog/librarymanager/internal/events/eventstest"
	"github.com/ahinestrog/librarymanager/internal/httpapi"
	"github.com/ahinestrog/librarymanager/internal/storage/storagetest"
)

type app struct {
	repo    Repository
	handler http.Handler
	events  *eventstest.Recorder
}

func setupApp(t *testing.T) *app {
	t.Helper()
	db := storagetest.Open(t)
	repo := NewSQLiteRepo(db)
	rec := &eventstest.Recorder{}
	router := httpapi.NewRouter(zerolog.Nop(), db)
	NewCatalogServer(repo, NewService(repo, rec, zerolog.Nop())).Routes(router)
	return &app{repo: repo, handler: router, events: rec}
}

func (a *app) call(t *testing.T, method, target string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, httptest.NewRequest(method, target, &buf))
	if out != nil {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out), rr.Body.String())
	}
	return rr
}

func TestBookLifecycle(t *testing.T) {
	a := setupApp(t)

	var author, category Lookup
	rr := a.call(t, http.MethodPost, "/authors", map[string]string{"name": " Szabó Magda "}, &author)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "Szabó Magda", author.Name)
	rr = a.call(t, http.MethodPost, "/categories", map[string]string{"name": "Regény"}, &category)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created Book
	rr = a.call(t, http.MethodPost, "/books", BookInput{
		Title: "Abigél", AuthorID: author.ID, CategoryID: category.ID, Price: 3990, Stock: 7, ISBN: "978-963-14-2345-6",
	}, &created)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "Szabó Magda", created.AuthorName)
	assert.Equal(t, "Regény", created.CategoryName)
	assert.Empty(t, created.Publisher)

	var got Book
	rr = a.call(t, http.MethodGet, fmt.Sprintf("/books?book_id=%d", created.ID), nil, &got)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, created, got)

	var updated Book
	rr = a.call(t, http.MethodPut, fmt.Sprintf("/books?book_id=%d", created.ID), BookInput{Title: "Abigél", Price: 4490, Stock: 3}, &updated)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 4490.0, updated.Price)
	assert.Nil(t, updated.AuthorID)
	assert.Empty(t, updated.AuthorName)

	rr = a.call(t, http.MethodDelete, fmt.Sprintf("/books?book_id=%d", created.ID), nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = a.call(t, http.MethodGet, fmt.Sprintf("/books?book_id=%d", created.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	assert.Equal(t, []string{events.RKBookCreated, events.RKBookUpdated, events.RKBookDeleted}, a.events.Keys())
}

func TestBookRejections(t *testing.T) {
	a := setupApp(t)

	tests := []struct {
		name   string
		method string
		target string
		body   any
		status int
	}{
		{"blank title", http.MethodPost, "/books", BookInput{Title: "  ", Price: 1}, http.StatusBadRequest},
		{"negative stock", http.MethodPost, "/books", BookInput{Title: "x", Stock: -1}, http.StatusBadRequest},
		{"unknown author", http.MethodPost, "/books", BookInput{Title: "x", AuthorID: 77}, http.StatusBadRequest},
		{"put without id", http.MethodPut, "/books", BookInput{Title: "x"}, http.StatusBadRequest},
		{"put unknown id", http.MethodPut, "/books?book_id=5", BookInput{Title: "x"}, http.StatusNotFound},
		{"delete without id", http.MethodDelete, "/books", nil, http.StatusBadRequest},
		{"delete unknown id", http.MethodDelete, "/books?book_id=5", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/books?book_id=zero", nil, http.StatusBadRequest},
		{"blank author", http.MethodPost, "/authors", map[string]string{"name": ""}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var body map[string]any
			rr := a.call(t, tc.method, tc.target, tc.body, &body)
			assert.Equal(t, tc.status, rr.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Empty(t, a.events.Keys())
}

func TestDuplicateLookupConflicts(t *testing.T) {
	a := setupApp(t)
	rr := a.call(t, http.MethodPost, "/categories", map[string]string{"name": "Vers"}, nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = a.call(t, http.MethodPost, "/categories", map[string]string{"name": "Vers"}, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	var list []Lookup
	a.call(t, http.MethodGet, "/categories", nil, &list)
	assert.Len(t, list, 1)
}

func TestDeleteOrderedBookConflicts(t *testing.T) {
	db := storagetest.Open(t)
	repo := NewSQLiteRepo(db)
	book := storagetest.Book(t, db, "Édes Anna", 2500, 4)
	cid := storagetest.Customer(t, db, storagetest.User(t, db, "u", "u@example.hu"), "U", "V")
	_, err := db.Exec(`INSERT INTO orders(customer_id, order_date, status, total_amount) VALUES(?, '2024-01-01T00:00:00Z', 'pending', 2500)`, cid)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO order_items(order_id, book_id, quantity, price) VALUES(1, ?, 1, 2500)`, book)
	require.NoError(t, err)

	err = repo.DeleteBook(context.Background(), book)
	assert.ErrorAs(t, err, &ErrConflict{})
	assert.Equal(t, 4, storagetest.Stock(t, db, book))
}

func TestListBooksSearchAndPaging(t *testing.T) {
	a := setupApp(t)
	ctx := context.Background()
	authorID, err := a.repo.CreateLookup(ctx, Authors, "Jókai Mór")
	require.NoError(t, err)
	for _, in := range []BookInput{
		{Title: "A kőszívű ember fiai", AuthorID: authorID, Price: 1},
		{Title: "Az arany ember", AuthorID: authorID, Price: 1},
		{Title: "Tüskevár", Price: 1},
	} {
		_, err := a.repo.CreateBook(ctx, in)
		require.NoError(t, err)
	}

	var books []Book
	rr := a.call(t, http.MethodGet, "/books", nil, &books)
	assert.Len(t, books, 3)
	assert.Equal(t, "3", rr.Header().Get("X-Total-Count"))

	a.call(t, http.MethodGet, "/books?q=EMBER", nil, &books)
	assert.Len(t, books, 2)

	rr = a.call(t, http.MethodGet, "/books?q=j%C3%B3kai", nil, &books)
	assert.Len(t, books, 2)
	assert.Equal(t, "2", rr.Header().Get("X-Total-Count"))

	a.call(t, http.MethodGet, "/books?page=2&page_size=2", nil, &books)
	require.Len(t, books, 1)
	assert.Equal(t, "Tüskevár", books[0].Title)
}
