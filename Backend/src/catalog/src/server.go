package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ahinestrog/librarymanager/internal/httpapi"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type CatalogServer struct {
	repo Repository
	svc  *Service
}

func NewCatalogServer(repo Repository, svc *Service) *CatalogServer {
	return &CatalogServer{repo: repo, svc: svc}
}

func (s *CatalogServer) Routes(r chi.Router) {
	r.Get("/books", s.getBooks)
	r.Post("/books", s.createBook)
	r.Put("/books", s.updateBook)
	r.Delete("/books", s.deleteBook)
	r.Get("/authors", s.listLookup(Authors))
	r.Post("/authors", s.createLookup(Authors))
	r.Get("/categories", s.listLookup(Categories))
	r.Post("/categories", s.createLookup(Categories))
}

// getBooks serves one book for ?book_id, otherwise the list. The list is
// paginated only when ?page or ?page_size is present; X-Total-Count carries
// the match count.
func (s *CatalogServer) getBooks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if id, ok, err := httpapi.QueryID(r, "book_id"); ok {
		if err != nil {
			httpapi.WriteError(w, r, err)
			return
		}
		b, err := s.repo.GetBook(ctx, id)
		if err != nil {
			httpapi.WriteError(w, r, toHTTP(err))
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, b)
		return
	}

	q := r.URL.Query()
	lq := ListQuery{Q: q.Get("q")}
	if q.Has("page") || q.Has("page_size") {
		lq.Page = atoiDefault(q.Get("page"), 1)
		lq.PageSize = min(atoiDefault(q.Get("page_size"), defaultPageSize), maxPageSize)
	}

	total, err := s.repo.CountBooks(ctx, lq.Q)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	books, err := s.repo.ListBooks(ctx, lq)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	httpapi.WriteJSON(w, http.StatusOK, books)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (s *CatalogServer) createBook(w http.ResponseWriter, r *http.Request) {
	var in BookInput
	if err := httpapi.DecodeJSON(r, &in); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	b, err := s.svc.CreateBook(r.Context(), in)
	if err != nil {
		httpapi.WriteError(w, r, toHTTP(err))
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, b)
}

func requireBookID(r *http.Request) (int64, error) {
	id, ok, err := httpapi.QueryID(r, "book_id")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, httpapi.BadRequest("missing book_id")
	}
	return id, nil
}

func (s *CatalogServer) updateBook(w http.ResponseWriter, r *http.Request) {
	id, err := requireBookID(r)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	var in BookInput
	if err := httpapi.DecodeJSON(r, &in); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	b, err := s.svc.UpdateBook(r.Context(), id, in)
	if err != nil {
		httpapi.WriteError(w, r, toHTTP(err))
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, b)
}

func (s *CatalogServer) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := requireBookID(r)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	if err := s.svc.DeleteBook(r.Context(), id); err != nil {
		httpapi.WriteError(w, r, toHTTP(err))
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "book_id": id})
}

func (s *CatalogServer) listLookup(kind LookupKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.repo.ListLookup(r.Context(), kind)
		if err != nil {
			httpapi.WriteError(w, r, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, out)
	}
}

func (s *CatalogServer) createLookup(kind LookupKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Name string `json:"name"`
		}
		if err := httpapi.DecodeJSON(r, &in); err != nil {
			httpapi.WriteError(w, r, err)
			return
		}
		name := strings.TrimSpace(in.Name)
		id, err := s.repo.CreateLookup(r.Context(), kind, name)
		if err != nil {
			httpapi.WriteError(w, r, toHTTP(err))
			return
		}
		httpapi.WriteJSON(w, http.StatusCreated, Lookup{ID: id, Name: name})
	}
}

func toHTTP(err error) error {
	var (
		verr ErrValidation
		nerr ErrNotFound
		cerr ErrConflict
	)
	switch {
	case errors.As(err, &verr):
		return httpapi.BadRequest(verr.Msg)
	case errors.As(err, &nerr):
		return httpapi.NotFound(nerr.What + " not found")
	case errors.As(err, &cerr):
		return httpapi.Conflict(cerr.Msg)
	}
	return err
}
