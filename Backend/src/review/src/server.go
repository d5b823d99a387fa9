package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ahinestrog/librarymanager/internal/events"
	"github.com/ahinestrog/librarymanager/internal/httpapi"
)

type ReviewServer struct {
	repo   *Repository
	events events.Publisher
	log    zerolog.Logger
	now    func() time.Time
}

func NewReviewServer(repo *Repository, pub events.Publisher, logger zerolog.Logger) *ReviewServer {
	return &ReviewServer{repo: repo, events: pub, log: logger, now: time.Now}
}

func (s *ReviewServer) Routes(r chi.Router) {
	r.Get("/reviews", s.list)
	r.Post("/reviews", s.create)
}

func (s *ReviewServer) list(w http.ResponseWriter, r *http.Request) {
	bookID, ok, err := httpapi.QueryID(r, "book_id")
	if err == nil && !ok {
		err = httpapi.BadRequest("book_id required")
	}
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	reviews, err := s.repo.ListByBook(r.Context(), bookID)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, reviews)
}

func (s *ReviewServer) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	if req.Action != "create" {
		httpapi.WriteError(w, r, httpapi.BadRequest("Unsupported method or action"))
		return
	}
	if err := req.validate(); err != nil {
		httpapi.WriteError(w, r, toHTTP(err))
		return
	}
	rv, err := s.repo.Create(r.Context(), req, s.now())
	if err != nil {
		httpapi.WriteError(w, r, toHTTP(err))
		return
	}

	evt := events.ReviewCreated{ReviewID: rv.ID, BookID: rv.BookID, Rating: rv.Rating}
	if err := s.events.PublishJSON(context.WithoutCancel(r.Context()), events.RKReviewCreated, evt); err != nil {
		s.log.Warn().Err(err).Int64("review_id", rv.ID).Msg("publish review.created failed")
	}
	httpapi.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "review_id": rv.ID})
}

func toHTTP(err error) error {
	var verr ErrValidation
	switch {
	case errors.As(err, &verr):
		return httpapi.BadRequest(verr.Msg)
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrUnknownUser):
		return httpapi.Unauthorized(err.Error())
	case errors.Is(err, ErrInvalidBook):
		return httpapi.BadRequest(err.Error())
	}
	return err
}
