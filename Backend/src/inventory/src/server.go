package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ahinestrog/librarymanager/internal/events"
	"github.com/ahinestrog/librarymanager/internal/httpapi"
)

type InventoryServer struct {
	Repo      *Repository
	Events    events.Publisher
	Threshold int
}

func (s *InventoryServer) Routes(r chi.Router) {
	r.Get("/inventory", s.availability)
	r.Get("/inventory/low", s.low)
	r.Post("/inventory/restock", s.restock)
}

func (s *InventoryServer) availability(w http.ResponseWriter, r *http.Request) {
	ids, err := httpapi.QueryIDs(r, "book_ids")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	avail, err := s.Repo.GetAvailability(r.Context(), ids)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Debug().Int("count", len(avail)).Msg("GetAvailability")
	httpapi.WriteJSON(w, http.StatusOK, avail)
}

func (s *InventoryServer) low(w http.ResponseWriter, r *http.Request) {
	threshold := s.Threshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httpapi.WriteError(w, r, httpapi.BadRequest("threshold must be a non-negative integer"))
			return
		}
		threshold = n
	}
	levels, err := s.Repo.Low(r.Context(), threshold)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, levels)
}

func (s *InventoryServer) restock(w http.ResponseWriter, r *http.Request) {
	var req RestockRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	level, err := s.Repo.Restock(r.Context(), req.BookID, req.Quantity)
	var (
		verr ErrValidation
		nerr ErrNoStockForBook
	)
	switch {
	case errors.As(err, &verr):
		httpapi.WriteError(w, r, httpapi.BadRequest(verr.Msg))
		return
	case errors.As(err, &nerr):
		httpapi.WriteError(w, r, httpapi.NotFound(nerr.Error()))
		return
	case err != nil:
		httpapi.WriteError(w, r, err)
		return
	}

	logger := zerolog.Ctx(r.Context())
	logger.Info().Int64("book_id", level.BookID).Int("added", req.Quantity).Int("stock", level.Stock).Msg("restocked")
	evt := events.StockLevel{BookID: level.BookID, Title: level.Title, Stock: level.Stock}
	if err := s.Events.PublishJSON(context.WithoutCancel(r.Context()), events.RKRestocked, evt); err != nil {
		logger.Warn().Err(err).Msg("publish inventory.restocked failed")
	}
	httpapi.WriteJSON(w, http.StatusOK, level)
}
