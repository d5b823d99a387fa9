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

type OrderServer struct {
	repo   *Repository
	events events.Publisher
	log    zerolog.Logger
}

func NewOrderServer(repo *Repository, pub events.Publisher, logger zerolog.Logger) *OrderServer {
	return &OrderServer{repo: repo, events: pub, log: logger}
}

func (s *OrderServer) Routes(r chi.Router) {
	r.Get("/orders", s.handleGet)
	r.Post("/orders", s.handleCreate)
}

type createResponse struct {
	Success bool  `json:"success"`
	OrderID int64 `json:"order_id"`
}

func (s *OrderServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	o, err := s.repo.PlaceOrder(r.Context(), req)
	if err != nil {
		httpapi.WriteError(w, r, toHTTP(err))
		return
	}
	zerolog.Ctx(r.Context()).Info().
		Int64("order_id", o.ID).
		Int64("customer_id", o.CustomerID).
		Int("items", len(o.Items)).
		Float64("total", o.TotalAmount).
		Msg("order placed")

	s.publishPlaced(r.Context(), o)
	httpapi.WriteJSON(w, http.StatusCreated, createResponse{Success: true, OrderID: o.ID})
}

// publishPlaced is best effort: the order is already committed.
func (s *OrderServer) publishPlaced(ctx context.Context, o *Order) {
	evt := events.OrderPlaced{
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		TotalAmount:   o.TotalAmount,
		PaymentMethod: o.PaymentMethod,
		PlacedAt:      o.OrderDate,
		Items:         make([]events.OrderPlacedItem, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		evt.Items = append(evt.Items, events.OrderPlacedItem{BookID: it.BookID, Quantity: it.Quantity, Price: it.Price})
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.events.PublishJSON(pctx, events.RKOrderPlaced, evt); err != nil {
		s.log.Warn().Err(err).Int64("order_id", o.ID).Msg("publish order.placed failed")
	}
}

func (s *OrderServer) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if orderID, ok, err := httpapi.QueryID(r, "order_id"); ok {
		if err != nil {
			httpapi.WriteError(w, r, err)
			return
		}
		o, err := s.repo.GetOrder(ctx, orderID)
		if err != nil {
			httpapi.WriteError(w, r, toHTTP(err))
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, o)
		return
	}

	var (
		orders []*Order
		err    error
	)
	if customerID, ok, qerr := httpapi.QueryID(r, "customer_id"); ok {
		if qerr != nil {
			httpapi.WriteError(w, r, qerr)
			return
		}
		orders, err = s.repo.ListByCustomer(ctx, customerID)
	} else if q.Has("username") {
		orders, err = s.repo.ListByUsername(ctx, q.Get("username"))
	} else {
		orders, err = s.repo.ListAll(ctx)
	}
	if err != nil {
		httpapi.WriteError(w, r, toHTTP(err))
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, orders)
}

// toHTTP maps repository errors onto response statuses; anything unknown
// stays a 500.
func toHTTP(err error) error {
	var (
		verr ErrValidation
		ierr ErrInvalidItem
		serr ErrInsufficient
		nerr ErrNotFound
	)
	switch {
	case errors.As(err, &verr):
		return httpapi.BadRequest(verr.Msg)
	case errors.As(err, &ierr):
		idx := ierr.Index
		return &httpapi.Error{Status: http.StatusBadRequest, Message: "invalid item: " + ierr.Reason,
			BookID: ierr.BookID, ItemIndex: &idx, Err: err}
	case errors.As(err, &serr):
		idx := serr.Index
		return &httpapi.Error{Status: http.StatusBadRequest, Message: "insufficient stock for book",
			BookID: serr.BookID, ItemIndex: &idx, Err: err}
	case errors.As(err, &nerr):
		return httpapi.NotFound(nerr.Msg)
	}
	return err
}
