package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ahinestrog/librarymanager/internal/events"
)

// LowStockWatcher reacts to placed orders: every ordered book whose stock
// is now at or below the threshold is logged and announced.
type LowStockWatcher struct {
	repo      *Repository
	pub       events.Publisher
	threshold int
	log       zerolog.Logger
}

func NewLowStockWatcher(repo *Repository, pub events.Publisher, threshold int, logger zerolog.Logger) *LowStockWatcher {
	return &LowStockWatcher{repo: repo, pub: pub, threshold: threshold, log: logger}
}

// Handle is an events.Handler for order.placed.
func (w *LowStockWatcher) Handle(ctx context.Context, rk string, body []byte) error {
	var evt events.OrderPlaced
	if err := json.Unmarshal(body, &evt); err != nil {
		return fmt.Errorf("decode %s: %w", rk, err)
	}
	w.log.Info().Int64("order", evt.OrderID).Int("items", len(evt.Items)).Msg("order.placed: received")

	seen := make(map[int64]bool, len(evt.Items))
	ids := make([]int64, 0, len(evt.Items))
	for _, it := range evt.Items {
		if !seen[it.BookID] {
			seen[it.BookID] = true
			ids = append(ids, it.BookID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	levels, err := w.repo.Levels(ctx, ids)
	if err != nil {
		return fmt.Errorf("read stock for order %d: %w", evt.OrderID, err)
	}
	for _, l := range levels {
		if l.Stock > w.threshold {
			continue
		}
		w.log.Warn().Int64("book_id", l.BookID).Str("title", l.Title).Int("stock", l.Stock).Msg("low stock")
		msg := events.StockLevel{BookID: l.BookID, Title: l.Title, Stock: l.Stock, Threshold: w.threshold, OrderID: evt.OrderID}
		if err := retry(3, 200*time.Millisecond, func() error {
			return w.pub.PublishJSON(ctx, events.RKLowStock, msg)
		}); err != nil {
			w.log.Error().Err(err).Int64("book_id", l.BookID).Msg("publish low stock failed")
		}
	}
	return nil
}

func retry(n int, sleep time.Duration, fn func() error) error {
	var err error
	for i := 0; i < n; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < n-1 {
			time.Sleep(sleep)
		}
	}
	return err
}
