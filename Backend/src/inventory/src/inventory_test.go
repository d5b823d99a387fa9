package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahinestrog/librarymanager/internal/events"
	"github.com/ahinestrog/librarymanager/internal/events/eventstest"
	"github.com/ahinestrog/librarymanager/internal/httpapi"
	"github.com/ahinestrog/librarymanager/internal/storage/storagetest"
)

func TestAvailabilityAndLevels(t *testing.T) {
	db := storagetest.Open(t)
	repo := NewRepository(db)
	a := storagetest.Book(t, db, "Sátántangó", 12, 4)
	b := storagetest.Book(t, db, "Az ember tragédiája", 8, 0)

	avail, err := repo.GetAvailability(context.Background(), []int64{a, b, 999})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{a: 4, b: 0}, avail)

	all, err := repo.GetAvailability(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	low, err := repo.Low(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, StockLevel{BookID: b, Title: "Az ember tragédiája", Stock: 0}, low[0])
}

func TestRestock(t *testing.T) {
	db := storagetest.Open(t)
	repo := NewRepository(db)
	id := storagetest.Book(t, db, "Egri csillagok", 9, 1)

	l, err := repo.Restock(context.Background(), id, 5)
	require.NoError(t, err)
	assert.Equal(t, 6, l.Stock)
	assert.Equal(t, 6, storagetest.Stock(t, db, id))

	_, err = repo.Restock(context.Background(), id, 0)
	var verr ErrValidation
	assert.True(t, errors.As(err, &verr))

	_, err = repo.Restock(context.Background(), 424242, 1)
	var nerr ErrNoStockForBook
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, int64(424242), nerr.BookID)
}

func TestRetry(t *testing.T) {
	calls := 0
	err := retry(3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = retry(3, time.Millisecond, func() error { calls++; return errors.New("down") })
	assert.EqualError(t, err, "down")
	assert.Equal(t, 3, calls)
}

func TestLowStockWatcher(t *testing.T) {
	db := storagetest.Open(t)
	repo := NewRepository(db)
	low := storagetest.Book(t, db, "Pál utcai fiúk", 5, 2)
	plenty := storagetest.Book(t, db, "Abigél", 5, 40)
	rec := &eventstest.Recorder{}
	w := NewLowStockWatcher(repo, rec, 3, zerolog.Nop())

	body, err := json.Marshal(events.OrderPlaced{
		OrderID: 7,
		Items: []events.OrderPlacedItem{
			{BookID: low, Quantity: 1, Price: 5},
			{BookID: plenty, Quantity: 1, Price: 5},
			{BookID: low, Quantity: 1, Price: 5},
		},
	})
	require.NoError(t, err)
	require.NoError(t, w.Handle(context.Background(), events.RKOrderPlaced, body))

	require.Equal(t, []string{events.RKLowStock}, rec.Keys())
	var msg events.StockLevel
	require.NoError(t, rec.Decode(0, &msg))
	assert.Equal(t, events.StockLevel{BookID: low, Title: "Pál utcai fiúk", Stock: 2, Threshold: 3, OrderID: 7}, msg)

	assert.Error(t, w.Handle(context.Background(), events.RKOrderPlaced, []byte("{")))
}

func TestLowStockWatcherSurvivesPublishFailure(t *testing.T) {
	db := storagetest.Open(t)
	id := storagetest.Book(t, db, "Kincskereső kisködmön", 5, 0)
	rec := &eventstest.Recorder{Err: errors.New("broker down")}
	w := NewLowStockWatcher(NewRepository(db), rec, 3, zerolog.Nop())

	body, _ := json.Marshal(events.OrderPlaced{OrderID: 1, Items: []events.OrderPlacedItem{{BookID: id, Quantity: 1}}})
	assert.NoError(t, w.Handle(context.Background(), events.RKOrderPlaced, body))
}

func TestInventoryEndpoints(t *testing.T) {
	db := storagetest.Open(t)
	a := storagetest.Book(t, db, "Légy jó mindhalálig", 7, 2)
	b := storagetest.Book(t, db, "A kőszívű ember fiai", 7, 10)
	rec := &eventstest.Recorder{}
	router := httpapi.NewRouter(zerolog.Nop(), db)
	(&InventoryServer{Repo: NewRepository(db), Events: rec, Threshold: 3}).Routes(router)

	do := func(method, target, body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(method, target, bytes.NewBufferString(body)))
		return rr
	}

	rr := do(http.MethodGet, fmt.Sprintf("/inventory?book_ids=%d,%d", a, b), "")
	require.Equal(t, http.StatusOK, rr.Code)
	var avail map[string]int
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &avail))
	assert.Equal(t, map[string]int{fmt.Sprint(a): 2, fmt.Sprint(b): 10}, avail)

	rr = do(http.MethodGet, "/inventory?book_ids=x", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(http.MethodGet, "/inventory/low", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var levels []StockLevel
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &levels))
	require.Len(t, levels, 1)
	assert.Equal(t, a, levels[0].BookID)

	rr = do(http.MethodGet, "/inventory/low?threshold=20", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &levels))
	assert.Len(t, levels, 2)

	assert.Equal(t, http.StatusBadRequest, do(http.MethodGet, "/inventory/low?threshold=-1", "").Code)

	rr = do(http.MethodPost, "/inventory/restock", fmt.Sprintf(`{"book_id":%d,"quantity":3}`, a))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var level StockLevel
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &level))
	assert.Equal(t, 5, level.Stock)
	assert.Equal(t, []string{events.RKRestocked}, rec.Keys())

	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/inventory/restock", `{"book_id":1,"quantity":-2}`).Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodPost, "/inventory/restock", `{"book_id":9999,"quantity":2}`).Code)
}
