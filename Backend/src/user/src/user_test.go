package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ahinestrog/librarymanager/internal/events"
	"github.com/ahinestrog/librarymanager/internal/events/eventstest"
	"github.com/ahinestrog/librarymanager/internal/httpapi"
	"github.com/ahinestrog/librarymanager/internal/storage/storagetest"
)

type app struct {
	svc     *UserService
	handler http.Handler
	events  *eventstest.Recorder
}

func setupApp(t *testing.T) *app {
	t.Helper()
	db := storagetest.Open(t)
	rec := &eventstest.Recorder{}
	svc := NewUserService(NewUserRepository(db), rec, bcrypt.MinCost, zerolog.Nop())
	router := httpapi.NewRouter(zerolog.Nop(), db)
	NewUserServer(svc).Routes(router)
	return &app{svc: svc, handler: router, events: rec}
}

func (a *app) call(t *testing.T, method, target string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, httptest.NewRequest(method, target, &buf))
	var out map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &out)
	return rr, out
}

func TestRegisterHashesPassword(t *testing.T) {
	a := setupApp(t)
	ctx := context.Background()

	u, err := a.svc.Register(ctx, CreateUserInput{Username: "nagy", Email: " Nagy@Example.hu ", Password: "titok123"})
	require.NoError(t, err)
	assert.Equal(t, RoleCustomer, u.Role)
	assert.Equal(t, "nagy@example.hu", u.Email)
	assert.True(t, u.IsActive)

	_, hash, err := a.svc.repo.PasswordHash(ctx, "nagy")
	require.NoError(t, err)
	assert.NotEqual(t, "titok123", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("titok123")))

	got, err := a.svc.Authenticate(ctx, "nagy@example.hu", "titok123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	_, err = a.svc.Authenticate(ctx, "nagy", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.svc.Authenticate(ctx, "ghost", "titok123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserEndpoints(t *testing.T) {
	a := setupApp(t)

	rr, body := a.call(t, http.MethodPost, "/users", map[string]any{
		"username": "admin2", "email": "admin2@example.hu", "password": "secret1", "role": "ADMIN",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	user := body["user"].(map[string]any)
	assert.Equal(t, "admin", user["role"])
	assert.NotContains(t, rr.Body.String(), "password")
	id := int64(user["user_id"].(float64))

	rr, _ = a.call(t, http.MethodPost, "/users", map[string]any{
		"username": "admin2", "email": "other@example.hu", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr, body = a.call(t, http.MethodPut, "/users", map[string]any{
		"user_id": id, "username": "admin2", "email": "admin2@example.hu", "role": "root", "is_active": false,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	user = body["user"].(map[string]any)
	assert.Equal(t, "customer", user["role"])
	assert.Equal(t, false, user["is_active"])

	rr, _ = a.call(t, http.MethodPut, "/users", map[string]any{
		"user_id": 999, "username": "x", "email": "x@example.hu",
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = a.call(t, http.MethodGet, fmt.Sprintf("/users?user_id=%d", id), nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = a.call(t, http.MethodDelete, "/users", map[string]any{"user_id": id})
	assert.Equal(t, http.StatusOK, rr.Code)
	rr, _ = a.call(t, http.MethodDelete, fmt.Sprintf("/users?user_id=%d", id), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr, _ = a.call(t, http.MethodDelete, "/users", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Equal(t, []string{events.RKUserCreated, events.RKUserUpdated, events.RKUserDeleted}, a.events.Keys())
}

func TestRegisterValidation(t *testing.T) {
	a := setupApp(t)
	for name, in := range map[string]CreateUserInput{
		"blank username": {Email: "a@example.hu", Password: "secret1"},
		"bad email":      {Username: "a", Email: "not-an-email", Password: "secret1"},
		"short password": {Username: "a", Email: "a@example.hu", Password: "123"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.svc.Register(context.Background(), in)
			assert.ErrorAs(t, err, &ErrValidation{})
		})
	}
}

func TestCustomerProfiles(t *testing.T) {
	a := setupApp(t)
	u, err := a.svc.Register(context.Background(), CreateUserInput{Username: "toth", Email: "toth@example.hu", Password: "secret1"})
	require.NoError(t, err)

	rr, body := a.call(t, http.MethodPost, "/customers", map[string]any{
		"user_id": u.ID, "first_name": " Béla ", "last_name": "Tóth", "city": "Pécs",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "Béla", body["first_name"])
	cid := int64(body["customer_id"].(float64))

	rr, _ = a.call(t, http.MethodPost, "/customers", map[string]any{"user_id": u.ID})
	assert.Equal(t, http.StatusConflict, rr.Code)
	rr, _ = a.call(t, http.MethodPost, "/customers", map[string]any{"user_id": 4040})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, body = a.call(t, http.MethodGet, fmt.Sprintf("/customers?user_id=%d", u.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, cid, body["customer_id"])

	rr, _ = a.call(t, http.MethodGet, "/customers?customer_id=31", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr, _ = a.call(t, http.MethodGet, "/customers", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteUserWithOrdersConflicts(t *testing.T) {
	db := storagetest.Open(t)
	svc := NewUserService(NewUserRepository(db), &eventstest.Recorder{}, bcrypt.MinCost, zerolog.Nop())
	uid := storagetest.User(t, db, "vevo", "vevo@example.hu")
	cid := storagetest.Customer(t, db, uid, "V", "E")
	_, err := db.Exec(`INSERT INTO orders(customer_id, order_date, status, total_amount) VALUES(?, '2024-03-01T10:00:00Z', 'pending', 10)`, cid)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), uid)
	assert.ErrorAs(t, err, &ErrConflict{})
	assert.Equal(t, 1, storagetest.Count(t, db, "customers"))
}

func TestAuthenticateEndpoint(t *testing.T) {
	a := setupApp(t)
	_, err := a.svc.Register(context.Background(), CreateUserInput{Username: "kiss", Email: "kiss@example.hu", Password: "jelszo1"})
	require.NoError(t, err)

	rr, body := a.call(t, http.MethodPost, "/users/authenticate", map[string]string{"login": "kiss", "password": "jelszo1"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["ok"])

	rr, body = a.call(t, http.MethodPost, "/users/authenticate", map[string]string{"login": "kiss", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.True(t, strings.Contains(body["error"].(string), "invalid"))
}
