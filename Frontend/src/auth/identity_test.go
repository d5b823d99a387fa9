package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeToolkit(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k123", r.URL.Query().Get("key"))
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/accounts:signUp":
			if in["email"] == "taken@example.com" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"code":400,"message":"EMAIL_EXISTS"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"localId":"L1","email":"new@example.com","idToken":"T1","expiresIn":"3600"}`))
		case "/v1/accounts:signInWithPassword":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"WEAK_PASSWORD : Password should be at least 6 characters"}}`))
		case "/v1/accounts:lookup":
			if in["idToken"] != "T1" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_ID_TOKEN"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"users":[{"localId":"L1","email":"new@example.com"}]}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestToolkitSignUpAndLookup(t *testing.T) {
	srv := fakeToolkit(t)
	tk := NewToolkit(srv.URL+"/v1/", "k123")

	acct, err := tk.SignUp(context.Background(), "new@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, Account{UID: "L1", Email: "new@example.com", IDToken: "T1", ExpiresIn: time.Hour}, acct)

	acct, err = tk.Lookup(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "L1", acct.UID)

	_, err = tk.Lookup(context.Background(), "bogus")
	var rej ErrRejected
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "INVALID_ID_TOKEN", rej.Code)
}

func TestToolkitErrors(t *testing.T) {
	srv := fakeToolkit(t)
	tk := NewToolkit(srv.URL+"/v1", "k123")

	_, err := tk.SignUp(context.Background(), "taken@example.com", "secret1")
	var rej ErrRejected
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "EMAIL_EXISTS", rej.Code)

	_, err = tk.SignIn(context.Background(), "a@example.com", "x")
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "WEAK_PASSWORD", rej.Code)
	assert.Equal(t, "Password should be at least 6 characters", rej.Detail)

	tk = NewToolkit(srv.URL+"/other", "k123")
	_, err = tk.SignIn(context.Background(), "a@example.com", "x")
	require.Error(t, err)
	assert.NotErrorAs(t, err, &rej)
}
