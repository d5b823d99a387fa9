package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Account is a signed-in identity at the provider.
type Account struct {
	UID       string
	Email     string
	IDToken   string
	ExpiresIn time.Duration
}

// IdentityProvider owns credentials and sessions; this service never sees a
// password hash.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) (Account, error)
	SignIn(ctx context.Context, email, password string) (Account, error)
	Lookup(ctx context.Context, idToken string) (Account, error)
}

// ErrRejected is a 4xx answer from the provider, e.g. EMAIL_EXISTS or
// INVALID_ID_TOKEN.
type ErrRejected struct {
	Code   string
	Detail string
}

func (e ErrRejected) Error() string {
	if e.Detail != "" {
		return e.Code + ": " + e.Detail
	}
	return e.Code
}

// Toolkit talks to the Identity Toolkit REST API.
type Toolkit struct {
	base   string
	key    string
	client *http.Client
}

func NewToolkit(baseURL, apiKey string) *Toolkit {
	return &Toolkit{
		base:   strings.TrimSuffix(baseURL, "/"),
		key:    apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenResponse struct {
	LocalID   string `json:"localId"`
	Email     string `json:"email"`
	IDToken   string `json:"idToken"`
	ExpiresIn string `json:"expiresIn"`
}

func (r tokenResponse) account() Account {
	secs, _ := strconv.Atoi(r.ExpiresIn)
	return Account{UID: r.LocalID, Email: r.Email, IDToken: r.IDToken, ExpiresIn: time.Duration(secs) * time.Second}
}

func (t *Toolkit) SignUp(ctx context.Context, email, password string) (Account, error) {
	var out tokenResponse
	err := t.call(ctx, "accounts:signUp", map[string]any{
		"email": email, "password": password, "returnSecureToken": true,
	}, &out)
	return out.account(), err
}

func (t *Toolkit) SignIn(ctx context.Context, email, password string) (Account, error) {
	var out tokenResponse
	err := t.call(ctx, "accounts:signInWithPassword", map[string]any{
		"email": email, "password": password, "returnSecureToken": true,
	}, &out)
	return out.account(), err
}

func (t *Toolkit) Lookup(ctx context.Context, idToken string) (Account, error) {
	var out struct {
		Users []struct {
			LocalID string `json:"localId"`
			Email   string `json:"email"`
		} `json:"users"`
	}
	if err := t.call(ctx, "accounts:lookup", map[string]any{"idToken": idToken}, &out); err != nil {
		return Account{}, err
	}
	if len(out.Users) == 0 {
		return Account{}, ErrRejected{Code: "USER_NOT_FOUND"}
	}
	return Account{UID: out.Users[0].LocalID, Email: out.Users[0].Email, IDToken: idToken}, nil
}

func (t *Toolkit) call(ctx context.Context, method string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	endpoint := t.base + "/" + method + "?key=" + url.QueryEscape(t.key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity %s: %w", method, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("identity %s: read: %w", method, err)
	}

	if resp.StatusCode >= 400 {
		var e struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		if resp.StatusCode >= 500 || e.Error.Message == "" {
			return fmt.Errorf("identity %s: status %d", method, resp.StatusCode)
		}
		// messages look like "WEAK_PASSWORD : Password should be at least 6 characters"
		code, detail, _ := strings.Cut(e.Error.Message, ":")
		return ErrRejected{Code: strings.TrimSpace(code), Detail: strings.TrimSpace(detail)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("identity %s: decode: %w", method, err)
	}
	return nil
}
