// Package httpapi is the HTTP scaffolding shared by every service: JSON
// responses and errors, request-id and access-log middleware, CORS and the
// chi router with health endpoint.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Error is an error with an HTTP status. BookID and ItemIndex point at the
// offending entity when one is known.
type Error struct {
	Status    int
	Message   string
	BookID    int64
	ItemIndex *int
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

type errorBody struct {
	Error     string `json:"error"`
	BookID    int64  `json:"book_id,omitempty"`
	ItemIndex *int   `json:"item_index,omitempty"`
}

func BadRequest(msg string) *Error   { return &Error{Status: http.StatusBadRequest, Message: msg} }
func NotFound(msg string) *Error     { return &Error{Status: http.StatusNotFound, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Status: http.StatusConflict, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Status: http.StatusUnauthorized, Message: msg} }

// WriteJSON encodes v before writing the status, so a value that cannot be
// encoded still yields a JSON 500.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody{Error: "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// WriteError renders err as a JSON body. Errors that are not *Error become a
// 500 carrying the underlying message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = &Error{Status: http.StatusInternalServerError, Message: err.Error(), Err: err}
	}
	logger := zerolog.Ctx(r.Context())
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", apiErr.Status).Msg("request failed")
	} else {
		logger.Debug().Str("reason", apiErr.Message).Int("status", apiErr.Status).Msg("request rejected")
	}
	WriteJSON(w, apiErr.Status, errorBody{
		Error:     apiErr.Message,
		BookID:    apiErr.BookID,
		ItemIndex: apiErr.ItemIndex,
	})
}

// DecodeJSON reads a single JSON document from the request body.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &Error{Status: http.StatusBadRequest, Message: "invalid JSON body", Err: err}
	}
	return nil
}
