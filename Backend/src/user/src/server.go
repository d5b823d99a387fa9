package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ahinestrog/librarymanager/internal/httpapi"
)

type UserServer struct {
	svc *UserService
}

func NewUserServer(svc *UserService) *UserServer { return &UserServer{svc: svc} }

func (s *UserServer) Routes(r chi.Router) {
	r.Get("/users", s.getUsers)
	r.Post("/users", s.createUser)
	r.Put("/users", s.updateUser)
	r.Delete("/users", s.deleteUser)
	r.Post("/users/authenticate", s.authenticate)

	r.Get("/customers", s.getCustomer)
	r.Post("/customers", s.createCustomer)
}

func (s *UserServer) getUsers(w http.ResponseWriter, r *http.Request) {
	if id, ok, err := httpapi.QueryID(r, "user_id"); ok {
		if err != nil {
			httpapi.WriteError(w, r, err)
			return
		}
		u, err := s.svc.repo.GetByID(r.Context(), id)
		if err != nil {
			httpapi.WriteError(w, r, toHTTP(err))
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, u)
		return
	}
	users, err := s.svc.repo.List(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, users)
}

func (s *UserServer) createUser(w http.ResponseWriter, r *http.Request) {
	var in CreateUserInput
	if err := httpapi.DecodeJSON(r, &in); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	u, err := s.svc.Register(r.Context(), in)
	if err != nil {
		httpapi.WriteError(w, r, toHTTP(err))
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "user": u})
}

func (s *UserServer) updateUser(w http.ResponseWriter, r *http.Request) {
	var in UpdateUserInput
	if err := httpapi.DecodeJSON(r, &in); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	u, err := s.svc.Update(r.Context(), in)
	if err != nil {
		httpapi.WriteError(w, r, toHTTP(err))
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

// deleteUser takes user_id from the query string or from a JSON body.
func (s *UserServer) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok, err := httpapi.QueryID(r, "user_id")
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	if !ok {
		var body struct {
			UserID int64 `json:"user_id"`
		}
		if r.ContentLength != 0 {
			if err := httpapi.DecodeJSON(r, &body); err != nil {
				httpapi.WriteError(w, r, err)
				return
			}
		}
		if body.UserID <= 0 {
			httpapi.WriteError(w, r, httpapi.BadRequest("user_id is required"))
			return
		}
		id = body.UserID
	}
	if err := s.svc.Delete(r.Context(), id); err != nil {
		httpapi.WriteError(w, r, toHTTP(err))
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "user_id": id})
}

func (s *UserServer) authenticate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := httpapi.DecodeJSON(r, &in); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	u, err := s.svc.Authenticate(r.Context(), in.Login, in.Password)
	if err != nil {
		httpapi.WriteError(w, r, toHTTP(err))
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "user": u})
}

func (s *UserServer) getCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if id, ok, err := httpapi.QueryID(r, "customer_id"); ok {
		if err != nil {
			httpapi.WriteError(w, r, err)
			return
		}
		c, err := s.svc.repo.CustomerByID(ctx, id)
		if err != nil {
			httpapi.WriteError(w, r, toHTTP(err))
			return
		}
		httpapi.WriteJSON(w, http.StatusOK, c)
		return
	}
	id, ok, err := httpapi.QueryID(r, "user_id")
	if err == nil && !ok {
		err = httpapi.BadRequest("customer_id or user_id is required")
	}
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	c, err := s.svc.repo.CustomerByUser(ctx, id)
	if err != nil {
		httpapi.WriteError(w, r, toHTTP(err))
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, c)
}

func (s *UserServer) createCustomer(w http.ResponseWriter, r *http.Request) {
	var in Customer
	if err := httpapi.DecodeJSON(r, &in); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	c, err := s.svc.CreateCustomer(r.Context(), in)
	if err != nil {
		httpapi.WriteError(w, r, toHTTP(err))
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, c)
}

func toHTTP(err error) error {
	var (
		verr ErrValidation
		cerr ErrConflict
	)
	switch {
	case errors.As(err, &verr):
		return httpapi.BadRequest(verr.Msg)
	case errors.As(err, &cerr):
		return httpapi.Conflict(cerr.Msg)
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrCustomerNotFound):
		return httpapi.NotFound(err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return httpapi.Unauthorized(err.Error())
	}
	return err
}
