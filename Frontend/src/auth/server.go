package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ahinestrog/librarymanager/internal/httpapi"
)

const sessionCookie = "id_token"

type AuthServer struct {
	idp          IdentityProvider
	roles        RoleStore
	secureCookie bool
}

func NewAuthServer(idp IdentityProvider, roles RoleStore, secureCookie bool) *AuthServer {
	return &AuthServer{idp: idp, roles: roles, secureCookie: secureCookie}
}

// Session is what the client needs to decide which panels to show.
type Session struct {
	SignedIn  bool   `json:"signed_in"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	ShowAdmin bool   `json:"show_admin"`
	ShowUser  bool   `json:"show_user"`
}

type credentials struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (s *AuthServer) Routes(r chi.Router) {
	r.Post("/register", s.register)
	r.Post("/login", s.login)
	r.Post("/logout", s.logout)
	r.Get("/session", s.session)
}

func (s *AuthServer) register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httpapi.DecodeJSON(r, &in); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		httpapi.WriteError(w, r, httpapi.BadRequest("email and password required"))
		return
	}
	if in.Password != in.ConfirmPassword {
		httpapi.WriteError(w, r, httpapi.BadRequest("passwords do not match"))
		return
	}

	acct, err := s.idp.SignUp(r.Context(), in.Email, in.Password)
	if err != nil {
		httpapi.WriteError(w, r, providerError(err, http.StatusBadRequest))
		return
	}
	logger := zerolog.Ctx(r.Context())
	if err := s.roles.SetRole(r.Context(), acct.UID, RoleUser); err != nil {
		// a missing document reads as "user" anyway
		logger.Warn().Err(err).Str("uid", acct.UID).Msg("write role document failed")
	}
	logger.Info().Str("uid", acct.UID).Msg("registered")

	s.setCookie(w, acct)
	httpapi.WriteJSON(w, http.StatusCreated, s.view(r.Context(), acct))
}

func (s *AuthServer) login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httpapi.DecodeJSON(r, &in); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		httpapi.WriteError(w, r, httpapi.BadRequest("email and password required"))
		return
	}
	acct, err := s.idp.SignIn(r.Context(), strings.TrimSpace(in.Email), in.Password)
	if err != nil {
		httpapi.WriteError(w, r, providerError(err, http.StatusUnauthorized))
		return
	}
	s.setCookie(w, acct)
	httpapi.WriteJSON(w, http.StatusOK, s.view(r.Context(), acct))
}

func (s *AuthServer) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: s.secureCookie})
	httpapi.WriteJSON(w, http.StatusOK, Session{})
}

func (s *AuthServer) session(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		httpapi.WriteJSON(w, http.StatusOK, Session{})
		return
	}
	acct, err := s.idp.Lookup(r.Context(), c.Value)
	var rej ErrRejected
	if errors.As(err, &rej) {
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: s.secureCookie})
		httpapi.WriteJSON(w, http.StatusOK, Session{})
		return
	}
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, s.view(r.Context(), acct))
}

// view resolves the role flags. A lookup failure keeps both role panels
// hidden.
func (s *AuthServer) view(ctx context.Context, acct Account) Session {
	v := Session{SignedIn: true, Email: acct.Email}
	role, ok, err := s.roles.Role(ctx, acct.UID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("uid", acct.UID).Msg("role lookup failed")
		return v
	}
	if !ok {
		role = RoleUser
	}
	v.Role = role
	v.ShowAdmin = role == RoleAdmin
	v.ShowUser = role == RoleUser
	return v
}

func (s *AuthServer) setCookie(w http.ResponseWriter, acct Account) {
	maxAge := int(acct.ExpiresIn / time.Second)
	if maxAge <= 0 {
		maxAge = 3600
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    acct.IDToken,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func providerError(err error, status int) error {
	var rej ErrRejected
	if !errors.As(err, &rej) {
		return &httpapi.Error{Status: http.StatusBadGateway, Message: "identity provider unavailable", Err: err}
	}
	if rej.Code == "EMAIL_EXISTS" {
		status = http.StatusConflict
	}
	return &httpapi.Error{Status: status, Message: rej.Error()}
}
