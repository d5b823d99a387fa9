package main

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/ahinestrog/librarymanager/internal/events"
)

const minPasswordLen = 6

type UserService struct {
	repo *UserRepository
	pub  events.Publisher
	cost int
	log  zerolog.Logger
	now  func() time.Time
}

func NewUserService(repo *UserRepository, pub events.Publisher, cost int, logger zerolog.Logger) *UserService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, pub: pub, cost: cost, log: logger, now: time.Now}
}

func (s *UserService) publish(ctx context.Context, key string, payload any) {
	if err := s.pub.PublishJSON(context.WithoutCancel(ctx), key, payload); err != nil {
		s.log.Warn().Err(err).Str("rk", key).Msg("publish failed")
	}
}

func checkIdentity(username, email string) error {
	if username == "" || email == "" {
		return ErrValidation{Msg: "username and email are required"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrValidation{Msg: "invalid email"}
	}
	return nil
}

func (s *UserService) Register(ctx context.Context, in CreateUserInput) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := checkIdentity(in.Username, in.Email); err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLen {
		return nil, ErrValidation{Msg: "password must be at least 6 characters"}
	}
	in.Role = normalizeRole(in.Role)

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, in, string(hash), s.now())
	if err != nil {
		return nil, err
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.RKUserCreated, events.UserChanged{UserID: u.ID, Username: u.Username, Role: u.Role})
	return u, nil
}

// Authenticate checks a password against the stored bcrypt hash. Unknown
// users and wrong passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*User, error) {
	id, hash, err := s.repo.PasswordHash(ctx, strings.TrimSpace(login))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) Update(ctx context.Context, in UpdateUserInput) (*User, error) {
	if in.UserID <= 0 {
		return nil, ErrValidation{Msg: "user_id is required"}
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := checkIdentity(in.Username, in.Email); err != nil {
		return nil, err
	}
	in.Role = normalizeRole(in.Role)
	if err := s.repo.Update(ctx, in); err != nil {
		return nil, err
	}
	u, err := s.repo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.RKUserUpdated, events.UserChanged{UserID: u.ID, Username: u.Username, Role: u.Role})
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.RKUserDeleted, events.UserChanged{UserID: id})
	return nil
}

func (s *UserService) CreateCustomer(ctx context.Context, c Customer) (*Customer, error) {
	if c.UserID <= 0 {
		return nil, ErrValidation{Msg: "user_id is required"}
	}
	c.trim()
	id, err := s.repo.CreateCustomer(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id
	return &c, nil
}
