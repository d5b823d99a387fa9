package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ahinestrog/librarymanager/internal/events"
)

// Service wraps the repository and announces book changes. Publishing is
// best effort and never fails a write that already happened.
type Service struct {
	repo   Repository
	events events.Publisher
	log    zerolog.Logger
}

func NewService(repo Repository, pub events.Publisher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, events: pub, log: logger}
}

func (s *Service) publish(ctx context.Context, key string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(context.WithoutCancel(ctx), key, payload); err != nil {
		s.log.Warn().Err(err).Str("rk", key).Msg("publish failed")
	}
}

func (s *Service) OnCreated(ctx context.Context, b *Book) {
	s.publish(ctx, events.RKBookCreated, events.BookChanged{BookID: b.ID, Title: b.Title, Price: b.Price, Stock: b.Stock})
}

func (s *Service) OnUpdated(ctx context.Context, b *Book) {
	s.publish(ctx, events.RKBookUpdated, events.BookChanged{BookID: b.ID, Title: b.Title, Price: b.Price, Stock: b.Stock})
}

func (s *Service) OnDeleted(ctx context.Context, id int64) {
	s.publish(ctx, events.RKBookDeleted, events.BookChanged{BookID: id})
}

func (s *Service) CreateBook(ctx context.Context, in BookInput) (*Book, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	id, err := s.repo.CreateBook(ctx, in)
	if err != nil {
		return nil, err
	}
	b, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	s.OnCreated(ctx, b)
	return b, nil
}

func (s *Service) UpdateBook(ctx context.Context, id int64, in BookInput) (*Book, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateBook(ctx, id, in); err != nil {
		return nil, err
	}
	b, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	s.OnUpdated(ctx, b)
	return b, nil
}

func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	if err := s.repo.DeleteBook(ctx, id); err != nil {
		return err
	}
	s.OnDeleted(ctx, id)
	return nil
}
