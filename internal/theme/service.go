// Package theme is the voting board itself: validation, uniqueness, votes and
// the admin lifecycle of a theme, on top of a pluggable Store.
package theme

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"themeboard/internal/auth"
	domainerrors "themeboard/internal/errors"
	"themeboard/internal/store"
)

var errNotFound = domainerrors.NotFound("Theme not found")

type Service struct {
	store    Store
	validate *validator.Validate
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Service)

// WithClock replaces the clock used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		store:    st,
		validate: newValidator(),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamps are kept at microsecond precision so every backend stores
// exactly what the service hands it
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) Create(ctx context.Context, content string) (*Theme, error) {
	content, err := s.normalizeContent(content)
	if err != nil {
		return nil, err
	}

	t, err := s.store.Create(ctx, content, s.timestamp())
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, domainerrors.Conflict("This theme already exists")
		}
		return nil, s.storageError("Failed to add theme", err)
	}

	s.logger.Info("theme created", "id", t.ID)
	return t, nil
}

func (s *Service) List(ctx context.Context) ([]Theme, error) {
	themes, err := s.store.List(ctx)
	if err != nil {
		return nil, s.storageError("Failed to fetch themes", err)
	}
	if themes == nil {
		themes = []Theme{}
	}
	Sort(themes)
	return themes, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Theme, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.mapStoreError("Failed to fetch theme", err)
	}
	return t, nil
}

// Upvote adds exactly one vote. Anyone may call it.
func (s *Service) Upvote(ctx context.Context, id int64) (*Theme, error) {
	t, err := s.store.Update(ctx, id, Mutation{
		IncrementVotes: true,
		UpdatedAt:      s.timestamp(),
	})
	if err != nil {
		return nil, s.mapStoreError("Failed to upvote theme", err)
	}
	return t, nil
}

func (s *Service) AdminUpdateContent(ctx context.Context, admin auth.Admin, id int64, content string) (*Theme, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	content, err := s.normalizeContent(content)
	if err != nil {
		return nil, err
	}

	t, err := s.store.Update(ctx, id, Mutation{
		Content:   &content,
		UpdatedAt: s.timestamp(),
	})
	if err != nil {
		return nil, s.mapStoreError("Failed to update theme", err)
	}

	s.logger.Info("theme content updated", "id", id, "admin", admin.Method())
	return t, nil
}

func (s *Service) ToggleCompleted(ctx context.Context, admin auth.Admin, id int64) (*Theme, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}

	t, err := s.store.Update(ctx, id, Mutation{
		ToggleCompleted: true,
		UpdatedAt:       s.timestamp(),
	})
	if err != nil {
		return nil, s.mapStoreError("Failed to toggle theme completion", err)
	}
	return t, nil
}

func (s *Service) ToggleArchived(ctx context.Context, admin auth.Admin, id int64) (*Theme, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}

	t, err := s.store.Update(ctx, id, Mutation{
		ToggleArchived: true,
		UpdatedAt:      s.timestamp(),
	})
	if err != nil {
		return nil, s.mapStoreError("Failed to toggle theme archived status", err)
	}
	return t, nil
}

// Delete removes the theme for good.
func (s *Service) Delete(ctx context.Context, admin auth.Admin, id int64) error {
	if err := requireAdmin(admin); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return s.mapStoreError("Failed to delete theme", err)
	}

	s.logger.Info("theme deleted", "id", id, "admin", admin.Method())
	return nil
}

func (s *Service) Stats(ctx context.Context, admin auth.Admin) (*Stats, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}

	themes, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{Themes: len(themes)}
	for _, t := range themes {
		st.Votes += t.Votes
		if t.Completed {
			st.Completed++
		}
		if t.Archived {
			st.Archived++
		}
	}
	return st, nil
}

func requireAdmin(admin auth.Admin) error {
	if !admin.Verified() {
		return domainerrors.Unauthorized("Unauthorized")
	}
	return nil
}

func (s *Service) mapStoreError(msg string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errNotFound
	case errors.Is(err, store.ErrDuplicate):
		return domainerrors.Conflict("This theme already exists")
	default:
		return s.storageError(msg, err)
	}
}

func (s *Service) storageError(msg string, err error) error {
	s.logger.Error(msg, "error", err)
	return domainerrors.Storage(msg, err)
}
