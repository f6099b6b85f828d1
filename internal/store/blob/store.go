// Package blob keeps the whole board in a single JSON document held by a
// Blob backend: a local file or a remote edge config item.
package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"themeboard/internal/cache"
	"themeboard/internal/store"
	"themeboard/internal/theme"
)

// Blob reads and writes the raw document. Load returns nil data when nothing
// has been stored yet.
type Blob interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Watcher is implemented by blobs that can report outside changes.
type Watcher interface {
	Watch(onChange func()) (io.Closer, error)
}

type Store struct {
	blob   Blob
	cache  *cache.TTL[*Document]
	logger *slog.Logger
	watch  io.Closer

	// read-modify-write cycles run one at a time
	mu sync.Mutex
}

// New wraps b. Reads go through c, which is kept up to date by every write;
// a nil c disables caching.
func New(b Blob, c *cache.TTL[*Document], logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if c == nil {
		c = cache.NewTTL[*Document](0)
	}

	s := &Store{blob: b, cache: c, logger: logger}

	if w, ok := b.(Watcher); ok {
		closer, err := w.Watch(func() {
			logger.Debug("themes document changed on disk")
			c.Invalidate()
		})
		if err != nil {
			return nil, fmt.Errorf("watch themes document: %w", err)
		}
		s.watch = closer
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.watch != nil {
		return s.watch.Close()
	}
	return nil
}

func (s *Store) fetch(ctx context.Context) (*Document, error) {
	data, err := s.blob.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load themes document: %w", err)
	}
	return decodeDocument(data)
}

// read returns the cached document. Callers must not modify it.
func (s *Store) read(ctx context.Context) (*Document, error) {
	return s.cache.Get(ctx, s.fetch)
}

// write loads a fresh copy, applies fn and saves the result.
func (s *Store) write(ctx context.Context, fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	doc := current.clone()
	if err := fn(doc); err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode themes document: %w", err)
	}
	if err := s.blob.Save(ctx, data); err != nil {
		s.cache.Invalidate()
		return fmt.Errorf("save themes document: %w", err)
	}
	s.cache.Set(doc)
	return nil
}

func (s *Store) Create(ctx context.Context, content string, now time.Time) (*theme.Theme, error) {
	var created theme.Theme
	err := s.write(ctx, func(doc *Document) error {
		if doc.contentTaken(content, 0) {
			return store.ErrDuplicate
		}
		r := Record{
			ID:        doc.NextID,
			Content:   content,
			CreatedAt: now,
			UpdatedAt: now,
		}
		doc.Themes = append(doc.Themes, r)
		doc.NextID++
		created = r.toTheme()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) List(ctx context.Context) ([]theme.Theme, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	themes := make([]theme.Theme, 0, len(doc.Themes))
	for _, r := range doc.Themes {
		themes = append(themes, r.toTheme())
	}
	theme.Sort(themes)
	return themes, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*theme.Theme, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	i := doc.index(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	t := doc.Themes[i].toTheme()
	return &t, nil
}

func (s *Store) Update(ctx context.Context, id int64, m theme.Mutation) (*theme.Theme, error) {
	var updated theme.Theme
	err := s.write(ctx, func(doc *Document) error {
		i := doc.index(id)
		if i < 0 {
			return store.ErrNotFound
		}
		r := &doc.Themes[i]

		if m.Content != nil {
			if doc.contentTaken(*m.Content, id) {
				return store.ErrDuplicate
			}
			r.Content = *m.Content
		}
		if m.IncrementVotes {
			r.Votes++
		}
		if m.ToggleCompleted {
			r.Completed = flag(r.Completed == 0)
		}
		if m.ToggleArchived {
			r.Archived = flag(r.Archived == 0)
		}
		r.UpdatedAt = m.UpdatedAt
		updated = r.toTheme()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.write(ctx, func(doc *Document) error {
		i := doc.index(id)
		if i < 0 {
			return store.ErrNotFound
		}
		doc.Themes = append(doc.Themes[:i], doc.Themes[i+1:]...)
		return nil
	})
}
