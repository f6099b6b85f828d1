// Package badger stores themes in an embedded Badger key-value database.
//
// Each theme lives under theme:id:<id> as JSON, with a theme:content:<text>
// index pointing back at its id. Ids come from a persisted Badger sequence.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"themeboard/internal/store"
	"themeboard/internal/theme"
)

const (
	themePrefix   = "theme:id:"
	contentPrefix = "theme:content:"
	sequenceKey   = "themes:next_id"
)

type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger

	// writes are serialized so read-modify-write updates never race
	mu sync.Mutex
}

// record is the stored form. Hidden is read only, for data written before
// the archived rename.
type record struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Votes     int64     `json:"votes"`
	Completed int       `json:"completed"`
	Archived  int       `json:"archived"`
	Hidden    *int      `json:"hidden,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Open opens the database in dir. An empty dir keeps everything in memory.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts.SyncWrites = true
		opts.CompactL0OnClose = true
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	seq, err := db.GetSequence([]byte(sequenceKey), 100)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("theme id sequence: %w", err)
	}

	logger.Info("badger store opened", "dir", dir, "in_memory", dir == "")
	return &Store{db: db, seq: seq, logger: logger}, nil
}

func (s *Store) Close() error {
	// releasing returns unused leased ids; a failure only leaves a gap
	if err := s.seq.Release(); err != nil {
		s.logger.Warn("release id sequence", "error", err)
	}
	return s.db.Close()
}

func themeKey(id int64) []byte {
	return []byte(themePrefix + strconv.FormatInt(id, 10))
}

func contentKey(content string) []byte {
	return []byte(contentPrefix + content)
}

func (r *record) toTheme() theme.Theme {
	archived := r.Archived != 0
	if r.Hidden != nil && *r.Hidden != 0 {
		archived = true
	}
	return theme.Theme{
		ID:        r.ID,
		Content:   r.Content,
		Votes:     r.Votes,
		Completed: r.Completed != 0,
		Archived:  archived,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func fromTheme(t *theme.Theme) *record {
	r := &record{
		ID:        t.ID,
		Content:   t.Content,
		Votes:     t.Votes,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.Completed {
		r.Completed = 1
	}
	if t.Archived {
		r.Archived = 1
	}
	return r
}

func loadTheme(txn *badger.Txn, id int64) (*theme.Theme, error) {
	item, err := txn.Get(themeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("decode theme %d: %w", id, err)
	}
	t := rec.toTheme()
	return &t, nil
}

func putTheme(txn *badger.Txn, t *theme.Theme) error {
	data, err := json.Marshal(fromTheme(t))
	if err != nil {
		return fmt.Errorf("marshal theme: %w", err)
	}
	return txn.Set(themeKey(t.ID), data)
}

// contentOwner reports which id holds content, or 0 if none does.
func contentOwner(txn *badger.Txn, content string) (int64, error) {
	item, err := txn.Get(contentKey(content))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var id int64
	err = item.Value(func(val []byte) error {
		id, err = strconv.ParseInt(string(val), 10, 64)
		return err
	})
	return id, err
}

func (s *Store) Create(ctx context.Context, content string, now time.Time) (*theme.Theme, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var created *theme.Theme
	err := s.db.Update(func(txn *badger.Txn) error {
		owner, err := contentOwner(txn, content)
		if err != nil {
			return err
		}
		if owner != 0 {
			return store.ErrDuplicate
		}

		next, err := s.seq.Next()
		if err != nil {
			return fmt.Errorf("next theme id: %w", err)
		}

		t := &theme.Theme{
			ID:        int64(next) + 1,
			Content:   content,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := putTheme(txn, t); err != nil {
			return err
		}
		if err := txn.Set(contentKey(content), []byte(strconv.FormatInt(t.ID, 10))); err != nil {
			return fmt.Errorf("set content index: %w", err)
		}
		created = t
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("create theme: %w", err)
	}

	s.logger.Debug("theme created", "id", created.ID)
	return created, nil
}

func (s *Store) List(ctx context.Context) ([]theme.Theme, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	themes := []theme.Theme{}
	prefix := []byte(themePrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec record
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				themes = append(themes, rec.toTheme())
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}

	theme.Sort(themes)
	return themes, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*theme.Theme, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var got *theme.Theme
	err := s.db.View(func(txn *badger.Txn) error {
		t, err := loadTheme(txn, id)
		got = t
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get theme %d: %w", id, err)
	}
	return got, nil
}

func (s *Store) Update(ctx context.Context, id int64, m theme.Mutation) (*theme.Theme, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var updated *theme.Theme
	err := s.db.Update(func(txn *badger.Txn) error {
		t, err := loadTheme(txn, id)
		if err != nil {
			return err
		}

		if m.Content != nil && *m.Content != t.Content {
			owner, err := contentOwner(txn, *m.Content)
			if err != nil {
				return err
			}
			if owner != 0 {
				return store.ErrDuplicate
			}
			if err := txn.Delete(contentKey(t.Content)); err != nil {
				return err
			}
			if err := txn.Set(contentKey(*m.Content), []byte(strconv.FormatInt(id, 10))); err != nil {
				return err
			}
			t.Content = *m.Content
		}
		if m.IncrementVotes {
			t.Votes++
		}
		if m.ToggleCompleted {
			t.Completed = !t.Completed
		}
		if m.ToggleArchived {
			t.Archived = !t.Archived
		}
		t.UpdatedAt = m.UpdatedAt

		if err := putTheme(txn, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("update theme %d: %w", id, err)
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		t, err := loadTheme(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(themeKey(id)); err != nil {
			return err
		}
		return txn.Delete(contentKey(t.Content))
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete theme %d: %w", id, err)
	}

	s.logger.Debug("theme deleted", "id", id)
	return nil
}
