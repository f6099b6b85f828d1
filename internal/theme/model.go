package theme

import (
	"cmp"
	"context"
	"slices"
	"time"
)

// Theme is a single suggestion on the board.
type Theme struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Votes     int64     `json:"votes"`
	Completed bool      `json:"completed"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Mutation describes one atomic update of a theme. Zero fields are left
// alone; UpdatedAt is always written.
type Mutation struct {
	// Content replaces the text. Adapters must reject it with
	// store.ErrDuplicate when another theme already holds it.
	Content *string

	IncrementVotes  bool
	ToggleCompleted bool
	ToggleArchived  bool

	UpdatedAt time.Time
}

// Store is the persistence contract every backend implements.
//
// Create and Update enforce content uniqueness themselves and report
// store.ErrDuplicate; Get, Update and Delete report store.ErrNotFound for
// unknown ids. Create and Update return the record exactly as written.
type Store interface {
	Create(ctx context.Context, content string, now time.Time) (*Theme, error)
	List(ctx context.Context) ([]Theme, error)
	Get(ctx context.Context, id int64) (*Theme, error)
	Update(ctx context.Context, id int64, m Mutation) (*Theme, error)
	Delete(ctx context.Context, id int64) error
	Close() error
}

// Stats summarizes the board.
type Stats struct {
	Themes    int   `json:"themes"`
	Votes     int64 `json:"votes"`
	Completed int   `json:"completed"`
	Archived  int   `json:"archived"`
}

// Compare orders themes by votes descending, then by submission time, then
// by id.
func Compare(a, b Theme) int {
	if a.Votes != b.Votes {
		return cmp.Compare(b.Votes, a.Votes)
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Sort puts themes in board order in place.
func Sort(themes []Theme) {
	slices.SortStableFunc(themes, Compare)
}
