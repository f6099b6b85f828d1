package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"themeboard/internal/store"
	"themeboard/internal/theme"
)

// themeColumns must match the scan order in scanTheme.
var themeColumns = []string{"id", "content", "votes", "completed", "archived", "created_at", "updated_at"}

var returningThemeColumns = "RETURNING " + strings.Join(themeColumns, ", ")

func scanTheme(scanner interface{ Scan(dest ...any) error }) (*theme.Theme, error) {
	var (
		t                    theme.Theme
		completed, archived  int
		createdAt, updatedAt dbTime
	)

	err := scanner.Scan(&t.ID, &t.Content, &t.Votes, &completed, &archived, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.Completed = completed != 0
	t.Archived = archived != 0

	t.CreatedAt = createdAt.Time
	t.UpdatedAt = updatedAt.Time
	return &t, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *Store) Create(ctx context.Context, content string, now time.Time) (*theme.Theme, error) {
	query, args, err := s.sb.Insert("themes").
		Columns("content", "votes", "completed", "archived", "created_at", "updated_at").
		Values(content, 0, 0, 0, formatTime(now), formatTime(now)).
		Suffix(returningThemeColumns).
		ToSql()
	if err != nil {
		return nil, err
	}

	t, err := scanTheme(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, fmt.Errorf("insert theme: %w", err)
	}
	return t, nil
}

func (s *Store) List(ctx context.Context) ([]theme.Theme, error) {
	query, args, err := s.sb.Select(themeColumns...).
		From("themes").
		OrderBy("votes DESC", "created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer rows.Close()

	themes := []theme.Theme{}
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		themes = append(themes, *t)
	}
	return themes, rows.Err()
}

func (s *Store) Get(ctx context.Context, id int64) (*theme.Theme, error) {
	query, args, err := s.sb.Select(themeColumns...).
		From("themes").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	t, err := scanTheme(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get theme %d: %w", id, err)
	}
	return t, nil
}

// Update applies m in a single UPDATE statement so concurrent upvotes and
// toggles never lose each other.
func (s *Store) Update(ctx context.Context, id int64, m theme.Mutation) (*theme.Theme, error) {
	b := s.sb.Update("themes").
		Set("updated_at", formatTime(m.UpdatedAt)).
		Where(sq.Eq{"id": id}).
		Suffix(returningThemeColumns)

	if m.Content != nil {
		b = b.Set("content", *m.Content)
	}
	if m.IncrementVotes {
		b = b.Set("votes", sq.Expr("votes + 1"))
	}
	if m.ToggleCompleted {
		b = b.Set("completed", sq.Expr("1 - completed"))
	}
	if m.ToggleArchived {
		b = b.Set("archived", sq.Expr("1 - archived"))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	t, err := scanTheme(s.db.QueryRowContext(ctx, query, args...))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, store.ErrNotFound
	case isUniqueViolation(err):
		return nil, store.ErrDuplicate
	case err != nil:
		return nil, fmt.Errorf("update theme %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	query, args, err := s.sb.Delete("themes").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete theme %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete theme %d: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
