// Package postgres stores themes in a hosted PostgreSQL database via gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"themeboard/internal/store"
	"themeboard/internal/theme"
)

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func Open(ctx context.Context, dsn string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := AutoMigrate(gdb.WithContext(ctx)); err != nil {
		sqlDB.Close()
		return nil, err
	}

	log.Info("postgres store opened")
	return &Store{db: gdb, logger: log}, nil
}

// AutoMigrate brings the themes table up to date, renaming the legacy
// hidden column first so its values survive as archived.
func AutoMigrate(gdb *gorm.DB) error {
	m := gdb.Migrator()
	if m.HasTable(&themeRow{}) && m.HasColumn(&themeRow{}, "hidden") && !m.HasColumn(&themeRow{}, "archived") {
		if err := m.RenameColumn(&themeRow{}, "hidden", "archived"); err != nil {
			return fmt.Errorf("rename hidden column: %w", err)
		}
	}

	if err := gdb.AutoMigrate(&themeRow{}); err != nil {
		return fmt.Errorf("migrate themes: %w", err)
	}

	stmts := []string{
		`create index if not exists idx_themes_order on themes(votes desc, created_at asc);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// mapError turns driver errors into store signals.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return store.ErrDuplicate
	}
	return err
}

func (s *Store) Create(ctx context.Context, content string, now time.Time) (*theme.Theme, error) {
	row := themeRow{
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if mapped := mapError(err); errors.Is(mapped, store.ErrDuplicate) {
			return nil, mapped
		}
		return nil, fmt.Errorf("insert theme: %w", err)
	}
	return row.toTheme(), nil
}

func (s *Store) List(ctx context.Context) ([]theme.Theme, error) {
	var rows []themeRow
	if err := s.db.WithContext(ctx).Order("votes desc, created_at asc, id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}

	out := make([]theme.Theme, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r.toTheme())
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*theme.Theme, error) {
	var row themeRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if mapped := mapError(err); errors.Is(mapped, store.ErrNotFound) {
			return nil, mapped
		}
		return nil, fmt.Errorf("get theme %d: %w", id, err)
	}
	return row.toTheme(), nil
}

// Update runs one UPDATE ... RETURNING so the increment and toggles are
// atomic in the database.
func (s *Store) Update(ctx context.Context, id int64, m theme.Mutation) (*theme.Theme, error) {
	values := map[string]any{"updated_at": m.UpdatedAt}
	if m.Content != nil {
		values["content"] = *m.Content
	}
	if m.IncrementVotes {
		values["votes"] = gorm.Expr("votes + 1")
	}
	if m.ToggleCompleted {
		values["completed"] = gorm.Expr("1 - completed")
	}
	if m.ToggleArchived {
		values["archived"] = gorm.Expr("1 - archived")
	}

	var rows []themeRow
	res := s.db.WithContext(ctx).
		Model(&rows).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(values)
	if res.Error != nil {
		if mapped := mapError(res.Error); errors.Is(mapped, store.ErrDuplicate) {
			return nil, mapped
		}
		return nil, fmt.Errorf("update theme %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 || len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows[0].toTheme(), nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&themeRow{})
	if res.Error != nil {
		return fmt.Errorf("delete theme %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
