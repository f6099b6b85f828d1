package postgres

import (
	"time"

	"themeboard/internal/theme"
)

// themeRow mirrors the themes table. Flags are stored as 0/1 integers.
type themeRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Content   string    `gorm:"type:text;not null;uniqueIndex:uq_themes_content"`
	Votes     int64     `gorm:"not null;default:0"`
	Completed int       `gorm:"not null;default:0"`
	Archived  int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime:false"`
}

func (themeRow) TableName() string { return "themes" }

func (r themeRow) toTheme() *theme.Theme {
	return &theme.Theme{
		ID:        r.ID,
		Content:   r.Content,
		Votes:     r.Votes,
		Completed: r.Completed != 0,
		Archived:  r.Archived != 0,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}
