package blob

import (
	"encoding/json"
	"fmt"
	"time"

	"themeboard/internal/theme"
)

// Document is the whole board as stored in a blob.
type Document struct {
	Themes []Record `json:"themes"`
	NextID int64    `json:"nextId"`
}

// Record is one theme inside a Document. Flags are 0/1 integers; Hidden is
// only read, for documents written before the archived rename.
type Record struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Votes     int64     `json:"votes"`
	Completed int       `json:"completed"`
	Archived  int       `json:"archived"`
	Hidden    *int      `json:"hidden,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func emptyDocument() *Document {
	return &Document{Themes: []Record{}, NextID: 1}
}

func decodeDocument(data []byte) (*Document, error) {
	if len(data) == 0 || string(data) == "null" {
		return emptyDocument(), nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode themes document: %w", err)
	}
	if doc.Themes == nil {
		doc.Themes = []Record{}
	}

	// fold legacy hidden into archived and keep next id ahead of every id
	for i := range doc.Themes {
		r := &doc.Themes[i]
		if r.Hidden != nil {
			if *r.Hidden != 0 {
				r.Archived = 1
			}
			r.Hidden = nil
		}
		if r.ID >= doc.NextID {
			doc.NextID = r.ID + 1
		}
	}
	if doc.NextID < 1 {
		doc.NextID = 1
	}
	return &doc, nil
}

func (d *Document) clone() *Document {
	return &Document{
		Themes: append([]Record(nil), d.Themes...),
		NextID: d.NextID,
	}
}

func (d *Document) index(id int64) int {
	for i := range d.Themes {
		if d.Themes[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Document) contentTaken(content string, except int64) bool {
	for _, r := range d.Themes {
		if r.Content == content && r.ID != except {
			return true
		}
	}
	return false
}

func (r Record) toTheme() theme.Theme {
	return theme.Theme{
		ID:        r.ID,
		Content:   r.Content,
		Votes:     r.Votes,
		Completed: r.Completed != 0,
		Archived:  r.Archived != 0,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
