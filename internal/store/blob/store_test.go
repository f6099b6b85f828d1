package blob

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themeboard/internal/cache"
	"themeboard/internal/store/storetest"
	"themeboard/internal/theme"
)

func newFileStore(t *testing.T, ttl time.Duration) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "themes.json")
	s, err := New(NewFileBlob(path, nil), cache.NewTTL[*Document](ttl), nil)
	require.NoError(t, err)
	return s, path
}

func TestFileStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) theme.Store {
		s, _ := newFileStore(t, time.Second)
		return s
	})
}

func TestEdgeConfigStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) theme.Store {
		srv := newFakeEdgeConfig(t)
		b, err := NewEdgeConfigBlob(EdgeConfigOptions{BaseURL: srv.URL, ID: "ecfg_test", Token: "tok"})
		require.NoError(t, err)
		s, err := New(b, cache.NewTTL[*Document](time.Second), nil)
		require.NoError(t, err)
		return s
	})
}

func TestDocumentFormat(t *testing.T) {
	s, path := newFileStore(t, 0)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	created, err := s.Create(ctx, "Retro ideas", now)
	require.NoError(t, err)
	_, err = s.Update(ctx, created.ID, theme.Mutation{ToggleCompleted: true, UpdatedAt: now})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.EqualValues(t, 2, doc["nextId"])

	themes := doc["themes"].([]any)
	require.Len(t, themes, 1)
	rec := themes[0].(map[string]any)
	assert.EqualValues(t, 1, rec["id"])
	assert.EqualValues(t, 1, rec["completed"])
	assert.EqualValues(t, 0, rec["archived"])
	assert.NotContains(t, rec, "hidden")
}

func TestLegacyDocument(t *testing.T) {
	s, path := newFileStore(t, 0)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	legacy := `{"themes":[
		{"id":3,"content":"old","votes":5,"completed":1,"hidden":1,"created_at":"2025-01-01T00:00:00Z","updated_at":"2025-01-01T00:00:00Z"},
		{"id":9,"content":"older","votes":1,"completed":0,"created_at":"2024-01-01T00:00:00Z","updated_at":"2024-01-01T00:00:00Z"}
	],"nextId":4}`
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	got, err := s.Get(ctx, 3)
	require.NoError(t, err)
	assert.True(t, got.Archived)
	assert.True(t, got.Completed)

	// next id never falls behind an existing id
	created, err := s.Create(ctx, "new", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(10), created.ID)
}

func TestWriteThroughCache(t *testing.T) {
	b := &countingBlob{}
	s, err := New(b, cache.NewTTL[*Document](time.Hour), nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.List(ctx)
	require.NoError(t, err)
	created, err := s.Create(ctx, "cached", time.Now().UTC())
	require.NoError(t, err)

	loadsBefore := b.loads
	themes, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, themes, 1, "a write is visible to the next read")
	assert.Equal(t, created.ID, themes[0].ID)
	assert.Equal(t, loadsBefore, b.loads, "read served from cache")
}

func TestFailedSaveKeepsState(t *testing.T) {
	b := &countingBlob{}
	s, err := New(b, cache.NewTTL[*Document](time.Hour), nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Create(ctx, "first", time.Now().UTC())
	require.NoError(t, err)

	b.failSave = true
	_, err = s.Create(ctx, "second", time.Now().UTC())
	require.Error(t, err)

	b.failSave = false
	themes, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, themes, 1)
	assert.Equal(t, "first", themes[0].Content)
}

func TestFileWatchInvalidatesCache(t *testing.T) {
	s, path := newFileStore(t, time.Hour)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	_, err := s.Create(ctx, "before", time.Now().UTC())
	require.NoError(t, err)

	external := `{"themes":[{"id":1,"content":"edited elsewhere","votes":0,"completed":0,"archived":0,"created_at":"2026-01-01T00:00:00Z","updated_at":"2026-01-01T00:00:00Z"}],"nextId":2}`
	require.NoError(t, os.WriteFile(path, []byte(external), 0o644))

	assert.Eventually(t, func() bool {
		got, err := s.Get(ctx, 1)
		return err == nil && got.Content == "edited elsewhere"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestEdgeConfigRequests(t *testing.T) {
	srv := newFakeEdgeConfig(t)
	b, err := NewEdgeConfigBlob(EdgeConfigOptions{BaseURL: srv.URL + "/", ID: "ecfg_test", Token: "tok", WritesPerSecond: 100})
	require.NoError(t, err)
	ctx := context.Background()

	data, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data, "missing item loads as empty")

	require.NoError(t, b.Save(ctx, []byte(`{"themes":[],"nextId":7}`)))
	data, err = b.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"themes":[],"nextId":7}`, string(data))

	bad, err := NewEdgeConfigBlob(EdgeConfigOptions{BaseURL: srv.URL, ID: "ecfg_test", Token: "wrong"})
	require.NoError(t, err)
	_, err = bad.Load(ctx)
	assert.ErrorContains(t, err, "403")

	_, err = NewEdgeConfigBlob(EdgeConfigOptions{ID: "ecfg_test"})
	assert.Error(t, err)
}

// countingBlob is an in-memory Blob that counts loads.
type countingBlob struct {
	mu       sync.Mutex
	data     []byte
	loads    int
	failSave bool
}

func (c *countingBlob) Load(context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loads++
	return c.data, nil
}

func (c *countingBlob) Save(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSave {
		return assert.AnError
	}
	c.data = append([]byte(nil), data...)
	return nil
}

// newFakeEdgeConfig serves the subset of the edge config API the blob uses.
func newFakeEdgeConfig(t *testing.T) *httptest.Server {
	t.Helper()
	var (
		mu    sync.Mutex
		items = map[string]json.RawMessage{}
	)

	mux := http.NewServeMux()
	authed := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, `{"error":{"code":"forbidden"}}`, http.StatusForbidden)
			return false
		}
		return true
	}

	mux.HandleFunc("GET /v1/edge-config/ecfg_test/item/{key}", func(w http.ResponseWriter, r *http.Request) {
		if !authed(w, r) {
			return
		}
		mu.Lock()
		v, ok := items[r.PathValue("key")]
		mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"key": r.PathValue("key"), "value": v})
	})

	mux.HandleFunc("PATCH /v1/edge-config/ecfg_test/items", func(w http.ResponseWriter, r *http.Request) {
		if !authed(w, r) {
			return
		}
		var req patchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		for _, it := range req.Items {
			if !strings.EqualFold(it.Operation, "upsert") {
				mu.Unlock()
				http.Error(w, "unsupported operation", http.StatusBadRequest)
				return
			}
			items[it.Key] = it.Value
		}
		mu.Unlock()
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}
