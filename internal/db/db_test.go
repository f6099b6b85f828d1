package db

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themeboard/internal/config"
	"themeboard/internal/store/badger"
	"themeboard/internal/store/blob"
	"themeboard/internal/store/sqlite"
)

func TestOpenSelectsDriver(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	tests := []struct {
		name  string
		cfg   config.StorageConfig
		check func(t *testing.T, st any)
	}{
		{
			name: "sqlite by default",
			cfg:  config.StorageConfig{Driver: config.DriverAuto, SQLitePath: filepath.Join(dir, "themes.db")},
			check: func(t *testing.T, st any) {
				assert.IsType(t, &sqlite.Store{}, st)
			},
		},
		{
			name: "badger dir",
			cfg:  config.StorageConfig{Driver: config.DriverAuto, BadgerDir: filepath.Join(dir, "kv")},
			check: func(t *testing.T, st any) {
				assert.IsType(t, &badger.Store{}, st)
			},
		},
		{
			name: "blob file",
			cfg:  config.StorageConfig{Driver: config.DriverBlob, BlobPath: filepath.Join(dir, "themes.json"), CacheTTL: time.Second},
			check: func(t *testing.T, st any) {
				assert.IsType(t, &blob.Store{}, st)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := Open(context.Background(), tt.cfg, logger)
			require.NoError(t, err)
			t.Cleanup(func() { st.Close() })
			tt.check(t, st)

			created, err := st.Create(context.Background(), "smoke", time.Now().UTC())
			require.NoError(t, err)
			assert.Positive(t, created.ID)
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Driver: "mongo"}, slog.New(slog.DiscardHandler))
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestOpenEdgeConfigNeedsCredentials(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Driver: config.DriverEdgeConfig}, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}
