package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, DriverAuto, cfg.Storage.Driver)
	assert.Equal(t, DriverSQLite, cfg.Storage.ResolvedDriver())
	assert.Equal(t, time.Second, cfg.Storage.CacheTTL)
	assert.Equal(t, "themes", cfg.Storage.EdgeConfigKey)
	assert.Equal(t, 12*time.Hour, cfg.Admin.SessionTTL)
	assert.False(t, cfg.Production())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "production")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/themes")
	t.Setenv("ADMIN_TOKEN", "s3cret")
	t.Setenv("ADMIN_SESSION_SECRET", "sess")
	t.Setenv("LOG_ADD_SOURCE", "true")
	t.Setenv("RATE_LIMIT_RPS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, DriverPostgres, cfg.Storage.ResolvedDriver())
	assert.Equal(t, "s3cret", cfg.Admin.Token)
	assert.Equal(t, "sess", cfg.Admin.SessionSecret)
	assert.True(t, cfg.Log.AddSource)
	assert.Zero(t, cfg.RateLimit.RPS)
}

func TestResolvedDriver(t *testing.T) {
	tests := []struct {
		name string
		cfg  StorageConfig
		want string
	}{
		{name: "nothing set", cfg: StorageConfig{Driver: DriverAuto}, want: DriverSQLite},
		{name: "blob file", cfg: StorageConfig{BlobPath: "themes.json"}, want: DriverBlob},
		{name: "badger over blob", cfg: StorageConfig{BadgerDir: "kv", BlobPath: "themes.json"}, want: DriverBadger},
		{name: "postgres over badger", cfg: StorageConfig{PostgresDSN: "postgres://x", BadgerDir: "kv"}, want: DriverPostgres},
		{
			name: "edge config wins",
			cfg:  StorageConfig{EdgeConfigID: "ecfg", EdgeConfigToken: "tok", PostgresDSN: "postgres://x"},
			want: DriverEdgeConfig,
		},
		{name: "edge config needs token", cfg: StorageConfig{EdgeConfigID: "ecfg"}, want: DriverSQLite},
		{name: "explicit driver", cfg: StorageConfig{Driver: DriverBadger, PostgresDSN: "postgres://x"}, want: DriverBadger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ResolvedDriver())
		})
	}
}

func validConfig() Config {
	return Config{
		HTTP:      HTTPConfig{Addr: ":8080"},
		Storage:   StorageConfig{Driver: DriverAuto, SQLitePath: "themes.db", CacheTTL: time.Second},
		Admin:     AdminConfig{SessionTTL: time.Hour},
		RateLimit: RateLimitConfig{RPS: 1, Burst: 1},
	}
}

func TestValidate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "valid hash", mutate: func(c *Config) { c.Admin.TokenHash = string(hash) }},
		{name: "bad hash", mutate: func(c *Config) { c.Admin.TokenHash = "plain" }, wantErr: "bcrypt"},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "mongo" }, wantErr: "unknown driver"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage.Driver = DriverPostgres }, wantErr: "POSTGRES_URL"},
		{name: "badger without dir", mutate: func(c *Config) { c.Storage.Driver = DriverBadger }, wantErr: "BADGER_DIR"},
		{name: "blob without path", mutate: func(c *Config) { c.Storage.Driver = DriverBlob }, wantErr: "BLOB_PATH"},
		{name: "edge without creds", mutate: func(c *Config) { c.Storage.Driver = DriverEdgeConfig }, wantErr: "EDGE_CONFIG_ID"},
		{name: "negative cache ttl", mutate: func(c *Config) { c.Storage.CacheTTL = -time.Second }, wantErr: "cache ttl"},
		{name: "zero session ttl", mutate: func(c *Config) { c.Admin.SessionTTL = 0 }, wantErr: "session ttl"},
		{name: "zero burst", mutate: func(c *Config) { c.RateLimit.Burst = 0 }, wantErr: "burst"},
		{name: "rate limit off", mutate: func(c *Config) { c.RateLimit = RateLimitConfig{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
