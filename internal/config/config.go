package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverAuto       = "auto"
	DriverSQLite     = "sqlite"
	DriverPostgres   = "postgres"
	DriverBadger     = "badger"
	DriverBlob       = "blob"
	DriverEdgeConfig = "edgeconfig"
)

type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	CORS      CORSConfig
	Storage   StorageConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Env string `env:"APP_ENV" env-default:"development"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
	// Format is json or text; empty picks by environment.
	Format    string `env:"LOG_FORMAT"`
	AddSource bool   `env:"LOG_ADD_SOURCE" env-default:"false"`
}

type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR"             env-default:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   env-separator:","`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" env-default:"false"`
}

type StorageConfig struct {
	Driver string `env:"STORAGE_DRIVER" env-default:"auto"`

	SQLitePath  string `env:"SQLITE_PATH" env-default:"data/themes.db"`
	PostgresDSN string `env:"POSTGRES_URL,DATABASE_URL"`
	BadgerDir   string `env:"BADGER_DIR"`
	BlobPath    string `env:"BLOB_PATH"`

	EdgeConfigID        string  `env:"EDGE_CONFIG_ID"`
	EdgeConfigToken     string  `env:"VERCEL_API_TOKEN"`
	EdgeConfigKey       string  `env:"EDGE_CONFIG_KEY"               env-default:"themes"`
	EdgeConfigBaseURL   string  `env:"EDGE_CONFIG_API_URL"           env-default:"https://api.vercel.com"`
	EdgeWritesPerSecond float64 `env:"EDGE_CONFIG_WRITES_PER_SECOND" env-default:"1"`

	// CacheTTL bounds how stale blob reads may be. Zero disables the cache.
	CacheTTL time.Duration `env:"STORAGE_CACHE_TTL" env-default:"1s"`
}

type AdminConfig struct {
	Token     string `env:"ADMIN_TOKEN"`
	TokenHash string `env:"ADMIN_TOKEN_HASH"`
	// SessionSecret signs session tokens. Unset with only a hash configured,
	// sessions are signed with a per-process key and die on restart.
	SessionSecret string        `env:"ADMIN_SESSION_SECRET"`
	SessionTTL    time.Duration `env:"ADMIN_SESSION_TTL" env-default:"12h"`
}

// RateLimitConfig limits public writes per client IP. RPS 0 turns it off.
type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS"   env-default:"2"`
	Burst int     `env:"RATE_LIMIT_BURST" env-default:"10"`
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// ResolvedDriver returns the configured driver, or for auto the first
// backend whose settings are present: edge config, postgres, badger, blob
// file, then sqlite.
func (s StorageConfig) ResolvedDriver() string {
	if s.Driver != "" && s.Driver != DriverAuto {
		return s.Driver
	}
	switch {
	case s.EdgeConfigID != "" && s.EdgeConfigToken != "":
		return DriverEdgeConfig
	case s.PostgresDSN != "":
		return DriverPostgres
	case s.BadgerDir != "":
		return DriverBadger
	case s.BlobPath != "":
		return DriverBlob
	default:
		return DriverSQLite
	}
}

func (c Config) Production() bool {
	return c.App.Env == "production"
}
