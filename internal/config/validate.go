package config

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Validate checks settings that cleanenv cannot express as tags.
func (c *Config) Validate() error {
	if err := c.Storage.validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	if c.Admin.TokenHash != "" {
		if _, err := bcrypt.Cost([]byte(c.Admin.TokenHash)); err != nil {
			return fmt.Errorf("admin: ADMIN_TOKEN_HASH is not a bcrypt hash: %w", err)
		}
	}
	if c.Admin.SessionTTL <= 0 {
		return fmt.Errorf("admin: session ttl must be > 0 (got %s)", c.Admin.SessionTTL)
	}

	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate limit: rps must be >= 0 (got %v)", c.RateLimit.RPS)
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate limit: burst must be >= 1 (got %d)", c.RateLimit.Burst)
	}

	if c.HTTP.Addr == "" {
		return fmt.Errorf("http: addr is required")
	}
	return nil
}

func (s StorageConfig) validate() error {
	if s.CacheTTL < 0 {
		return fmt.Errorf("cache ttl must be >= 0 (got %s)", s.CacheTTL)
	}

	switch s.ResolvedDriver() {
	case DriverSQLite:
		if s.SQLitePath == "" {
			return fmt.Errorf("sqlite driver needs SQLITE_PATH")
		}
	case DriverPostgres:
		if s.PostgresDSN == "" {
			return fmt.Errorf("postgres driver needs POSTGRES_URL or DATABASE_URL")
		}
	case DriverBadger:
		if s.BadgerDir == "" {
			return fmt.Errorf("badger driver needs BADGER_DIR")
		}
	case DriverBlob:
		if s.BlobPath == "" {
			return fmt.Errorf("blob driver needs BLOB_PATH")
		}
	case DriverEdgeConfig:
		if s.EdgeConfigID == "" || s.EdgeConfigToken == "" {
			return fmt.Errorf("edgeconfig driver needs EDGE_CONFIG_ID and VERCEL_API_TOKEN")
		}
		if s.EdgeWritesPerSecond < 0 {
			return fmt.Errorf("edge config writes per second must be >= 0")
		}
	default:
		return fmt.Errorf("unknown driver %q", s.Driver)
	}
	return nil
}
