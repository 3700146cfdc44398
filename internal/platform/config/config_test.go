package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.DatabaseURL = "postgres://localhost/perfreview"
	cfg.JWTSecret = "test-secret"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid postgres", mutate: func(*Config) {}},
		{name: "missing database url", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: true},
		{name: "memory without database url", mutate: func(c *Config) {
			c.StoreDriver = StoreDriverMemory
			c.DatabaseURL = ""
		}},
		{name: "memory in production", mutate: func(c *Config) {
			c.StoreDriver = StoreDriverMemory
			c.Environment = "production"
			c.JWTSecret = "0123456789abcdef0123456789abcdef"
		}, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "mongo" }, wantErr: true},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: true},
		{name: "short production secret", mutate: func(c *Config) { c.Environment = "production" }, wantErr: true},
		{name: "small body limit", mutate: func(c *Config) { c.MaxBodyBytes = 10 }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.SubmitMaxRetries = -1 }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9090"
storeDriver: memory
jwtSecret: from-file
tokenTtl: 2h
submitMaxRetries: 3
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 3, cfg.SubmitMaxRetries)
	assert.Equal(t, "access_token", cfg.AuthCookieName)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestEnvParsingFallsBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "lots")
	t.Setenv("RUN_SEED", "maybe")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults().RateLimitPerMinute, cfg.RateLimitPerMinute)
	assert.False(t, cfg.RunSeed)
}
