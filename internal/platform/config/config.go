package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Addr               string        `yaml:"addr"`
	Environment        string        `yaml:"environment"`
	LogLevel           string        `yaml:"logLevel"`
	StoreDriver        string        `yaml:"storeDriver"`
	DatabaseURL        string        `yaml:"databaseUrl"`
	MigrationsDir      string        `yaml:"migrationsDir"`
	RunMigrations      bool          `yaml:"runMigrations"`
	RunSeed            bool          `yaml:"runSeed"`
	SeedFile           string        `yaml:"seedFile"`
	JWTSecret          string        `yaml:"jwtSecret"`
	TokenTTL           time.Duration `yaml:"tokenTtl"`
	AuthCookieName     string        `yaml:"authCookieName"`
	MaxBodyBytes       int64         `yaml:"maxBodyBytes"`
	RateLimitPerMinute int           `yaml:"rateLimitPerMinute"`
	SubmitMaxRetries   int           `yaml:"submitMaxRetries"`
	MetricsEnabled     bool          `yaml:"metricsEnabled"`
	ShutdownTimeout    time.Duration `yaml:"shutdownTimeout"`
}

func Defaults() Config {
	return Config{
		Addr:               ":8080",
		Environment:        "development",
		LogLevel:           "info",
		StoreDriver:        StoreDriverPostgres,
		MigrationsDir:      "migrations",
		RunMigrations:      true,
		RunSeed:            false,
		TokenTTL:           8 * time.Hour,
		AuthCookieName:     "access_token",
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 120,
		SubmitMaxRetries:   5,
		MetricsEnabled:     true,
		ShutdownTimeout:    10 * time.Second,
	}
}

// Load builds the config from defaults, then the optional CONFIG_FILE, then env vars.
func Load() (Config, error) {
	return LoadPath(os.Getenv("CONFIG_FILE"))
}

// LoadPath is Load with an explicit config file; an empty path skips the file.
func LoadPath(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		fromFile, err := LoadFile(path, cfg)
		if err != nil {
			return Config{}, err
		}
		cfg = fromFile
	}
	return applyEnv(cfg), nil
}

func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg Config) Config {
	cfg.Addr = getEnv("APP_ADDR", cfg.Addr)
	cfg.Environment = getEnv("APP_ENV", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", cfg.StoreDriver))
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.MigrationsDir = getEnv("MIGRATIONS_DIR", cfg.MigrationsDir)
	cfg.RunMigrations = getEnvBool("RUN_MIGRATIONS", cfg.RunMigrations)
	cfg.RunSeed = getEnvBool("RUN_SEED", cfg.RunSeed)
	cfg.SeedFile = getEnv("SEED_FILE", cfg.SeedFile)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", cfg.TokenTTL)
	cfg.AuthCookieName = getEnv("AUTH_COOKIE_NAME", cfg.AuthCookieName)
	cfg.MaxBodyBytes = int64(getEnvInt("MAX_BODY_BYTES", int(cfg.MaxBodyBytes)))
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	cfg.SubmitMaxRetries = getEnvInt("SUBMIT_MAX_RETRIES", cfg.SubmitMaxRetries)
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	case StoreDriverMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORE_DRIVER memory is not allowed in production")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.SubmitMaxRetries < 0 {
		return fmt.Errorf("SUBMIT_MAX_RETRIES must not be negative")
	}
	return nil
}
