package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the API server.
type Config struct {
	Addr         string
	DatabasePath string
	LogLevel     string
	LogFormat    string
	CORSOrigin   string
	Cache        CacheConfig
}

// CacheConfig mirrors cache.Config for the values read from the environment.
type CacheConfig struct {
	DefaultTTL    time.Duration
	MaxSize       int
	SweepInterval time.Duration
	SingleFlight  bool
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Addr:         ":8008",
		DatabasePath: "anitrack.db",
		LogLevel:     "info",
		LogFormat:    "console",
		CORSOrigin:   "*",
		Cache: CacheConfig{
			DefaultTTL:    5 * time.Minute,
			MaxSize:       1000,
			SweepInterval: 60 * time.Second,
		},
	}
}

// Load reads an optional .env file, then the environment, on top of Default.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	cfg.Addr = getEnv("ANITRACK_ADDR", cfg.Addr)
	cfg.DatabasePath = getEnv("ANITRACK_DB_PATH", cfg.DatabasePath)
	cfg.LogLevel = getEnv("ANITRACK_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("ANITRACK_LOG_FORMAT", cfg.LogFormat)
	cfg.CORSOrigin = getEnv("ANITRACK_CORS_ORIGIN", cfg.CORSOrigin)

	var err error
	if cfg.Cache.DefaultTTL, err = getDuration("ANITRACK_CACHE_DEFAULT_TTL", cfg.Cache.DefaultTTL); err != nil {
		return Config{}, err
	}
	if cfg.Cache.SweepInterval, err = getDuration("ANITRACK_CACHE_SWEEP_INTERVAL", cfg.Cache.SweepInterval); err != nil {
		return Config{}, err
	}
	if cfg.Cache.MaxSize, err = getInt("ANITRACK_CACHE_MAX_SIZE", cfg.Cache.MaxSize); err != nil {
		return Config{}, err
	}
	if cfg.Cache.SingleFlight, err = getBool("ANITRACK_CACHE_SINGLE_FLIGHT", cfg.Cache.SingleFlight); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("addr must not be empty")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return errors.New("database path must not be empty")
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", c.LogFormat)
	}
	if c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("cache default ttl must be positive, got %s", c.Cache.DefaultTTL)
	}
	if c.Cache.SweepInterval <= 0 {
		return fmt.Errorf("cache sweep interval must be positive, got %s", c.Cache.SweepInterval)
	}
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache max size must be positive, got %d", c.Cache.MaxSize)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
