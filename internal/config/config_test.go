package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("ANITRACK_ADDR", ":9000")
	t.Setenv("ANITRACK_LOG_FORMAT", "json")
	t.Setenv("ANITRACK_CACHE_DEFAULT_TTL", "30s")
	t.Setenv("ANITRACK_CACHE_MAX_SIZE", "25")
	t.Setenv("ANITRACK_CACHE_SWEEP_INTERVAL", "5s")
	t.Setenv("ANITRACK_CACHE_SINGLE_FLIGHT", "true")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Addr)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, 30*time.Second, cfg.Cache.DefaultTTL)
	require.Equal(t, 25, cfg.Cache.MaxSize)
	require.Equal(t, 5*time.Second, cfg.Cache.SweepInterval)
	require.True(t, cfg.Cache.SingleFlight)
}

func TestLoad_FromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ANITRACK_DB_PATH=from-file.db\nANITRACK_ADDR=:7000\n"), 0600))
	t.Setenv("ANITRACK_ADDR", ":7100")
	t.Cleanup(func() { _ = os.Unsetenv("ANITRACK_DB_PATH") })

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-file.db", cfg.DatabasePath)
	// Environment wins over the file.
	require.Equal(t, ":7100", cfg.Addr)
}

func TestLoad_InvalidValues(t *testing.T) {
	tcs := map[string]string{
		"ANITRACK_CACHE_DEFAULT_TTL":    "five minutes",
		"ANITRACK_CACHE_SWEEP_INTERVAL": "often",
		"ANITRACK_CACHE_MAX_SIZE":       "many",
		"ANITRACK_CACHE_SINGLE_FLIGHT":  "maybe",
	}
	for key, value := range tcs {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load(noEnvFile(t))
			require.Error(t, err)
			require.Contains(t, err.Error(), key)
		})
	}
}

func TestValidate(t *testing.T) {
	tcs := map[string]func(*Config){
		"empty addr":        func(c *Config) { c.Addr = " " },
		"empty db path":     func(c *Config) { c.DatabasePath = "" },
		"bad log format":    func(c *Config) { c.LogFormat = "xml" },
		"zero ttl":          func(c *Config) { c.Cache.DefaultTTL = 0 },
		"negative interval": func(c *Config) { c.Cache.SweepInterval = -time.Second },
		"zero max size":     func(c *Config) { c.Cache.MaxSize = 0 },
	}
	for name, mutate := range tcs {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
