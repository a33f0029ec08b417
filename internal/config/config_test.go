package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		ListenAddr: ":3001",
		DBPath:     "flight_spotter.db",
		Log:        LogConfig{Level: "info", Format: "text"},
		Reference: ReferenceConfig{
			Source:      SourceSQL,
			MasterPath:  "data/MASTER.txt",
			AcftRefPath: "data/ACFTREF.txt",
			BatchSize:   5000,
		},
		OpenSky:       OpenSkyConfig{Timeout: 10 * time.Second},
		Planespotters: PlanespottersConfig{Timeout: 5 * time.Second, CacheTTL: time.Hour},
		Resolver:      ResolverConfig{LiveTimeout: 8 * time.Second, PhotoTimeout: 5 * time.Second},
		Auth:          AuthConfig{SecretKey: "secret", TokenTTL: time.Hour, BcryptCost: 12},
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("FLIGHT_SPOTTER_AUTH_SECRET_KEY", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.ListenAddr)
	assert.Equal(t, "flight_spotter.db", cfg.DBPath)
	assert.Equal(t, SourceSQL, cfg.Reference.Source)
	assert.Equal(t, 5000, cfg.Reference.BatchSize)
	assert.Zero(t, cfg.Reference.SyncInterval)
	assert.Equal(t, "https://opensky-network.org/api", cfg.OpenSky.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.OpenSky.Timeout)
	assert.Equal(t, 6*time.Hour, cfg.Planespotters.CacheTTL)
	assert.Equal(t, 8*time.Second, cfg.Resolver.LiveTimeout)
	assert.Equal(t, 5*time.Second, cfg.Resolver.PhotoTimeout)
	assert.Equal(t, "from-env", cfg.Auth.SecretKey)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":8080"
log:
  level: debug
  format: json
reference:
  source: FILE
  archive_path: /var/lib/flight_spotter/ReleasableAircraft.zip
resolver:
  live_timeout: 2s
auth:
  secret_key: from-file
maps:
  api_key: maps-key
`), 0o644))

	t.Setenv(ConfigPathEnv, path)
	t.Setenv("FLIGHT_SPOTTER_RESOLVER_PHOTO_TIMEOUT", "750ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, SourceFile, cfg.Reference.Source)
	assert.Equal(t, "/var/lib/flight_spotter/ReleasableAircraft.zip", cfg.Reference.ArchivePath)
	assert.Equal(t, 2*time.Second, cfg.Resolver.LiveTimeout)
	assert.Equal(t, 750*time.Millisecond, cfg.Resolver.PhotoTimeout)
	assert.Equal(t, "from-file", cfg.Auth.SecretKey)
	assert.Equal(t, "maps-key", cfg.Maps.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		t.Setenv(ConfigPathEnv, filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv(ConfigPathEnv, "")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth.secret_key")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }, "listen_addr"},
		{"empty db path", func(c *Config) { c.DBPath = "" }, "db_path"},
		{"unknown source", func(c *Config) { c.Reference.Source = "postgres" }, "reference.source"},
		{"no dataset paths", func(c *Config) { c.Reference.MasterPath = "" }, "reference.archive_path"},
		{"archive only", func(c *Config) {
			c.Reference.MasterPath, c.Reference.AcftRefPath = "", ""
			c.Reference.ArchivePath = "data/ReleasableAircraft.zip"
		}, ""},
		{"zero batch size", func(c *Config) { c.Reference.BatchSize = 0 }, "reference.batch_size"},
		{"sync without url", func(c *Config) { c.Reference.SyncInterval = time.Hour }, "reference.dataset_url"},
		{"negative sync", func(c *Config) { c.Reference.SyncInterval = -time.Second }, "reference.sync_interval"},
		{"zero live timeout", func(c *Config) { c.Resolver.LiveTimeout = 0 }, "resolver.live_timeout"},
		{"zero cache ttl", func(c *Config) { c.Planespotters.CacheTTL = 0 }, "planespotters.cache_ttl"},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 2 }, "auth.bcrypt_cost"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "invalid log level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
