package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Reference dataset sources
const (
	SourceSQL  = "sql"
	SourceFile = "file"
)

// ConfigPathEnv names the environment variable holding an explicit config file path
const ConfigPathEnv = "FLIGHT_SPOTTER_CONFIG_PATH"

// Config holds all configuration for the server
type Config struct {
	ListenAddr    string
	DBPath        string
	Log           LogConfig
	Reference     ReferenceConfig
	OpenSky       OpenSkyConfig
	Planespotters PlanespottersConfig
	Resolver      ResolverConfig
	Auth          AuthConfig
	Maps          MapsConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// ReferenceConfig locates the FAA datasets and selects the store that serves them
type ReferenceConfig struct {
	Source       string
	ArchivePath  string
	MasterPath   string
	AcftRefPath  string
	BatchSize    int
	DatasetURL   string
	DatasetDir   string
	SyncInterval time.Duration // 0 disables the download task
}

type OpenSkyConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

type PlanespottersConfig struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// ResolverConfig bounds each enrichment call of a focus lookup
type ResolverConfig struct {
	LiveTimeout  time.Duration
	PhotoTimeout time.Duration
}

type AuthConfig struct {
	SecretKey  string
	TokenTTL   time.Duration
	BcryptCost int
}

type MapsConfig struct {
	APIKey string
}

// Load loads configuration from config file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":3001")
	v.SetDefault("db_path", "flight_spotter.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("reference.source", SourceSQL)
	v.SetDefault("reference.archive_path", "")
	v.SetDefault("reference.master_path", "data/MASTER.txt")
	v.SetDefault("reference.acftref_path", "data/ACFTREF.txt")
	v.SetDefault("reference.batch_size", 5000)
	v.SetDefault("reference.dataset_url", "https://registry.faa.gov/database/ReleasableAircraft.zip")
	v.SetDefault("reference.dataset_dir", "data")
	v.SetDefault("reference.sync_interval", "0s")

	v.SetDefault("opensky.base_url", "https://opensky-network.org/api")
	v.SetDefault("opensky.username", "")
	v.SetDefault("opensky.password", "")
	v.SetDefault("opensky.timeout", "10s")

	v.SetDefault("planespotters.base_url", "https://api.planespotters.net/pub/photos")
	v.SetDefault("planespotters.timeout", "5s")
	v.SetDefault("planespotters.cache_ttl", "6h")

	v.SetDefault("resolver.live_timeout", "8s")
	v.SetDefault("resolver.photo_timeout", "5s")

	v.SetDefault("auth.secret_key", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("maps.api_key", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/flight_spotter")
	v.AddConfigPath(".")

	if configPath := os.Getenv(ConfigPathEnv); configPath != "" {
		v.SetConfigFile(configPath)
	}

	// A missing config file is fine: defaults and env vars apply.
	// Nothing is logged here because the logger is configured from the result.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("FLIGHT_SPOTTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		ListenAddr: v.GetString("listen_addr"),
		DBPath:     v.GetString("db_path"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Reference: ReferenceConfig{
			Source:       strings.ToLower(v.GetString("reference.source")),
			ArchivePath:  v.GetString("reference.archive_path"),
			MasterPath:   v.GetString("reference.master_path"),
			AcftRefPath:  v.GetString("reference.acftref_path"),
			BatchSize:    v.GetInt("reference.batch_size"),
			DatasetURL:   v.GetString("reference.dataset_url"),
			DatasetDir:   v.GetString("reference.dataset_dir"),
			SyncInterval: v.GetDuration("reference.sync_interval"),
		},
		OpenSky: OpenSkyConfig{
			BaseURL:  v.GetString("opensky.base_url"),
			Username: v.GetString("opensky.username"),
			Password: v.GetString("opensky.password"),
			Timeout:  v.GetDuration("opensky.timeout"),
		},
		Planespotters: PlanespottersConfig{
			BaseURL:  v.GetString("planespotters.base_url"),
			Timeout:  v.GetDuration("planespotters.timeout"),
			CacheTTL: v.GetDuration("planespotters.cache_ttl"),
		},
		Resolver: ResolverConfig{
			LiveTimeout:  v.GetDuration("resolver.live_timeout"),
			PhotoTimeout: v.GetDuration("resolver.photo_timeout"),
		},
		Auth: AuthConfig{
			SecretKey:  v.GetString("auth.secret_key"),
			TokenTTL:   v.GetDuration("auth.token_ttl"),
			BcryptCost: v.GetInt("auth.bcrypt_cost"),
		},
		Maps: MapsConfig{
			APIKey: v.GetString("maps.api_key"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate validates the configuration values
func validate(cfg *Config) error {
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}

	if cfg.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}

	switch cfg.Reference.Source {
	case SourceSQL, SourceFile:
	default:
		return fmt.Errorf("invalid reference.source: %s (must be sql or file)", cfg.Reference.Source)
	}

	if cfg.Reference.ArchivePath == "" && (cfg.Reference.MasterPath == "" || cfg.Reference.AcftRefPath == "") {
		return fmt.Errorf("reference.archive_path or both reference.master_path and reference.acftref_path are required")
	}

	if cfg.Reference.BatchSize <= 0 {
		return fmt.Errorf("reference.batch_size must be greater than 0")
	}

	if cfg.Reference.SyncInterval < 0 {
		return fmt.Errorf("reference.sync_interval must not be negative")
	}
	if cfg.Reference.SyncInterval > 0 && (cfg.Reference.DatasetURL == "" || cfg.Reference.DatasetDir == "") {
		return fmt.Errorf("reference.dataset_url and reference.dataset_dir are required when reference.sync_interval is set")
	}

	durations := map[string]time.Duration{
		"opensky.timeout":         cfg.OpenSky.Timeout,
		"planespotters.timeout":   cfg.Planespotters.Timeout,
		"planespotters.cache_ttl": cfg.Planespotters.CacheTTL,
		"resolver.live_timeout":   cfg.Resolver.LiveTimeout,
		"resolver.photo_timeout":  cfg.Resolver.PhotoTimeout,
		"auth.token_ttl":          cfg.Auth.TokenTTL,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be greater than 0", key)
		}
	}

	if cfg.Auth.SecretKey == "" {
		return fmt.Errorf("auth.secret_key is required")
	}

	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[strings.ToLower(cfg.Log.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Log.Format)
	}

	return nil
}
