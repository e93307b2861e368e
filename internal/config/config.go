// Package config provides application configuration loaded from environment
// variables and an optional fairscanner.yaml file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Remote   RemoteConfig
	Sync     SyncConfig
	App      AppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig holds the local SQLite settings.
type DatabaseConfig struct {
	Path  string
	Debug bool
}

// Remote backend modes.
const (
	RemoteModeREST     = "rest"
	RemoteModePostgres = "postgres"
)

// RemoteConfig holds the remote backend settings.
type RemoteConfig struct {
	Mode            string
	URL             string
	AnonKey         string
	DatabaseDSN     string
	FinalizeTimeout time.Duration
	HTTPTimeout     time.Duration
}

// SyncConfig holds the product and order sync settings.
type SyncConfig struct {
	Interval           time.Duration
	PageSize           int
	BackgroundInterval time.Duration // 0 disables the background loop
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev              bool
	Migrations       bool
	Seed             bool
	LogLevel         string
	DefaultUserEmail string
	FairName         string
	SalesRep         string
}

var defaults = map[string]any{
	"PORT":                     "8080",
	"SERVER_READ_TIMEOUT":      15,
	"SERVER_WRITE_TIMEOUT":     15,
	"SERVER_IDLE_TIMEOUT":      60,
	"DB_PATH":                  "fairscanner.db",
	"DB_DEBUG":                 false,
	"REMOTE_MODE":              RemoteModeREST,
	"REMOTE_URL":               "",
	"REMOTE_ANON_KEY":          "",
	"REMOTE_DATABASE_DSN":      "",
	"FINALIZE_TIMEOUT":         "30s",
	"HTTP_TIMEOUT":             "20s",
	"SYNC_INTERVAL":            "1h",
	"SYNC_PAGE_SIZE":           1000,
	"BACKGROUND_SYNC_INTERVAL": "0s",
	"DEV":                      false,
	"MIGRATIONS":               true,
	"DB_SEED":                  false,
	"LOG_LEVEL":                "info",
	"DEFAULT_USER_EMAIL":       "unknown@example.com",
	"FAIR_NAME":                "",
	"SALES_REP":                "",
}

// Load reads configuration. Environment variables take precedence over the
// config file, which takes precedence over defaults. A missing config file is
// not an error.
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigName("fairscanner")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("PORT"),
			ReadTimeout:  v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetInt("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  v.GetInt("SERVER_IDLE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Path:  v.GetString("DB_PATH"),
			Debug: v.GetBool("DB_DEBUG"),
		},
		Remote: RemoteConfig{
			Mode:            strings.ToLower(strings.TrimSpace(v.GetString("REMOTE_MODE"))),
			URL:             v.GetString("REMOTE_URL"),
			AnonKey:         v.GetString("REMOTE_ANON_KEY"),
			DatabaseDSN:     v.GetString("REMOTE_DATABASE_DSN"),
			FinalizeTimeout: v.GetDuration("FINALIZE_TIMEOUT"),
			HTTPTimeout:     v.GetDuration("HTTP_TIMEOUT"),
		},
		Sync: SyncConfig{
			Interval:           v.GetDuration("SYNC_INTERVAL"),
			PageSize:           v.GetInt("SYNC_PAGE_SIZE"),
			BackgroundInterval: v.GetDuration("BACKGROUND_SYNC_INTERVAL"),
		},
		App: AppConfig{
			Dev:              v.GetBool("DEV"),
			Migrations:       v.GetBool("MIGRATIONS"),
			Seed:             v.GetBool("DB_SEED"),
			LogLevel:         v.GetString("LOG_LEVEL"),
			DefaultUserEmail: v.GetString("DEFAULT_USER_EMAIL"),
			FairName:         v.GetString("FAIR_NAME"),
			SalesRep:         v.GetString("SALES_REP"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate checks settings that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.Remote.Mode {
	case RemoteModeREST:
	case RemoteModePostgres:
		if c.Remote.DatabaseDSN == "" {
			return fmt.Errorf("REMOTE_DATABASE_DSN is required when REMOTE_MODE=%s", RemoteModePostgres)
		}
	default:
		return fmt.Errorf("unknown REMOTE_MODE %q", c.Remote.Mode)
	}
	if c.Sync.PageSize <= 0 {
		return fmt.Errorf("SYNC_PAGE_SIZE must be positive, got %d", c.Sync.PageSize)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DB_PATH is empty")
	}
	return nil
}
