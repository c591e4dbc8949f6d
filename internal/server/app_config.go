package server

import (
	"fmt"

	"github.com/licitaware/procura/internal/database"
	"github.com/licitaware/procura/pkg/config"
	"github.com/licitaware/procura/pkg/match"
	"github.com/licitaware/procura/pkg/registry"
)

// envPrefix namespaces every environment override, e.g. PROCURA_SERVER_PORT.
const envPrefix = "PROCURA"

// AppConfig is the full application configuration: the HTTP server, the
// database, the optional company registry, search defaults and logging.
type AppConfig struct {
	Server   *Config          `yaml:"server"`
	Database *database.Config `yaml:"database"`

	// Registry is optional; a missing section disables metadata lookups.
	Registry *registry.Config `yaml:"registry"`

	// Search overrides the built-in search defaults. Per-request bodies
	// override these in turn.
	Search match.Config `yaml:"search"`

	Logging LoggingConfig `yaml:"logging"`

	// GeoReloadSchedule is a cron expression for refreshing the municipality
	// coordinate cache. Empty disables the refresh.
	GeoReloadSchedule string `yaml:"geo_reload_schedule" env:"GEO_RELOAD_SCHEDULE"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" default:"json"`
}

// DefaultAppConfig returns the configuration used when no file is given.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Server:   GetDefaultConfig(),
		Database: &database.Config{},
		Search:   match.Config{},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadAppConfig loads the configuration from an optional YAML file and then
// applies environment overrides. An empty path loads defaults plus
// environment only.
func LoadAppConfig(path string) (*AppConfig, error) {
	cfg := DefaultAppConfig()

	loader := config.NewLoader(envPrefix)
	if path != "" {
		if err := config.ValidateConfigPath(path); err != nil {
			return nil, err
		}
		if err := loader.Load(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	} else {
		if err := loader.LoadFromEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from environment: %w", err)
		}
	}

	if cfg.Server == nil {
		cfg.Server = GetDefaultConfig()
	}
	if cfg.Database == nil {
		cfg.Database = &database.Config{}
	}

	return cfg, nil
}
