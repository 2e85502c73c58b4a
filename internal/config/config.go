package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string `toml:"environment"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// store backend: memory | mongo | postgres
	StoreBackend string `toml:"store_backend"`
	// mongo
	MongoURL      string `toml:"mongo_url"`
	MongoDatabase string `toml:"mongo_database"`
	// postgres
	DBHost string `toml:"db_host"`
	DBPort string `toml:"db_port"`
	DBName string `toml:"db_name"`
	DBUser string `toml:"db_user"`
	// sessions
	SessionTTLHours int `toml:"session_ttl_hours"`
	// telemetry
	MetricsPort    int  `toml:"metrics_port"`
	TracingEnabled bool `toml:"tracing_enabled"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

func Load(env, path string) (*Config, error) {
	var parsed Toml
	if _, err := toml.DecodeFile(path, &parsed); err != nil {
		return nil, fmt.Errorf("decode config file %q: %w", path, err)
	}

	cfg, err := parsed.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}

	cfg.Environment = env
	return cfg, nil
}
