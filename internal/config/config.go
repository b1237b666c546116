package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Environment string
	Host        string `toml:"host"`
	Port        int    `toml:"port" env:"LIFTS_PORT"`

	// logging
	LogLevel      string `toml:"log_level" env:"LIFTS_LOG_LEVEL"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host" env:"LIFTS_POSTGRES_HOST"`
	PostgresPort   string `toml:"postgres_port" env:"LIFTS_POSTGRES_PORT"`
	PostgresDBName string `toml:"postgres_db_name" env:"LIFTS_POSTGRES_DB_NAME"`

	// redis
	RedisHost string `toml:"redis_host" env:"LIFTS_REDIS_HOST"`
	RedisPort string `toml:"redis_port" env:"LIFTS_REDIS_PORT"`

	// static catalogue of exercises and training sessions
	CatalogPath string `toml:"catalog_path" env:"LIFTS_CATALOG_PATH"`

	// IANA timezone for "today" decisions (rotation, completion);
	// empty means the server's local zone
	Timezone string `toml:"timezone" env:"LIFTS_TIMEZONE"`

	LoginRateLimitAllowedPerMin int `toml:"login_rate_limit_allowed_per_min"`

	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
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

// Load reads the TOML config for the given environment and
// applies env var overrides on top of it.
func Load(env, path string) (*Config, error) {
	var tomlCfg Toml
	if _, err := toml.DecodeFile(path, &tomlCfg); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := tomlCfg.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env %s empty", env)
	}

	cfg.Environment = env

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("process env overrides: %w", err)
	}

	return cfg, nil
}
