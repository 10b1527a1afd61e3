package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Persistors PersistorsConfig `mapstructure:"persistors"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Ingestion  IngestionConfig  `mapstructure:"ingestion"`
	DLQ        DLQConfig        `mapstructure:"dlq"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	// Startup readiness gate: bounded connection retries before the
	// process gives up and exits.
	ReadyAttempts int           `mapstructure:"ready_attempts"`
	ReadyInterval time.Duration `mapstructure:"ready_interval"`
}

// PersistorsConfig maps each known event type to its downstream persistor
// host. All persistors listen on the shared Port.
type PersistorsConfig struct {
	Auth        string        `mapstructure:"auth"`
	Payment     string        `mapstructure:"payment"`
	System      string        `mapstructure:"system"`
	Application string        `mapstructure:"application"`
	Port        int           `mapstructure:"port"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type IngestionConfig struct {
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type DLQConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	NatsURL string `mapstructure:"nats_url"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ConnString builds the pgx connection string for the configured database.
func (c PostgresConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Load reads configuration from an optional YAML file and the environment.
// Environment variables use the COLLECTOR_ prefix with dots replaced by
// underscores (COLLECTOR_DATABASE_POSTGRES_HOST overrides
// database.postgres.host).
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 5002)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.postgres.host", "postgres")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "logs_user")
	v.SetDefault("database.postgres.password", "logs_pass")
	v.SetDefault("database.postgres.database", "logsdb")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.ready_attempts", 15)
	v.SetDefault("database.postgres.ready_interval", "2s")

	v.SetDefault("persistors.auth", "persistor-auth")
	v.SetDefault("persistors.payment", "persistor-payment")
	v.SetDefault("persistors.system", "persistor-system")
	v.SetDefault("persistors.application", "persistor-application")
	v.SetDefault("persistors.port", 6000)
	v.SetDefault("persistors.timeout", "3s")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)

	v.SetDefault("ingestion.rate_limit_enabled", false)
	v.SetDefault("ingestion.rate_limit_requests", 10000)
	v.SetDefault("ingestion.rate_limit_window", "1m")

	v.SetDefault("dlq.enabled", false)
	v.SetDefault("dlq.nats_url", "nats://localhost:4222")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/logcourier/collector")
	}

	v.SetEnvPrefix("COLLECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
