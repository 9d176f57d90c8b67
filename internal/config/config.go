// Package config loads gateway configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved process configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Encryption EncryptionConfig
	Health     HealthConfig
	Sentry     SentryConfig
	OTel       OTelConfig
	Metrics    MetricsConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port int
	Mode string
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig configures the optional token-lookup cache.
type RedisConfig struct {
	Enabled bool
	Host    string
	Port    int
	Password string
	DB      int
}

// EncryptionConfig configures at-rest secret encryption.
type EncryptionConfig struct {
	Key string
}

// HealthConfig configures the credential health scheduler.
type HealthConfig struct {
	CheckIntervalMS    int64
	MaxLogsRetentionMS int64
}

// SentryConfig configures panic/error reporting.
type SentryConfig struct {
	DSN string
}

// OTelConfig configures distributed tracing export.
type OTelConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

// MetricsConfig configures Prometheus exposition.
type MetricsConfig struct {
	Enabled bool
}

// Load reads configuration from `.env` and the environment, applying defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// SetConfigFile makes viper report a missing .env as a file-system
		// error rather than ConfigFileNotFoundError; both mean "no file".
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("PORT"),
			Mode: v.GetString("GIN_MODE"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSL_MODE"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Encryption: EncryptionConfig{
			Key: v.GetString("ENCRYPTION_KEY"),
		},
		Health: HealthConfig{
			CheckIntervalMS:    v.GetInt64("CHECK_INTERVAL_MS"),
			MaxLogsRetentionMS: v.GetInt64("MAX_LOGS_RETENTION_MS"),
		},
		Sentry: SentryConfig{
			DSN: v.GetString("SENTRY_DSN"),
		},
		OTel: OTelConfig{
			OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 3456)
	v.SetDefault("GIN_MODE", "release")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "keyhaven")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "keyhaven")
	v.SetDefault("DB_SSL_MODE", "disable")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CHECK_INTERVAL_MS", int64(time.Hour/time.Millisecond))
	v.SetDefault("MAX_LOGS_RETENTION_MS", int64(7*24*time.Hour/time.Millisecond))

	v.SetDefault("OTEL_SERVICE_NAME", "keyhaven")
	v.SetDefault("METRICS_ENABLED", true)
}

// GetDSN returns the Postgres connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Name, c.Database.SSLMode,
	)
}

// GetRedisAddr returns the redis `host:port` address.
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
