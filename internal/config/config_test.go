package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWhenEnvUnset(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3456, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "keyhaven", cfg.OTel.ServiceName)
}

func TestLoadReadsOverridesFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestGetDSNFormatsPostgresConnectionString(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "keyhaven",
		Password: "secret",
		Name:     "keyhaven",
		SSLMode:  "disable",
	}}

	assert.Equal(t, "host=localhost port=5432 user=keyhaven password=secret dbname=keyhaven sslmode=disable", cfg.GetDSN())
}

func TestGetRedisAddrFormatsHostPort(t *testing.T) {
	cfg := &Config{Redis: RedisConfig{Host: "redis.internal", Port: 6380}}
	assert.Equal(t, "redis.internal:6380", cfg.GetRedisAddr())
}

func TestMain(m *testing.M) {
	// Load() reads ".env" relative to the working directory; ensure a clean
	// environment so defaults assertions aren't polluted by a real one.
	_ = os.Unsetenv("DB_HOST")
	os.Exit(m.Run())
}
