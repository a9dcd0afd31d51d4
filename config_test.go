package bboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "bboard", cfg.ServiceName)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 512, cfg.TraceMaxBatchSize)
	assert.Equal(t, 1.0, cfg.TraceSampleRate)
	assert.False(t, cfg.OTLP)
	assert.False(t, cfg.LogDebug)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("DATABASE_URL", "postgres://test@localhost/bboard")
	t.Setenv("BBOARD_AUTH_TOKEN", "sekrit")
	t.Setenv("TRACE_SAMPLE_RATE", "0.25")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "postgres://test@localhost/bboard", cfg.DatabaseURL)
	assert.Equal(t, "sekrit", cfg.AuthToken)
	assert.Equal(t, 0.25, cfg.TraceSampleRate)
}

func TestLoadConfigInvalidSampleRate(t *testing.T) {
	t.Setenv("TRACE_SAMPLE_RATE", "lots")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRACE_SAMPLE_RATE")
}

func TestEnvOr(t *testing.T) {
	t.Setenv("BBOARD_TEST_SET", "explicit")
	assert.Equal(t, "explicit", envOr("BBOARD_TEST_SET", "default"))
	assert.Equal(t, "default", envOr("BBOARD_TEST_UNSET", "default"))

	// An empty value still counts as set.
	t.Setenv("BBOARD_TEST_EMPTY", "")
	assert.Equal(t, "", envOr("BBOARD_TEST_EMPTY", "default"))
}

func TestPoolConfig(t *testing.T) {
	cfg, err := PoolConfig("postgres://test@localhost:5432/bboard", newTestLogger())
	require.NoError(t, err)

	assert.Equal(t, int32(4), cfg.MaxConns)
	assert.Equal(t, int32(0), cfg.MinConns)
	assert.Equal(t, time.Hour, cfg.MaxConnLifetime)
	assert.Equal(t, 15*time.Minute, cfg.MaxConnIdleTime)
	assert.Equal(t, 5*time.Second, cfg.ConnConfig.ConnectTimeout)
	assert.Equal(t, "bboard", cfg.ConnConfig.Database)
}

func TestPoolConfigInvalidDSN(t *testing.T) {
	_, err := PoolConfig("://not-a-dsn", newTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse database configuration")
}
