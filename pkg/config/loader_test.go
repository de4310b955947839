package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int      `env:"TEST_HTTP_PORT" envDefault:"8080"`
	LogLevel string   `env:"TEST_LOG_LEVEL" envDefault:"info"`
	Brokers  []string `env:"TEST_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load[testConfig]()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TEST_HTTP_PORT", "9999")
	t.Setenv("TEST_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load[testConfig]()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
}

func TestLoadInvalidValue(t *testing.T) {
	t.Setenv("TEST_HTTP_PORT", "not-a-port")

	_, err := Load[testConfig]()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse environment")
}
