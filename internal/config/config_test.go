package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-contracts/internal/config"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/contracts")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/contracts", cfg.DatabaseURL)
	assert.Equal(t, config.StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 5, cfg.NumberMaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Outbox.Interval)
	assert.Equal(t, "dispute.events", cfg.Kafka.DisputeTopic)
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Otel.Enabled)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Empty(t, cfg.MemoryServicesFile)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("NUMBER_MAX_RETRIES", "7")
	t.Setenv("OTEL_ENABLED", "yes")
	t.Setenv("OTEL_SAMPLER_RATIO", "0.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MEMORY_SERVICES_FILE", "./fixtures/services.json")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, config.StorageDriverMemory, cfg.StorageDriver)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, 7, cfg.NumberMaxRetries)
	assert.True(t, cfg.Otel.Enabled)
	assert.Equal(t, 0.5, cfg.Otel.SampleRatio)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "./fixtures/services.json", cfg.MemoryServicesFile)
}

func TestFromEnvErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"bad duration":         {"OUTBOX_POLL_INTERVAL": "soon"},
		"bad driver":           {"STORAGE_DRIVER": "mongo"},
		"zero retries":         {"NUMBER_MAX_RETRIES": "0"},
		"bad bool":             {"OTEL_ENABLED": "maybe"},
		"short prod secret":    {"APP_ENV": "production", "JWT_SECRET": "short", "CORS_ALLOWED_ORIGINS": "https://a"},
		"memory in prod":       {"APP_ENV": "production", "JWT_SECRET": "0123456789abcdef0123456789abcdef", "CORS_ALLOWED_ORIGINS": "https://a", "STORAGE_DRIVER": "memory"},
		"prod without origins": {"APP_ENV": "production", "JWT_SECRET": "0123456789abcdef0123456789abcdef"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := config.FromEnv()
			assert.Error(t, err)
		})
	}
}
