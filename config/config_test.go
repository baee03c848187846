package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Server.AppEnv)
	assert.Equal(t, ":8080", cfg.Server.HTTPPort)
	assert.Equal(t, StorePostgres, cfg.Server.Store)
	assert.Empty(t, cfg.Server.GRPCPort)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.False(t, cfg.Server.StrictStatus)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.True(t, cfg.Postgres.AutoMigrate)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "inventory.movements", cfg.Kafka.Topic)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"APP_ENV":              "development",
		"GRPC_PORT":            ":9090",
		"STORE":                "memory",
		"HTTP_STRICT_STATUS":   "true",
		"HTTP_REQUEST_TIMEOUT": "5s",
		"LOGGER_LEVEL":         "warn",
		"POSTGRES_HOST":        "db",
		"POSTGRES_DB":          "supplies",
		"KAFKA_BROKERS":        "k1:9092,k2:9092",
		"EXPORT_CACHE_TTL":     "1m",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, ":9090", cfg.Server.GRPCPort)
	assert.Equal(t, StoreMemory, cfg.Server.Store)
	assert.True(t, cfg.Server.StrictStatus)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "db", cfg.Postgres.Host)
	assert.Equal(t, "supplies", cfg.Postgres.DBName)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Minute, cfg.Export.CacheTTL)
}

func TestLoadInvalidDuration(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"HTTP_REQUEST_TIMEOUT": "soon",
	}))
	require.Error(t, err)
}

func TestLoadUnknownStore(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"STORE": "sqlite",
	}))
	require.Error(t, err)
}
