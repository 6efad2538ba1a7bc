package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, StoreMongo, cfg.StoreDriver)
	require.Equal(t, 24*time.Hour, cfg.TokenTTL)
	require.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	require.Equal(t, 100, cfg.RateLimit.Max)
	require.True(t, cfg.Redis.Enabled)
	require.Empty(t, cfg.Events.Brokers)
	require.Equal(t, devJWTSecret, cfg.JWTSecret)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"STORE_DRIVER":      "memory",
		"KAFKA_BROKERS":     "k1:9092,k2:9092",
		"RATE_LIMIT_WINDOW": "1m",
		"RATE_LIMIT_MAX":    "5",
		"REDIS_ENABLED":     "false",
	}))
	require.NoError(t, err)

	require.Equal(t, StoreMemory, cfg.StoreDriver)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.Brokers)
	require.Equal(t, time.Minute, cfg.RateLimit.Window)
	require.Equal(t, 5, cfg.RateLimit.Max)
	require.False(t, cfg.Redis.Enabled)
}

func TestLoadFrom_Invalid(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{"STORE_DRIVER": "sqlite"}))
	require.ErrorContains(t, err, "STORE_DRIVER")

	_, err = LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{"ENV": "production"}))
	require.ErrorContains(t, err, "JWT_SECRET")

	_, err = LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{"RATE_LIMIT_MAX": "0"}))
	require.Error(t, err)
}
