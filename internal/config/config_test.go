package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(overrides map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(newViper(nil))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 5000, cfg.App.Port)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, 3306, cfg.DB.Port)
	assert.Equal(t, 30*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address())
	assert.True(t, cfg.Cache.Methods["GET"])
	assert.Equal(t, "ip_route", cfg.RateLimit.KeyStrategy)
	assert.False(t, cfg.Events.Enabled)
	assert.Equal(t, "logs", cfg.Events.LogDir)
	assert.False(t, cfg.IsProduction())
}

func TestFromViper_Overrides(t *testing.T) {
	cfg, err := FromViper(newViper(map[string]any{
		"APP_ENV":       "production",
		"APP_PORT":      "8080",
		"REDIS_ADDR":    "cache.internal:6380",
		"CACHE_METHODS": "get, head",
		"CACHE_TTL":     "2m",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "cache.internal:6380", cfg.Redis.Address())
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Cache.Methods)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{"port out of range", map[string]any{"APP_PORT": 70000}},
		{"empty db host", map[string]any{"DB_HOST": ""}},
		{"empty db name", map[string]any{"DB_NAME": ""}},
		{"events without url", map[string]any{"EVENTS_ENABLED": true, "RABBITMQ_URL": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromViper(newViper(tt.overrides))
			assert.Error(t, err)
		})
	}
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	cfg := loadRateLimitConfig(newViper(map[string]any{
		"RATE_LIMIT_CAPACITY":        0,
		"RATE_LIMIT_REFILL_TOKENS":   0,
		"RATE_LIMIT_REFILL_INTERVAL": "2s",
		"RATE_LIMIT_TTL":             "1s",
	}))
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 10*time.Second, cfg.TTL)

	cfg = loadRateLimitConfig(newViper(map[string]any{"RATE_LIMIT_BURST": 5}))
	assert.Equal(t, 5, cfg.Capacity)
}

func TestNewRedisClient_Disabled(t *testing.T) {
	assert.Nil(t, NewRedisClient(RedisConfig{Enabled: false}, nil))
}
