package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CHARGING_TICK_INTERVAL", "500ms")
	t.Setenv("CHARGING_DEFAULT_BALANCE", "250")
	t.Setenv("CHARGING_HTTP_PORT", ":9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.Charging.TickInterval)
	assert.Equal(t, 250.0, cfg.Charging.DefaultBalance)
	assert.Equal(t, 0.01, cfg.Charging.AccrualRateKWhPerSecond)
	assert.Equal(t, ":9000", cfg.HTTPAddress())
	assert.True(t, cfg.Database.SeedDemo)
	assert.Zero(t, cfg.RedisTTL())
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	assert.ErrorContains(t, cfg.Validate(), "jwt secret")

	cfg.JWT.Secret = "x"
	require.NoError(t, cfg.Validate())

	cfg.Charging.AccrualRateKWhPerSecond = 0
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.JWT.Secret = "x"
	cfg.Charging.DefaultBalance = -1
	assert.Error(t, cfg.Validate())
}
