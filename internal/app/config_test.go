package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 3, cfg.CheckoutMaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.CheckoutRetryBase)
	assert.Equal(t, 24*time.Hour, cfg.ReceiptCacheTTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("CHECKOUT_MAX_ATTEMPTS", "5")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "30")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 5, cfg.CheckoutMaxAttempts)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
}

func TestLoadConfigRejectsZeroAttempts(t *testing.T) {
	t.Setenv("CHECKOUT_MAX_ATTEMPTS", "0")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestTestModeParsing(t *testing.T) {
	for raw, want := range map[string]bool{"1": true, "true": true, "TRUE": true, "0": false, "": false, "yes": false} {
		assert.Equal(t, want, testModeEnabled(raw), raw)
	}
}
