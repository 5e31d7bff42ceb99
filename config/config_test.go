package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixie/hr-copilot/config"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
	assert.Empty(t, cfg.RedisAddr, "sessions default to process memory")
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty addr", func(c *config.Config) { c.HTTPAddr = "" }},
		{"empty sqlite path", func(c *config.Config) { c.SQLitePath = "" }},
		{"threshold above one", func(c *config.Config) { c.IntentThreshold = 1.5 }},
		{"negative threshold", func(c *config.Config) { c.IntentThreshold = -0.1 }},
		{"zero commit attempts", func(c *config.Config) { c.CommitMaxAttempts = 0 }},
		{"zero session ttl", func(c *config.Config) { c.SessionTTL = 0 }},
		{"bad log level", func(c *config.Config) { c.LogLevel = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("HRC_HTTP_ADDR", ":9090")
	t.Setenv("HRC_SESSION_TTL", "30m")
	t.Setenv("HRC_COMMIT_MAX_ATTEMPTS", "5")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.CommitMaxAttempts)
	assert.Equal(t, "hrcopilot.db", cfg.SQLitePath, "untouched keys keep their defaults")
}
