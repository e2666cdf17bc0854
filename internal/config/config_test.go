// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawworld/clawworld/internal/combat/engine"
	"github.com/clawworld/clawworld/pkg/errutil"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clawworld.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load("", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	ec, err := cfg.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultConfig(), ec)
}

func TestLoad_FileThenFlags(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "")
	path := writeConfig(t, `
gateway_addr: 0.0.0.0:9000
log_format: text
allowed_origins: [play.example.com]
engine:
  turn_timeout: 20s
  human_turn_policy: yield
  sweep_interval: 500ms
rate_limit:
  burst: 4
`)

	cfg, err := Load(path, newFlags(t, "--log-format=json", "--combat-timeout=5m"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.GatewayAddr, "file overrides default")
	assert.Equal(t, "json", cfg.LogFormat, "changed flag overrides file")
	assert.Equal(t, 20*time.Second, cfg.Engine.TurnTimeout, "unchanged flag keeps file value")
	assert.Equal(t, 5*time.Minute, cfg.Engine.CombatTimeout)
	assert.Equal(t, "yield", cfg.Engine.HumanTurnPolicy)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.SweepInterval)
	assert.Equal(t, []string{"play.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 4, cfg.RateLimit.Burst)
	assert.InDelta(t, 2.0, cfg.RateLimit.Rate, 1e-9, "unset keys keep defaults")

	ec, err := cfg.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, engine.PolicyYield, ec.HumanTurnPolicy)
	assert.Equal(t, 4, cfg.RateLimiterConfig().BurstCapacity)
}

func TestLoad_DatabaseURLFromEnvironment(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "postgres://claw@localhost/claw")
	cfg, err := Load(writeConfig(t, "database_url: postgres://ignored/db\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://claw@localhost/claw", cfg.DatabaseURL)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")

	_, err = Load(writeConfig(t, "rate_limit:\n  burst: lots\n"), nil)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")

	_, err = Load("", newFlags(t, "--human-turn-policy=wander"))
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestLoad_XDGConfigFile(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "")
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	dir := filepath.Join(base, "clawworld")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log_level: debug\n"), 0o600))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)

	cfg, err = Load(writeConfig(t, "log_level: warn\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel, "explicit path wins")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing gateway", func(c *Config) { c.GatewayAddr = "" }},
		{"missing content", func(c *Config) { c.ContentDir = "" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"zero sweep", func(c *Config) { c.Engine.SweepInterval = 0 }},
		{"zero wait", func(c *Config) { c.Engine.WaitTimeout = 0 }},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }},
		{"tiny rate", func(c *Config) { c.RateLimit.Rate = 0.01 }},
		{"zero turn timeout", func(c *Config) { c.Engine.TurnTimeout = 0 }},
		{"bad policy", func(c *Config) { c.Engine.HumanTurnPolicy = "wander" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		})
	}

	assert.NoError(t, Default().Validate())
}
