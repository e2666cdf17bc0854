// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

// Package config loads server settings from a YAML file overlaid by
// command-line flags.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/clawworld/clawworld/internal/combat/engine"
	"github.com/clawworld/clawworld/internal/command"
	"github.com/clawworld/clawworld/internal/xdg"
)

// Default values.
const (
	DefaultGatewayAddr   = "127.0.0.1:8080"
	DefaultMetricsAddr   = "127.0.0.1:9100"
	DefaultContentDir    = "content"
	DefaultLogFormat     = "json"
	DefaultLogLevel      = "info"
	DefaultSweepInterval = time.Second
)

// DatabaseURLEnv names the environment variable holding the PostgreSQL URL.
const DatabaseURLEnv = "DATABASE_URL"

// Config holds every server setting.
type Config struct {
	GatewayAddr string `koanf:"gateway_addr"`
	// MetricsAddr empty disables the observability server.
	MetricsAddr    string   `koanf:"metrics_addr"`
	ContentDir     string   `koanf:"content_dir"`
	LogFormat      string   `koanf:"log_format"`
	LogLevel       string   `koanf:"log_level"`
	AllowedOrigins []string `koanf:"allowed_origins"`
	// DatabaseURL empty keeps finished combats in memory only.
	DatabaseURL string `koanf:"database_url"`

	Engine    EngineConfig    `koanf:"engine"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

// EngineConfig holds combat timing settings.
type EngineConfig struct {
	CombatTimeout     time.Duration `koanf:"combat_timeout"`
	TurnTimeout       time.Duration `koanf:"turn_timeout"`
	EndedRetention    time.Duration `koanf:"ended_retention"`
	HumanTurnPolicy   string        `koanf:"human_turn_policy"`
	MaxLoopIterations int           `koanf:"max_loop_iterations"`
	SweepInterval     time.Duration `koanf:"sweep_interval"`
	WaitTimeout       time.Duration `koanf:"wait_timeout"`
}

// RateLimitConfig holds per-connection command limits.
type RateLimitConfig struct {
	Burst int     `koanf:"burst"`
	Rate  float64 `koanf:"rate"`
}

// Default returns the default configuration.
func Default() *Config {
	ec := engine.DefaultConfig()
	return &Config{
		GatewayAddr: DefaultGatewayAddr,
		MetricsAddr: DefaultMetricsAddr,
		ContentDir:  DefaultContentDir,
		LogFormat:   DefaultLogFormat,
		LogLevel:    DefaultLogLevel,
		Engine: EngineConfig{
			CombatTimeout:     ec.CombatTimeout,
			TurnTimeout:       ec.TurnTimeout,
			EndedRetention:    ec.EndedRetention,
			HumanTurnPolicy:   string(ec.HumanTurnPolicy),
			MaxLoopIterations: ec.MaxLoopIterations,
			SweepInterval:     DefaultSweepInterval,
			WaitTimeout:       command.DefaultWaitTimeout,
		},
		RateLimit: RateLimitConfig{
			Burst: command.DefaultBurstCapacity,
			Rate:  command.DefaultSustainedRate,
		},
	}
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"gateway-addr":      "gateway_addr",
	"metrics-addr":      "metrics_addr",
	"content-dir":       "content_dir",
	"log-format":        "log_format",
	"log-level":         "log_level",
	"turn-timeout":      "engine.turn_timeout",
	"combat-timeout":    "engine.combat_timeout",
	"human-turn-policy": "engine.human_turn_policy",
}

// BindFlags registers the overridable settings on fs.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("gateway-addr", d.GatewayAddr, "websocket listen address")
	fs.String("metrics-addr", d.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("content-dir", d.ContentDir, "content pack directory")
	fs.String("log-format", d.LogFormat, "log format (json or text)")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.Duration("turn-timeout", d.Engine.TurnTimeout, "how long a player may hold the turn under the yield policy")
	fs.Duration("combat-timeout", d.Engine.CombatTimeout, "ceiling on a combat's age")
	fs.String("human-turn-policy", d.Engine.HumanTurnPolicy, "what happens when another player's turn comes up (skip or yield)")
}

// Load builds the configuration from defaults, then the YAML file at path,
// then flags set on fs, then DATABASE_URL. An empty path falls back to
// config.yaml in the XDG config directory when that file exists.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path, _ = xdg.ConfigFile()
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}
	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if url := os.Getenv(DatabaseURLEnv); url != "" {
		cfg.DatabaseURL = url
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	errb := oops.Code("CONFIG_INVALID")
	if c.GatewayAddr == "" {
		return errb.Errorf("gateway_addr is required")
	}
	if c.ContentDir == "" {
		return errb.Errorf("content_dir is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return errb.Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errb.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.Engine.SweepInterval <= 0 {
		return errb.Errorf("engine.sweep_interval must be positive, got %s", c.Engine.SweepInterval)
	}
	if c.Engine.WaitTimeout <= 0 {
		return errb.Errorf("engine.wait_timeout must be positive, got %s", c.Engine.WaitTimeout)
	}
	if c.RateLimit.Burst < 1 {
		return errb.Errorf("rate_limit.burst must be at least 1, got %d", c.RateLimit.Burst)
	}
	if c.RateLimit.Rate < command.MinSustainedRate {
		return errb.Errorf("rate_limit.rate must be at least %.1f, got %g", command.MinSustainedRate, c.RateLimit.Rate)
	}
	if _, err := c.EngineConfig(); err != nil {
		return errb.Wrap(err)
	}
	return nil
}

// EngineConfig converts the engine settings.
func (c *Config) EngineConfig() (engine.Config, error) {
	policy, err := engine.ParsePolicy(c.Engine.HumanTurnPolicy)
	if err != nil {
		return engine.Config{}, err
	}
	ec := engine.Config{
		CombatTimeout:     c.Engine.CombatTimeout,
		TurnTimeout:       c.Engine.TurnTimeout,
		EndedRetention:    c.Engine.EndedRetention,
		HumanTurnPolicy:   policy,
		MaxLoopIterations: c.Engine.MaxLoopIterations,
	}
	return ec, ec.Validate()
}

// RateLimiterConfig converts the rate limit settings.
func (c *Config) RateLimiterConfig() command.RateLimiterConfig {
	return command.RateLimiterConfig{
		BurstCapacity: c.RateLimit.Burst,
		SustainedRate: c.RateLimit.Rate,
	}
}
