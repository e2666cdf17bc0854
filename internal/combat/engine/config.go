// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package engine

import (
	"strings"
	"time"

	"github.com/samber/oops"
)

// HumanTurnPolicy decides what the resolve loop does when the next actor is a
// player other than the one who issued the command.
type HumanTurnPolicy string

const (
	// PolicySkip logs the player as unresponsive and passes their turn.
	PolicySkip HumanTurnPolicy = "skip"
	// PolicyYield stops the loop and notifies the player whose turn it is.
	// The sweeper passes the turn once TurnTimeout elapses.
	PolicyYield HumanTurnPolicy = "yield"
)

// ParsePolicy parses a policy name. Empty means PolicySkip.
func ParsePolicy(s string) (HumanTurnPolicy, error) {
	switch HumanTurnPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicySkip:
		return PolicySkip, nil
	case PolicyYield:
		return PolicyYield, nil
	default:
		return "", oops.In("engine").With("policy", s).Errorf("unknown human turn policy %q", s)
	}
}

// Default engine settings.
const (
	DefaultCombatTimeout     = 10 * time.Minute
	DefaultTurnTimeout       = 12 * time.Second
	DefaultEndedRetention    = 5 * time.Minute
	DefaultMaxLoopIterations = 10000
)

// Config holds the engine timing and scheduling settings.
type Config struct {
	// CombatTimeout is the ceiling on a combat's age.
	CombatTimeout time.Duration
	// TurnTimeout bounds how long a player may hold the turn under PolicyYield.
	TurnTimeout time.Duration
	// EndedRetention is how long an ended combat's final log stays queryable.
	EndedRetention  time.Duration
	HumanTurnPolicy HumanTurnPolicy
	// MaxLoopIterations caps one run of the resolve loop.
	MaxLoopIterations int
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		CombatTimeout:     DefaultCombatTimeout,
		TurnTimeout:       DefaultTurnTimeout,
		EndedRetention:    DefaultEndedRetention,
		HumanTurnPolicy:   PolicySkip,
		MaxLoopIterations: DefaultMaxLoopIterations,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	errb := oops.In("engine")
	if c.CombatTimeout <= 0 {
		return errb.Errorf("combat timeout must be positive, got %s", c.CombatTimeout)
	}
	if c.TurnTimeout <= 0 {
		return errb.Errorf("turn timeout must be positive, got %s", c.TurnTimeout)
	}
	if c.EndedRetention < 0 {
		return errb.Errorf("ended retention must not be negative, got %s", c.EndedRetention)
	}
	if c.MaxLoopIterations < 1 {
		return errb.Errorf("max loop iterations must be at least 1, got %d", c.MaxLoopIterations)
	}
	if _, err := ParsePolicy(string(c.HumanTurnPolicy)); err != nil {
		return err
	}
	return nil
}
