// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package engine

import (
	"log/slog"
	"time"

	"github.com/clawworld/clawworld/internal/combat/ai"
	"github.com/clawworld/clawworld/internal/combat/dice"
	"github.com/clawworld/clawworld/internal/combat/settlement"
	"github.com/clawworld/clawworld/internal/combat/skill"
	"github.com/clawworld/clawworld/internal/core"
)

// Option configures an Engine during construction.
type Option func(*Engine)

// WithConfig replaces the default settings.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithClock sets the time source used for turn and combat timers.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.clock = now
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithBroadcaster sets where turn, log and ended events are published.
func WithBroadcaster(bc *core.Broadcaster) Option {
	return func(e *Engine) {
		e.bc = bc
	}
}

// WithDice sets the random source factory, called once per combat.
// Fixed seeds make combats replayable.
func WithDice(factory func(combatID string) dice.Source) Option {
	return func(e *Engine) {
		e.newDice = factory
	}
}

// WithDecider sets the enemy AI. The default is ai.NewSimple().
func WithDecider(d ai.Decider) Option {
	return func(e *Engine) {
		e.decider = d
	}
}

// WithCatalog sets the skill catalog shared by players and enemies.
func WithCatalog(c skill.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithSettler sets the settlement rules, e.g. to use configured enemy rewards.
func WithSettler(s *settlement.Settler) Option {
	return func(e *Engine) {
		e.settler = s
	}
}

// WithIDGenerator sets the combat id generator. The default mints ULIDs.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.newID = gen
	}
}
