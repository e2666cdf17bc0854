// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package ai

import (
	"context"
	"fmt"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/skill"
)

// Targeting selects which opponent a simple decider goes after.
type Targeting int

// Targeting strategies.
const (
	// TargetWeakest picks the alive opponent with the least health.
	TargetWeakest Targeting = iota
	// TargetSturdiest picks the opponent with the highest combined defenses,
	// drawing aggro the way a tank does.
	TargetSturdiest
	// TargetRandom picks any alive opponent.
	TargetRandom
)

// ParseTargeting converts a router suffix into a strategy.
func ParseTargeting(s string) (Targeting, error) {
	switch s {
	case "", "weakest":
		return TargetWeakest, nil
	case "threat", "sturdiest":
		return TargetSturdiest, nil
	case "random":
		return TargetRandom, nil
	default:
		return 0, fmt.Errorf("unknown targeting %q", s)
	}
}

// Simple picks a random usable skill, or the basic attack, and aims it
// according to its targeting strategy.
type Simple struct {
	Targeting Targeting
}

// NewSimple creates a simple decider that focuses the weakest opponent.
func NewSimple() *Simple { return &Simple{} }

// Decide implements Decider.
func (s *Simple) Decide(_ context.Context, sit Situation) (Decision, error) {
	if len(sit.Opponents) == 0 {
		return Skip(), nil
	}

	def := skill.BasicAttack
	if usable := sit.Usable(); len(usable) > 0 {
		def = usable[sit.Dice.IntN(len(usable))]
	}

	switch def.Target {
	case skill.TargetEnemySingle:
		return Attack(def.ID, s.pickOpponent(sit).ID), nil
	case skill.TargetAllySingle:
		return Attack(def.ID, weakest(sit.Allies, sit.Self).ID), nil
	default:
		return Attack(def.ID, ""), nil
	}
}

func (s *Simple) pickOpponent(sit Situation) *combat.Character {
	switch s.Targeting {
	case TargetSturdiest:
		best := sit.Opponents[0]
		for _, c := range sit.Opponents[1:] {
			if c.PhysicalDefense+c.MagicDefense > best.PhysicalDefense+best.MagicDefense {
				best = c
			}
		}
		return best
	case TargetRandom:
		return sit.Opponents[sit.Dice.IntN(len(sit.Opponents))]
	default:
		return weakest(sit.Opponents, sit.Opponents[0])
	}
}

// weakest returns the character with the least health, keeping the earliest
// on ties.
func weakest(chars []*combat.Character, fallback *combat.Character) *combat.Character {
	if len(chars) == 0 {
		return fallback
	}
	best := chars[0]
	for _, c := range chars[1:] {
		if c.Health < best.Health {
			best = c
		}
	}
	return best
}
