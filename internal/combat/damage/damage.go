// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

// Package damage resolves hit, critical and damage rolls between combatants.
package damage

import (
	"fmt"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/dice"
)

// Type selects which attack and defense stats an action uses.
type Type int

// Damage types. None marks supportive actions that deal no damage.
const (
	Physical Type = iota
	Magical
	None
)

// String returns the name used in content files.
func (t Type) String() string {
	switch t {
	case Physical:
		return "physical"
	case Magical:
		return "magical"
	case None:
		return "none"
	default:
		return "unknown"
	}
}

// ParseType converts a content name into a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "physical":
		return Physical, nil
	case "magical":
		return Magical, nil
	case "none":
		return None, nil
	default:
		return 0, fmt.Errorf("unknown damage type %q", s)
	}
}

// Default tuning.
const (
	DefaultMinHitChance = 0.05
	DefaultCritBase     = 1.5
)

// Result is the outcome of one attack against one defender.
type Result struct {
	Amount   int
	Missed   bool
	Critical bool
	Defeated bool
}

// Calculator rolls attacks. The zero value is not usable; use NewCalculator.
type Calculator struct {
	minHitChance float64
	critBase     float64
}

// NewCalculator creates a calculator with the default tuning.
func NewCalculator() *Calculator {
	return &Calculator{minHitChance: DefaultMinHitChance, critBase: DefaultCritBase}
}

// HitChance is the attacker's hit rate minus the defender's dodge rate,
// never below the configured floor.
func (c *Calculator) HitChance(attacker, defender *combat.Character) float64 {
	return max(c.minHitChance, attacker.HitRate-defender.DodgeRate)
}

// Base returns attack minus defense for the damage type, at least 1.
func Base(attacker, defender *combat.Character, t Type) int {
	var atk, def int
	switch t {
	case Magical:
		atk, def = attacker.MagicAttack, defender.MagicDefense
	default:
		atk, def = attacker.PhysicalAttack, defender.PhysicalDefense
	}
	return max(1, atk-def)
}

// Roll computes an attack without touching the defender.
func (c *Calculator) Roll(src dice.Source, attacker, defender *combat.Character, t Type, multiplier float64) Result {
	if !dice.Chance(src, c.HitChance(attacker, defender)) {
		return Result{Missed: true}
	}
	amount := max(1, int(float64(Base(attacker, defender, t))*multiplier))
	var crit bool
	if dice.Chance(src, attacker.CritRate) {
		crit = true
		amount = max(1, int(float64(amount)*(c.critBase+attacker.CritDamage)))
	}
	return Result{Amount: amount, Critical: crit}
}

// Apply rolls an attack and applies it to the defender.
func (c *Calculator) Apply(src dice.Source, attacker, defender *combat.Character, t Type, multiplier float64) Result {
	res := c.Roll(src, attacker, defender, t, multiplier)
	if res.Missed {
		return res
	}
	res.Amount = defender.TakeDamage(res.Amount)
	res.Defeated = defender.Dead
	return res
}
