// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

// Package combat defines the in-memory state of a combat encounter: the
// participants, their factions, the speed-driven action bar and the
// sequenced combat log.
package combat

import "maps"

// Kind identifies who controls a combatant.
type Kind int

// Combatant kinds.
const (
	KindPlayer Kind = iota
	KindEnemy
)

// String returns the kind name used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindEnemy:
		return "enemy"
	default:
		return "unknown"
	}
}

// Character is a point-in-time combat snapshot of a player or enemy.
// It is copied in at combat start and mutated only by the engine.
type Character struct {
	ID        string
	Name      string
	FactionID string
	Kind      Kind
	Level     int

	Health    int
	MaxHealth int
	Mana      int
	MaxMana   int

	PhysicalAttack  int
	PhysicalDefense int
	MagicAttack     int
	MagicDefense    int
	Speed           int

	CritRate   float64
	CritDamage float64
	HitRate    float64
	DodgeRate  float64

	Skills    []string
	Cooldowns map[string]int

	PartyLeader bool
	Dead        bool
	Retreated   bool

	// Enemy bookkeeping needed to reconcile the world after combat.
	TemplateID      string
	EnemyInstanceID string
	EnemyMapID      string
	RespawnSeconds  int
}

// IsPlayer reports whether the character is player-controlled.
func (c *Character) IsPlayer() bool { return c.Kind == KindPlayer }

// IsEnemy reports whether the character is an enemy.
func (c *Character) IsEnemy() bool { return c.Kind == KindEnemy }

// Alive reports whether the character can still act and be targeted.
func (c *Character) Alive() bool {
	return !c.Dead && !c.Retreated && c.Health > 0
}

// TakeDamage reduces health, clamping at zero. It returns the damage actually
// applied and marks the character dead when health reaches zero.
func (c *Character) TakeDamage(amount int) int {
	if amount <= 0 || c.Dead || c.Retreated {
		return 0
	}
	if amount > c.Health {
		amount = c.Health
	}
	c.Health -= amount
	if c.Health <= 0 {
		c.Health = 0
		c.Dead = true
	}
	return amount
}

// Heal restores health up to the maximum. Dead characters cannot be healed.
func (c *Character) Heal(amount int) int {
	if amount <= 0 || !c.Alive() {
		return 0
	}
	if missing := c.MaxHealth - c.Health; amount > missing {
		amount = missing
	}
	c.Health += amount
	return amount
}

// RestoreMana restores mana up to the maximum.
func (c *Character) RestoreMana(amount int) int {
	if amount <= 0 || !c.Alive() {
		return 0
	}
	if missing := c.MaxMana - c.Mana; amount > missing {
		amount = missing
	}
	c.Mana += amount
	return amount
}

// ConsumeMana spends mana if enough is available. Nothing changes otherwise.
func (c *Character) ConsumeMana(amount int) bool {
	if amount < 0 || c.Mana < amount {
		return false
	}
	c.Mana -= amount
	return true
}

// KnowsSkill reports whether the skill is in the character's skill list.
func (c *Character) KnowsSkill(skillID string) bool {
	for _, s := range c.Skills {
		if s == skillID {
			return true
		}
	}
	return false
}

// OnCooldown reports whether the skill still has turns left on cooldown.
func (c *Character) OnCooldown(skillID string) bool {
	return c.Cooldowns[skillID] > 0
}

// StartCooldown puts a skill on cooldown for the given number of own turns.
func (c *Character) StartCooldown(skillID string, turns int) {
	if turns <= 0 {
		return
	}
	if c.Cooldowns == nil {
		c.Cooldowns = make(map[string]int)
	}
	c.Cooldowns[skillID] = turns
}

// TickCooldowns decrements every active cooldown by one turn.
func (c *Character) TickCooldowns() {
	for id, left := range c.Cooldowns {
		if left <= 1 {
			delete(c.Cooldowns, id)
			continue
		}
		c.Cooldowns[id] = left - 1
	}
}

// Retreat marks a player as having left the fight. Retreated players count as
// out of the fight for turn order but are distinguished from the defeated,
// and they keep their current health and mana.
func (c *Character) Retreat() {
	c.Retreated = true
}

// Clone returns a deep copy.
func (c *Character) Clone() Character {
	out := *c
	out.Skills = append([]string(nil), c.Skills...)
	out.Cooldowns = maps.Clone(c.Cooldowns)
	return out
}
