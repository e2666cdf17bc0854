// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFighter(id string, hp, mp int) Character {
	return Character{
		ID:        id,
		Name:      id,
		Kind:      KindPlayer,
		Level:     10,
		Health:    hp,
		MaxHealth: hp,
		Mana:      mp,
		MaxMana:   mp,
		Speed:     100,
	}
}

func TestCharacter_TakeDamage(t *testing.T) {
	tests := []struct {
		name       string
		health     int
		damage     int
		wantHealth int
		wantDealt  int
		wantDead   bool
	}{
		{name: "partial damage", health: 100, damage: 30, wantHealth: 70, wantDealt: 30},
		{name: "exact lethal", health: 30, damage: 30, wantHealth: 0, wantDealt: 30, wantDead: true},
		{name: "overkill clamps at zero", health: 10, damage: 50, wantHealth: 0, wantDealt: 10, wantDead: true},
		{name: "zero damage is ignored", health: 40, damage: 0, wantHealth: 40, wantDealt: 0},
		{name: "negative damage is ignored", health: 40, damage: -5, wantHealth: 40, wantDealt: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newFighter("a", tt.health, 0)
			c.MaxHealth = 100
			dealt := c.TakeDamage(tt.damage)
			assert.Equal(t, tt.wantDealt, dealt)
			assert.Equal(t, tt.wantHealth, c.Health)
			assert.Equal(t, tt.wantDead, c.Dead)
			assert.Equal(t, !tt.wantDead, c.Alive())
		})
	}
}

func TestCharacter_Heal(t *testing.T) {
	c := newFighter("a", 100, 0)
	c.Health = 40

	assert.Equal(t, 20, c.Heal(20))
	assert.Equal(t, 60, c.Health)

	assert.Equal(t, 40, c.Heal(500), "heal is clamped to max health")
	assert.Equal(t, 100, c.Health)
}

func TestCharacter_CannotHealWhenDead(t *testing.T) {
	c := newFighter("a", 100, 0)
	c.TakeDamage(100)
	require.True(t, c.Dead)

	assert.Equal(t, 0, c.Heal(50))
	assert.Equal(t, 0, c.Health)
}

func TestCharacter_ConsumeMana(t *testing.T) {
	c := newFighter("a", 100, 50)

	assert.True(t, c.ConsumeMana(20))
	assert.Equal(t, 30, c.Mana)

	assert.False(t, c.ConsumeMana(31))
	assert.Equal(t, 30, c.Mana, "failed spend leaves mana untouched")

	assert.True(t, c.ConsumeMana(30))
	assert.Equal(t, 0, c.Mana)
}

func TestCharacter_Cooldowns(t *testing.T) {
	c := newFighter("a", 100, 50)
	c.StartCooldown("fireball", 2)
	c.StartCooldown("noop", 0)

	assert.True(t, c.OnCooldown("fireball"))
	assert.False(t, c.OnCooldown("noop"))

	c.TickCooldowns()
	assert.True(t, c.OnCooldown("fireball"))

	c.TickCooldowns()
	assert.False(t, c.OnCooldown("fireball"))
	assert.Empty(t, c.Cooldowns)
}

func TestCharacter_Retreat(t *testing.T) {
	c := newFighter("a", 100, 50)
	c.TakeDamage(30)
	c.Retreat()

	assert.True(t, c.Retreated)
	assert.False(t, c.Dead)
	assert.Equal(t, 70, c.Health, "retreat keeps current health")
	assert.Equal(t, 50, c.Mana)
	assert.False(t, c.Alive())
	assert.Zero(t, c.TakeDamage(10), "retreated players cannot be hit")
	assert.Equal(t, 70, c.Health)
}

func TestCharacter_CloneIsDeep(t *testing.T) {
	c := newFighter("a", 100, 50)
	c.Skills = []string{"fireball"}
	c.StartCooldown("fireball", 3)

	cp := c.Clone()
	cp.Skills[0] = "frost"
	cp.Cooldowns["fireball"] = 1

	assert.Equal(t, "fireball", c.Skills[0])
	assert.Equal(t, 3, c.Cooldowns["fireball"])
}
