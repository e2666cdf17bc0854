// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package ai

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/damage"
	"github.com/clawworld/clawworld/internal/combat/dice"
	"github.com/clawworld/clawworld/internal/combat/skill"
)

var testSkills = skill.MapCatalog{
	"claw":  {ID: "claw", Name: "Claw", Target: skill.TargetEnemySingle, Damage: damage.Physical, Multiplier: 1.2, ManaCost: 5},
	"howl":  {ID: "howl", Name: "Howl", Target: skill.TargetEnemyAll, Damage: damage.Physical, Multiplier: 0.5, ManaCost: 50},
	"lick":  {ID: "lick", Name: "Lick Wounds", Target: skill.TargetAllySingle, Damage: damage.None, Multiplier: 1},
	"stomp": {ID: "stomp", Name: "Stomp", Target: skill.TargetEnemySingle, Damage: damage.Physical, Multiplier: 2, Cooldown: 3},
}

// wolfDen is two players against a wolf pack. The acting wolf is returned.
func wolfDen(t *testing.T, wolfSkills ...string) (*combat.Instance, *combat.Character) {
	t.Helper()
	inst := combat.NewInstance("den", "forest", nil)
	_, ok := inst.AddParty("heroes", []combat.Character{
		{ID: "tank", Name: "Tank", Kind: combat.KindPlayer, Health: 90, MaxHealth: 200, PhysicalDefense: 40, MagicDefense: 30, Speed: 5},
		{ID: "mage", Name: "Mage", Kind: combat.KindPlayer, Health: 50, MaxHealth: 60, PhysicalDefense: 5, MagicDefense: 20, Speed: 8},
		{ID: "rogue", Name: "Rogue", Kind: combat.KindPlayer, Health: 70, MaxHealth: 80, PhysicalDefense: 10, MagicDefense: 5, Speed: 12},
	})
	require.True(t, ok)
	_, ok = inst.AddParty("wolves", []combat.Character{
		{ID: "alpha", Name: "Alpha", Kind: combat.KindEnemy, TemplateID: "wolf_alpha", Health: 80, MaxHealth: 80, Mana: 10, MaxMana: 10, Speed: 9, Skills: wolfSkills},
		{ID: "pup", Name: "Pup", Kind: combat.KindEnemy, TemplateID: "wolf_pup", Health: 20, MaxHealth: 40, Speed: 9},
	})
	require.True(t, ok)
	self, _ := inst.Character("alpha")
	return inst, self
}

func situation(t *testing.T, src dice.Source, wolfSkills ...string) Situation {
	t.Helper()
	inst, self := wolfDen(t, wolfSkills...)
	return NewSituation(inst, self, testSkills, src)
}
