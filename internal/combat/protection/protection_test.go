// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package protection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/pkg/errutil"
)

var testMaps = MapSet{
	"meadow":      {ID: "meadow", RecommendedLevel: Level(10)},
	"wilds":       {ID: "wilds"},
	"town:square": {ID: "town:square"},
	"chapel":      {ID: "chapel", Safe: true},
}

func newChecker(t *testing.T) *Checker {
	t.Helper()
	zones, err := NewSafeZones([]string{"town:*"})
	require.NoError(t, err)
	return NewChecker(testMaps, zones)
}

func TestChecker_MapAllowsCombat(t *testing.T) {
	c := newChecker(t)

	tests := []struct {
		mapID   string
		allowed bool
	}{
		{"meadow", true},
		{"wilds", true},
		{"chapel", false},
		{"town:square", false},
		{"atlantis", false},
	}
	for _, tt := range tests {
		t.Run(tt.mapID, func(t *testing.T) {
			res := c.MapAllowsCombat(tt.mapID)
			assert.Equal(t, tt.allowed, res.Allowed)
			if !tt.allowed {
				assert.NotEmpty(t, res.Reason)
			}
		})
	}
}

func TestFactionsMayFight_Symmetric(t *testing.T) {
	factions := []string{"party_a", "party_b", "enemy_wolf", "party_a"}
	for _, a := range factions {
		for _, b := range factions {
			assert.Equal(t, FactionsMayFight(a, b), FactionsMayFight(b, a), "%s vs %s", a, b)
			assert.Equal(t, a != b, FactionsMayFight(a, b).Allowed)
		}
	}
}

func TestPartyProtected(t *testing.T) {
	tests := []struct {
		name        string
		levels      []int
		recommended *int
		want        bool
	}{
		{name: "all at or below", levels: []int{8, 10}, recommended: Level(10), want: true},
		{name: "one above", levels: []int{8, 12}, recommended: Level(10), want: false},
		{name: "no recommendation", levels: []int{1}, recommended: nil, want: false},
		{name: "empty party", levels: nil, recommended: Level(10), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PartyProtected(tt.levels, tt.recommended))
		})
	}
}

func TestChecker_CheckPVP(t *testing.T) {
	c := newChecker(t)

	t.Run("lone level 10 on a recommended 10 map is protected", func(t *testing.T) {
		res := c.CheckPVP("meadow", []int{10})
		assert.False(t, res.Allowed)
		assert.Contains(t, res.Reason, "(10)")
		errutil.AssertErrorCode(t, res.Err(), combat.CodeCombatDenied)
	})

	t.Run("a level 12 member exposes the whole party", func(t *testing.T) {
		res := c.CheckPVP("meadow", []int{8, 12})
		assert.True(t, res.Allowed)
		assert.NoError(t, res.Err())
	})

	t.Run("no recommendation means no protection", func(t *testing.T) {
		assert.True(t, c.CheckPVP("wilds", []int{1}).Allowed)
	})

	t.Run("unknown map", func(t *testing.T) {
		assert.False(t, c.CheckPVP("atlantis", []int{50}).Allowed)
	})
}

func TestCheckNotInCombat(t *testing.T) {
	busy := map[string]string{"bob": "c1"}
	lookup := func(id string) (string, bool) {
		cid, ok := busy[id]
		return cid, ok
	}

	assert.True(t, CheckNotInCombat([]string{"alice", "carol"}, lookup).Allowed)
	assert.False(t, CheckNotInCombat([]string{"alice", "bob"}, lookup).Allowed)
}

func TestChecker_CheckKillSteal(t *testing.T) {
	c := newChecker(t)
	party := func(faction string, members ...combat.Character) *combat.Party {
		return combat.NewParty(faction, members)
	}
	player := func(id string, level int) combat.Character {
		return combat.Character{ID: id, Kind: combat.KindPlayer, Level: level, Health: 10, MaxHealth: 10}
	}
	wolves := party("enemy_wolf", combat.Character{ID: "w", Kind: combat.KindEnemy, Level: 30, Health: 10, MaxHealth: 10})

	lowbies := party("party_low", player("a", 7), player("b", 9))
	assert.False(t, c.CheckKillSteal("meadow", []*combat.Party{lowbies, wolves}).Allowed)

	mixed := party("party_mixed", player("c", 7), player("d", 15))
	assert.True(t, c.CheckKillSteal("meadow", []*combat.Party{mixed, wolves}).Allowed)

	// Only standing players count: once the veteran falls the party is protected.
	mixed.Characters[1].TakeDamage(100)
	assert.False(t, c.CheckKillSteal("meadow", []*combat.Party{mixed, wolves}).Allowed)

	wiped := party("party_wiped", player("e", 3))
	wiped.Characters[0].TakeDamage(100)
	assert.True(t, c.CheckKillSteal("meadow", []*combat.Party{wiped, wolves}).Allowed)

	assert.True(t, c.CheckKillSteal("wilds", []*combat.Party{lowbies}).Allowed)
}
