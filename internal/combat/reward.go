// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package combat

import "maps"

// FinalState is a player's health and mana when the combat ended.
type FinalState struct {
	Health int
	Mana   int
}

// DefeatedPlayer records a player who fell (not retreated) for penalty
// bookkeeping.
type DefeatedPlayer struct {
	PlayerID           string
	Level              int
	AllPlayersDefeated bool
}

// DefeatedEnemy identifies a persistent enemy that must respawn later.
type DefeatedEnemy struct {
	MapID          string
	InstanceID     string
	RespawnSeconds int
}

// EnemyReset identifies a persistent enemy whose state must be restored
// because every player left the fight.
type EnemyReset struct {
	MapID      string
	InstanceID string
}

// RewardDistribution is the immutable outcome of a combat, computed once at
// termination and handed to the caller for persistence.
type RewardDistribution struct {
	CombatID       string
	MapID          string
	CombatType     Type
	Status         Status
	WinnerFaction  string
	TotalExp       int
	TotalGold      int
	GoldPerPlayer  int
	Items          []string
	LeaderID       string
	WinnerPlayers  []string
	FinalStates    map[string]FinalState
	DefeatedPlayer []DefeatedPlayer
	DefeatedEnemy  []DefeatedEnemy

	EnemiesNeedReset bool
	EnemiesToReset   []EnemyReset
}

// NewRewardDistribution creates an empty distribution for the instance.
func NewRewardDistribution(inst *Instance) *RewardDistribution {
	return &RewardDistribution{
		CombatID:    inst.ID,
		MapID:       inst.MapID,
		CombatType:  inst.Type(),
		Status:      inst.Status,
		FinalStates: make(map[string]FinalState),
	}
}

// Clone returns a deep copy.
func (r *RewardDistribution) Clone() *RewardDistribution {
	if r == nil {
		return nil
	}
	out := *r
	out.Items = append([]string(nil), r.Items...)
	out.WinnerPlayers = append([]string(nil), r.WinnerPlayers...)
	out.FinalStates = maps.Clone(r.FinalStates)
	out.DefeatedPlayer = append([]DefeatedPlayer(nil), r.DefeatedPlayer...)
	out.DefeatedEnemy = append([]DefeatedEnemy(nil), r.DefeatedEnemy...)
	out.EnemiesToReset = append([]EnemyReset(nil), r.EnemiesToReset...)
	return &out
}
