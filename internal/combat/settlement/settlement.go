// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

// Package settlement decides how a combat ended and what it paid out.
package settlement

import (
	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/dice"
)

// LootEntry is one item an enemy may drop.
type LootEntry struct {
	ItemID string
	Chance float64
}

// EnemyReward is what defeating one enemy of a template is worth.
type EnemyReward struct {
	Exp  int
	Gold int
	Loot []LootEntry
}

// RewardTable provides per-template rewards.
type RewardTable interface {
	EnemyReward(templateID string) (EnemyReward, bool)
}

// MapRewards is an in-memory RewardTable.
type MapRewards map[string]EnemyReward

// EnemyReward implements RewardTable.
func (m MapRewards) EnemyReward(templateID string) (EnemyReward, bool) {
	r, ok := m[templateID]
	return r, ok
}

// FallbackReward values an enemy with no configured reward by its toughness.
func FallbackReward(c *combat.Character) EnemyReward {
	return EnemyReward{Exp: c.MaxHealth * 2, Gold: c.MaxHealth}
}

// Settler ends combats. It must be called with the instance owner lock held;
// the instance's Finish check-and-set makes every path run at most once.
type Settler struct {
	rewards RewardTable
}

// New creates a settler. A nil table values every enemy with FallbackReward.
func New(rewards RewardTable) *Settler {
	return &Settler{rewards: rewards}
}

// Settle ends the combat if a termination condition holds. It returns the
// distribution and true only for the call that actually ended the combat.
func (s *Settler) Settle(inst *combat.Instance, src dice.Source) (*combat.RewardDistribution, bool) {
	if !inst.Active() || !inst.Decided() {
		return nil, false
	}
	if !inst.Finish(combat.StatusFinished) {
		return nil, false
	}

	dist := combat.NewRewardDistribution(inst)
	recordCasualties(inst, dist, allPlayersDown(inst))

	winner, ok := inst.Winner()
	if !ok {
		inst.Log.Add("the battle ends in a draw")
		inst.Reward = dist
		return dist, true
	}

	dist.WinnerFaction = winner.FactionID
	inst.Log.Addf("faction %s wins", winner.FactionID)
	s.payOut(inst, winner, dist, src)
	inst.Reward = dist
	return dist, true
}

// Timeout ends an active combat that ran past its ceiling. In PVE every
// player falls; a duel ends in a draw with no casualties.
func (s *Settler) Timeout(inst *combat.Instance) (*combat.RewardDistribution, bool) {
	if !inst.Finish(combat.StatusTimeout) {
		return nil, false
	}
	inst.Log.Add("combat timed out")

	dist := combat.NewRewardDistribution(inst)
	if inst.Type() == combat.TypePVE {
		for _, c := range inst.Characters() {
			if c.IsPlayer() && c.Alive() {
				c.TakeDamage(c.Health)
				inst.Log.Addf("%s falls as time runs out", c.Name)
			}
		}
		recordCasualties(inst, dist, true)
	} else {
		inst.Log.Add("the duel ends in a draw")
		for _, c := range inst.Characters() {
			if c.IsPlayer() {
				dist.FinalStates[c.ID] = combat.FinalState{Health: c.Health, Mana: c.Mana}
			}
		}
	}
	inst.Reward = dist
	return dist, true
}

// Stalemate ends an active combat that can no longer progress as a draw,
// recording final states and casualties but paying nothing.
func (s *Settler) Stalemate(inst *combat.Instance) (*combat.RewardDistribution, bool) {
	if !inst.Finish(combat.StatusFinished) {
		return nil, false
	}
	inst.Log.Add("the battle stalls and ends in a draw")
	dist := combat.NewRewardDistribution(inst)
	recordCasualties(inst, dist, allPlayersDown(inst))
	inst.Reward = dist
	return dist, true
}

// Retreat ends a PVE combat once the last player standing has walked away.
// The enemies keep their ground and are restored, and nobody is paid or
// penalised. Only a forfeit leads here; a combat whose last player fell is
// settled by Settle.
func (s *Settler) Retreat(inst *combat.Instance) (*combat.RewardDistribution, bool) {
	if !inst.Active() || inst.Type() != combat.TypePVE || !inst.AllPlayersGone() {
		return nil, false
	}
	if !inst.Finish(combat.StatusFinished) {
		return nil, false
	}
	inst.Log.Add("all players retreated; the combat is over")

	dist := combat.NewRewardDistribution(inst)
	dist.EnemiesNeedReset = true
	for _, c := range inst.Characters() {
		switch {
		case c.IsPlayer():
			dist.FinalStates[c.ID] = combat.FinalState{Health: c.Health, Mana: c.Mana}
		case c.EnemyMapID != "" && c.EnemyInstanceID != "":
			dist.EnemiesToReset = append(dist.EnemiesToReset, combat.EnemyReset{
				MapID:      c.EnemyMapID,
				InstanceID: c.EnemyInstanceID,
			})
		}
	}
	inst.Reward = dist
	return dist, true
}

func (s *Settler) payOut(inst *combat.Instance, winner *combat.Party, dist *combat.RewardDistribution, src dice.Source) {
	for _, p := range inst.Parties() {
		if p.FactionID == winner.FactionID {
			continue
		}
		for _, c := range p.Characters {
			if !c.IsEnemy() || c.Alive() {
				continue
			}
			r := s.rewardFor(c)
			dist.TotalExp += r.Exp
			dist.TotalGold += r.Gold
			for _, l := range r.Loot {
				if dice.Chance(src, l.Chance) {
					dist.Items = append(dist.Items, l.ItemID)
				}
			}
		}
	}

	var survivors []*combat.Character
	for _, c := range winner.Characters {
		if c.IsPlayer() && c.Alive() {
			survivors = append(survivors, c)
		}
	}
	if len(survivors) == 0 {
		dist.TotalExp, dist.TotalGold, dist.Items = 0, 0, nil
		inst.Log.Add("no survivors to claim the spoils")
		return
	}

	leader := survivors[0]
	for _, c := range survivors {
		if c.PartyLeader {
			leader = c
			break
		}
	}
	dist.LeaderID = leader.ID
	for _, c := range survivors {
		dist.WinnerPlayers = append(dist.WinnerPlayers, c.ID)
	}
	dist.GoldPerPlayer = dist.TotalGold / len(survivors)

	single := len(survivors) == 1
	if dist.TotalExp > 0 {
		if single {
			inst.Log.Addf("%s gains %d exp", leader.Name, dist.TotalExp)
		} else {
			inst.Log.Addf("each survivor gains %d exp", dist.TotalExp)
		}
	}
	if dist.TotalGold > 0 {
		if single {
			inst.Log.Addf("%s collects %d gold", leader.Name, dist.TotalGold)
		} else {
			inst.Log.Addf("gold split: %d each (%d total)", dist.GoldPerPlayer, dist.TotalGold)
		}
	}
	for _, item := range dist.Items {
		inst.Log.Addf("%s receives %s", leader.Name, item)
	}
	if dist.TotalExp == 0 && dist.TotalGold == 0 && len(dist.Items) == 0 {
		inst.Log.Add("no spoils")
	}
}

func (s *Settler) rewardFor(c *combat.Character) EnemyReward {
	if s.rewards != nil {
		if r, ok := s.rewards.EnemyReward(c.TemplateID); ok {
			return r
		}
	}
	return FallbackReward(c)
}

// recordCasualties snapshots every player's final state and lists the fallen
// on both sides.
func recordCasualties(inst *combat.Instance, dist *combat.RewardDistribution, allDown bool) {
	for _, c := range inst.Characters() {
		if c.IsPlayer() {
			dist.FinalStates[c.ID] = combat.FinalState{Health: c.Health, Mana: c.Mana}
			if c.Dead && !c.Retreated {
				dist.DefeatedPlayer = append(dist.DefeatedPlayer, combat.DefeatedPlayer{
					PlayerID:           c.ID,
					Level:              c.Level,
					AllPlayersDefeated: allDown,
				})
			}
			continue
		}
		if c.Dead && c.EnemyInstanceID != "" {
			dist.DefeatedEnemy = append(dist.DefeatedEnemy, combat.DefeatedEnemy{
				MapID:          c.EnemyMapID,
				InstanceID:     c.EnemyInstanceID,
				RespawnSeconds: c.RespawnSeconds,
			})
		}
	}
}

func allPlayersDown(inst *combat.Instance) bool {
	for _, c := range inst.Characters() {
		if c.IsPlayer() && c.Alive() {
			return false
		}
	}
	return true
}
