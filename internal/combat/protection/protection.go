// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

// Package protection decides whether a fight may start or be joined.
// Every check is a pure predicate over its inputs.
package protection

import (
	"fmt"

	"github.com/clawworld/clawworld/internal/combat"
)

// Result is the verdict of a check. Reason is shown to the player.
type Result struct {
	Allowed bool
	Reason  string
}

// Allow is the passing verdict.
func Allow() Result { return Result{Allowed: true} }

// Deny fails a check with a player-facing reason.
func Deny(reason string) Result { return Result{Reason: reason} }

// Err converts a denial into a COMBAT_DENIED error.
func (r Result) Err() error {
	if r.Allowed {
		return nil
	}
	return combat.ErrCombatDenied(r.Reason)
}

// MapInfo is what protection needs to know about a map.
type MapInfo struct {
	ID   string
	Safe bool
	// RecommendedLevel is nil for maps without level protection.
	RecommendedLevel *int
}

// Maps looks up map metadata.
type Maps interface {
	Map(id string) (MapInfo, bool)
}

// MapSet is an in-memory Maps.
type MapSet map[string]MapInfo

// Map implements Maps.
func (m MapSet) Map(id string) (MapInfo, bool) {
	info, ok := m[id]
	return info, ok
}

// Level returns a pointer for MapInfo.RecommendedLevel.
func Level(n int) *int { return &n }

// Checker runs the protection rules against map metadata.
type Checker struct {
	maps  Maps
	zones *SafeZones
}

// NewChecker creates a checker. zones may be nil.
func NewChecker(maps Maps, zones *SafeZones) *Checker {
	return &Checker{maps: maps, zones: zones}
}

// MapAllowsCombat denies unknown maps and safe zones.
func (c *Checker) MapAllowsCombat(mapID string) Result {
	info, ok := c.maps.Map(mapID)
	if !ok {
		return Deny("That map does not exist.")
	}
	if info.Safe || c.zones.Match(mapID) {
		return Deny("Combat is not allowed here.")
	}
	return Allow()
}

// FactionsMayFight denies combat within one faction.
func FactionsMayFight(a, b string) Result {
	if a == b {
		return Deny("You cannot attack your own faction.")
	}
	return Allow()
}

// PartyProtected reports whether no member is above the recommended level.
// A map without a recommended level protects nobody.
func PartyProtected(levels []int, recommended *int) bool {
	if recommended == nil {
		return false
	}
	for _, l := range levels {
		if l > *recommended {
			return false
		}
	}
	return true
}

// CheckPVP denies attacking a party that is protected on this map.
func (c *Checker) CheckPVP(mapID string, defenderLevels []int) Result {
	info, ok := c.maps.Map(mapID)
	if !ok {
		return Deny("That map does not exist.")
	}
	if PartyProtected(defenderLevels, info.RecommendedLevel) {
		return Deny(fmt.Sprintf(
			"That party is protected: no member is above the recommended level (%d) for this map.",
			*info.RecommendedLevel))
	}
	return Allow()
}

// CheckNotInCombat denies if any of the ids is already fighting. combatOf
// reports the combat a character is in.
func CheckNotInCombat(ids []string, combatOf func(id string) (string, bool)) Result {
	for _, id := range ids {
		if _, busy := combatOf(id); busy {
			return Deny("That target is already in combat.")
		}
	}
	return Allow()
}

// CheckKillSteal denies joining a fight in which a protected player party is
// still standing. Only alive players count toward a party's levels.
func (c *Checker) CheckKillSteal(mapID string, parties []*combat.Party) Result {
	info, ok := c.maps.Map(mapID)
	if !ok || info.RecommendedLevel == nil {
		return Allow()
	}
	for _, p := range parties {
		var levels []int
		for _, ch := range p.Characters {
			if ch.IsPlayer() && ch.Alive() {
				levels = append(levels, ch.Level)
			}
		}
		if len(levels) == 0 {
			continue
		}
		if PartyProtected(levels, info.RecommendedLevel) {
			return Deny(fmt.Sprintf(
				"A party in that fight is under level protection (all members at or below level %d); you cannot join.",
				*info.RecommendedLevel))
		}
	}
	return Allow()
}
