// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

// Package skill defines combat skills and resolves casting them.
package skill

import (
	"fmt"
	"strings"

	"github.com/clawworld/clawworld/internal/combat/damage"
)

// TargetShape is the set of combatants a skill affects.
type TargetShape int

// Target shapes.
const (
	TargetSelf TargetShape = iota
	TargetAllySingle
	TargetAllyAll
	TargetEnemySingle
	TargetEnemyAll
)

var shapeNames = map[TargetShape]string{
	TargetSelf:        "self",
	TargetAllySingle:  "ally",
	TargetAllyAll:     "allies",
	TargetEnemySingle: "enemy",
	TargetEnemyAll:    "enemies",
}

// String returns the content-file name of the shape.
func (s TargetShape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return "unknown"
}

// Offensive reports whether the shape targets opponents.
func (s TargetShape) Offensive() bool {
	return s == TargetEnemySingle || s == TargetEnemyAll
}

// Single reports whether the shape takes an explicit target.
func (s TargetShape) Single() bool {
	return s == TargetAllySingle || s == TargetEnemySingle
}

// ParseTargetShape accepts both the short content names ("enemy") and the
// long upper-case forms ("ENEMY_SINGLE").
func ParseTargetShape(s string) (TargetShape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "self":
		return TargetSelf, nil
	case "ally", "ally_single":
		return TargetAllySingle, nil
	case "allies", "ally_all":
		return TargetAllyAll, nil
	case "enemy", "enemy_single":
		return TargetEnemySingle, nil
	case "enemies", "enemy_all":
		return TargetEnemyAll, nil
	default:
		return 0, fmt.Errorf("unknown target shape %q", s)
	}
}

// Definition describes a skill. Shapes and damage types are resolved when
// content is loaded, never per cast.
type Definition struct {
	ID         string
	Name       string
	Target     TargetShape
	Damage     damage.Type
	Multiplier float64
	ManaCost   int
	Cooldown   int
}

// BasicAttackID is the skill every combatant knows.
const BasicAttackID = "basic_attack"

// BasicAttack is a single-target physical strike with no cost or cooldown.
var BasicAttack = Definition{
	ID:         BasicAttackID,
	Name:       "Attack",
	Target:     TargetEnemySingle,
	Damage:     damage.Physical,
	Multiplier: 1.0,
}

// Catalog looks up skill definitions by id.
type Catalog interface {
	Skill(id string) (Definition, bool)
}

// Lookup resolves a skill from the catalog. The basic attack is always
// available, even if the catalog does not define it.
func Lookup(c Catalog, id string) (Definition, bool) {
	if c != nil {
		if def, ok := c.Skill(id); ok {
			return def, true
		}
	}
	if id == BasicAttackID {
		return BasicAttack, true
	}
	return Definition{}, false
}

// MapCatalog is an in-memory catalog.
type MapCatalog map[string]Definition

// Skill implements Catalog.
func (m MapCatalog) Skill(id string) (Definition, bool) {
	def, ok := m[id]
	return def, ok
}
