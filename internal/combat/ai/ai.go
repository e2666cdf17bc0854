// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

// Package ai chooses actions for combatants no player controls.
package ai

import (
	"context"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/dice"
	"github.com/clawworld/clawworld/internal/combat/skill"
)

// Action is the kind of move a decider settled on.
type Action int

// Actions.
const (
	ActionSkip Action = iota
	ActionAttack
)

// String returns the action name.
func (a Action) String() string {
	if a == ActionAttack {
		return "attack"
	}
	return "skip"
}

// Decision is a decider's choice for one turn.
type Decision struct {
	Action   Action
	SkillID  string
	TargetID string
}

// Attack builds an attack decision.
func Attack(skillID, targetID string) Decision {
	return Decision{Action: ActionAttack, SkillID: skillID, TargetID: targetID}
}

// Skip builds a skip decision.
func Skip() Decision { return Decision{Action: ActionSkip} }

// Situation is what a decider sees. Deciders must treat it as read-only.
type Situation struct {
	Combat    *combat.Instance
	Self      *combat.Character
	Allies    []*combat.Character
	Opponents []*combat.Character
	Skills    skill.Catalog
	Dice      dice.Source
}

// NewSituation builds the situation for the given actor.
func NewSituation(inst *combat.Instance, self *combat.Character, skills skill.Catalog, src dice.Source) Situation {
	return Situation{
		Combat:    inst,
		Self:      self,
		Allies:    inst.Allies(self),
		Opponents: inst.Opponents(self),
		Skills:    skills,
		Dice:      src,
	}
}

// Usable returns the actor's skills that are off cooldown and affordable, in
// the order the actor lists them. The basic attack is not included.
func (s Situation) Usable() []skill.Definition {
	var out []skill.Definition
	for _, id := range s.Self.Skills {
		if id == skill.BasicAttackID || s.Self.OnCooldown(id) {
			continue
		}
		def, ok := skill.Lookup(s.Skills, id)
		if !ok || def.ManaCost > s.Self.Mana {
			continue
		}
		out = append(out, def)
	}
	return out
}

// Decider picks an action for the acting combatant.
type Decider interface {
	Decide(ctx context.Context, sit Situation) (Decision, error)
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, sit Situation) (Decision, error)

// Decide implements Decider.
func (f DeciderFunc) Decide(ctx context.Context, sit Situation) (Decision, error) {
	return f(ctx, sit)
}
