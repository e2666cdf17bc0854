// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package skill

import (
	"fmt"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/damage"
	"github.com/clawworld/clawworld/internal/combat/dice"
)

// Effect is what a cast did to one target.
type Effect struct {
	TargetID string
	Damage   damage.Result
	Healed   int
}

// CastResult describes a successful cast.
type CastResult struct {
	Skill   Definition
	Effects []Effect
	Lines   []string
}

// Defeated returns the ids of targets the cast brought down.
func (r *CastResult) Defeated() []string {
	var out []string
	for _, e := range r.Effects {
		if e.Damage.Defeated {
			out = append(out, e.TargetID)
		}
	}
	return out
}

// Resolver validates and applies skill casts.
type Resolver struct {
	calc *damage.Calculator
}

// NewResolver creates a resolver. A nil calculator uses the default tuning.
func NewResolver(calc *damage.Calculator) *Resolver {
	if calc == nil {
		calc = damage.NewCalculator()
	}
	return &Resolver{calc: calc}
}

// Validate runs every precondition of a cast without changing anything and
// returns the resolved targets.
func (r *Resolver) Validate(inst *combat.Instance, caster *combat.Character, def Definition, targetID string) ([]*combat.Character, error) {
	if !caster.Alive() {
		return nil, combat.ErrCasterDead(caster.ID)
	}
	if def.ID != BasicAttackID && !caster.KnowsSkill(def.ID) {
		return nil, combat.ErrSkillNotFound(def.ID)
	}
	if caster.OnCooldown(def.ID) {
		return nil, combat.ErrSkillOnCooldown(def.ID, caster.Cooldowns[def.ID])
	}
	if caster.Mana < def.ManaCost {
		return nil, combat.ErrInsufficientMana(def.ID, caster.Mana, def.ManaCost)
	}
	return Targets(inst, caster, def, targetID)
}

// Cast validates the cast, then spends mana, applies every effect, logs it
// and starts the cooldown. A failed check leaves the combat untouched.
func (r *Resolver) Cast(inst *combat.Instance, src dice.Source, caster *combat.Character, def Definition, targetID string) (*CastResult, error) {
	targets, err := r.Validate(inst, caster, def, targetID)
	if err != nil {
		return nil, err
	}
	caster.ConsumeMana(def.ManaCost)

	res := &CastResult{Skill: def}
	res.Lines = append(res.Lines, announce(caster, def, targets))
	for _, t := range targets {
		e := Effect{TargetID: t.ID}
		if def.Damage == damage.None {
			e.Healed = t.Heal(int(float64(caster.MagicAttack) * def.Multiplier))
			res.Lines = append(res.Lines, fmt.Sprintf("%s recovers %d health", t.Name, e.Healed))
		} else {
			e.Damage = r.calc.Apply(src, caster, t, def.Damage, def.Multiplier)
			res.Lines = append(res.Lines, describeHit(t, e.Damage)...)
		}
		res.Effects = append(res.Effects, e)
	}
	for _, line := range res.Lines {
		inst.Log.Add(line)
	}
	caster.StartCooldown(def.ID, def.Cooldown)
	return res, nil
}

// Targets resolves the combatants a skill would affect.
func Targets(inst *combat.Instance, caster *combat.Character, def Definition, targetID string) ([]*combat.Character, error) {
	switch def.Target {
	case TargetSelf:
		return []*combat.Character{caster}, nil
	case TargetAllyAll:
		return inst.Allies(caster), nil
	case TargetEnemyAll:
		foes := inst.Opponents(caster)
		if len(foes) == 0 {
			return nil, combat.ErrInvalidTarget(def.ID, "", "no opponents are left standing")
		}
		return foes, nil
	case TargetAllySingle:
		if targetID == "" || targetID == caster.ID {
			return []*combat.Character{caster}, nil
		}
		t, err := lookupTarget(inst, def, targetID)
		if err != nil {
			return nil, err
		}
		if t.FactionID != caster.FactionID {
			return nil, combat.ErrInvalidTarget(def.ID, targetID, "target is not an ally")
		}
		return []*combat.Character{t}, nil
	case TargetEnemySingle:
		if targetID == "" {
			return nil, combat.ErrInvalidTarget(def.ID, targetID, "a target is required")
		}
		t, err := lookupTarget(inst, def, targetID)
		if err != nil {
			return nil, err
		}
		if t.FactionID == caster.FactionID {
			return nil, combat.ErrInvalidTarget(def.ID, targetID, "target is an ally")
		}
		return []*combat.Character{t}, nil
	default:
		return nil, combat.ErrInvalidTarget(def.ID, targetID, "unsupported target shape")
	}
}

func lookupTarget(inst *combat.Instance, def Definition, targetID string) (*combat.Character, error) {
	t, ok := inst.Character(targetID)
	if !ok {
		return nil, combat.ErrTargetNotFound(targetID)
	}
	if !t.Alive() {
		return nil, combat.ErrInvalidTarget(def.ID, targetID, "target is already down")
	}
	return t, nil
}

func announce(caster *combat.Character, def Definition, targets []*combat.Character) string {
	if def.ID == BasicAttackID && len(targets) == 1 {
		return fmt.Sprintf("%s attacks %s", caster.Name, targets[0].Name)
	}
	if def.Target.Single() && len(targets) == 1 && targets[0] != caster {
		return fmt.Sprintf("%s uses %s on %s", caster.Name, def.Name, targets[0].Name)
	}
	return fmt.Sprintf("%s uses %s", caster.Name, def.Name)
}

func describeHit(t *combat.Character, res damage.Result) []string {
	if res.Missed {
		return []string{fmt.Sprintf("the attack misses %s", t.Name)}
	}
	line := fmt.Sprintf("%s takes %d damage", t.Name, res.Amount)
	if res.Critical {
		line += " (critical hit!)"
	}
	lines := []string{line}
	if res.Defeated {
		lines = append(lines, fmt.Sprintf("%s is defeated", t.Name))
	}
	return lines
}
