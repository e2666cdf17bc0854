// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package engine

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/skill"
	"github.com/clawworld/clawworld/internal/logging"
	"github.com/clawworld/clawworld/pkg/errutil"
)

// Action names used in spans and metrics.
const (
	ActionSkill   = "skill"
	ActionSkip    = "skip"
	ActionForfeit = "forfeit"
	ActionBegin   = "begin"
)

// act is the single entry point for player operations: it traces and counts
// the call, holds the owner lock, times the combat out if it is overdue and
// publishes whatever the operation appended to the log.
func (e *Engine) act(ctx context.Context, action, combatID, characterID string,
	fn func(ctx context.Context, o *owner) (*Outcome, error),
) (out *Outcome, err error) {
	ctx = logging.WithCombatID(ctx, combatID)
	ctx, span := tracer.Start(ctx, "combat.action", trace.WithAttributes(
		attribute.String("combat.id", combatID),
		attribute.String("combat.action", action),
		attribute.String("character.id", characterID),
	))
	defer func() {
		status := StatusSuccess
		switch {
		case err != nil:
			status = StatusRejected
			if code := errutil.Code(err); code != "" {
				status = strings.ToLower(code)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case out.Ended:
			status = StatusEnded
		}
		RecordAction(action, status)
		span.End()
	}()

	return e.withCombat(combatID, characterID, func(o *owner) (*Outcome, error) {
		seq := o.inst.Log.LastSeq()
		defer e.publishLog(o.inst, seq)

		if e.expire(ctx, o) {
			return snapshot(o.inst, MsgEnded, 0), nil
		}
		return fn(ctx, o)
	})
}

// holdsTurn reports NOT_YOUR_TURN unless characterID holds the turn. It only
// reads the turn order; pending turns are played by Begin and WaitForTurn.
func holdsTurn(inst *combat.Instance, characterID string) error {
	if holder, held := inst.CurrentTurn(); !held || holder != characterID {
		return combat.ErrNotYourTurn(characterID, holder)
	}
	return nil
}

// livingCombatant returns a combatant who can still act.
func livingCombatant(inst *combat.Instance, characterID string) (*combat.Character, error) {
	c, ok := inst.Character(characterID)
	if !ok {
		return nil, combat.ErrCharacterNotFound(inst.ID, characterID)
	}
	if !c.Alive() {
		return nil, combat.ErrCasterDead(characterID)
	}
	return c, nil
}

// ExecuteSkill casts a skill for the player holding the turn, then plays
// turns until that player's turn comes back or the combat ends. A rejected
// cast changes nothing.
func (e *Engine) ExecuteSkill(ctx context.Context, combatID, casterID, skillID, targetID string) (*Outcome, error) {
	return e.act(ctx, ActionSkill, combatID, casterID, func(ctx context.Context, o *owner) (*Outcome, error) {
		inst := o.inst
		seq := inst.Log.LastSeq()

		caster, err := livingCombatant(inst, casterID)
		if err != nil {
			return nil, err
		}
		def, ok := skill.Lookup(e.catalog, skillID)
		if !ok {
			return nil, combat.ErrSkillNotFound(skillID)
		}
		if _, err := e.resolver.Validate(inst, caster, def, targetID); err != nil {
			return nil, err
		}
		if err := holdsTurn(inst, casterID); err != nil {
			return nil, err
		}
		if _, err := e.resolver.Cast(inst, o.dice, caster, def, targetID); err != nil {
			return nil, err
		}
		inst.EndTurn(casterID)

		stop := e.resolve(ctx, o, casterID)
		return snapshot(inst, stop.message(), seq), nil
	})
}

// SkipTurn passes the player's turn.
func (e *Engine) SkipTurn(ctx context.Context, combatID, characterID string) (*Outcome, error) {
	return e.act(ctx, ActionSkip, combatID, characterID, func(ctx context.Context, o *owner) (*Outcome, error) {
		inst := o.inst
		seq := inst.Log.LastSeq()

		c, err := livingCombatant(inst, characterID)
		if err != nil {
			return nil, err
		}
		if err := holdsTurn(inst, characterID); err != nil {
			return nil, err
		}
		inst.Log.Addf("%s skips the turn", c.Name)
		inst.EndTurn(characterID)

		stop := e.resolve(ctx, o, characterID)
		return snapshot(inst, stop.message(), seq), nil
	})
}

// Forfeit withdraws a player from a PVE combat. The player counts as out of
// the fight and earns nothing; if every player is gone the enemies reset.
// Duels cannot be forfeited.
func (e *Engine) Forfeit(ctx context.Context, combatID, characterID string) (*Outcome, error) {
	return e.act(ctx, ActionForfeit, combatID, characterID, func(ctx context.Context, o *owner) (*Outcome, error) {
		inst := o.inst
		seq := inst.Log.LastSeq()

		if inst.Type() != combat.TypePVE {
			return nil, combat.ErrRetreatNotAllowed(combatID)
		}
		c, err := livingCombatant(inst, characterID)
		if err != nil {
			return nil, err
		}
		if !c.IsPlayer() {
			return nil, combat.ErrCharacterNotFound(combatID, characterID)
		}

		holder, _ := inst.CurrentTurn()
		c.Retreat()
		inst.Withdraw(characterID)
		inst.Log.Addf("%s retreats from the battle", c.Name)
		e.untrack(combatID, characterID)
		e.logger.InfoContext(ctx, "player retreated", "character_id", characterID)

		if e.retreatSettle(ctx, o) {
			return snapshot(inst, MsgEnded, seq), nil
		}
		// A forfeit on one's own turn passes it on to the next player, with
		// enemy turns played on the way.
		if holder == characterID {
			e.resolve(ctx, o, "")
		}
		return snapshot(inst, MsgRetreated, seq), nil
	})
}

// Begin plays the opening turns of a combat until the requester's turn, so a
// player facing faster enemies sees their moves before acting.
func (e *Engine) Begin(ctx context.Context, combatID, requesterID string) (*Outcome, error) {
	return e.act(ctx, ActionBegin, combatID, requesterID, func(ctx context.Context, o *owner) (*Outcome, error) {
		inst := o.inst
		seq := inst.Log.LastSeq()
		if _, err := livingCombatant(inst, requesterID); err != nil {
			return nil, err
		}
		return e.begin(ctx, o, requesterID, seq), nil
	})
}

func (e *Engine) begin(ctx context.Context, o *owner, requesterID string, seq int) *Outcome {
	inst := o.inst
	actor, ok := e.takeTurn(inst)
	switch {
	case ok && actor.ID == requesterID:
		e.publishTurn(inst, actor)
		return snapshot(inst, MsgYourTurn, seq)
	case ok && actor.IsPlayer():
		e.publishTurn(inst, actor)
		return snapshot(inst, MsgWaiting, seq)
	}
	stop := e.resolve(ctx, o, requesterID)
	return snapshot(inst, stop.message(), seq)
}
