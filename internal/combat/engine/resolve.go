// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package engine

import (
	"context"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/ai"
	"github.com/clawworld/clawworld/internal/combat/skill"
	"github.com/clawworld/clawworld/internal/core"
	"github.com/clawworld/clawworld/pkg/errutil"
)

// stopReason says why the resolve loop returned.
type stopReason int

const (
	stopRequester  stopReason = iota // the requester holds the turn
	stopOtherHuman                   // another player must act
	stopEnded                        // the combat is over
)

func (s stopReason) message() string {
	switch s {
	case stopRequester:
		return MsgYourTurn
	case stopOtherHuman:
		return MsgWaiting
	default:
		return MsgEnded
	}
}

// takeTurn returns the combatant holding the turn, selecting one from the
// action bar if nobody does. A newly selected holder gets a banner line.
func (e *Engine) takeTurn(inst *combat.Instance) (*combat.Character, bool) {
	prev, held := inst.CurrentTurn()
	id, ok := inst.NextTurn(e.clock())
	if !ok {
		return nil, false
	}
	actor, ok := inst.Character(id)
	if !ok {
		return nil, false
	}
	if !held || prev != id {
		inst.Log.Addf("=== %s's turn ===", actor.Name)
	}
	return actor, true
}

// resolve plays turns until requesterID holds the turn, another player has
// to act, or the combat ends. An empty requesterID stops at the first player.
// The owner lock must be held.
func (e *Engine) resolve(ctx context.Context, o *owner, requesterID string) stopReason {
	inst := o.inst
	turns := 0
	defer func() { RecordLoopTurns(turns) }()

	for i := 0; ; i++ {
		if e.settle(ctx, o) {
			return stopEnded
		}
		if e.expire(ctx, o) {
			return stopEnded
		}
		if i >= e.cfg.MaxLoopIterations {
			e.logger.WarnContext(ctx, "resolve loop hit its iteration cap",
				"iterations", i, "turns", turns)
			e.stalemate(ctx, o)
			return stopEnded
		}

		actor, ok := e.takeTurn(inst)
		if !ok {
			e.stalemate(ctx, o)
			return stopEnded
		}
		if actor.ID == requesterID {
			e.publishTurn(inst, actor)
			return stopRequester
		}

		if actor.IsPlayer() {
			if requesterID == "" || e.cfg.HumanTurnPolicy == PolicyYield {
				e.publishTurn(inst, actor)
				return stopOtherHuman
			}
			inst.Log.Addf("%s is not responding; turn skipped", actor.Name)
			inst.EndTurn(actor.ID)
			turns++
			continue
		}

		e.enemyTurn(ctx, o, actor)
		turns++
	}
}

// enemyTurn asks the AI for a decision and applies it. Any failure, panics
// included, costs the enemy its turn rather than stalling the combat.
func (e *Engine) enemyTurn(ctx context.Context, o *owner, actor *combat.Character) {
	decision, err := e.decide(ctx, o, actor)
	if err == nil && decision.Action == ai.ActionAttack {
		def, ok := skill.Lookup(e.catalog, decision.SkillID)
		if !ok {
			err = combat.ErrSkillNotFound(decision.SkillID)
		} else if _, err = e.resolver.Cast(o.inst, o.dice, actor, def, decision.TargetID); err == nil {
			o.inst.EndTurn(actor.ID)
			return
		}
	}
	if err != nil {
		name := e.deciderName(actor)
		errutil.LogWarnContext(ctx, e.logger, "enemy decision failed; skipping turn",
			combat.ErrAIFailure(actor.ID, err))
		RecordAIFailure(name)
	}
	o.inst.Log.Addf("%s skips the turn", actor.Name)
	o.inst.EndTurn(actor.ID)
}

func (e *Engine) decide(ctx context.Context, o *owner, actor *combat.Character) (d ai.Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oops.In("engine").With("character_id", actor.ID).Errorf("decider panicked: %v", r)
		}
	}()
	return e.decider.Decide(ctx, ai.NewSituation(o.inst, actor, e.catalog, o.dice))
}

func (e *Engine) deciderName(actor *combat.Character) string {
	if r, ok := e.decider.(*ai.Router); ok {
		name, _ := r.Route(actor.TemplateID)
		return name
	}
	return "custom"
}

// settle ends the combat if a termination condition holds. It reports
// whether the combat is over.
func (e *Engine) settle(ctx context.Context, o *owner) bool {
	if !o.inst.Decided() {
		return !o.inst.Active()
	}
	ctx, span := tracer.Start(ctx, "combat.settle")
	defer span.End()

	if dist, ok := e.settler.Settle(o.inst, o.dice); ok {
		e.finish(ctx, o, dist)
	}
	return !o.inst.Active()
}

// retreatSettle ends a PVE combat whose last standing player just forfeited.
// Any other outcome left behind by the forfeit goes through settle. It
// reports whether the combat is over.
func (e *Engine) retreatSettle(ctx context.Context, o *owner) bool {
	if !o.inst.AllPlayersGone() {
		return e.settle(ctx, o)
	}
	ctx, span := tracer.Start(ctx, "combat.settle",
		trace.WithAttributes(attribute.String("combat.reason", "retreat")))
	defer span.End()

	if dist, ok := e.settler.Retreat(o.inst); ok {
		e.finish(ctx, o, dist)
		return true
	}
	return e.settle(ctx, o)
}

// expire runs timeout settlement once the combat is past its ceiling.
func (e *Engine) expire(ctx context.Context, o *owner) bool {
	if !o.inst.Expired(e.clock(), e.cfg.CombatTimeout) {
		return false
	}
	ctx, span := tracer.Start(ctx, "combat.settle",
		trace.WithAttributes(attribute.String("combat.reason", "timeout")))
	defer span.End()

	if dist, ok := e.settler.Timeout(o.inst); ok {
		e.finish(ctx, o, dist)
	}
	return true
}

func (e *Engine) stalemate(ctx context.Context, o *owner) {
	if dist, ok := e.settler.Stalemate(o.inst); ok {
		e.finish(ctx, o, dist)
	}
}

// finish moves an ended combat out of the registry into the ended cache and
// stores its distribution for TakeRewardDistribution. The owner lock must be
// held and the instance must already be in a terminal status.
func (e *Engine) finish(ctx context.Context, o *owner, dist *combat.RewardDistribution) {
	inst := o.inst
	entry := &endedCombat{
		endedAt:  e.clock(),
		status:   inst.Status,
		log:      inst.Log.Lines(),
		notified: make(map[string]struct{}),
	}
	var players []string

	e.mu.Lock()
	delete(e.combats, inst.ID)
	for _, c := range inst.Characters() {
		if e.characters[c.ID] == inst.ID {
			delete(e.characters, c.ID)
		}
		if c.IsPlayer() {
			players = append(players, c.ID)
		}
	}
	e.ended[inst.ID] = entry
	if dist != nil {
		e.rewards[inst.ID] = dist
	}
	e.mu.Unlock()

	outcome := outcomeLabel(dist)
	RecordCombatEnded(outcome)
	e.logger.InfoContext(ctx, "combat ended",
		"status", inst.Status.String(),
		"outcome", outcome,
		"winner", winnerOf(dist),
		"log_lines", len(entry.log),
	)
	e.publish(core.CombatStream(inst.ID), core.EventTypeEnded, endedPayload(inst, dist, outcome, players))
	e.publish(core.CombatsStream, core.EventTypeEnded, endedPayload(inst, dist, outcome, players))
}

func outcomeLabel(dist *combat.RewardDistribution) string {
	switch {
	case dist == nil:
		return OutcomeDraw
	case dist.Status == combat.StatusTimeout:
		return OutcomeTimeout
	case dist.EnemiesNeedReset:
		return OutcomeRetreat
	case dist.WinnerFaction == "":
		return OutcomeDraw
	default:
		return OutcomeVictory
	}
}

func winnerOf(dist *combat.RewardDistribution) string {
	if dist == nil {
		return ""
	}
	return dist.WinnerFaction
}
