// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package engine

import (
	"context"
	"time"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/core"
	"github.com/clawworld/clawworld/internal/logging"
)

// IsTurnExpired reports whether the combat's current turn has been held for
// longer than the turn timeout.
func (e *Engine) IsTurnExpired(combatID string, now time.Time) bool {
	var expired bool
	_ = e.mutate(combatID, func(o *owner) error {
		expired = o.inst.TurnExpired(now, e.cfg.TurnTimeout)
		return nil
	})
	return expired
}

// Sweep times out combats past their ceiling, passes player turns held past
// the turn timeout under PolicyYield, and purges ended combats older than the
// retention period. It returns how many combats it ended.
func (e *Engine) Sweep(ctx context.Context, now time.Time) int {
	e.mu.RLock()
	owners := make([]*owner, 0, len(e.combats))
	for _, o := range e.combats {
		owners = append(owners, o)
	}
	e.mu.RUnlock()

	ended := 0
	for _, o := range owners {
		if e.sweepOne(ctx, o, now) {
			ended++
		}
	}
	e.purgeEnded(ctx, now)
	return ended
}

func (e *Engine) sweepOne(ctx context.Context, o *owner, now time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	inst := o.inst
	if !inst.Active() {
		return false
	}
	ctx = logging.WithCombatID(ctx, inst.ID)
	seq := inst.Log.LastSeq()
	defer e.publishLog(inst, seq)

	if inst.Expired(now, e.cfg.CombatTimeout) {
		if dist, ok := e.settler.Timeout(inst); ok {
			e.finish(ctx, o, dist)
		}
		return true
	}
	if e.cfg.HumanTurnPolicy != PolicyYield || !inst.TurnExpired(now, e.cfg.TurnTimeout) {
		return false
	}

	holder, _ := inst.CurrentTurn()
	c, ok := inst.Character(holder)
	if !ok || !c.IsPlayer() {
		return false
	}
	inst.Log.Addf("%s ran out of time; turn skipped", c.Name)
	inst.EndTurn(holder)
	e.logger.InfoContext(ctx, "player turn timed out", "character_id", holder)
	return e.resolve(ctx, o, "") == stopEnded
}

func (e *Engine) purgeEnded(ctx context.Context, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, entry := range e.ended {
		if now.Sub(entry.endedAt) <= e.cfg.EndedRetention {
			continue
		}
		delete(e.ended, id)
		if _, unclaimed := e.rewards[id]; unclaimed {
			delete(e.rewards, id)
			e.logger.WarnContext(logging.WithCombatID(ctx, id), "discarding unclaimed reward distribution")
		}
	}
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := e.Sweep(ctx, e.clock()); n > 0 {
				e.logger.DebugContext(ctx, "sweeper ended combats", "count", n)
			}
		}
	}
}

// WaitForTurn blocks until the character holds the turn or the combat ends.
// Enemy turns standing in the way are played first. If ctx ends before the
// turn arrives, the error is the not-your-turn error.
func (e *Engine) WaitForTurn(ctx context.Context, combatID, characterID string) (*Outcome, error) {
	stream := core.CombatStream(combatID)
	events := e.bc.Subscribe(stream)
	defer e.bc.Unsubscribe(stream, events)

	for {
		out, err := e.checkTurn(ctx, combatID, characterID)
		if err != nil {
			return nil, err
		}
		if out.Ended || out.CurrentTurn == characterID {
			return out, nil
		}
		select {
		case <-ctx.Done():
			return nil, combat.ErrNotYourTurn(characterID, out.CurrentTurn)
		case <-events:
		}
	}
}

func (e *Engine) checkTurn(ctx context.Context, combatID, characterID string) (*Outcome, error) {
	ctx = logging.WithCombatID(ctx, combatID)
	return e.withCombat(combatID, characterID, func(o *owner) (*Outcome, error) {
		inst := o.inst
		seq := inst.Log.LastSeq()
		defer e.publishLog(inst, seq)

		self, ok := inst.Character(characterID)
		if !ok {
			return nil, combat.ErrCharacterNotFound(combatID, characterID)
		}
		holder, held := inst.CurrentTurn()
		if !self.Alive() {
			// Fallen players only wait for the end.
			return snapshot(inst, MsgWaiting, seq), nil
		}
		if held {
			if c, ok := inst.Character(holder); ok && c.IsPlayer() && c.Alive() {
				msg := MsgWaiting
				if holder == characterID {
					msg = MsgYourTurn
				}
				return snapshot(inst, msg, seq), nil
			}
		}
		if e.expire(ctx, o) {
			return snapshot(inst, MsgEnded, 0), nil
		}
		return e.begin(ctx, o, characterID, seq), nil
	})
}
