// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package engine

import (
	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/core"
)

// TurnPayload announces that a player holds the turn.
type TurnPayload struct {
	CombatID    string `json:"combat_id"`
	CharacterID string `json:"character_id"`
	Name        string `json:"name"`
	LastSeq     int    `json:"last_seq"`
}

// LogPayload carries log lines appended by one operation.
type LogPayload struct {
	CombatID string   `json:"combat_id"`
	Lines    []string `json:"lines"`
	LastSeq  int      `json:"last_seq"`
}

// EndedPayload announces that a combat has ended. The distribution itself is
// claimed with TakeRewardDistribution.
type EndedPayload struct {
	CombatID string   `json:"combat_id"`
	MapID    string   `json:"map_id"`
	Status   string   `json:"status"`
	Outcome  string   `json:"outcome"`
	Winner   string   `json:"winner,omitempty"`
	Players  []string `json:"players"`
}

func endedPayload(inst *combat.Instance, dist *combat.RewardDistribution, outcome string, players []string) EndedPayload {
	return EndedPayload{
		CombatID: inst.ID,
		MapID:    inst.MapID,
		Status:   inst.Status.String(),
		Outcome:  outcome,
		Winner:   winnerOf(dist),
		Players:  players,
	}
}

func (e *Engine) publishTurn(inst *combat.Instance, actor *combat.Character) {
	e.publish(core.CombatStream(inst.ID), core.EventTypeTurn, TurnPayload{
		CombatID:    inst.ID,
		CharacterID: actor.ID,
		Name:        actor.Name,
		LastSeq:     inst.Log.LastSeq(),
	})
}

// publishLog publishes the lines appended after seq, if any.
func (e *Engine) publishLog(inst *combat.Instance, seq int) {
	lines := inst.Log.LinesSince(seq)
	if len(lines) == 0 {
		return
	}
	e.publish(core.CombatStream(inst.ID), core.EventTypeLog, LogPayload{
		CombatID: inst.ID,
		Lines:    lines,
		LastSeq:  inst.Log.LastSeq(),
	})
}

func (e *Engine) publish(stream string, typ core.EventType, payload any) {
	if e.bc == nil {
		return
	}
	ev, err := core.NewEvent(stream, typ, core.SystemActor, payload)
	if err != nil {
		e.logger.Warn("failed to encode combat event", "stream", stream, "event_type", typ, "error", err)
		return
	}
	e.bc.Broadcast(ev)
}
