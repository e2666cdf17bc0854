// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/engine"
	"github.com/clawworld/clawworld/internal/combat/initiation"
	"github.com/clawworld/clawworld/internal/combat/skill"
	"github.com/clawworld/clawworld/pkg/errutil"
)

type call struct {
	op, combatID, characterID, skillID, targetID string
}

type fakeCombats struct {
	calls    []call
	tracked  map[string]string
	inst     *combat.Instance
	err      error
	deadline bool
}

func (f *fakeCombats) record(c call) (*engine.Outcome, error) {
	f.calls = append(f.calls, c)
	if f.err != nil {
		return nil, f.err
	}
	return &engine.Outcome{Message: engine.MsgYourTurn, Log: []string{"[1] " + c.op}, CurrentTurn: c.characterID, LastSeq: 1}, nil
}

func (f *fakeCombats) ExecuteSkill(_ context.Context, combatID, casterID, skillID, targetID string) (*engine.Outcome, error) {
	return f.record(call{"skill", combatID, casterID, skillID, targetID})
}

func (f *fakeCombats) SkipTurn(_ context.Context, combatID, characterID string) (*engine.Outcome, error) {
	return f.record(call{op: "skip", combatID: combatID, characterID: characterID})
}

func (f *fakeCombats) Forfeit(_ context.Context, combatID, characterID string) (*engine.Outcome, error) {
	return f.record(call{op: "forfeit", combatID: combatID, characterID: characterID})
}

func (f *fakeCombats) WaitForTurn(ctx context.Context, combatID, characterID string) (*engine.Outcome, error) {
	if _, ok := ctx.Deadline(); ok {
		f.deadline = true
	}
	return f.record(call{op: "wait", combatID: combatID, characterID: characterID})
}

func (f *fakeCombats) CombatOf(characterID string) (string, bool) {
	id, ok := f.tracked[characterID]
	return id, ok
}

func (f *fakeCombats) Combat(combatID string) (*combat.Instance, bool) {
	if f.inst == nil || f.inst.ID != combatID {
		return nil, false
	}
	return f.inst, true
}

type fakeInitiator struct {
	initiated, joined []string
}

func (f *fakeInitiator) Initiate(_ context.Context, attackerID, targetID string) (*initiation.Result, error) {
	f.initiated = append(f.initiated, attackerID+"->"+targetID)
	return &initiation.Result{CombatID: "new", Outcome: &engine.Outcome{Message: engine.MsgYourTurn}}, nil
}

func (f *fakeInitiator) Join(_ context.Context, attackerID, combatID string) (*initiation.Result, error) {
	f.joined = append(f.joined, attackerID+"->"+combatID)
	return &initiation.Result{CombatID: combatID, Joined: true, Outcome: &engine.Outcome{Message: engine.MsgWaiting}}, nil
}

func TestDispatcher_Actions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		verb  string
		want  call
	}{
		{"cast", "cast fireball on wolf", VerbCast, call{"skill", "c1", "aria", "fireball", "wolf"}},
		{"cast default target", "cast fortify", VerbCast, call{"skill", "c1", "aria", "fortify", ""}},
		{"attack", "attack wolf", VerbAttack, call{"skill", "c1", "aria", skill.BasicAttackID, "wolf"}},
		{"skip", "skip", VerbSkip, call{op: "skip", combatID: "c1", characterID: "aria"}},
		{"flee", "flee", VerbFlee, call{op: "forfeit", combatID: "c1", characterID: "aria"}},
		{"wait", "wait", VerbWait, call{op: "wait", combatID: "c1", characterID: "aria"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			combats := &fakeCombats{tracked: map[string]string{"aria": "c1"}}
			d := NewDispatcher(combats)

			reply, err := d.Dispatch(context.Background(), Request{CharacterID: "aria"}, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.verb, reply.Verb)
			assert.Equal(t, "c1", reply.CombatID)
			require.Len(t, combats.calls, 1)
			assert.Equal(t, tt.want, combats.calls[0])
			assert.Contains(t, reply.Text, engine.MsgYourTurn)
		})
	}
}

func TestDispatcher_WaitIsBounded(t *testing.T) {
	combats := &fakeCombats{tracked: map[string]string{"aria": "c1"}}
	d := NewDispatcher(combats, WithWaitTimeout(time.Second))

	_, err := d.Dispatch(context.Background(), Request{CharacterID: "aria"}, "wait")
	require.NoError(t, err)
	assert.True(t, combats.deadline)
}

func TestDispatcher_CombatResolution(t *testing.T) {
	t.Run("falls back to the session's last combat", func(t *testing.T) {
		combats := &fakeCombats{}
		d := NewDispatcher(combats)
		reply, err := d.Dispatch(context.Background(), Request{CharacterID: "aria", CombatID: "c9"}, "skip")
		require.NoError(t, err)
		assert.Equal(t, "c9", reply.CombatID)
	})

	t.Run("not in combat", func(t *testing.T) {
		d := NewDispatcher(&fakeCombats{})
		_, err := d.Dispatch(context.Background(), Request{CharacterID: "aria"}, "skip")
		errutil.AssertErrorCode(t, err, CodeNotInCombat)
	})

	t.Run("no character", func(t *testing.T) {
		d := NewDispatcher(&fakeCombats{})
		_, err := d.Dispatch(context.Background(), Request{}, "skip")
		errutil.AssertErrorCode(t, err, CodeNoCharacter)
	})
}

func TestDispatcher_EngineErrorsPassThrough(t *testing.T) {
	combats := &fakeCombats{
		tracked: map[string]string{"aria": "c1"},
		err:     combat.ErrNotYourTurn("aria", "brom"),
	}
	_, err := NewDispatcher(combats).Dispatch(context.Background(), Request{CharacterID: "aria"}, "skip")
	errutil.AssertErrorCode(t, err, combat.CodeNotYourTurn)
	assert.Equal(t, "It is not your turn yet.", PlayerMessage(err))
}

func TestDispatcher_Initiation(t *testing.T) {
	t.Run("fight", func(t *testing.T) {
		in := &fakeInitiator{}
		d := NewDispatcher(&fakeCombats{}, WithInitiator(in))
		reply, err := d.Dispatch(context.Background(), Request{CharacterID: "aria"}, "fight wolf")
		require.NoError(t, err)
		assert.Equal(t, "new", reply.CombatID)
		assert.Equal(t, []string{"aria->wolf"}, in.initiated)
	})

	t.Run("attack outside a fight starts one", func(t *testing.T) {
		in := &fakeInitiator{}
		combats := &fakeCombats{}
		d := NewDispatcher(combats, WithInitiator(in))
		_, err := d.Dispatch(context.Background(), Request{CharacterID: "aria"}, "attack wolf")
		require.NoError(t, err)
		assert.Equal(t, []string{"aria->wolf"}, in.initiated)
		assert.Empty(t, combats.calls)
	})

	t.Run("join", func(t *testing.T) {
		in := &fakeInitiator{}
		d := NewDispatcher(&fakeCombats{}, WithInitiator(in))
		reply, err := d.Dispatch(context.Background(), Request{CharacterID: "aria"}, "join c4")
		require.NoError(t, err)
		assert.Equal(t, "c4", reply.CombatID)
		assert.Equal(t, []string{"aria->c4"}, in.joined)
	})

	t.Run("without an initiator", func(t *testing.T) {
		d := NewDispatcher(&fakeCombats{})
		_, err := d.Dispatch(context.Background(), Request{CharacterID: "aria"}, "fight wolf")
		errutil.AssertErrorCode(t, err, CodeUnknownCommand)
	})
}

func TestDispatcher_RateLimited(t *testing.T) {
	clk := newStepClock()
	rl := NewRateLimiter(RateLimiterConfig{BurstCapacity: 1, SustainedRate: 1, Now: clk.Now})
	combats := &fakeCombats{tracked: map[string]string{"aria": "c1"}}
	d := NewDispatcher(combats, WithRateLimiter(rl))
	req := Request{CharacterID: "aria", SessionID: "sess"}

	_, err := d.Dispatch(context.Background(), req, "skip")
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), req, "skip")
	errutil.AssertErrorCode(t, err, CodeRateLimited)
	assert.Len(t, combats.calls, 1)
}

func TestDispatcher_StatusAndHelp(t *testing.T) {
	inst := combat.NewInstance("c1", "woods", nil)
	inst.AddParty("dawn", []combat.Character{{ID: "aria", Name: "Aria", Kind: combat.KindPlayer, Health: 80, MaxHealth: 100, Mana: 5, MaxMana: 30}})
	inst.AddParty("wild", []combat.Character{{ID: "wolf", Name: "Wolf", Kind: combat.KindEnemy, MaxHealth: 40, Dead: true}})
	combats := &fakeCombats{tracked: map[string]string{"aria": "c1"}, inst: inst}
	d := NewDispatcher(combats)

	reply, err := d.Dispatch(context.Background(), Request{CharacterID: "aria"}, "status")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Combat c1 on woods (pve, active)")
	assert.Contains(t, reply.Text, "* Aria [aria] HP 80/100 MP 5/30")
	assert.Contains(t, reply.Text, "Wolf [wolf] HP 0/40 MP 0/0 (defeated)")

	reply, err = d.Dispatch(context.Background(), Request{CharacterID: "aria"}, "help")
	require.NoError(t, err)
	assert.Equal(t, Usage(), reply.Text)
}

func TestDispatcher_ParseErrorsAreReturned(t *testing.T) {
	_, err := NewDispatcher(&fakeCombats{}).Dispatch(context.Background(), Request{CharacterID: "aria"}, "cast")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, CodeInvalidArgs)
}
