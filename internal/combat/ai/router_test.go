// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawworld/clawworld/internal/combat/dice"
	"github.com/clawworld/clawworld/internal/combat/skill"
)

func TestRouter_Route(t *testing.T) {
	r := NewRouter()
	s, err := CompileScript("always_skip", `function decide(s) return {action = "skip"} end`)
	require.NoError(t, err)
	r.AddScript(s)

	require.NoError(t, r.Assign("wolf_alpha", "lua:always_skip"))
	require.NoError(t, r.Assign("wolf_pup", "simple:threat"))
	require.NoError(t, r.Assign("slime", ""))

	name, _ := r.Route("wolf_alpha")
	assert.Equal(t, "lua:always_skip", name)
	name, _ = r.Route("slime")
	assert.Equal(t, "simple", name)
	name, d := r.Route("never_assigned")
	assert.Equal(t, DefaultDecider, name)
	assert.IsType(t, &Simple{}, d)

	got, err := r.Decide(context.Background(), situation(t, dice.New(1)))
	require.NoError(t, err)
	assert.Equal(t, Skip(), got, "alpha runs its script")

	sit := situation(t, dice.New(1))
	pup, _ := sit.Combat.Character("pup")
	sit = NewSituation(sit.Combat, pup, testSkills, dice.New(1))
	got, err = r.Decide(context.Background(), sit)
	require.NoError(t, err)
	assert.Equal(t, Attack(skill.BasicAttackID, "tank"), got)
}

func TestRouter_AssignRejectsUnknown(t *testing.T) {
	r := NewRouter()
	assert.Error(t, r.Assign("wolf", "lua:missing"))
	assert.Error(t, r.Assign("wolf", "neural"))
	assert.Error(t, r.Assign("wolf", "simple:closest"))
}
