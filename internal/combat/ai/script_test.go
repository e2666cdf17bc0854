// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawworld/clawworld/internal/combat/dice"
	"github.com/clawworld/clawworld/internal/combat/skill"
)

const focusHealer = `
function decide(s)
  local target = nil
  for _, c in ipairs(s.opponents) do
    if c.max_health == 60 then target = c end
  end
  if target == nil then return {action = "skip"} end
  for _, sk in ipairs(s.skills) do
    if sk.id == "claw" then
      return {action = "attack", skill = sk.id, target = target.id}
    end
  end
  return {action = "attack", target = target.id}
end
`

func TestScript_Decide(t *testing.T) {
	s, err := CompileScript("focus_healer", focusHealer)
	require.NoError(t, err)
	assert.Equal(t, "focus_healer", s.Name())

	got, err := s.Decide(context.Background(), situation(t, dice.New(1), "claw"))
	require.NoError(t, err)
	assert.Equal(t, Attack("claw", "mage"), got)

	got, err = s.Decide(context.Background(), situation(t, dice.New(1)))
	require.NoError(t, err)
	assert.Equal(t, Attack(skill.BasicAttackID, "mage"), got, "missing skill defaults to basic attack")
}

func TestScript_Returns(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		want    Decision
		wantErr bool
	}{
		{name: "explicit skip", source: `function decide(s) return {action = "skip"} end`, want: Skip()},
		{name: "nil skips", source: `function decide(s) return nil end`, want: Skip()},
		{name: "unknown action", source: `function decide(s) return {action = "dance"} end`, wantErr: true},
		{name: "non-table return", source: `function decide(s) return 42 end`, wantErr: true},
		{name: "runtime error", source: `function decide(s) error("boom") end`, wantErr: true},
		{name: "no decide function", source: `x = 1`, wantErr: true},
		{name: "reads situation", source: `function decide(s) return {action = "attack", target = s.self.id .. "_" .. s.combat_id} end`, want: Attack(skill.BasicAttackID, "alpha_den")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := CompileScript(tt.name, tt.source)
			require.NoError(t, err)

			got, err := s.Decide(context.Background(), situation(t, dice.New(1)))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ActionSkip, got.Action)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileScript_SyntaxError(t *testing.T) {
	_, err := CompileScript("broken", `function decide(s) return {`)
	assert.Error(t, err)
}

func TestScript_TimeoutAbortsRunawayScript(t *testing.T) {
	s, err := CompileScript("spin", `function decide(s) while true do end end`)
	require.NoError(t, err)
	s.SetTimeout(20 * time.Millisecond)

	start := time.Now()
	got, err := s.Decide(context.Background(), situation(t, dice.New(1)))
	require.Error(t, err)
	assert.Equal(t, ActionSkip, got.Action)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestScript_RandomUsesCombatDice(t *testing.T) {
	s, err := CompileScript("roll", `
function decide(s)
  local i = random(#s.opponents)
  return {action = "attack", target = s.opponents[i].id}
end`)
	require.NoError(t, err)

	got, err := s.Decide(context.Background(), situation(t, dice.NewScripted(0.5)))
	require.NoError(t, err)
	assert.Equal(t, "mage", got.TargetID)
}

func TestScript_SandboxBlocksEscapes(t *testing.T) {
	for _, src := range []string{
		`function decide(s) os.exit(1) end`,
		`function decide(s) io.open("/etc/passwd") end`,
		`function decide(s) dofile("/tmp/x.lua") end`,
		`function decide(s) math.randomseed(1) end`,
		`function decide(s) return {action = "attack", target = tostring(math.random(3))} end`,
	} {
		s, err := CompileScript("escape", src)
		require.NoError(t, err)
		_, err = s.Decide(context.Background(), situation(t, dice.New(1)))
		assert.Error(t, err, src)
	}
}
