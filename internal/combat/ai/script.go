// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package ai

import (
	"context"
	"strings"
	"time"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/skill"
)

// DefaultScriptTimeout bounds a single decide() call.
const DefaultScriptTimeout = 50 * time.Millisecond

// Script is a compiled Lua AI. The script must define a global
// decide(situation) returning {action="attack", skill=..., target=...} or
// {action="skip"}. A nil return also skips.
type Script struct {
	name    string
	proto   *lua.FunctionProto
	factory *StateFactory
	timeout time.Duration
}

// CompileScript parses and compiles source once. Each decision runs the
// compiled chunk in a fresh sandboxed state.
func CompileScript(name, source string) (*Script, error) {
	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, oops.In("ai").With("script", name).With("operation", "compile").Hint("syntax error").Wrap(err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, oops.In("ai").With("script", name).With("operation", "compile").Wrap(err)
	}
	return &Script{
		name:    name,
		proto:   proto,
		factory: NewStateFactory(),
		timeout: DefaultScriptTimeout,
	}, nil
}

// Name returns the script name.
func (s *Script) Name() string { return s.name }

// SetTimeout overrides the per-decision deadline. Non-positive values are ignored.
func (s *Script) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Decide implements Decider.
func (s *Script) Decide(ctx context.Context, sit Situation) (Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	L, err := s.factory.NewState(ctx)
	if err != nil {
		return Skip(), oops.In("ai").With("script", s.name).With("operation", "decide").Hint("failed to create state").Wrap(err)
	}
	defer L.Close()

	registerHost(L, sit)

	L.Push(L.NewFunctionFromProto(s.proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return Skip(), oops.In("ai").With("script", s.name).With("operation", "load").Wrap(err)
	}

	decide := L.GetGlobal("decide")
	if decide.Type() != lua.LTFunction {
		return Skip(), oops.In("ai").With("script", s.name).With("operation", "decide").New("script does not define decide()")
	}

	if err := L.CallByParam(lua.P{
		Fn:      decide,
		NRet:    1,
		Protect: true,
	}, situationTable(L, sit)); err != nil {
		return Skip(), oops.In("ai").With("script", s.name).With("operation", "decide").Wrap(err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	return s.parseDecision(ret)
}

func (s *Script) parseDecision(ret lua.LValue) (Decision, error) {
	if ret == lua.LNil {
		return Skip(), nil
	}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return Skip(), oops.In("ai").With("script", s.name).With("returned", ret.Type().String()).New("decide() must return a table")
	}

	switch action := lua.LVAsString(tbl.RawGetString("action")); action {
	case "skip":
		return Skip(), nil
	case "attack":
		skillID := lua.LVAsString(tbl.RawGetString("skill"))
		if skillID == "" {
			skillID = skill.BasicAttackID
		}
		return Attack(skillID, lua.LVAsString(tbl.RawGetString("target"))), nil
	default:
		return Skip(), oops.In("ai").With("script", s.name).With("action", action).New("unknown action")
	}
}

// registerHost exposes random(n), drawing from the combat's dice so a seeded
// fight replays identically.
func registerHost(L *lua.LState, sit Situation) {
	L.SetGlobal("random", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n < 1 {
			L.ArgError(1, "n must be positive")
			return 0
		}
		L.Push(lua.LNumber(sit.Dice.IntN(n) + 1))
		return 1
	}))
}

func situationTable(L *lua.LState, sit Situation) *lua.LTable {
	t := L.NewTable()
	if sit.Combat != nil {
		t.RawSetString("combat_id", lua.LString(sit.Combat.ID))
		t.RawSetString("map_id", lua.LString(sit.Combat.MapID))
	}
	t.RawSetString("self", characterTable(L, sit.Self))
	t.RawSetString("allies", characterList(L, sit.Allies))
	t.RawSetString("opponents", characterList(L, sit.Opponents))

	skills := L.NewTable()
	for _, def := range append([]skill.Definition{skill.BasicAttack}, sit.Usable()...) {
		st := L.NewTable()
		st.RawSetString("id", lua.LString(def.ID))
		st.RawSetString("name", lua.LString(def.Name))
		st.RawSetString("target", lua.LString(def.Target.String()))
		st.RawSetString("damage", lua.LString(def.Damage.String()))
		st.RawSetString("mana_cost", lua.LNumber(def.ManaCost))
		skills.Append(st)
	}
	t.RawSetString("skills", skills)
	return t
}

func characterList(L *lua.LState, chars []*combat.Character) *lua.LTable {
	list := L.NewTable()
	for _, c := range chars {
		list.Append(characterTable(L, c))
	}
	return list
}

func characterTable(L *lua.LState, c *combat.Character) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(c.ID))
	t.RawSetString("name", lua.LString(c.Name))
	t.RawSetString("kind", lua.LString(c.Kind.String()))
	t.RawSetString("faction", lua.LString(c.FactionID))
	t.RawSetString("level", lua.LNumber(c.Level))
	t.RawSetString("health", lua.LNumber(c.Health))
	t.RawSetString("max_health", lua.LNumber(c.MaxHealth))
	t.RawSetString("mana", lua.LNumber(c.Mana))
	t.RawSetString("max_mana", lua.LNumber(c.MaxMana))
	t.RawSetString("speed", lua.LNumber(c.Speed))
	t.RawSetString("physical_defense", lua.LNumber(c.PhysicalDefense))
	t.RawSetString("magic_defense", lua.LNumber(c.MagicDefense))
	return t
}
