// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

// Package command parses player combat commands and dispatches them to the
// engine and the initiation service.
package command

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Verbs, as reported by Line.Verb and used as metric labels.
const (
	VerbCast   = "cast"
	VerbAttack = "attack"
	VerbFight  = "fight"
	VerbJoin   = "join"
	VerbSkip   = "skip"
	VerbWait   = "wait"
	VerbFlee   = "flee"
	VerbStatus = "status"
	VerbHelp   = "help"
)

var commandLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[a-zA-Z0-9_][a-zA-Z0-9_:.\-]*`},
	{Name: "whitespace", Pattern: `\s+`},
})

// Line is one parsed command.
//
// Grammar:
//
//	cast|use <skill> [on|at <target>]
//	attack|hit <target>
//	fight <target>
//	join <combat>
//	skip|pass|end
//	wait
//	flee|retreat|forfeit
//	status|look
//	help
type Line struct {
	Cast   *Cast   `parser:"  @@"`
	Attack *Target `parser:"| ('attack' | 'hit') @@"`
	Fight  *Target `parser:"| 'fight' @@"`
	Join   *Target `parser:"| 'join' @@"`
	Skip   bool    `parser:"| @('skip' | 'pass' | 'end')"`
	Wait   bool    `parser:"| @'wait'"`
	Flee   bool    `parser:"| @('flee' | 'retreat' | 'forfeit')"`
	Status bool    `parser:"| @('status' | 'look')"`
	Help   bool    `parser:"| @'help'"`
}

// Cast uses a skill, optionally on a target.
type Cast struct {
	Skill  string `parser:"('cast' | 'use') @Ident"`
	Target string `parser:"(('on' | 'at') @Ident)?"`
}

// Target names a character or combat id.
type Target struct {
	ID string `parser:"@Ident"`
}

// Verb returns the canonical verb of the line.
func (l *Line) Verb() string {
	switch {
	case l.Cast != nil:
		return VerbCast
	case l.Attack != nil:
		return VerbAttack
	case l.Fight != nil:
		return VerbFight
	case l.Join != nil:
		return VerbJoin
	case l.Skip:
		return VerbSkip
	case l.Wait:
		return VerbWait
	case l.Flee:
		return VerbFlee
	case l.Status:
		return VerbStatus
	default:
		return VerbHelp
	}
}

var usages = map[string]string{
	"cast":    "cast <skill> [on <target>]",
	"use":     "cast <skill> [on <target>]",
	"attack":  "attack <target>",
	"hit":     "attack <target>",
	"fight":   "fight <target>",
	"join":    "join <combat>",
	"skip":    "skip",
	"pass":    "skip",
	"end":     "skip",
	"wait":    "wait",
	"flee":    "flee",
	"retreat": "flee",
	"forfeit": "flee",
	"status":  "status",
	"look":    "status",
	"help":    "help",
}

// Usage lists every command form, one per line.
func Usage() string {
	return strings.Join([]string{
		usages["cast"], usages["attack"], usages["fight"], usages["join"],
		"skip", "wait", "flee", "status", "help",
	}, "\n")
}

var parser = participle.MustBuild[Line](
	participle.Lexer(commandLexer),
	participle.CaseInsensitive("Ident"),
)

// Parse parses one command line. Unknown verbs yield an UNKNOWN_COMMAND
// error and malformed arguments an INVALID_ARGS error carrying the usage.
func Parse(input string) (*Line, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, ErrEmptyInput()
	}
	line, err := parser.ParseString("", trimmed)
	if err == nil {
		return line, nil
	}
	verb := strings.ToLower(strings.Fields(trimmed)[0])
	if usage, ok := usages[verb]; ok {
		return nil, ErrInvalidArgs(verb, usage)
	}
	return nil, ErrUnknownCommand(verb)
}

// String renders the line back in canonical form.
func (l *Line) String() string {
	switch {
	case l.Cast != nil && l.Cast.Target != "":
		return fmt.Sprintf("cast %s on %s", l.Cast.Skill, l.Cast.Target)
	case l.Cast != nil:
		return "cast " + l.Cast.Skill
	case l.Attack != nil:
		return "attack " + l.Attack.ID
	case l.Fight != nil:
		return "fight " + l.Fight.ID
	case l.Join != nil:
		return "join " + l.Join.ID
	default:
		return l.Verb()
	}
}
