// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package command

import (
	"github.com/samber/oops"

	"github.com/clawworld/clawworld/internal/combat"
)

// Error codes for command failures.
const (
	CodeEmptyInput     = "EMPTY_INPUT"
	CodeUnknownCommand = "UNKNOWN_COMMAND"
	CodeInvalidArgs    = "INVALID_ARGS"
	CodeNotInCombat    = "NOT_IN_COMBAT"
	CodeRateLimited    = "RATE_LIMITED"
	CodeNoCharacter    = "NO_CHARACTER"
)

// ErrEmptyInput reports a blank command line.
func ErrEmptyInput() error {
	return oops.Code(CodeEmptyInput).Errorf("no command provided")
}

// ErrUnknownCommand reports an unknown verb.
func ErrUnknownCommand(cmd string) error {
	return oops.Code(CodeUnknownCommand).
		With("command", cmd).
		Errorf("unknown command: %s", cmd)
}

// ErrInvalidArgs reports malformed arguments for a known verb.
func ErrInvalidArgs(cmd, usage string) error {
	return oops.Code(CodeInvalidArgs).
		With("command", cmd).
		With("usage", usage).
		Errorf("invalid arguments")
}

// ErrNotInCombat reports a combat command from a character who is not
// fighting.
func ErrNotInCombat(characterID string) error {
	return oops.Code(CodeNotInCombat).
		With("character_id", characterID).
		Errorf("%s is not in combat", characterID)
}

// ErrRateLimited reports a session sending commands too fast.
func ErrRateLimited(cooldownMs int64) error {
	return oops.Code(CodeRateLimited).
		With("cooldown_ms", cooldownMs).
		Errorf("too many commands")
}

// ErrNoCharacter reports a command without a character.
func ErrNoCharacter() error {
	return oops.Code(CodeNoCharacter).Errorf("no character associated with session")
}

const fallbackMessage = "Something went wrong. Try again."

var playerMessages = map[string]string{
	combat.CodeCombatNotFound:    "That combat does not exist.",
	combat.CodeCharacterNotFound: "No such combatant.",
	combat.CodeSkillNotFound:     "You don't know that skill.",
	combat.CodeTargetNotFound:    "That target is not in this fight.",
	combat.CodeNotYourTurn:       "It is not your turn yet.",
	combat.CodeCasterDead:        "You cannot act while defeated.",
	combat.CodeInsufficientMana:  "Not enough mana.",
	combat.CodeSkillOnCooldown:   "That skill is still on cooldown.",
	combat.CodeInvalidTarget:     "That is not a valid target for this skill.",
	combat.CodeRetreatNotAllowed: "You cannot retreat from a duel.",
	combat.CodePartyExists:       "That faction is already in this fight.",
	combat.CodeCombatEnded:       "That combat has already ended.",
	combat.CodeAlreadyInCombat:   "You are already in a fight.",
	CodeEmptyInput:               "Type a command. Try 'help'.",
	CodeUnknownCommand:           "Unknown command. Try 'help'.",
	CodeNotInCombat:              "You are not in combat.",
	CodeRateLimited:              "Too many commands. Please slow down.",
	CodeNoCharacter:              "No character selected. Please select a character first.",
}

// PlayerMessage turns an error into text safe to show a player. Denials
// carry their own reason; anything unrecognized gets a generic message.
func PlayerMessage(err error) string {
	if err == nil {
		return fallbackMessage
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return fallbackMessage
	}

	code, _ := oopsErr.Code().(string)
	switch code {
	case combat.CodeCombatDenied:
		if reason, ok := oopsErr.Context()["reason"].(string); ok && reason != "" {
			return reason
		}
		return "You cannot fight here."
	case CodeInvalidArgs:
		if usage, ok := oopsErr.Context()["usage"].(string); ok && usage != "" {
			return "Usage: " + usage
		}
		return "Invalid arguments."
	default:
		if msg, ok := playerMessages[code]; ok {
			return msg
		}
		return fallbackMessage
	}
}
