// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package combat

import (
	"github.com/samber/oops"
)

// Error codes for combat failures. Not-found and precondition codes are
// surfaced to players; CodeAIFailure never leaves the engine.
const (
	CodeCombatNotFound    = "COMBAT_NOT_FOUND"
	CodeCharacterNotFound = "CHARACTER_NOT_FOUND"
	CodeSkillNotFound     = "SKILL_NOT_FOUND"
	CodeTargetNotFound    = "TARGET_NOT_FOUND"
	CodeNotYourTurn       = "NOT_YOUR_TURN"
	CodeCasterDead        = "CASTER_DEAD"
	CodeInsufficientMana  = "INSUFFICIENT_MANA"
	CodeSkillOnCooldown   = "SKILL_ON_COOLDOWN"
	CodeInvalidTarget     = "INVALID_TARGET"
	CodeCombatDenied      = "COMBAT_DENIED"
	CodeRetreatNotAllowed = "RETREAT_NOT_ALLOWED"
	CodePartyExists       = "PARTY_EXISTS"
	CodeCombatEnded       = "COMBAT_ENDED"
	CodeAlreadyInCombat   = "ALREADY_IN_COMBAT"
	CodeAIFailure         = "AI_FAILURE"
)

// ErrCombatNotFound reports an unknown combat id.
func ErrCombatNotFound(combatID string) error {
	return oops.Code(CodeCombatNotFound).
		With("combat_id", combatID).
		Errorf("combat %s not found", combatID)
}

// ErrCharacterNotFound reports a combatant missing from the combat.
func ErrCharacterNotFound(combatID, characterID string) error {
	return oops.Code(CodeCharacterNotFound).
		With("combat_id", combatID).
		With("character_id", characterID).
		Errorf("character %s is not in combat %s", characterID, combatID)
}

// ErrSkillNotFound reports a skill that is unknown or not learned.
func ErrSkillNotFound(skillID string) error {
	return oops.Code(CodeSkillNotFound).
		With("skill_id", skillID).
		Errorf("unknown skill %s", skillID)
}

// ErrTargetNotFound reports a target id that is not in the combat.
func ErrTargetNotFound(targetID string) error {
	return oops.Code(CodeTargetNotFound).
		With("target_id", targetID).
		Errorf("target %s is not in this combat", targetID)
}

// ErrNotYourTurn reports an action submitted out of turn.
func ErrNotYourTurn(characterID, current string) error {
	return oops.Code(CodeNotYourTurn).
		With("character_id", characterID).
		With("current_turn", current).
		Errorf("it is not %s's turn", characterID)
}

// ErrCasterDead reports an action by a defeated or retreated combatant.
func ErrCasterDead(characterID string) error {
	return oops.Code(CodeCasterDead).
		With("character_id", characterID).
		Errorf("%s cannot act while defeated", characterID)
}

// ErrInsufficientMana reports a skill the caster cannot afford.
func ErrInsufficientMana(skillID string, have, need int) error {
	return oops.Code(CodeInsufficientMana).
		With("skill_id", skillID).
		With("mana", have).
		With("cost", need).
		Errorf("insufficient mana for %s: have %d, need %d", skillID, have, need)
}

// ErrSkillOnCooldown reports a skill that is still cooling down.
func ErrSkillOnCooldown(skillID string, turns int) error {
	return oops.Code(CodeSkillOnCooldown).
		With("skill_id", skillID).
		With("turns_left", turns).
		Errorf("%s is on cooldown for %d more turns", skillID, turns)
}

// ErrInvalidTarget reports a target that does not fit the skill.
func ErrInvalidTarget(skillID, targetID, reason string) error {
	return oops.Code(CodeInvalidTarget).
		With("skill_id", skillID).
		With("target_id", targetID).
		With("reason", reason).
		Errorf("invalid target %q for %s: %s", targetID, skillID, reason)
}

// ErrCombatDenied reports a protection or eligibility rule blocking combat.
// The reason is shown to the player as-is.
func ErrCombatDenied(reason string) error {
	return oops.Code(CodeCombatDenied).
		With("reason", reason).
		Errorf("%s", reason)
}

// ErrRetreatNotAllowed reports an attempt to retreat from a duel.
func ErrRetreatNotAllowed(combatID string) error {
	return oops.Code(CodeRetreatNotAllowed).
		With("combat_id", combatID).
		Errorf("cannot retreat from a player duel")
}

// ErrPartyExists reports a faction joining a combat twice.
func ErrPartyExists(combatID, factionID string) error {
	return oops.Code(CodePartyExists).
		With("combat_id", combatID).
		With("faction_id", factionID).
		Errorf("faction %s is already in combat %s", factionID, combatID)
}

// ErrCombatEnded reports an operation against a combat that has finished.
func ErrCombatEnded(combatID string) error {
	return oops.Code(CodeCombatEnded).
		With("combat_id", combatID).
		Errorf("combat %s has ended", combatID)
}

// ErrAlreadyInCombat reports a character who is already fighting elsewhere.
func ErrAlreadyInCombat(characterID, combatID string) error {
	return oops.Code(CodeAlreadyInCombat).
		With("character_id", characterID).
		With("combat_id", combatID).
		Errorf("%s is already in combat %s", characterID, combatID)
}

// ErrAIFailure wraps an enemy decision failure.
func ErrAIFailure(characterID string, cause error) error {
	return oops.Code(CodeAIFailure).
		With("character_id", characterID).
		Wrapf(cause, "AI decision failed")
}
