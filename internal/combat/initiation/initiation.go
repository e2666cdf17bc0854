// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

// Package initiation starts fights between players and enemies, and lets
// players reinforce a fight already under way.
package initiation

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/engine"
	"github.com/clawworld/clawworld/internal/combat/protection"
	"github.com/clawworld/clawworld/internal/logging"
)

// Denial reasons that do not come from the protection rules.
const (
	ReasonNotOnMap     = "That target is not on this map."
	ReasonTargetFallen = "That target has fallen and has not returned yet."
	ReasonDuel         = "You can only join a fight against enemies."
)

// Combatant is a roster entry: a character snapshot and where it stands.
type Combatant struct {
	Character combat.Character
	MapID     string
	// Group links characters that enter a fight together: a player party,
	// or enemies sharing a spawn point. Empty means alone.
	Group string
}

// Roster provides character snapshots keyed by id.
type Roster interface {
	// Combatant returns one character. Unknown ids fail with
	// CHARACTER_NOT_FOUND.
	Combatant(ctx context.Context, id string) (Combatant, error)
	// Members returns everyone grouped with id, id included.
	Members(ctx context.Context, id string) ([]Combatant, error)
}

// Combats is the part of the engine initiation drives.
type Combats interface {
	CreateCombat(ctx context.Context, mapID string) (string, error)
	AddParty(ctx context.Context, combatID, factionID string, chars []combat.Character) error
	AddCharacters(ctx context.Context, combatID, factionID string, chars ...combat.Character) error
	Begin(ctx context.Context, combatID, requesterID string) (*engine.Outcome, error)
	Discard(ctx context.Context, combatID string)
	Combat(combatID string) (*combat.Instance, bool)
	CombatOf(characterID string) (string, bool)
}

var _ Combats = (*engine.Engine)(nil)

// Result describes the fight the attacker ended up in.
type Result struct {
	CombatID string
	// Joined is set when the attacker reinforced an existing fight.
	Joined  bool
	Outcome *engine.Outcome
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service runs the checks that gate a fight and assembles it.
type Service struct {
	combats Combats
	roster  Roster
	checker *protection.Checker
	logger  *slog.Logger
}

// NewService creates an initiation service.
func NewService(combats Combats, roster Roster, checker *protection.Checker, opts ...Option) *Service {
	s := &Service{
		combats: combats,
		roster:  roster,
		checker: checker,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initiate starts a fight between the attacker's group and the target's.
// Attacking an enemy that is already fighting joins that fight instead.
func (s *Service) Initiate(ctx context.Context, attackerID, targetID string) (*Result, error) {
	attacker, err := s.roster.Combatant(ctx, attackerID)
	if err != nil {
		return nil, err
	}
	target, err := s.roster.Combatant(ctx, targetID)
	if err != nil {
		return nil, err
	}
	mapID := attacker.MapID

	if target.MapID != mapID {
		return nil, combat.ErrCombatDenied(ReasonNotOnMap)
	}
	if err := s.checker.MapAllowsCombat(mapID).Err(); err != nil {
		return nil, err
	}
	if err := protection.FactionsMayFight(attacker.Character.FactionID, target.Character.FactionID).Err(); err != nil {
		return nil, err
	}
	if !target.Character.Alive() {
		return nil, combat.ErrCombatDenied(ReasonTargetFallen)
	}
	if in, busy := s.combats.CombatOf(attackerID); busy {
		return nil, combat.ErrAlreadyInCombat(attackerID, in)
	}

	if target.Character.IsEnemy() {
		if combatID, busy := s.combats.CombatOf(targetID); busy {
			return s.join(ctx, combatID, attacker)
		}
	}

	defenders, err := s.members(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Character.IsPlayer() {
		if err := s.checker.CheckPVP(mapID, levels(defenders)).Err(); err != nil {
			return nil, err
		}
	}
	if err := protection.CheckNotInCombat(ids(defenders), s.combats.CombatOf).Err(); err != nil {
		return nil, err
	}
	attackers, err := s.attackers(ctx, attackerID)
	if err != nil {
		return nil, err
	}

	combatID, err := s.combats.CreateCombat(ctx, mapID)
	if err != nil {
		return nil, oops.Code("COMBAT_CREATE_FAILED").With("map_id", mapID).Wrap(err)
	}
	if err := s.assemble(ctx, combatID, attacker.Character.FactionID, attackers,
		target.Character.FactionID, defenders); err != nil {
		s.combats.Discard(ctx, combatID)
		return nil, err
	}

	out, err := s.combats.Begin(ctx, combatID, attackerID)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(logging.WithCombatID(ctx, combatID), "combat initiated",
		"attacker_id", attackerID,
		"target_id", targetID,
		"map_id", mapID,
		"attackers", len(attackers),
		"defenders", len(defenders),
	)
	return &Result{CombatID: combatID, Outcome: out}, nil
}

// Join brings the attacker's group into an existing fight against enemies.
func (s *Service) Join(ctx context.Context, attackerID, combatID string) (*Result, error) {
	attacker, err := s.roster.Combatant(ctx, attackerID)
	if err != nil {
		return nil, err
	}
	if in, busy := s.combats.CombatOf(attackerID); busy {
		return nil, combat.ErrAlreadyInCombat(attackerID, in)
	}
	return s.join(ctx, combatID, attacker)
}

func (s *Service) join(ctx context.Context, combatID string, attacker Combatant) (*Result, error) {
	inst, ok := s.combats.Combat(combatID)
	if !ok {
		return nil, combat.ErrCombatNotFound(combatID)
	}
	if inst.Type() != combat.TypePVE {
		return nil, combat.ErrCombatDenied(ReasonDuel)
	}
	if inst.MapID != attacker.MapID {
		return nil, combat.ErrCombatDenied(ReasonNotOnMap)
	}
	if err := s.checker.MapAllowsCombat(inst.MapID).Err(); err != nil {
		return nil, err
	}
	faction := attacker.Character.FactionID
	if err := s.checker.CheckKillSteal(inst.MapID, inst.Parties()).Err(); err != nil {
		return nil, err
	}

	joiners, err := s.attackers(ctx, attacker.Character.ID)
	if err != nil {
		return nil, err
	}
	if err := s.combats.AddCharacters(ctx, combatID, faction, joiners...); err != nil {
		return nil, err
	}

	out, err := s.combats.Begin(ctx, combatID, attacker.Character.ID)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(logging.WithCombatID(ctx, combatID), "party joined combat",
		"attacker_id", attacker.Character.ID,
		"members", len(joiners),
	)
	return &Result{CombatID: combatID, Joined: true, Outcome: out}, nil
}

// members returns the living characters grouped with id.
func (s *Service) members(ctx context.Context, id string) ([]combat.Character, error) {
	group, err := s.roster.Members(ctx, id)
	if err != nil {
		return nil, err
	}
	chars := make([]combat.Character, 0, len(group))
	for _, m := range group {
		if m.Character.Alive() {
			chars = append(chars, m.Character)
		}
	}
	return chars, nil
}

// attackers is members without the companions already fighting elsewhere.
func (s *Service) attackers(ctx context.Context, id string) ([]combat.Character, error) {
	group, err := s.members(ctx, id)
	if err != nil {
		return nil, err
	}
	free := group[:0]
	for _, c := range group {
		if _, busy := s.combats.CombatOf(c.ID); !busy || c.ID == id {
			free = append(free, c)
		}
	}
	return free, nil
}

func (s *Service) assemble(ctx context.Context, combatID, attackFaction string, attackers []combat.Character,
	defendFaction string, defenders []combat.Character,
) error {
	if err := s.combats.AddParty(ctx, combatID, attackFaction, attackers); err != nil {
		return err
	}
	return s.combats.AddParty(ctx, combatID, defendFaction, defenders)
}

func levels(chars []combat.Character) []int {
	out := make([]int, len(chars))
	for i, c := range chars {
		out[i] = c.Level
	}
	return out
}

func ids(chars []combat.Character) []string {
	out := make([]string, len(chars))
	for i, c := range chars {
		out[i] = c.ID
	}
	return out
}
