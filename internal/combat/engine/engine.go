// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

// Package engine owns the active combats. It serializes every mutation of a
// combat behind that combat's owner, runs the resolve loop that plays enemy
// turns, and hands each ended combat's reward distribution out exactly once.
//
// Lock order is owner.mu, then Engine.mu. Engine.mu is never held while
// acquiring an owner.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/ai"
	"github.com/clawworld/clawworld/internal/combat/dice"
	"github.com/clawworld/clawworld/internal/combat/settlement"
	"github.com/clawworld/clawworld/internal/combat/skill"
	"github.com/clawworld/clawworld/internal/core"
	"github.com/clawworld/clawworld/internal/logging"
)

var tracer = otel.Tracer("clawworld/combat")

// Player-facing outcome messages.
const (
	MsgYourTurn  = "It is your turn."
	MsgWaiting   = "It is not your turn yet; wait to continue."
	MsgEnded     = "The combat has ended."
	MsgRetreated = "You retreated from the battle."
)

// Outcome is the result of a player-facing operation.
type Outcome struct {
	Message string
	// Log holds the "[#n] message" lines appended during the call, or the
	// whole final log when the combat had already ended.
	Log         []string
	Ended       bool
	Status      combat.Status
	CurrentTurn string
	// LastSeq is the sequence number of the newest log line, for LogsSince.
	LastSeq int
}

// owner serializes access to one combat.
type owner struct {
	mu   sync.Mutex
	inst *combat.Instance
	dice dice.Source
}

// endedCombat is what remains queryable after a combat leaves the registry.
type endedCombat struct {
	endedAt  time.Time
	status   combat.Status
	log      []string
	notified map[string]struct{}
}

// Engine is the combat registry and turn scheduler.
type Engine struct {
	cfg      Config
	clock    func() time.Time
	logger   *slog.Logger
	bc       *core.Broadcaster
	newDice  func(combatID string) dice.Source
	decider  ai.Decider
	catalog  skill.Catalog
	resolver *skill.Resolver
	settler  *settlement.Settler
	newID    func() string

	mu         sync.RWMutex
	combats    map[string]*owner
	characters map[string]string
	ended      map[string]*endedCombat
	rewards    map[string]*combat.RewardDistribution
}

// New creates an engine. Without options it uses DefaultConfig, the simple
// AI, fallback rewards and an unseeded random source per combat.
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg:        DefaultConfig(),
		clock:      time.Now,
		logger:     slog.Default(),
		bc:         core.NewBroadcaster(),
		newDice:    func(string) dice.Source { return dice.NewFromClock() },
		decider:    ai.NewSimple(),
		resolver:   skill.NewResolver(nil),
		settler:    settlement.New(nil),
		newID:      core.NewID,
		combats:    make(map[string]*owner),
		characters: make(map[string]string),
		ended:      make(map[string]*endedCombat),
		rewards:    make(map[string]*combat.RewardDistribution),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine settings.
func (e *Engine) Config() Config { return e.cfg }

// Broadcaster returns the broadcaster carrying this engine's events.
func (e *Engine) Broadcaster() *core.Broadcaster { return e.bc }

// CreateCombat registers an empty combat on a map and returns its id.
func (e *Engine) CreateCombat(ctx context.Context, mapID string) (string, error) {
	id := e.newID()
	inst := combat.NewInstance(id, mapID, e.clock)
	o := &owner{inst: inst, dice: e.newDice(id)}

	e.mu.Lock()
	e.combats[id] = o
	e.mu.Unlock()

	RecordCombatStarted()
	e.logger.InfoContext(logging.WithCombatID(ctx, id), "combat created", "map_id", mapID)
	return id, nil
}

// AddParty adds a faction and its members. Characters already fighting in
// any combat are rejected.
func (e *Engine) AddParty(ctx context.Context, combatID, factionID string, chars []combat.Character) error {
	return e.mutate(combatID, func(o *owner) error {
		for _, c := range chars {
			if err := e.checkFree(combatID, c.ID); err != nil {
				return err
			}
		}
		if _, ok := o.inst.AddParty(factionID, chars); !ok {
			return combat.ErrPartyExists(combatID, factionID)
		}
		e.track(combatID, chars...)
		e.logger.DebugContext(logging.WithCombatID(ctx, combatID), "party added",
			"faction_id", factionID, "members", len(chars))
		return nil
	})
}

// AddCharacters adds combatants to a faction, creating the party if it is not
// in the combat yet. Either every character joins or none does.
func (e *Engine) AddCharacters(ctx context.Context, combatID, factionID string, chars ...combat.Character) error {
	return e.mutate(combatID, func(o *owner) error {
		for _, ch := range chars {
			if err := e.checkFree(combatID, ch.ID); err != nil {
				return err
			}
			if _, dup := o.inst.Character(ch.ID); dup {
				return combat.ErrAlreadyInCombat(ch.ID, combatID)
			}
		}
		for _, ch := range chars {
			added := o.inst.AddCharacter(factionID, ch)
			o.inst.Log.Addf("%s joins the battle", added.Name)
		}
		e.track(combatID, chars...)
		e.logger.DebugContext(logging.WithCombatID(ctx, combatID), "characters joined",
			"faction_id", factionID, "members", len(chars))
		return nil
	})
}

// Discard drops a combat that failed to assemble. It is not settled and
// leaves no ended-cache entry.
func (e *Engine) Discard(ctx context.Context, combatID string) {
	o, ok := e.lookup(combatID)
	if !ok {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	e.mu.Lock()
	if e.combats[combatID] != o {
		e.mu.Unlock()
		return
	}
	delete(e.combats, combatID)
	for _, c := range o.inst.Characters() {
		if e.characters[c.ID] == combatID {
			delete(e.characters, c.ID)
		}
	}
	e.mu.Unlock()

	CombatsActive.Dec()
	e.logger.InfoContext(logging.WithCombatID(ctx, combatID), "combat discarded")
}

func (e *Engine) checkFree(combatID, characterID string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if in, ok := e.characters[characterID]; ok {
		return combat.ErrAlreadyInCombat(characterID, in)
	}
	return nil
}

func (e *Engine) track(combatID string, chars ...combat.Character) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range chars {
		e.characters[c.ID] = combatID
	}
}

func (e *Engine) untrack(combatID string, ids ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range ids {
		if e.characters[id] == combatID {
			delete(e.characters, id)
		}
	}
}

// Combat returns a snapshot of an active combat.
func (e *Engine) Combat(combatID string) (*combat.Instance, bool) {
	var snap *combat.Instance
	err := e.mutate(combatID, func(o *owner) error {
		snap = o.inst.Clone()
		return nil
	})
	return snap, err == nil
}

// CurrentTurn returns who holds the turn in an active combat.
func (e *Engine) CurrentTurn(combatID string) (string, bool) {
	var (
		id   string
		held bool
	)
	_ = e.mutate(combatID, func(o *owner) error {
		id, held = o.inst.CurrentTurn()
		return nil
	})
	return id, held
}

// IsPlayerTurn reports whether the character holds the turn.
func (e *Engine) IsPlayerTurn(combatID, characterID string) bool {
	id, ok := e.CurrentTurn(combatID)
	return ok && id == characterID
}

// CombatOf returns the active combat a character is fighting in.
func (e *Engine) CombatOf(characterID string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.characters[characterID]
	return id, ok
}

// LogsSince returns the log lines after seq for an active or recently ended
// combat.
func (e *Engine) LogsSince(combatID string, seq int) ([]string, error) {
	var lines []string
	err := e.mutate(combatID, func(o *owner) error {
		lines = o.inst.Log.LinesSince(seq)
		return nil
	})
	if err == nil {
		return lines, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.ended[combatID]
	if !ok {
		return nil, combat.ErrCombatNotFound(combatID)
	}
	if seq < 0 {
		seq = 0
	}
	if seq >= len(entry.log) {
		return nil, nil
	}
	return append([]string(nil), entry.log[seq:]...), nil
}

// TakeRewardDistribution returns an ended combat's distribution and forgets
// it. Only the first call for a combat gets it.
func (e *Engine) TakeRewardDistribution(combatID string) (*combat.RewardDistribution, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	dist, ok := e.rewards[combatID]
	if ok {
		delete(e.rewards, combatID)
	}
	return dist, ok
}

// Notified reports whether the character has been shown the ended combat's
// final result.
func (e *Engine) Notified(combatID, characterID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.ended[combatID]
	if !ok {
		return false
	}
	_, seen := entry.notified[characterID]
	return seen
}

func (e *Engine) lookup(combatID string) (*owner, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	o, ok := e.combats[combatID]
	return o, ok
}

// mutate runs fn with the combat's owner lock held. Ended and unknown
// combats are errors.
func (e *Engine) mutate(combatID string, fn func(o *owner) error) error {
	o, ok := e.lookup(combatID)
	if !ok {
		if e.isEnded(combatID) {
			return combat.ErrCombatEnded(combatID)
		}
		return combat.ErrCombatNotFound(combatID)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.inst.Active() {
		return combat.ErrCombatEnded(combatID)
	}
	return fn(o)
}

// withCombat runs a player operation with the owner lock held. A combat that
// has ended answers with its final log instead of an error.
func (e *Engine) withCombat(combatID, characterID string, fn func(o *owner) (*Outcome, error)) (*Outcome, error) {
	o, ok := e.lookup(combatID)
	if !ok {
		return e.endedOutcome(combatID, characterID)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.inst.Active() {
		return e.endedOutcome(combatID, characterID)
	}
	return fn(o)
}

func (e *Engine) isEnded(combatID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.ended[combatID]
	return ok
}

func (e *Engine) endedOutcome(combatID, characterID string) (*Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.ended[combatID]
	if !ok {
		return nil, combat.ErrCombatNotFound(combatID)
	}
	if characterID != "" {
		entry.notified[characterID] = struct{}{}
	}
	return &Outcome{
		Message: MsgEnded,
		Log:     append([]string(nil), entry.log...),
		Ended:   true,
		Status:  entry.status,
		LastSeq: len(entry.log),
	}, nil
}

// snapshot builds an outcome from the instance's current state.
func snapshot(inst *combat.Instance, msg string, sinceSeq int) *Outcome {
	turn, _ := inst.CurrentTurn()
	return &Outcome{
		Message:     msg,
		Log:         inst.Log.LinesSince(sinceSeq),
		Ended:       !inst.Active(),
		Status:      inst.Status,
		CurrentTurn: turn,
		LastSeq:     inst.Log.LastSeq(),
	}
}
