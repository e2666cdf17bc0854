// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package combat

import "time"

// Status is the lifecycle state of a combat.
type Status int

// Combat statuses. A combat leaves StatusActive at most once.
const (
	StatusActive Status = iota
	StatusFinished
	StatusTimeout
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusFinished:
		return "finished"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Type classifies a combat by who is fighting.
type Type int

// Combat types.
const (
	TypePVP Type = iota
	TypePVE
)

// String returns the type name.
func (t Type) String() string {
	if t == TypePVE {
		return "pve"
	}
	return "pvp"
}

// Instance is one encounter between two or more factions.
// It is not safe for concurrent use; the engine serializes access per id.
type Instance struct {
	ID        string
	MapID     string
	CreatedAt time.Time
	Status    Status

	Bar *ActionBar
	Log *Log

	// Reward is set exactly once when the combat ends.
	Reward *RewardDistribution

	parties       []*Party
	currentTurn   string
	turnStartedAt time.Time
}

// NewInstance creates an empty active combat.
func NewInstance(id, mapID string, now func() time.Time) *Instance {
	if now == nil {
		now = time.Now
	}
	return &Instance{
		ID:        id,
		MapID:     mapID,
		CreatedAt: now(),
		Status:    StatusActive,
		Bar:       NewActionBar(),
		Log:       NewLog(now),
	}
}

// Type is PVE when any combatant is an enemy, PVP otherwise.
func (i *Instance) Type() Type {
	for _, p := range i.parties {
		for _, c := range p.Characters {
			if c.IsEnemy() {
				return TypePVE
			}
		}
	}
	return TypePVP
}

// AddParty registers a new faction. It returns false if the faction is
// already present.
func (i *Instance) AddParty(factionID string, chars []Character) (*Party, bool) {
	if _, ok := i.Party(factionID); ok {
		return nil, false
	}
	p := NewParty(factionID, chars)
	i.parties = append(i.parties, p)
	for _, c := range p.Characters {
		i.Bar.Add(c.ID, c.Speed)
	}
	return p, true
}

// AddCharacter appends a combatant to a faction, creating the party if needed.
func (i *Instance) AddCharacter(factionID string, ch Character) *Character {
	p, ok := i.Party(factionID)
	if !ok {
		p = &Party{FactionID: factionID}
		i.parties = append(i.parties, p)
	}
	c := p.Add(ch)
	i.Bar.Add(c.ID, c.Speed)
	return c
}

// Parties returns the parties in the order they joined.
func (i *Instance) Parties() []*Party { return i.parties }

// Party looks up a faction's party.
func (i *Instance) Party(factionID string) (*Party, bool) {
	for _, p := range i.parties {
		if p.FactionID == factionID {
			return p, true
		}
	}
	return nil, false
}

// Character finds a combatant by id.
func (i *Instance) Character(id string) (*Character, bool) {
	for _, p := range i.parties {
		for _, c := range p.Characters {
			if c.ID == id {
				return c, true
			}
		}
	}
	return nil, false
}

// Characters returns every combatant in stable order.
func (i *Instance) Characters() []*Character {
	var out []*Character
	for _, p := range i.parties {
		out = append(out, p.Characters...)
	}
	return out
}

// Allies returns alive combatants sharing the character's faction, including
// the character itself.
func (i *Instance) Allies(of *Character) []*Character {
	var out []*Character
	for _, c := range i.Characters() {
		if c.FactionID == of.FactionID && c.Alive() {
			out = append(out, c)
		}
	}
	return out
}

// Opponents returns alive combatants of every other faction.
func (i *Instance) Opponents(of *Character) []*Character {
	var out []*Character
	for _, c := range i.Characters() {
		if c.FactionID != of.FactionID && c.Alive() {
			out = append(out, c)
		}
	}
	return out
}

// AliveParties returns the parties that still have a fighting member.
func (i *Instance) AliveParties() []*Party {
	var out []*Party
	for _, p := range i.parties {
		if p.HasAlive() {
			out = append(out, p)
		}
	}
	return out
}

// Winner returns the only faction left standing, if exactly one is.
func (i *Instance) Winner() (*Party, bool) {
	alive := i.AliveParties()
	if len(alive) != 1 {
		return nil, false
	}
	return alive[0], true
}

// AllPlayersGone reports whether every player-controlled combatant is dead or
// has retreated. A combat without players never qualifies.
func (i *Instance) AllPlayersGone() bool {
	seen := false
	for _, c := range i.Characters() {
		if !c.IsPlayer() {
			continue
		}
		seen = true
		if c.Alive() {
			return false
		}
	}
	return seen
}

// Decided reports whether a termination condition holds: at most one faction
// is left standing, or in PVE every player is gone.
func (i *Instance) Decided() bool {
	if len(i.parties) == 0 {
		return false
	}
	if len(i.AliveParties()) <= 1 {
		return true
	}
	return i.Type() == TypePVE && i.AllPlayersGone()
}

// CurrentTurn returns the id of the combatant whose turn it is, if any.
func (i *Instance) CurrentTurn() (string, bool) {
	return i.currentTurn, i.currentTurn != ""
}

// TurnStartedAt returns when the current turn began.
func (i *Instance) TurnStartedAt() time.Time { return i.turnStartedAt }

// NextTurn returns the combatant holding the turn, advancing the action bar if
// nobody holds it yet. Dead combatants are never selected.
func (i *Instance) NextTurn(now time.Time) (string, bool) {
	if id := i.currentTurn; id != "" {
		if c, ok := i.Character(id); ok && c.Alive() {
			return id, true
		}
		i.Bar.Reset(id)
		i.currentTurn = ""
	}
	id, ok := i.Bar.Next(func(id string) bool {
		c, found := i.Character(id)
		return found && c.Alive()
	})
	if !ok {
		return "", false
	}
	i.currentTurn = id
	i.turnStartedAt = now
	return id, true
}

// EndTurn closes the combatant's turn: its progress returns to zero and its
// cooldowns tick down.
func (i *Instance) EndTurn(id string) {
	i.Bar.Reset(id)
	if c, ok := i.Character(id); ok {
		c.TickCooldowns()
	}
	if i.currentTurn == id {
		i.currentTurn = ""
	}
}

// Withdraw removes a combatant from turn order, e.g. after a retreat.
func (i *Instance) Withdraw(id string) {
	i.Bar.Remove(id)
	if i.currentTurn == id {
		i.currentTurn = ""
	}
}

// Finish moves an active combat to a terminal status. It returns false if the
// combat had already ended.
func (i *Instance) Finish(status Status) bool {
	if i.Status != StatusActive || status == StatusActive {
		return false
	}
	i.Status = status
	i.currentTurn = ""
	return true
}

// Active reports whether the combat is still running.
func (i *Instance) Active() bool { return i.Status == StatusActive }

// Expired reports whether the combat has run longer than the ceiling.
func (i *Instance) Expired(now time.Time, ceiling time.Duration) bool {
	return ceiling > 0 && now.Sub(i.CreatedAt) > ceiling
}

// TurnExpired reports whether the current turn has been held too long.
func (i *Instance) TurnExpired(now time.Time, limit time.Duration) bool {
	return i.currentTurn != "" && limit > 0 && now.Sub(i.turnStartedAt) > limit
}

// Clone returns a deep copy safe to hand outside the engine.
func (i *Instance) Clone() *Instance {
	out := &Instance{
		ID:            i.ID,
		MapID:         i.MapID,
		CreatedAt:     i.CreatedAt,
		Status:        i.Status,
		Bar:           i.Bar.clone(),
		Log:           i.Log.clone(),
		Reward:        i.Reward.Clone(),
		currentTurn:   i.currentTurn,
		turnStartedAt: i.turnStartedAt,
	}
	for _, p := range i.parties {
		out.parties = append(out.parties, p.clone())
	}
	return out
}
