// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package combat

// Party is one faction's roster within a combat.
type Party struct {
	FactionID  string
	Characters []*Character
}

// NewParty creates a party from character snapshots. Each character's faction
// is overwritten with the party's faction.
func NewParty(factionID string, chars []Character) *Party {
	p := &Party{FactionID: factionID}
	for i := range chars {
		p.Add(chars[i])
	}
	return p
}

// Add appends a copy of the character to the party and returns it.
func (p *Party) Add(ch Character) *Character {
	c := ch.Clone()
	c.FactionID = p.FactionID
	p.Characters = append(p.Characters, &c)
	return &c
}

// HasAlive reports whether any member is still fighting.
func (p *Party) HasAlive() bool {
	for _, c := range p.Characters {
		if c.Alive() {
			return true
		}
	}
	return false
}

// HasAlivePlayer reports whether any player-controlled member is still fighting.
func (p *Party) HasAlivePlayer() bool {
	for _, c := range p.Characters {
		if c.IsPlayer() && c.Alive() {
			return true
		}
	}
	return false
}

// HasPlayers reports whether the party contains any player-controlled member.
func (p *Party) HasPlayers() bool {
	for _, c := range p.Characters {
		if c.IsPlayer() {
			return true
		}
	}
	return false
}

// Levels returns the level of every member, in roster order.
func (p *Party) Levels() []int {
	levels := make([]int, 0, len(p.Characters))
	for _, c := range p.Characters {
		levels = append(levels, c.Level)
	}
	return levels
}

func (p *Party) clone() *Party {
	out := &Party{FactionID: p.FactionID, Characters: make([]*Character, 0, len(p.Characters))}
	for _, c := range p.Characters {
		cc := c.Clone()
		out.Characters = append(out.Characters, &cc)
	}
	return out
}
