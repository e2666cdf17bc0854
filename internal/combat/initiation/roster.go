// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package initiation

import (
	"context"
	"sync"

	"github.com/clawworld/clawworld/internal/combat"
)

// MemoryRoster is a Roster held in memory. Members are returned in the order
// they were put.
type MemoryRoster struct {
	mu      sync.RWMutex
	entries map[string]Combatant
	order   []string
}

// NewMemoryRoster creates a roster holding the given combatants.
func NewMemoryRoster(entries ...Combatant) *MemoryRoster {
	r := &MemoryRoster{entries: make(map[string]Combatant)}
	for _, c := range entries {
		r.Put(c)
	}
	return r
}

// Put adds or replaces a combatant.
func (r *MemoryRoster) Put(c Combatant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := c.Character.ID
	if _, ok := r.entries[id]; !ok {
		r.order = append(r.order, id)
	}
	r.entries[id] = c
}

// Update applies fn to a stored combatant. It reports whether id was known.
func (r *MemoryRoster) Update(id string, fn func(*Combatant)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.entries[id]
	if !ok {
		return false
	}
	fn(&c)
	r.entries[id] = c
	return true
}

// IDs returns every id in insertion order.
func (r *MemoryRoster) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Combatant implements Roster.
func (r *MemoryRoster) Combatant(_ context.Context, id string) (Combatant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.entries[id]
	if !ok {
		return Combatant{}, combat.ErrCharacterNotFound("", id)
	}
	c.Character = c.Character.Clone()
	return c, nil
}

// Members implements Roster. Combatants sharing a non-empty group on the
// same map are members of one another.
func (r *MemoryRoster) Members(_ context.Context, id string) ([]Combatant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	self, ok := r.entries[id]
	if !ok {
		return nil, combat.ErrCharacterNotFound("", id)
	}
	if self.Group == "" {
		self.Character = self.Character.Clone()
		return []Combatant{self}, nil
	}
	var out []Combatant
	for _, oid := range r.order {
		c := r.entries[oid]
		if c.Group == self.Group && c.MapID == self.MapID {
			c.Character = c.Character.Clone()
			out = append(out, c)
		}
	}
	return out, nil
}
