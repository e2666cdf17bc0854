// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package combat

// ActionBarMax is the progress a combatant must reach before it may act.
const ActionBarMax = 10000

type barEntry struct {
	id       string
	speed    int
	progress int
	lastTurn int
}

// ActionBar tracks per-combatant turn progress. Combatants fill their bar at
// a rate equal to their speed; whoever crosses ActionBarMax first acts next.
// Ties go to whoever acted least recently, then to insertion order.
type ActionBar struct {
	entries []*barEntry
	index   map[string]*barEntry
	turns   int
}

// NewActionBar creates an empty action bar.
func NewActionBar() *ActionBar {
	return &ActionBar{index: make(map[string]*barEntry)}
}

// Add registers a combatant. Re-adding an existing id updates its speed and
// keeps its progress and position.
func (b *ActionBar) Add(id string, speed int) {
	if speed < 1 {
		speed = 1
	}
	if e, ok := b.index[id]; ok {
		e.speed = speed
		return
	}
	e := &barEntry{id: id, speed: speed}
	b.entries = append(b.entries, e)
	b.index[id] = e
}

// Remove drops a combatant from the bar.
func (b *ActionBar) Remove(id string) {
	if _, ok := b.index[id]; !ok {
		return
	}
	delete(b.index, id)
	for i, e := range b.entries {
		if e.id == id {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return
		}
	}
}

// Has reports whether the combatant is on the bar.
func (b *ActionBar) Has(id string) bool {
	_, ok := b.index[id]
	return ok
}

// Progress returns the combatant's accumulated progress.
func (b *ActionBar) Progress(id string) int {
	if e, ok := b.index[id]; ok {
		return e.progress
	}
	return 0
}

// SetProgress overrides a combatant's progress.
func (b *ActionBar) SetProgress(id string, progress int) {
	if e, ok := b.index[id]; ok {
		e.progress = max(0, progress)
	}
}

// Reset zeroes the combatant's progress after it has acted.
func (b *ActionBar) Reset(id string) {
	if e, ok := b.index[id]; ok {
		b.turns++
		e.progress = 0
		e.lastTurn = b.turns
	}
}

// Next returns the combatant that acts next among those accepted by eligible.
// If nobody has reached ActionBarMax, every eligible combatant advances by the
// smallest whole number of ticks that lets at least one of them reach it.
// The highest progress wins; ties go to the combatant that acted least
// recently, then to the earliest-added one.
func (b *ActionBar) Next(eligible func(id string) bool) (string, bool) {
	var ready bool
	minTicks := -1
	for _, e := range b.entries {
		if !eligible(e.id) {
			continue
		}
		if e.progress >= ActionBarMax {
			ready = true
			break
		}
		ticks := (ActionBarMax - e.progress + e.speed - 1) / e.speed
		if minTicks < 0 || ticks < minTicks {
			minTicks = ticks
		}
	}
	if !ready {
		if minTicks < 0 {
			return "", false
		}
		for _, e := range b.entries {
			if eligible(e.id) {
				e.progress += minTicks * e.speed
			}
		}
	}

	var best *barEntry
	for _, e := range b.entries {
		if !eligible(e.id) || e.progress < ActionBarMax {
			continue
		}
		switch {
		case best == nil, e.progress > best.progress:
			best = e
		case e.progress == best.progress && e.lastTurn < best.lastTurn:
			best = e
		}
	}
	if best == nil {
		return "", false
	}
	return best.id, true
}

func (b *ActionBar) clone() *ActionBar {
	out := NewActionBar()
	out.turns = b.turns
	for _, e := range b.entries {
		cp := *e
		out.entries = append(out.entries, &cp)
		out.index[cp.id] = &cp
	}
	return out
}
