// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package aftermath

import (
	"context"
	"sync"
)

// Ledger is an in-memory Archive, used when no database is configured.
type Ledger struct {
	mu      sync.RWMutex
	order   []string
	reports map[string]*Report
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{reports: make(map[string]*Report)}
}

// Archive implements Archive. The first report for a combat wins.
func (l *Ledger) Archive(_ context.Context, r *Report) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.reports[r.CombatID]; ok {
		return nil
	}
	l.reports[r.CombatID] = r
	l.order = append(l.order, r.CombatID)
	return nil
}

// Report returns the archived report for a combat.
func (l *Ledger) Report(combatID string) (*Report, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.reports[combatID]
	return r, ok
}

// Reports returns every report in archive order.
func (l *Ledger) Reports() []*Report {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Report, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.reports[id])
	}
	return out
}
