// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package protection

import (
	"fmt"
	"sync"

	"github.com/gobwas/glob"
)

// SafeZones matches map ids against safe-zone patterns.
//
// Patterns use gobwas/glob with ':' as the segment separator:
//   - '*' matches a single segment, so "town:*" matches "town:square"
//     but not "town:square:well"
//   - '**' matches across segments
//
// SafeZones is safe for concurrent use. The zero value matches nothing.
type SafeZones struct {
	mu       sync.RWMutex
	patterns []compiledZone
}

type compiledZone struct {
	pattern string
	glob    glob.Glob
}

// NewSafeZones compiles the patterns.
func NewSafeZones(patterns []string) (*SafeZones, error) {
	z := &SafeZones{}
	if err := z.Set(patterns); err != nil {
		return nil, err
	}
	return z, nil
}

// Set replaces every pattern. On error nothing changes.
func (z *SafeZones) Set(patterns []string) error {
	compiled := make([]compiledZone, 0, len(patterns))
	for i, p := range patterns {
		if p == "" {
			return fmt.Errorf("safe zone %d: empty pattern", i)
		}
		g, err := glob.Compile(p, ':')
		if err != nil {
			return fmt.Errorf("safe zone %d (%q): %w", i, p, err)
		}
		compiled = append(compiled, compiledZone{pattern: p, glob: g})
	}

	z.mu.Lock()
	defer z.mu.Unlock()
	z.patterns = compiled
	return nil
}

// Match reports whether the map id falls in a safe zone.
func (z *SafeZones) Match(mapID string) bool {
	if z == nil {
		return false
	}
	z.mu.RLock()
	defer z.mu.RUnlock()
	for _, c := range z.patterns {
		if c.glob.Match(mapID) {
			return true
		}
	}
	return false
}

// Patterns returns the configured patterns.
func (z *SafeZones) Patterns() []string {
	z.mu.RLock()
	defer z.mu.RUnlock()
	out := make([]string, 0, len(z.patterns))
	for _, c := range z.patterns {
		out = append(out, c.pattern)
	}
	return out
}
