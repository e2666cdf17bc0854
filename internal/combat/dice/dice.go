// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

// Package dice provides the random sources used by combat resolution.
// A seeded Roller makes a whole fight reproducible.
package dice

import (
	"math/rand/v2"
	"time"
)

// Source is the randomness combat code draws from.
type Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntN returns a value in [0, n). n must be positive.
	IntN(n int) int
}

// Chance reports whether an event with probability p happens.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float64() < p
}

// countingSource counts raw draws so a roller can be fast-forwarded exactly.
type countingSource struct {
	pcg *rand.PCG
	n   int64
}

func (c *countingSource) Uint64() uint64 {
	c.n++
	return c.pcg.Uint64()
}

// Roller is a deterministic Source that tracks how many raw draws it has made.
// Not safe for concurrent use; each combat owns its own roller.
type Roller struct {
	seed    uint64
	counter *countingSource
	src     *rand.Rand
}

// New creates a roller from a seed.
func New(seed uint64) *Roller {
	counter := &countingSource{pcg: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
	return &Roller{
		seed:    seed,
		counter: counter,
		src:     rand.New(counter),
	}
}

// NewFromClock creates a roller seeded from the current time.
func NewFromClock() *Roller {
	return New(uint64(time.Now().UnixNano()))
}

// Float64 returns a value in [0, 1).
func (r *Roller) Float64() float64 {
	return r.src.Float64()
}

// IntN returns a value in [0, n).
func (r *Roller) IntN(n int) int {
	return r.src.IntN(n)
}

// Seed returns the seed the roller was created with.
func (r *Roller) Seed() uint64 { return r.seed }

// Position returns the number of raw draws made so far.
func (r *Roller) Position() int64 { return r.counter.n }

// Restore recreates a roller and fast-forwards it to a saved position.
func Restore(seed uint64, position int64) *Roller {
	r := New(seed)
	for range position {
		r.counter.Uint64()
	}
	return r
}

// Scripted replays a fixed list of Float64 values in a loop. IntN maps the
// next value onto [0, n). Useful for forcing hits, misses and crits.
type Scripted struct {
	values []float64
	next   int
}

// NewScripted creates a scripted source. With no values every draw is 0.
func NewScripted(values ...float64) *Scripted {
	return &Scripted{values: values}
}

// Float64 returns the next scripted value.
func (s *Scripted) Float64() float64 {
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// IntN maps the next scripted value onto [0, n).
func (s *Scripted) IntN(n int) int {
	i := int(s.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
