// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for CombatsEnded.
const (
	OutcomeVictory = "victory"
	OutcomeDraw    = "draw"
	OutcomeTimeout = "timeout"
	OutcomeRetreat = "retreat"
)

// Status labels for CombatActions.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusEnded    = "ended"
)

// CombatsActive is the number of combats currently running.
var CombatsActive = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "clawworld_combats_active",
		Help: "Number of active combats",
	},
)

// CombatsStarted counts created combats.
var CombatsStarted = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "clawworld_combats_started_total",
		Help: "Total number of combats created",
	},
)

// CombatsEnded counts finished combats by outcome.
var CombatsEnded = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "clawworld_combats_ended_total",
		Help: "Total number of combats ended by outcome",
	},
	[]string{"outcome"},
)

// CombatActions counts player actions by kind and result.
var CombatActions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "clawworld_combat_actions_total",
		Help: "Total number of player combat actions",
	},
	[]string{"action", "status"},
)

// AIFailures counts enemy decisions that failed and became a skipped turn.
var AIFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "clawworld_combat_ai_failures_total",
		Help: "Total number of enemy AI failures by decider",
	},
	[]string{"decider"},
)

// ResolveLoopTurns observes how many turns one resolve loop run processed.
var ResolveLoopTurns = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "clawworld_resolve_loop_turns",
		Help:    "Turns resolved per resolve loop run",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
	},
)

// RegisterMetrics registers engine metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CombatsActive)
	reg.MustRegister(CombatsStarted)
	reg.MustRegister(CombatsEnded)
	reg.MustRegister(CombatActions)
	reg.MustRegister(AIFailures)
	reg.MustRegister(ResolveLoopTurns)
}

// RecordCombatStarted counts a new combat and marks it active.
func RecordCombatStarted() {
	CombatsStarted.Inc()
	CombatsActive.Inc()
}

// RecordCombatEnded counts an ended combat and drops it from the active gauge.
func RecordCombatEnded(outcome string) {
	CombatsEnded.WithLabelValues(outcome).Inc()
	CombatsActive.Dec()
}

// RecordAction counts a player action.
// Parameters:
//   - action: "skill", "skip", "forfeit" or "begin"
//   - status: one of the Status* constants or a lower-cased error code
func RecordAction(action, status string) {
	CombatActions.WithLabelValues(action, status).Inc()
}

// RecordAIFailure counts a failed enemy decision.
func RecordAIFailure(decider string) {
	AIFailures.WithLabelValues(decider).Inc()
}

// RecordLoopTurns observes the turns processed by one resolve loop run.
func RecordLoopTurns(turns int) {
	ResolveLoopTurns.Observe(float64(turns))
}
