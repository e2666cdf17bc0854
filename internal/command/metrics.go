// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package command

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status labels for command metrics.
const (
	StatusSuccess     = "success"
	StatusError       = "error"
	StatusInvalid     = "invalid"
	StatusRateLimited = "rate_limited"
)

// CommandExecutions counts dispatched commands.
var CommandExecutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "clawworld_command_executions_total",
		Help: "Total number of combat commands dispatched",
	},
	[]string{"command", "status"},
)

// CommandDuration times dispatched commands, including waits.
var CommandDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "clawworld_command_duration_seconds",
		Help:    "Combat command duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"command"},
)

// RegisterMetrics registers the command metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CommandExecutions, CommandDuration)
}

// RecordCommand records one dispatch.
func RecordCommand(command, status string, d time.Duration) {
	CommandExecutions.WithLabelValues(command, status).Inc()
	CommandDuration.WithLabelValues(command).Observe(d.Seconds())
}
