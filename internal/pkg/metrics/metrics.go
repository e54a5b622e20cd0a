// Package metrics defines and registers all custom Prometheus metrics for the
// fitness API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fitness"

// ── Authentication metrics ────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts by outcome.
// Labels:
//   - method: "local", "google", or "facebook"
//   - outcome: "success", "rejected", "throttled", or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by method and outcome.",
	},
	[]string{"method", "outcome"},
)

// SignupsTotal counts local signup attempts.
// Label:
//   - outcome: "created", "duplicate", or "error"
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of local signups, by outcome.",
	},
	[]string{"outcome"},
)

// IdentityBridgeTotal counts external identity resolutions.
// Labels:
//   - provider: "google" or "facebook"
//   - outcome: "found", "created", "linked", "conflict" (lost a create race), or "failed"
var IdentityBridgeTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identity_bridge_total",
		Help:      "Total number of external identity find-or-create decisions.",
	},
	[]string{"provider", "outcome"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionsResolvedTotal counts session lookups on incoming requests.
// Label:
//   - result: "hit", "miss", "expired", "orphaned", or "error"
var SessionsResolvedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_resolved_total",
		Help:      "Total number of session resolutions, labelled by result.",
	},
	[]string{"result"},
)

// GateDecisionsTotal counts authorization gate decisions on protected routes.
// Label:
//   - decision: "allow", "reject", or "redirect"
var GateDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_decisions_total",
		Help:      "Total number of authorization gate decisions.",
	},
	[]string{"decision"},
)

// ── Login history metrics ─────────────────────────────────────────────────────

// LoginEventsDroppedTotal counts login events discarded because a worker
// channel was full or the dispatcher was stopped.
var LoginEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_events_dropped_total",
		Help:      "Total number of login events dropped before persistence.",
	},
)

// LoginEventsQueueDepth tracks the number of login events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var LoginEventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "login_events_queue_depth",
		Help:      "Current number of login events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// LoginEventProcessingDuration measures how long persisting one login event takes.
// Label:
//   - result: "ok" or "error"
var LoginEventProcessingDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "login_event_processing_duration_seconds",
		Help:      "Duration of login event persistence from dequeue to insert.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)
