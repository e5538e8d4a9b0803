// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the polling and publishing pipeline:
// - Poll cycle outcomes per platform
// - Session reconstruction results
// - Event store append outcomes
// - Social publishing results
// - Lemmy outbox depth

var (
	// Poller Metrics
	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamherald_polls_total",
			Help: "Total number of source polls by platform and result",
		},
		[]string{"platform", "result"}, // result: ok, unavailable, malformed
	)

	PollDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamherald_poll_duration_seconds",
			Help:    "Duration of individual source polls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform"},
	)

	SnapshotsObserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamherald_snapshots_observed_total",
			Help: "Total snapshots produced by the poller",
		},
		[]string{"platform", "live"},
	)

	// Reconstruction Metrics
	SessionsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamherald_sessions_emitted_total",
			Help: "Total sessions emitted by the reconstructor",
		},
		[]string{"platform"},
	)

	SessionsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamherald_sessions_dropped_total",
			Help: "Sessions discarded during reconstruction",
		},
		[]string{"platform", "reason"}, // reason: non_positive_duration, stale_connect
	)

	SourcesLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamherald_sources_live",
			Help: "Number of sources currently tracked as live",
		},
	)

	// Event Store Metrics
	StoreAppends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamherald_store_appends_total",
			Help: "Event store append outcomes",
		},
		[]string{"log", "outcome"}, // outcome: inserted, updated, skipped, error
	)

	StoreMalformedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamherald_store_malformed_rows_total",
			Help: "Malformed rows skipped during log scans",
		},
		[]string{"log"},
	)

	// Publishing Metrics
	PublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamherald_publishes_total",
			Help: "Social publish attempts by target and result",
		},
		[]string{"target", "result"}, // target: mastodon, lemmy
	)

	ReportRowsTruncated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamherald_report_rows_truncated_total",
			Help: "Ranked rows dropped from reports by the character budget",
		},
	)

	OutboxPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamherald_outbox_pending",
			Help: "Pending entries in the Lemmy outbox awaiting drain",
		},
	)

	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamherald_http_requests_total",
			Help: "HTTP requests served by method, route pattern and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamherald_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds by route pattern",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "path"},
	)

	// Cycle Metrics
	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamherald_cycle_duration_seconds",
			Help:    "Duration of scheduler cycles in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"cycle"}, // cycle: poll, announce, report, drain
	)

	CycleLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "streamherald_cycle_last_success_timestamp",
			Help: "Unix timestamp of the last successful cycle completion",
		},
		[]string{"cycle"},
	)
)

// ObserveCycle records a completed cycle's duration and success time.
func ObserveCycle(cycle string, start time.Time) {
	CycleDuration.WithLabelValues(cycle).Observe(time.Since(start).Seconds())
	CycleLastSuccess.WithLabelValues(cycle).SetToCurrentTime()
}
