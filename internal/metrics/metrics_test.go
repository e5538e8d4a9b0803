// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPollCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(PollsTotal.WithLabelValues("peertube", "ok"))
	PollsTotal.WithLabelValues("peertube", "ok").Inc()
	after := testutil.ToFloat64(PollsTotal.WithLabelValues("peertube", "ok"))

	if after != before+1 {
		t.Errorf("PollsTotal = %v, want %v", after, before+1)
	}
}

func TestStoreAppendOutcomes(t *testing.T) {
	outcomes := []string{"inserted", "updated", "skipped", "error"}
	for _, outcome := range outcomes {
		StoreAppends.WithLabelValues("sessions", outcome).Inc()
	}
	for _, outcome := range outcomes {
		if got := testutil.ToFloat64(StoreAppends.WithLabelValues("sessions", outcome)); got < 1 {
			t.Errorf("StoreAppends[%s] = %v, want >= 1", outcome, got)
		}
	}
}

func TestObserveCycle(t *testing.T) {
	ObserveCycle("poll", time.Now().Add(-time.Second))

	if got := testutil.ToFloat64(CycleLastSuccess.WithLabelValues("poll")); got == 0 {
		t.Error("CycleLastSuccess not set after ObserveCycle")
	}
}
