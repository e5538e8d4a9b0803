// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tomtom215/streamherald/internal/aggregate"
	"github.com/tomtom215/streamherald/internal/config"
	"github.com/tomtom215/streamherald/internal/models"
	"github.com/tomtom215/streamherald/internal/ranking"
	"github.com/tomtom215/streamherald/internal/statestore"
)

// SessionReader is the slice of the event store the API reads.
type SessionReader interface {
	Sessions() ([]models.Session, error)
	RecentRotation(n int) ([]string, error)
}

// StateReader lists current per-source reconstruction state.
type StateReader interface {
	All() ([]*statestore.SourceState, error)
}

// Handler serves the read-only JSON API. All data is derived on demand
// from the append-only logs; nothing here writes.
type Handler struct {
	store     SessionReader
	states    StateReader
	report    config.ReportConfig
	startedAt time.Time
	logger    zerolog.Logger
}

// NewHandler creates the API handler.
func NewHandler(store SessionReader, states StateReader, report config.ReportConfig, logger zerolog.Logger) *Handler {
	return &Handler{
		store:     store,
		states:    states,
		report:    report,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// healthResponse is the payload for GET /api/v1/health.
type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Sessions      int    `json:"sessions"`
	SourcesLive   int    `json:"sources_live"`
}

// Health reports liveness plus a cheap data summary.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	sessions, err := h.store.Sessions()
	if err != nil {
		h.logger.Error().Err(err).Msg("Health check failed to read sessions")
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "event store unavailable")
		return
	}

	live := 0
	if states, err := h.states.All(); err == nil {
		for _, s := range states {
			if s.Live {
				live++
			}
		}
	}

	rw.Success(healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Sessions:      len(sessions),
		SourcesLive:   live,
	})
}

// Sessions lists reconstructed sessions, newest first. An optional ?limit=
// caps the response size.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	sessions, err := h.store.Sessions()
	if err != nil {
		rw.InternalError("failed to read sessions")
		return
	}

	// Sessions() returns first-seen order; serve newest first.
	for i, j := 0, len(sessions)-1; i < j; i, j = i+1, j-1 {
		sessions[i], sessions[j] = sessions[j], sessions[i]
	}

	limit := len(sessions)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			rw.BadRequest("limit must be a non-negative integer")
			return
		}
		if n < limit {
			limit = n
		}
	}
	sessions = sessions[:limit]

	rw.SuccessWithMeta(sessions, &APIMeta{Count: len(sessions)})
}

// sourceStatus is the public shape of a source's reconstruction state.
type sourceStatus struct {
	SourceID     string     `json:"source_id"`
	Platform     string     `json:"platform"`
	Live         bool       `json:"live"`
	Title        string     `json:"title,omitempty"`
	WatchURL     string     `json:"watch_url,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	MaxViewers   int64      `json:"max_viewers,omitempty"`
	MissedCycles int        `json:"missed_cycles,omitempty"`
	Announced    bool       `json:"announced"`
}

// Sources lists the tracked sources and their live status.
func (h *Handler) Sources(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	states, err := h.states.All()
	if err != nil {
		rw.InternalError("failed to read source states")
		return
	}

	out := make([]sourceStatus, 0, len(states))
	for _, s := range states {
		out = append(out, sourceStatus{
			SourceID:     s.SourceID,
			Platform:     string(s.Platform),
			Live:         s.Live,
			Title:        s.Title,
			WatchURL:     s.WatchURL,
			StartTime:    s.StartTime,
			MaxViewers:   s.MaxViewers,
			MissedCycles: s.MissedCycles,
			Announced:    s.Announced,
		})
	}

	rw.SuccessWithMeta(out, &APIMeta{Count: len(out)})
}

// leaderboardResponse is the payload for GET /api/v1/leaderboard/{type}.
type leaderboardResponse struct {
	Type       models.ReportType  `json:"type"`
	WindowDays int                `json:"window_days"`
	Rows       []models.RankedRow `json:"rows"`
}

// Leaderboard computes a ranking on demand. {type} is one of the report
// types except shoutout; ?window_days= defaults to 7.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	reportType := models.ReportType(chi.URLParam(r, "type"))
	metric, ok := ranking.ForReportType(reportType)
	if !ok {
		rw.NotFound("unknown leaderboard type")
		return
	}

	windowDays := 7
	if raw := r.URL.Query().Get("window_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			rw.BadRequest("window_days must be a positive integer")
			return
		}
		windowDays = n
	}

	sessions, err := h.store.Sessions()
	if err != nil {
		rw.InternalError("failed to read sessions")
		return
	}
	events := aggregate.Normalize(sessions, h.logger).Events

	rows := ranking.Rank(events, metric, ranking.Options{
		Now:              time.Now().UTC(),
		Window:           time.Duration(windowDays) * 24 * time.Hour,
		TopN:             h.report.TopN,
		MinDurationFloor: h.report.ShortestFloor,
	})

	rw.SuccessWithMeta(leaderboardResponse{
		Type:       reportType,
		WindowDays: windowDays,
		Rows:       rows,
	}, &APIMeta{Count: len(rows)})
}

// Rotation returns the recent report rotation history, newest last.
func (h *Handler) Rotation(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	n := h.report.RotationSize
	if n <= 0 {
		n = 10
	}
	recent, err := h.store.RecentRotation(n)
	if err != nil {
		rw.InternalError("failed to read rotation history")
		return
	}

	rw.SuccessWithMeta(recent, &APIMeta{Count: len(recent)})
}
