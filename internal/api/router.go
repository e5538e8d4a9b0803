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
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/streamherald/internal/metrics"
)

// RouterConfig tunes the shared middleware stack.
type RouterConfig struct {
	// CORSAllowedOrigins is empty by default, requiring explicit
	// configuration before browsers elsewhere may read the API.
	CORSAllowedOrigins []string

	// RateLimitRequests per RateLimitWindow, keyed by client IP.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// DefaultRouterConfig returns a secure default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORSAllowedOrigins: []string{},
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
	}
}

// NewRouter builds the chi router for the read-only API.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.RateLimitRequests <= 0 {
		cfg.RateLimitRequests = 100
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}

	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         86400,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.Limit(cfg.RateLimitRequests, cfg.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Use(securityHeaders)
		r.Use(prometheusMetrics)

		r.Get("/health", h.Health)
		r.Get("/sessions", h.Sessions)
		r.Get("/sources", h.Sources)
		r.Get("/leaderboard/{type}", h.Leaderboard)
		r.Get("/reports/rotation", h.Rotation)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// securityHeaders adds response headers appropriate for a JSON API.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// prometheusMetrics records request counts and latency per route pattern.
// The chi pattern keeps label cardinality bounded regardless of URL values.
func prometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}
