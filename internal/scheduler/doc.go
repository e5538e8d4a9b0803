// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

// Package scheduler drives the tracking pipeline. It owns the cycle
// implementations (poll, announce, report, drain) and the supervised
// services that fire them, either on a fixed interval or on 5-field cron
// schedules.
package scheduler
