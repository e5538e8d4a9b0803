// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

/*
Package supervisor provides process supervision for StreamHerald using suture v4.

The supervisor tree organizes services into three layers for failure isolation:

	RootSupervisor ("streamherald")
	├── PipelineSupervisor ("pipeline-layer")
	│   ├── poll cycle service
	│   └── announce cycle service (if announcements enabled)
	├── PublishingSupervisor ("publishing-layer")
	│   ├── report cron service
	│   └── outbox drain service (if Lemmy enabled)
	└── APISupervisor ("api-layer")
	    └── HTTP server

This hierarchy ensures that a misbehaving fediverse instance (a Mastodon
server rejecting posts, or a Lemmy instance timing out) never interrupts
polling and session reconstruction, and that the read-only API keeps
serving while either of the other layers restarts.

All services implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return nil to stop cleanly, return an error to be restarted with
exponential backoff, and return promptly when the context is canceled.

The TreeConfig failure parameters (threshold 5, decay 30s, backoff 15s,
shutdown timeout 10s) match suture's production defaults.
*/
package supervisor
