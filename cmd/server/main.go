// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

// Package main is the entry point for the StreamHerald server.
//
// StreamHerald tracks live streams across PeerTube channels and Owncast
// instances, reconstructs completed sessions into append-only NDJSON
// logs, and publishes leaderboards and go-live announcements to the
// fediverse (Mastodon statuses, Lemmy community posts).
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables plus optional YAML (Koanf v2)
//  2. Stores: NDJSON event logs and BadgerDB state/outbox databases
//  3. Platform clients: one poll client per configured source
//  4. Pipeline: poller, reconstructor, renderer, picker, publishers
//  5. Supervisor tree: poll/announce/report/drain services and HTTP API
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults. Sources are configured with:
//
//	export PEERTUBE_CHANNELS=https://tube.example/a/alice/video-channels
//	export OWNCAST_INSTANCES=https://cast.example
//
// Publishing is opt-in per target:
//
//	export MASTODON_ENABLED=true
//	export MASTODON_INSTANCE_URL=https://mastodon.example
//	export MASTODON_ACCESS_TOKEN=...
//
//	export LEMMY_ENABLED=true
//	export LEMMY_INSTANCE_URL=https://lemmy.example
//	export LEMMY_USERNAME=herald
//	export LEMMY_PASSWORD=...
//	export LEMMY_COMMUNITY=fedistream
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the supervisor
// tree stops all cycle services, the HTTP server drains in-flight
// requests, and the stores are synced and closed.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tomtom215/streamherald/internal/api"
	"github.com/tomtom215/streamherald/internal/config"
	"github.com/tomtom215/streamherald/internal/eventstore"
	"github.com/tomtom215/streamherald/internal/lemmy"
	"github.com/tomtom215/streamherald/internal/logging"
	"github.com/tomtom215/streamherald/internal/poller"
	"github.com/tomtom215/streamherald/internal/publish"
	"github.com/tomtom215/streamherald/internal/reconstructor"
	"github.com/tomtom215/streamherald/internal/report"
	"github.com/tomtom215/streamherald/internal/scheduler"
	"github.com/tomtom215/streamherald/internal/statestore"
	"github.com/tomtom215/streamherald/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Int("peertube_channels", len(cfg.Poller.PeerTubeChannels)).
		Int("owncast_instances", len(cfg.Poller.OwncastInstances)).
		Str("data_dir", cfg.Store.DataDir).
		Bool("mastodon", cfg.Mastodon.Enabled).
		Bool("lemmy", cfg.Lemmy.Enabled).
		Msg("Configuration loaded")

	// Append-only NDJSON logs: sessions, raw snapshots, publish markers,
	// report rotation history.
	store, err := eventstore.Open(cfg.Store.DataDir, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open event store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event store")
		}
	}()

	stateDir := cfg.Store.StateDir
	if stateDir == "" {
		stateDir = filepath.Join(cfg.Store.DataDir, "state")
	}
	states, err := statestore.Open(filepath.Join(stateDir, "sources"))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open state store")
	}
	defer func() {
		if err := states.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing state store")
		}
	}()

	clients, err := buildClients(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build poll clients")
	}
	logging.Info().Int("sources", len(clients)).Msg("Poll clients ready")

	seed := time.Now().UnixNano()
	renderer := report.NewRenderer(cfg.Handles, seed)
	picker := report.NewPicker(store, cfg.Report.WindowsDays, cfg.Report.RotationSize, seed)

	var poster publish.StatusPoster
	var announcer *publish.Announcer
	if cfg.Mastodon.Enabled {
		mastodon := publish.NewMastodonClient(cfg.Mastodon)
		poster = mastodon
		if cfg.Announce.Enabled {
			announcer = publish.NewAnnouncer(mastodon, store, cfg.Handles, seed, logger)
		}
	}

	var outbox *lemmy.Outbox
	var submitter lemmy.Submitter
	if cfg.Lemmy.Enabled {
		outbox, err = lemmy.OpenOutbox(filepath.Join(stateDir, "outbox"), logger)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open Lemmy outbox")
		}
		defer func() {
			if err := outbox.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing Lemmy outbox")
			}
		}()
		submitter = lemmy.NewClient(cfg.Lemmy)
	}

	pipeline := scheduler.NewPipeline(scheduler.PipelineDeps{
		Poller:        poller.New(clients, cfg.Poller, logger),
		Reconstructor: reconstructor.New(states, cfg.Poller.GraceCycles, logger),
		States:        states,
		Store:         store,
		Announcer:     announcer,
		Renderer:      renderer,
		Picker:        picker,
		Poster:        poster,
		Outbox:        outbox,
		Submitter:     submitter,
	}, *cfg, logger)

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddPipelineService(scheduler.NewIntervalService(
		"poll", cfg.Poller.Interval, pipeline.RunPollCycle, logger))
	if announcer != nil {
		interval := cfg.Announce.Interval
		if interval <= 0 {
			interval = time.Minute
		}
		tree.AddPipelineService(scheduler.NewIntervalService(
			"announce", interval, pipeline.RunAnnounceCycle, logger))
	}

	if len(cfg.Report.Cron) > 0 && (poster != nil || outbox != nil) {
		// Report times follow US Eastern time like the leaderboard post
		// timestamps; fall back to UTC where tzdata is unavailable.
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			logging.Warn().Err(err).Msg("Timezone data unavailable, scheduling reports in UTC")
			loc = time.UTC
		}
		reports, err := scheduler.NewCronService(
			"reports", cfg.Report.Cron, loc, pipeline.RunReportCycle, logger)
		if err != nil {
			logging.Fatal().Err(err).Msg("Invalid report schedule")
		}
		tree.AddPublishingService(reports)
	}
	if outbox != nil {
		interval := cfg.Lemmy.DrainInterval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		tree.AddPublishingService(scheduler.NewIntervalService(
			"drain", interval, pipeline.RunDrainCycle, logger))
	}

	handler := api.NewHandler(store, states, cfg.Report, logger)
	router := api.NewRouter(handler, api.DefaultRouterConfig())
	tree.AddAPIService(api.NewService(router, cfg.Server, logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting StreamHerald supervisor tree")
	if err := tree.Serve(ctx); err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		logging.Error().Err(err).Msg("Supervisor tree stopped with error")
	}
	logging.Info().Msg("Shutdown complete")
}

// buildClients creates one poll client per configured source.
func buildClients(cfg *config.Config) ([]poller.Client, error) {
	clients := make([]poller.Client, 0, len(cfg.Poller.PeerTubeChannels)+len(cfg.Poller.OwncastInstances))

	httpClient := &http.Client{Timeout: cfg.Poller.Timeout}
	for _, channel := range cfg.Poller.PeerTubeChannels {
		client, err := poller.NewPeerTubeClient(channel, httpClient)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	for _, instance := range cfg.Poller.OwncastInstances {
		clients = append(clients, poller.NewOwncastClient(instance, httpClient))
	}
	return clients, nil
}
