// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package publish

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/streamherald/internal/config"
	"github.com/tomtom215/streamherald/internal/models"
	"github.com/tomtom215/streamherald/internal/statestore"
)

// MarkerStore is the slice of the event store the announcer needs: the
// published-marker log that makes announcements idempotent.
type MarkerStore interface {
	HasMarker(key string) bool
	AddMarker(key string) error
}

// peertubeTemplates and owncastTemplates are the announcement bodies,
// filled per post with a random emoji. The repetition and uneven hashtags
// are inherited from years of live posts; followers recognize them.
var peertubeTemplates = []string{
	"{emoji} {account} on PeerTube! {emoji}\nWatch here: {url}\n\n{description} #peertube #livestream #stream #twitch",
	"{emoji} Join {account} in the chaos! live now on PeerTube: {url} {emoji}\n\n{description} #peertube #livestream #stream #twitch",
	"🚨 {emoji} Attention! {account} live now! {emoji}\nCatch the stream here: {url}\n\n{description} #peertube #livestream #twitch",
	"🎥 {emoji} {account} is LIVE! Watch us play: {url}\n\n{description} #peertube #livestream #stream #twitch",
	"{emoji} Watch {account} live NOW on PeerTube: {url} {emoji}\n\n{description} #peertube #livestream #stream #twitch",
	"{emoji} {account} on PeerTube! {emoji}\nWatch here: {url}\n\n{description} #peertube #livestream #stream #twitch",
	"🔴 LIVE: {account} is streaming on PeerTube! {emoji}\nTune in: {url}\n\n{description} #peertube #livestream #stream",
	"{emoji} Don't miss out! {account} is live on PeerTube: {url}\n\n{description} #peertube #livestream #stream",
	"🎮 Game on! {account} is streaming live: {url} {emoji}\n\n{description} #peertube #livestream #gaming",
	"{emoji} Breaking: {account} just went live! Watch now: {url}\n\n{description} #peertube #livestream #stream",
	"📺 {account}'s stream is up! Join the fun here: {url} {emoji}\n\n{description} #peertube #livestream #stream",
	"{emoji} Live content alert! {account} is on air: {url}\n\n{description} #peertube #livestream #stream",
}

var owncastTemplates = []string{
	"{emoji} LIVE NOW {account} ! {emoji}\nWatch here: {url}\n\n{description} #owncast #livestream #stream #selfhosted",
	"{emoji} Join {account} the stream! We're live on Owncast: {url} {emoji}\n\n{description} #owncast #livestream #stream #selfhosted",
	"🚨 {emoji} {account} is live on Owncast! {emoji}\nCatch the stream here: {url}\n\n{description} #owncast #livestream #twitch",
	"🎥 {emoji} Streaming LIVE! Watch {account} on Owncast: {url}\n\n{description} #owncast #livestream #stream #selfhosted",
	"{emoji} Watch {account} live NOW on Owncast: {url} {emoji}\n\n{description} #owncast #livestream #stream #twitch",
	"🔴 {emoji} {account} is broadcasting LIVE on Owncast! {emoji}\nTune in now: {url}\n\n{description} #owncast #livestream #selfhosted",
	"{emoji} Live stream alert! {account} is on air via Owncast: {url} {emoji}\n\n{description} #owncast #livestream #stream",
	"📺 {emoji} Don't miss {account}'s live stream on Owncast! {emoji}\nWatch here: {url}\n\n{description} #owncast #livestream #selfhosted",
	"{emoji} {account} is going live on our self-hosted Owncast server! {emoji}\nJoin here: {url}\n\n{description} #owncast #livestream #selfhosted",
	"🎬 {emoji} Live content alert! {account} is streaming on Owncast: {url}\n\n{description} #owncast #livestream #stream #selfhosted",
}

var announceEmojis = []string{
	"🎥", "🔴", "✨", "🔥", "🎮", "🎤", "📺", "💥", "🕹️", "🎉", "🚀", "👾", "🥳", "💡", "🎶",
}

// Announcer publishes go-live posts, at most once per session.
type Announcer struct {
	poster  StatusPoster
	markers MarkerStore
	handles config.HandlesConfig
	rng     *rand.Rand
	logger  zerolog.Logger
}

// NewAnnouncer creates an announcer. The seed drives template and emoji
// selection only.
func NewAnnouncer(poster StatusPoster, markers MarkerStore, handles config.HandlesConfig, seed int64, logger zerolog.Logger) *Announcer {
	return &Announcer{
		poster:  poster,
		markers: markers,
		handles: handles,
		rng:     rand.New(rand.NewSource(seed)), //nolint:gosec // template variety, not security
		logger:  logger,
	}
}

// Announce publishes a go-live post for the source state unless one was
// already published for the same session anchor. Returns true when a post
// went out.
//
// The marker is written only after a successful post: a crash in between
// re-announces rather than silently skipping, matching the store's
// at-least-once publishing rule.
func (a *Announcer) Announce(ctx context.Context, state *statestore.SourceState) (bool, error) {
	if !state.Live || state.StartTime == nil {
		return false, nil
	}

	key := announceMarkerKey(state)
	if a.markers.HasMarker(key) {
		return false, nil
	}

	text := a.render(state)
	if err := a.poster.PostStatus(ctx, text); err != nil {
		return false, fmt.Errorf("announcing %s: %w", state.SourceID, err)
	}
	if err := a.markers.AddMarker(key); err != nil {
		return true, fmt.Errorf("recording announce marker for %s: %w", state.SourceID, err)
	}

	a.logger.Info().
		Str("source", state.SourceID).
		Str("platform", string(state.Platform)).
		Msg("Announced live stream")
	return true, nil
}

func (a *Announcer) render(state *statestore.SourceState) string {
	templates := peertubeTemplates
	if state.Platform == models.PlatformOwncast {
		templates = owncastTemplates
	}
	template := templates[a.rng.Intn(len(templates))]
	emoji := announceEmojis[a.rng.Intn(len(announceEmojis))]

	watchURL := state.WatchURL
	if watchURL == "" {
		watchURL = state.SourceID
	}
	description := state.Title

	text := strings.NewReplacer(
		"{emoji}", emoji,
		"{account}", a.handles.Handle(state.SourceID),
		"{url}", watchURL,
		"{description}", description,
	).Replace(template)

	// An empty title leaves a blank line above the hashtags; collapse it.
	return strings.ReplaceAll(text, "\n\n #", "\n\n#")
}

// announceMarkerKey identifies one announced session: the source plus its
// start anchor.
func announceMarkerKey(state *statestore.SourceState) string {
	return fmt.Sprintf("announce|%s|%d", state.SourceID, state.StartTime.Unix())
}
