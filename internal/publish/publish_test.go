// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package publish

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/streamherald/internal/config"
	"github.com/tomtom215/streamherald/internal/models"
	"github.com/tomtom215/streamherald/internal/statestore"
)

func TestMastodonPostStatus(t *testing.T) {
	var gotAuth, gotStatus, gotVisibility string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/statuses" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error: %v", err)
		}
		gotAuth = r.Header.Get("Authorization")
		gotStatus = r.PostForm.Get("status")
		gotVisibility = r.PostForm.Get("visibility")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id": "1"}`))
	}))
	defer srv.Close()

	client := NewMastodonClient(config.MastodonConfig{
		InstanceURL: srv.URL,
		AccessToken: "token-123",
	})
	if err := client.PostStatus(context.Background(), "hello fediverse"); err != nil {
		t.Fatalf("PostStatus() error: %v", err)
	}

	if gotAuth != "Bearer token-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotStatus != "hello fediverse" {
		t.Errorf("status = %q", gotStatus)
	}
	if gotVisibility != "public" {
		t.Errorf("visibility = %q, want default public", gotVisibility)
	}
}

func TestMastodonPostStatusRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Text limit exceeded"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewMastodonClient(config.MastodonConfig{InstanceURL: srv.URL, AccessToken: "t"})
	err := client.PostStatus(context.Background(), strings.Repeat("x", 600))
	if err == nil || !strings.Contains(err.Error(), "422") {
		t.Errorf("PostStatus() error = %v, want status 422", err)
	}
}

type recordingPoster struct {
	posts []string
	err   error
}

func (r *recordingPoster) PostStatus(ctx context.Context, text string) error {
	if r.err != nil {
		return r.err
	}
	r.posts = append(r.posts, text)
	return nil
}

type memMarkers struct {
	keys map[string]bool
}

func newMemMarkers() *memMarkers { return &memMarkers{keys: make(map[string]bool)} }

func (m *memMarkers) HasMarker(key string) bool { return m.keys[key] }

func (m *memMarkers) AddMarker(key string) error {
	m.keys[key] = true
	return nil
}

func liveState() *statestore.SourceState {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	return &statestore.SourceState{
		SourceID:  "https://cast.example",
		Platform:  models.PlatformOwncast,
		Live:      true,
		StartTime: &start,
		Title:     "late night",
		WatchURL:  "https://cast.example",
	}
}

func testAnnouncer(poster StatusPoster, markers MarkerStore) *Announcer {
	handles := config.HandlesConfig{
		Accounts: map[string]string{"https://cast.example": "@bob@fedi.example"},
		Fallback: "@unknown",
	}
	return NewAnnouncer(poster, markers, handles, 42, zerolog.Nop())
}

func TestAnnouncePostsOncePerSession(t *testing.T) {
	poster := &recordingPoster{}
	markers := newMemMarkers()
	a := testAnnouncer(poster, markers)
	state := liveState()

	posted, err := a.Announce(context.Background(), state)
	if err != nil {
		t.Fatalf("Announce() error: %v", err)
	}
	if !posted || len(poster.posts) != 1 {
		t.Fatalf("posted = %v, posts = %d", posted, len(poster.posts))
	}

	text := poster.posts[0]
	if !strings.Contains(text, "@bob@fedi.example") {
		t.Errorf("post missing handle: %q", text)
	}
	if !strings.Contains(text, "https://cast.example") {
		t.Errorf("post missing watch URL: %q", text)
	}
	if !strings.Contains(text, "#owncast") {
		t.Errorf("post missing platform hashtags: %q", text)
	}

	// Same session again: marker suppresses the repeat.
	posted, err = a.Announce(context.Background(), state)
	if err != nil {
		t.Fatalf("second Announce() error: %v", err)
	}
	if posted || len(poster.posts) != 1 {
		t.Errorf("second announce posted again (posted=%v, posts=%d)", posted, len(poster.posts))
	}
}

func TestAnnounceNewSessionPostsAgain(t *testing.T) {
	poster := &recordingPoster{}
	a := testAnnouncer(poster, newMemMarkers())

	state := liveState()
	if _, err := a.Announce(context.Background(), state); err != nil {
		t.Fatalf("Announce() error: %v", err)
	}

	nextStart := state.StartTime.Add(4 * time.Hour)
	state.StartTime = &nextStart
	posted, err := a.Announce(context.Background(), state)
	if err != nil {
		t.Fatalf("Announce() error: %v", err)
	}
	if !posted || len(poster.posts) != 2 {
		t.Errorf("new session anchor should post again (posted=%v, posts=%d)", posted, len(poster.posts))
	}
}

func TestAnnounceSkipsIdleSource(t *testing.T) {
	poster := &recordingPoster{}
	a := testAnnouncer(poster, newMemMarkers())

	state := liveState()
	state.Live = false
	if posted, _ := a.Announce(context.Background(), state); posted {
		t.Error("idle source must not be announced")
	}

	state = liveState()
	state.StartTime = nil
	if posted, _ := a.Announce(context.Background(), state); posted {
		t.Error("source without a start anchor must not be announced")
	}
}

// A failed post leaves no marker, so the next cycle retries.
func TestAnnounceFailureLeavesNoMarker(t *testing.T) {
	poster := &recordingPoster{err: errors.New("instance down")}
	markers := newMemMarkers()
	a := testAnnouncer(poster, markers)
	state := liveState()

	if _, err := a.Announce(context.Background(), state); err == nil {
		t.Fatal("Announce() should surface the post failure")
	}
	if len(markers.keys) != 0 {
		t.Errorf("failed announce wrote markers: %v", markers.keys)
	}

	poster.err = nil
	posted, err := a.Announce(context.Background(), state)
	if err != nil {
		t.Fatalf("retry Announce() error: %v", err)
	}
	if !posted {
		t.Error("retry after failure should post")
	}
}

func TestAnnounceUsesPeerTubeTemplates(t *testing.T) {
	poster := &recordingPoster{}
	a := testAnnouncer(poster, newMemMarkers())

	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	state := &statestore.SourceState{
		SourceID:  "https://tube.example/a/alice/video-channels",
		Platform:  models.PlatformPeerTube,
		Live:      true,
		StartTime: &start,
		WatchURL:  "https://tube.example/videos/watch/aaa",
	}

	if _, err := a.Announce(context.Background(), state); err != nil {
		t.Fatalf("Announce() error: %v", err)
	}
	if !strings.Contains(poster.posts[0], "#peertube") {
		t.Errorf("PeerTube announce used wrong template family: %q", poster.posts[0])
	}
}
