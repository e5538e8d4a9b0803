// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package report

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/tomtom215/streamherald/internal/config"
	"github.com/tomtom215/streamherald/internal/metrics"
	"github.com/tomtom215/streamherald/internal/models"
)

// Renderer formats ranked rows into length-bounded leaderboard posts.
type Renderer struct {
	handles config.HandlesConfig
	rng     *rand.Rand
	estZone *time.Location
}

// NewRenderer creates a renderer. The seed feeds shoutout header selection;
// pass a fixed seed in tests for deterministic output.
func NewRenderer(handles config.HandlesConfig, seed int64) *Renderer {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// Recency rows fall back to UTC when tzdata is unavailable.
		loc = time.UTC
	}
	return &Renderer{
		handles: handles,
		rng:     rand.New(rand.NewSource(seed)), //nolint:gosec // math/rand is fine for header rotation
		estZone: loc,
	}
}

// headers keyed by report type; index 0 is the weekly copy, index 1 the
// 24-hour copy. Kept byte-for-byte from the posts the bot has always made.
var headers = map[models.ReportType][2]string{
	models.ReportLongest: {
		"🏆 Longest Streams This Week 🏆\n\n",
		"🏆 Longest Streams of past 24 hours 🏆\n\n",
	},
	models.ReportShortest: {
		"🏃‍♂️ Shortest Streams This Week (15+ minutes) 🏃‍♀\n\n",
		"🏃‍♂️ Shortest Streams past 24 hours 🏃‍♀\n\n",
	},
	models.ReportMostViewed: {
		"👀 Most Viewed This Week 👀\n\n",
		"👀 Most Viewed of past 24 hours 👀\n\n",
	},
	models.ReportMostFrequent: {
		"📡 Most Active Streamers This Week 📡\n\n",
		"📡 Most Active Streamers This 24 Hours 📡\n\n",
	},
	models.ReportMostRecent: {
		"⏳ Most Recent Streams ⏳\n\n",
		"⏳ Most Recent Streams ⏳\n\n",
	},
	models.ReportTotalTime: {
		"🕒 Most Devoted streamer: Hours Streamed This Week 🕒\n\n",
		"🕒 Hours Streamed This 24 hours 🕒\n\n",
	},
}

// suffixes are the fixed hashtag footers appended after the row list.
var suffixes = map[models.ReportType]string{
	models.ReportLongest:      "#StreamRankings #Mastodon #owncast #peertube",
	models.ReportShortest:     "#ShortestStreams #Mastodon",
	models.ReportMostViewed:   "#StreamViewRankings #Mastodon #owncast #peertube",
	models.ReportMostFrequent: "#StreamFrequency #Mastodon #owncast #peertube",
	models.ReportMostRecent:   "#RecentStreams #Mastodon #owncast #peertube",
	models.ReportTotalTime:    "#TotalStreamTime #Mastodon #owncast #peertube",
	models.ReportShoutout:     "#StreamerShoutout #Mastodon #owncast #peertube",
}

// shoutoutHeaders rotate through the joke leaderboards the shoutout post
// uses in place of a metric.
var shoutoutHeaders = []string{
	"🎸 Longest Air Guitar Solo Champions 🎸",
	"🤣 Streamers with Most I-Frames 🤣",
	"🔥 Biggest Sword collection 🔥",
	"👑 Most Time Spent setting up stream 👑",
	"🚫 Most Creative Excuses for Lag 🚫",
	"🤖 least likely to be replaced by AGI 🤖",
	"RNG's Favorite Streamer",
	"🎯 Most Back-Flips on Stream 🎯",
	"🎭 The Drama Kings and Queens of Streaming 🎭",
	"🌟 Streamers Most Likely to Forget They're Live 🌟",
	"🎮 Best Button-Mashing Performances 🎮",
	"🕺 Longest Dance Break During a Stream 🕺",
	"🎤 Karaoke Legends in the Making 🎤",
	"🏆 MVPs of Talking to Themselves 🏆",
}

// header returns the heading for a choice.
func (r *Renderer) header(choice models.ReportChoice) string {
	if choice.Type == models.ReportShoutout {
		return shoutoutHeaders[r.rng.Intn(len(shoutoutHeaders))] + "\n\n"
	}
	pair, ok := headers[choice.Type]
	if !ok {
		return ""
	}
	if choice.WindowDays == 7 {
		return pair[0]
	}
	return pair[1]
}

// entry formats one ranked row. The rank separators vary per report type;
// the variation is deliberate, readers recognize the post kind by it.
func (r *Renderer) entry(choice models.ReportChoice, rank int, row models.RankedRow) string {
	handle := r.handles.Handle(row.AccountURL)
	switch choice.Type {
	case models.ReportMostViewed:
		return fmt.Sprintf("%d| %s - %d views\n%s\n\n", rank, handle, row.Value, row.AccountURL)
	case models.ReportMostFrequent:
		return fmt.Sprintf("%d. %s - %d streams\n%s\n\n", rank, handle, row.Value, row.AccountURL)
	case models.ReportMostRecent:
		ts := time.Unix(row.Value, 0).In(r.estZone)
		return fmt.Sprintf("%d) %s - %s\n%s\n\n", rank, handle, ts.Format("2006-01-02 03:04 PM MST"), row.AccountURL)
	case models.ReportShoutout:
		return fmt.Sprintf("%d. %s\n%s\n\n", rank, handle, row.AccountURL)
	default:
		return fmt.Sprintf("%d. %s - %s\n%s\n\n", rank, handle, models.FormatDuration(row.Value), row.AccountURL)
	}
}

// Render builds the post text for a choice within charBudget.
//
// Rows are appended in order while the running length plus the reserved
// suffix still fits; the list is truncated, never an individual entry. The
// fixed hashtag suffix is always appended last, so the longest prefix of
// rows that fits is exactly what gets published.
func (r *Renderer) Render(choice models.ReportChoice, rows []models.RankedRow, charBudget int) models.Report {
	suffix := suffixes[choice.Type]

	var b strings.Builder
	b.WriteString(r.header(choice))

	included := 0
	for i, row := range rows {
		entry := r.entry(choice, i+1, row)
		if b.Len()+len(entry)+len(suffix) > charBudget {
			metrics.ReportRowsTruncated.Add(float64(len(rows) - i))
			break
		}
		b.WriteString(entry)
		included++
	}
	b.WriteString(suffix)

	text := b.String()
	if len(text) > charBudget {
		// Degenerate budgets smaller than header+suffix still must honor
		// the bound; truncate rather than exceed it.
		text = text[:charBudget]
	}

	return models.Report{
		Choice: choice,
		Rows:   rows[:included],
		Title:  r.Title(choice, time.Now().UTC()),
		Text:   text,
	}
}

// Title renders a post title carrying the covered date range, used by the
// Lemmy layer ("Longest Streams (03/01/2026 - 03/08/2026)").
func (r *Renderer) Title(choice models.ReportChoice, now time.Time) string {
	start := now.AddDate(0, 0, -choice.WindowDays)
	label := titleLabels[choice.Type]
	if label == "" {
		label = "Stream Leaderboard"
	}
	return fmt.Sprintf("%s (%s - %s)", label, start.Format("01/02/2006"), now.Format("01/02/2006"))
}

var titleLabels = map[models.ReportType]string{
	models.ReportLongest:      "Longest Streams",
	models.ReportShortest:     "Shortest Streams",
	models.ReportMostViewed:   "Most Viewed",
	models.ReportMostFrequent: "Most Active Streamers",
	models.ReportMostRecent:   "Most Recent Streams",
	models.ReportTotalTime:    "Total Stream Time",
	models.ReportShoutout:     "Streamer Shoutout",
}

// ShuffledAccounts builds shoutout rows from the distinct accounts in
// events, in random order.
func (r *Renderer) ShuffledAccounts(events []models.CanonicalEvent) []models.RankedRow {
	seen := make(map[string]struct{})
	var accounts []string
	for _, e := range events {
		if _, ok := seen[e.AccountURL]; ok {
			continue
		}
		seen[e.AccountURL] = struct{}{}
		accounts = append(accounts, e.AccountURL)
	}
	r.rng.Shuffle(len(accounts), func(i, j int) {
		accounts[i], accounts[j] = accounts[j], accounts[i]
	})

	rows := make([]models.RankedRow, len(accounts))
	for i, account := range accounts {
		rows[i] = models.RankedRow{AccountURL: account}
	}
	return rows
}
