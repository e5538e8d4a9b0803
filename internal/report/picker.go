// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package report

import (
	"fmt"
	"math/rand"

	"github.com/tomtom215/streamherald/internal/models"
)

// RotationStore is the slice of the event store the picker needs: the
// persisted history of recent report choices.
type RotationStore interface {
	RecentRotation(n int) ([]string, error)
	AppendRotation(choice string) error
}

// Picker selects the next report to publish, avoiding the most recent
// choices so consecutive posts vary.
type Picker struct {
	store        RotationStore
	rng          *rand.Rand
	rotationSize int
	candidates   []models.ReportChoice
}

// NewPicker creates a picker over the candidate set derived from
// windowsDays. Windowed report types produce one candidate per window;
// most-recent and shoutout are window-free and appear once with a
// nominal seven-day window.
func NewPicker(store RotationStore, windowsDays []int, rotationSize int, seed int64) *Picker {
	var candidates []models.ReportChoice
	for _, t := range models.AllReportTypes {
		switch t {
		case models.ReportMostRecent, models.ReportShoutout:
			candidates = append(candidates, models.ReportChoice{Type: t, WindowDays: 7})
		default:
			for _, days := range windowsDays {
				candidates = append(candidates, models.ReportChoice{Type: t, WindowDays: days})
			}
		}
	}
	return &Picker{
		store:        store,
		rng:          rand.New(rand.NewSource(seed)), //nolint:gosec // variety, not security
		rotationSize: rotationSize,
		candidates:   candidates,
	}
}

// Pick chooses the next report and records the choice in the rotation
// history before returning it. A crash between recording and posting
// skips one report rather than repeating one, which is the preferred
// failure direction.
func (p *Picker) Pick() (models.ReportChoice, error) {
	recent, err := p.store.RecentRotation(p.rotationSize)
	if err != nil {
		return models.ReportChoice{}, fmt.Errorf("reading rotation history: %w", err)
	}
	exclude := make(map[string]struct{}, len(recent))
	for _, c := range recent {
		exclude[c] = struct{}{}
	}

	eligible := make([]models.ReportChoice, 0, len(p.candidates))
	for _, c := range p.candidates {
		if _, skip := exclude[c.String()]; !skip {
			eligible = append(eligible, c)
		}
	}
	// When the history covers the whole candidate set, fall back to an
	// unrestricted draw rather than refusing to post.
	if len(eligible) == 0 {
		eligible = p.candidates
	}

	choice := eligible[p.rng.Intn(len(eligible))]
	if err := p.store.AppendRotation(choice.String()); err != nil {
		return models.ReportChoice{}, fmt.Errorf("recording rotation choice: %w", err)
	}
	return choice, nil
}

// Candidates exposes the candidate set, used by the preview API.
func (p *Picker) Candidates() []models.ReportChoice {
	out := make([]models.ReportChoice, len(p.candidates))
	copy(out, p.candidates)
	return out
}
