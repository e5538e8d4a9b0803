// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package report

import (
	"testing"

	"github.com/tomtom215/streamherald/internal/models"
)

type fakeRotationStore struct {
	history []string
}

func (f *fakeRotationStore) RecentRotation(n int) ([]string, error) {
	if len(f.history) <= n {
		return append([]string(nil), f.history...), nil
	}
	return append([]string(nil), f.history[len(f.history)-n:]...), nil
}

func (f *fakeRotationStore) AppendRotation(choice string) error {
	f.history = append(f.history, choice)
	return nil
}

func TestPickerCandidateSet(t *testing.T) {
	p := NewPicker(&fakeRotationStore{}, []int{7, 1}, 3, 1)

	// Five windowed types at two windows each, plus most_recent and shoutout.
	if got := len(p.Candidates()); got != 12 {
		t.Fatalf("len(Candidates()) = %d, want 12", got)
	}

	counts := make(map[string]int)
	for _, c := range p.Candidates() {
		counts[c.String()]++
	}
	for _, want := range []string{"longest:7", "longest:1", "most_recent:7", "shoutout:7", "total_time:1"} {
		if counts[want] != 1 {
			t.Errorf("candidate %q appears %d times, want 1", want, counts[want])
		}
	}
	if counts["most_recent:1"] != 0 {
		t.Error("most_recent is window-free and must not get a 1-day candidate")
	}
}

func TestPickAvoidsRecentChoices(t *testing.T) {
	store := &fakeRotationStore{}
	p := NewPicker(store, []int{7, 1}, 3, 99)

	for i := 0; i < 30; i++ {
		before, _ := store.RecentRotation(3)
		excluded := make(map[string]bool, len(before))
		for _, c := range before {
			excluded[c] = true
		}

		choice, err := p.Pick()
		if err != nil {
			t.Fatalf("Pick() error: %v", err)
		}
		if excluded[choice.String()] {
			t.Fatalf("pick %d repeated recent choice %q", i, choice)
		}
	}
}

func TestPickRecordsChoice(t *testing.T) {
	store := &fakeRotationStore{}
	p := NewPicker(store, []int{7}, 3, 5)

	choice, err := p.Pick()
	if err != nil {
		t.Fatalf("Pick() error: %v", err)
	}
	if len(store.history) != 1 || store.history[0] != choice.String() {
		t.Errorf("history = %v, want [%s]", store.history, choice)
	}
}

// With the rotation window covering the whole candidate set, the picker
// falls back to an unrestricted draw instead of refusing.
func TestPickFallbackWhenAllExcluded(t *testing.T) {
	store := &fakeRotationStore{}
	// Single window keeps the candidate set small: 5 windowed + 2 fixed.
	p := NewPicker(store, []int{7}, 7, 11)
	for _, c := range p.Candidates() {
		store.history = append(store.history, c.String())
	}

	choice, err := p.Pick()
	if err != nil {
		t.Fatalf("Pick() error: %v", err)
	}
	if choice.Type == "" {
		t.Error("fallback draw returned an empty choice")
	}
}

func TestPickIsWellFormed(t *testing.T) {
	p := NewPicker(&fakeRotationStore{}, []int{7, 1}, 3, 2)
	for i := 0; i < 20; i++ {
		choice, err := p.Pick()
		if err != nil {
			t.Fatalf("Pick() error: %v", err)
		}
		valid := false
		for _, rt := range models.AllReportTypes {
			if choice.Type == rt {
				valid = true
			}
		}
		if !valid {
			t.Fatalf("pick %d returned unknown type %q", i, choice.Type)
		}
		if choice.WindowDays != 1 && choice.WindowDays != 7 {
			t.Fatalf("pick %d returned window %d", i, choice.WindowDays)
		}
	}
}
