// StreamHerald - Fediverse Live-Stream Session Tracking and Leaderboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamherald

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestIntervalServiceRunsImmediately(t *testing.T) {
	var runs atomic.Int64
	ran := make(chan struct{})

	svc := NewIntervalService("test", time.Hour, func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			close(ran)
		}
		return nil
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("cycle did not run on start")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestIntervalServiceTicks(t *testing.T) {
	var runs atomic.Int64
	svc := NewIntervalService("test", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("cycle errors must not stop the schedule")
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d runs before deadline", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestNewCronServiceValidation(t *testing.T) {
	nop := func(ctx context.Context) error { return nil }

	if _, err := NewCronService("reports", nil, time.UTC, nop, zerolog.Nop()); err == nil {
		t.Error("NewCronService() with no expressions should fail")
	}
	if _, err := NewCronService("reports", []string{"bogus"}, time.UTC, nop, zerolog.Nop()); err == nil {
		t.Error("NewCronService() with an invalid expression should fail")
	}
	if _, err := NewCronService("reports", []string{"0 16 * * *", "0 21 * * *"}, time.UTC, nop, zerolog.Nop()); err != nil {
		t.Errorf("NewCronService() error: %v", err)
	}
}

func TestCronServiceNextPicksSoonest(t *testing.T) {
	svc, err := NewCronService("reports", []string{"0 21 * * *", "0 16 * * *"}, time.UTC,
		func(ctx context.Context) error { return nil }, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewCronService() error: %v", err)
	}

	after := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	got := svc.next(after)
	want := time.Date(2026, 3, 4, 16, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("next() = %v, want %v", got, want)
	}
}

func TestCronServiceStopsOnCancel(t *testing.T) {
	svc, err := NewCronService("reports", []string{"0 16 * * *"}, time.UTC,
		func(ctx context.Context) error { return nil }, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewCronService() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
