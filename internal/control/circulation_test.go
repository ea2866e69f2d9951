package control

import (
	"context"
	"testing"
	"time"

	"github.com/aqualogic/pool-core/internal/point"
)

// fakeRuntimeLog is an in-memory point.RuntimeLog.
type fakeRuntimeLog struct {
	sessions []session
	open     *time.Time
}

type session struct {
	start, end time.Time
}

func (l *fakeRuntimeLog) RecordStart(_ context.Context, _ string, at time.Time) error {
	if l.open != nil {
		l.sessions = append(l.sessions, session{start: *l.open, end: at})
	}
	start := at
	l.open = &start
	return nil
}

func (l *fakeRuntimeLog) RecordStop(_ context.Context, at time.Time) error {
	if l.open != nil {
		l.sessions = append(l.sessions, session{start: *l.open, end: at})
		l.open = nil
	}
	return nil
}

func (l *fakeRuntimeLog) MinutesSince(_ context.Context, from, now time.Time) (float64, error) {
	var total time.Duration
	all := l.sessions
	if l.open != nil {
		all = append(all, session{start: *l.open, end: now})
	}
	for _, s := range all {
		start, end := s.start, s.end
		if start.Before(from) {
			start = from
		}
		if end.After(now) {
			end = now
		}
		if end.After(start) {
			total += end.Sub(start)
		}
	}
	return total.Minutes(), nil
}

func TestCirculationCountsDown(t *testing.T) {
	env := newTestEnv()
	log := &fakeRuntimeLog{}
	c := NewCirculation(env.store, nil, env.clock, log, time.UTC, 240)

	c.HandlePump(env.ctx, true)
	env.clock.Advance(90 * time.Minute)
	c.HandlePump(env.ctx, false)

	if got := env.store.FloatOr(point.CirculationRemaining, -1); got != 150 {
		t.Fatalf("remaining = %v, want 150", got)
	}
}

func TestCirculationOpenSessionCounts(t *testing.T) {
	env := newTestEnv()
	log := &fakeRuntimeLog{}
	c := NewCirculation(env.store, nil, env.clock, log, time.UTC, 240)

	c.HandlePump(env.ctx, true)
	env.clock.Advance(60 * time.Minute)
	c.Refresh(env.ctx)

	if got := env.store.FloatOr(point.CirculationRemaining, -1); got != 180 {
		t.Fatalf("remaining = %v, want 180 with the pump still running", got)
	}
}

func TestCirculationClampsAtZero(t *testing.T) {
	env := newTestEnv()
	log := &fakeRuntimeLog{}
	c := NewCirculation(env.store, nil, env.clock, log, time.UTC, 60)

	c.HandlePump(env.ctx, true)
	env.clock.Advance(3 * time.Hour)
	c.Refresh(env.ctx)

	if got := env.store.FloatOr(point.CirculationRemaining, -1); got != 0 {
		t.Fatalf("remaining = %v, want 0", got)
	}
}

func TestCirculationDisabledWithoutQuota(t *testing.T) {
	env := newTestEnv()
	c := NewCirculation(env.store, nil, env.clock, &fakeRuntimeLog{}, time.UTC, 0)

	c.Refresh(env.ctx)
	if _, known := env.store.Float(point.CirculationRemaining); known {
		t.Fatal("no quota, no published remaining")
	}
}
