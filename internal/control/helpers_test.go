package control

import (
	"context"
	"sync"
	"time"

	"github.com/aqualogic/pool-core/internal/point"
)

// fakeClock is a manually advanced Clock. Advancing fires due timers
// synchronously, in deadline order.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward, firing every timer whose deadline
// falls inside the window.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.deadline.After(target) {
				continue
			}
			if next == nil || t.deadline.Before(next.deadline) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		if next.deadline.After(c.now) {
			c.now = next.deadline
		}
		next.fired = true
		fn := next.fn
		c.mu.Unlock()

		fn()
	}
}

// pendingTimers reports how many timers are armed but not yet fired.
func (c *fakeClock) pendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// newTestScheduler builds a scheduler whose fired callbacks run
// synchronously, which is what direct evaluator tests want.
func newTestScheduler(clock Clock) *Scheduler {
	return NewScheduler(clock, func(fn func()) { fn() })
}

// testEnv bundles the pieces every evaluator test needs.
type testEnv struct {
	ctx    context.Context
	store  *point.Store
	clock  *fakeClock
	sched  *Scheduler
	owners *Ownership
}

func newTestEnv() *testEnv {
	clock := newFakeClock(time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC))
	return &testEnv{
		ctx:    context.Background(),
		store:  point.NewStore(),
		clock:  clock,
		sched:  newTestScheduler(clock),
		owners: NewOwnership(),
	}
}

// setMode writes the operating mode point.
func (e *testEnv) setMode(m Mode) {
	e.store.WriteString(e.ctx, point.Mode, string(m))
}

// pumpOn reads the pump actuator, defaulting to off.
func (e *testEnv) pumpOn() bool {
	return e.store.BoolOr(point.Pump, false)
}

// heaterOn reads the heater actuator, defaulting to off.
func (e *testEnv) heaterOn() bool {
	return e.store.BoolOr(point.Heater, false)
}
