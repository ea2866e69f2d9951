package control

import (
	"sync"
	"time"
)

// timerKey identifies a pending timer by who owns it and what it is for.
type timerKey struct {
	owner   string
	purpose string
}

// pending is one scheduled callback. The pointer identity doubles as a
// generation token: a fire that raced with Cancel or a reschedule finds
// its entry gone from the map and drops itself.
type pending struct {
	timer Timer
	fn    func()
}

// Scheduler manages the deferred actions the evaluators rely on:
// afterrun releases, prerun completions, fault grace re-checks and
// notification coalescing. At most one timer exists per (owner,
// purpose); scheduling again replaces the previous deadline.
//
// Fired callbacks are handed to the dispatch function, which the Runner
// wires to its serialized evaluation loop. A callback that raced with
// Cancel is dropped before it runs.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Scheduler struct {
	clock    Clock
	dispatch func(func())

	mu      sync.Mutex
	pending map[timerKey]*pending
}

// NewScheduler creates a scheduler. dispatch receives fired callbacks
// and must execute them; the Runner passes its Enqueue method so they
// run on the evaluation goroutine.
func NewScheduler(clock Clock, dispatch func(func())) *Scheduler {
	return &Scheduler{
		clock:    clock,
		dispatch: dispatch,
		pending:  make(map[timerKey]*pending),
	}
}

// Schedule arranges for fn to run after d. Any previous timer for the
// same (owner, purpose) is cancelled and replaced, which is what makes
// "restart the afterrun" a single call site.
func (s *Scheduler) Schedule(owner, purpose string, d time.Duration, fn func()) {
	key := timerKey{owner: owner, purpose: purpose}

	s.mu.Lock()
	if prev, ok := s.pending[key]; ok {
		prev.timer.Stop()
	}

	entry := &pending{fn: fn}
	entry.timer = s.clock.AfterFunc(d, func() {
		s.fire(key, entry)
	})
	s.pending[key] = entry
	s.mu.Unlock()
}

// Cancel stops the pending timer for (owner, purpose), if any.
func (s *Scheduler) Cancel(owner, purpose string) {
	key := timerKey{owner: owner, purpose: purpose}

	s.mu.Lock()
	if entry, ok := s.pending[key]; ok {
		entry.timer.Stop()
		delete(s.pending, key)
	}
	s.mu.Unlock()
}

// Active reports whether a timer is pending for (owner, purpose).
func (s *Scheduler) Active(owner, purpose string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[timerKey{owner: owner, purpose: purpose}]
	return ok
}

// Stop cancels every pending timer. Called on shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for key, entry := range s.pending {
		entry.timer.Stop()
		delete(s.pending, key)
	}
	s.mu.Unlock()
}

// fire runs when the underlying timer expires. The entry identity check
// filters out fires that lost a race with Cancel or a reschedule.
func (s *Scheduler) fire(key timerKey, entry *pending) {
	s.mu.Lock()
	current, ok := s.pending[key]
	if !ok || current != entry {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.mu.Unlock()

	s.dispatch(entry.fn)
}
