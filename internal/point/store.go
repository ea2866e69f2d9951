package point

import (
	"context"
	"sync"
	"time"
)

// Handler is the callback signature for point-change notifications.
//
// Handlers run synchronously on the writing goroutine, after the store's
// lock is released. They may write back into the store.
type Handler func(id string, v Value)

// Logger is the minimal logging interface the store needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Store is the shared control-point store.
//
// Every evaluator reads and writes typed points by ID. Writes are
// last-writer-wins: there is no transactional guard across points, and
// competing evaluators are expected to re-converge on their next cycle
// (the arbitration model relies on this, it is not an accident).
//
// A small durable subset (mode, actuator values) is mirrored to SQLite
// through the Repository so they survive restarts. Persistence failures
// are logged and otherwise ignored; the in-memory value always wins.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Change handlers are invoked outside the lock, in registration order.
type Store struct {
	mu     sync.RWMutex
	points map[string]Value

	// subscriptions per point ID, plus catch-all subscribers.
	subs    map[string][]Handler
	subsAll []Handler

	repo   Repository
	logger Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithRepository attaches the durable-point repository.
func WithRepository(repo Repository) Option {
	return func(s *Store) { s.repo = repo }
}

// WithLogger attaches a logger.
func WithLogger(logger Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithNow overrides the time source (tests).
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty point store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		points: make(map[string]Value),
		subs:   make(map[string][]Handler),
		logger: noopLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load restores durable points from the repository.
// Call once at startup, before evaluators run.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	values, err := s.repo.LoadAll(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for id, v := range values {
		if Durable(id) {
			s.points[id] = v
		}
	}
	s.mu.Unlock()

	return nil
}

// Get returns the current value of a point.
// Unwritten points return the invalid sentinel.
func (s *Store) Get(id string) Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.points[id]
}

// Bool returns a boolean point. ok is false when the point is unknown
// or carries a different kind.
func (s *Store) Bool(id string) (value, ok bool) {
	v := s.Get(id)
	if !v.Valid || v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}

// BoolOr returns a boolean point, or fallback when unknown.
func (s *Store) BoolOr(id string, fallback bool) bool {
	if v, ok := s.Bool(id); ok {
		return v
	}
	return fallback
}

// Float returns a numeric point. ok is false when the point is unknown
// or carries a different kind.
func (s *Store) Float(id string) (value float64, ok bool) {
	v := s.Get(id)
	if !v.Valid || v.Kind != KindFloat {
		return 0, false
	}
	return v.Float, true
}

// FloatOr returns a numeric point, or fallback when unknown.
func (s *Store) FloatOr(id string, fallback float64) float64 {
	if v, ok := s.Float(id); ok {
		return v
	}
	return fallback
}

// Str returns a string point. ok is false when the point is unknown
// or carries a different kind.
func (s *Store) Str(id string) (value string, ok bool) {
	v := s.Get(id)
	if !v.Valid || v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// Write stores a point value.
//
// The write always updates the stored timestamp. Change handlers fire
// only when the payload actually changed, so evaluators that publish
// unconditionally each cycle (fire-and-forget commands) do not cause
// notification storms. Durable points are persisted best-effort.
func (s *Store) Write(ctx context.Context, id string, v Value) {
	v.UpdatedAt = s.now()

	s.mu.Lock()
	prev, existed := s.points[id]
	s.points[id] = v
	changed := !existed || !prev.Equal(v)

	var handlers []Handler
	if changed {
		handlers = append(handlers, s.subs[id]...)
		handlers = append(handlers, s.subsAll...)
	}
	s.mu.Unlock()

	if changed && s.repo != nil && Durable(id) {
		if err := s.repo.Save(ctx, id, v); err != nil {
			s.logger.Warn("persisting point failed", "point", id, "error", err)
		}
	}

	for _, h := range handlers {
		h(id, v)
	}
}

// WriteBool is shorthand for Write with a boolean value.
func (s *Store) WriteBool(ctx context.Context, id string, b bool) {
	s.Write(ctx, id, Bool(b))
}

// WriteFloat is shorthand for Write with a numeric value.
func (s *Store) WriteFloat(ctx context.Context, id string, f float64) {
	s.Write(ctx, id, Float(f))
}

// WriteString is shorthand for Write with a string value.
func (s *Store) WriteString(ctx context.Context, id string, str string) {
	s.Write(ctx, id, String(str))
}

// SeedIfAbsent writes a value only when the point has never been written.
// Used at startup to apply config defaults without clobbering runtime
// changes that were persisted or already received.
func (s *Store) SeedIfAbsent(ctx context.Context, id string, v Value) {
	s.mu.RLock()
	_, exists := s.points[id]
	s.mu.RUnlock()

	if !exists {
		s.Write(ctx, id, v)
	}
}

// Subscribe registers a handler for changes to one point.
func (s *Store) Subscribe(id string, h Handler) {
	s.mu.Lock()
	s.subs[id] = append(s.subs[id], h)
	s.mu.Unlock()
}

// SubscribeAll registers a handler for changes to every point.
func (s *Store) SubscribeAll(h Handler) {
	s.mu.Lock()
	s.subsAll = append(s.subsAll, h)
	s.mu.Unlock()
}
