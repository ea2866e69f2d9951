package control

import (
	"context"

	"github.com/aqualogic/pool-core/internal/point"
)

// Solar circulates pool water through the solar collector whenever the
// collector is hot enough to add heat.
//
// The run decision is written to the pump every cycle as a
// fire-and-forget command rather than only on transitions; the point
// store suppresses duplicate notifications, and a competing evaluator
// that flips the pump will simply be overwritten on the next cycle.
//
// A separate overheat warning machine watches the collector
// temperature independently of the run decision. The warning clears
// only once the collector has cooled to 90% of the warning threshold,
// so a collector sitting right at the limit does not flap.
//
// Run decision is active in auto mode only; the warning machine runs
// regardless of mode. A pump held by the heat evaluator outranks the
// solar off decision: a cold collector must not switch off a pump that
// is running for the heater.
type Solar struct {
	store  *point.Store
	log    Logger
	owners *Ownership
	notify func(msg string)
}

// NewSolar creates the solar evaluator. notify, when non-nil, is called
// with a human-readable message when the overheat warning is raised.
func NewSolar(store *point.Store, log Logger, owners *Ownership, notify func(msg string)) *Solar {
	if log == nil {
		log = noopLogger{}
	}
	return &Solar{store: store, log: log, owners: owners, notify: notify}
}

// Evaluate runs one solar decision.
func (s *Solar) Evaluate(ctx context.Context) {
	collector, collectorKnown := s.store.Float(point.CollectorTemp)

	if collectorKnown {
		s.evaluateWarning(ctx, collector)
	}

	if !s.store.BoolOr(point.SolarEnabled, false) {
		return
	}
	if currentMode(s.store) != ModeAuto {
		return
	}
	if !collectorKnown {
		s.log.Debug("solar: no collector temperature reading, skipping")
		return
	}
	pool, ok := s.store.Float(point.PoolTemp)
	if !ok {
		s.log.Debug("solar: no pool temperature reading, skipping")
		return
	}

	tempOn, ok := s.store.Float(point.SolarTempOn)
	if !ok {
		return
	}
	tempOff := s.store.FloatOr(point.SolarTempOff, tempOn)

	run := s.store.BoolOr(point.Pump, false)
	switch {
	case collector >= tempOn && collector > pool:
		run = true
	case collector <= tempOff || collector <= pool:
		run = false
	}

	if !run && s.owners.Holder() == OwnerHeat {
		// The heat evaluator is running the pump for the heater; an
		// off-write here would cut flow and tear the heating run down.
		return
	}
	s.store.WriteBool(ctx, point.Pump, run)
}

// evaluateWarning runs the overheat warning state machine.
func (s *Solar) evaluateWarning(ctx context.Context, collector float64) {
	if !s.store.BoolOr(point.SolarWarnEnabled, false) {
		return
	}
	warnAt, ok := s.store.Float(point.SolarWarnThreshold)
	if !ok || warnAt <= 0 {
		return
	}

	warned := s.store.BoolOr(point.SolarWarning, false)

	switch {
	case !warned && collector >= warnAt:
		s.log.Warn("solar collector overheat",
			"collector_c", collector, "threshold_c", warnAt)
		s.store.WriteBool(ctx, point.SolarWarning, true)
		if s.notify != nil {
			s.notify("solar collector overheat")
		}

	case warned && collector <= warnAt*solarWarnClearFactor:
		s.log.Info("solar collector overheat cleared",
			"collector_c", collector)
		s.store.WriteBool(ctx, point.SolarWarning, false)
	}
}

// solarWarnClearFactor sets the clear point relative to the warning
// threshold. The gap absorbs sensor noise around the limit.
const solarWarnClearFactor = 0.9
