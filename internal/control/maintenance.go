package control

import (
	"context"
	"time"

	"github.com/aqualogic/pool-core/internal/point"
)

// Maintenance handles the manual service paths: the maintenance hold,
// the timed backwash cycle, and enforcement of the off mode.
//
// Entering maintenance forces the mode to manual and both actuators
// off; every automatic evaluator then sees the mode mismatch and
// no-ops. The automatic mode that was active before the hold is
// remembered and restored when maintenance ends.
type Maintenance struct {
	store *point.Store
	log   Logger
	sched *Scheduler

	backwash time.Duration

	// priorMode is the automatic mode to restore after maintenance,
	// or empty when there is nothing to restore.
	priorMode Mode
}

// NewMaintenance creates the maintenance handler. backwashMin is the
// fixed backwash cycle length in minutes.
func NewMaintenance(store *point.Store, log Logger, sched *Scheduler, backwashMin int) *Maintenance {
	if log == nil {
		log = noopLogger{}
	}
	return &Maintenance{
		store:    store,
		log:      log,
		sched:    sched,
		backwash: time.Duration(backwashMin) * time.Minute,
	}
}

// HandleMaintenance reacts to the maintenance flag changing.
func (m *Maintenance) HandleMaintenance(ctx context.Context, active bool) {
	if active {
		mode := currentMode(m.store)
		if mode.Automatic() {
			m.priorMode = mode
		} else {
			m.priorMode = ""
		}

		m.log.Info("maintenance hold", "prior_mode", string(mode))
		m.store.WriteString(ctx, point.Mode, string(ModeManual))
		m.store.WriteBool(ctx, point.Pump, false)
		m.store.WriteBool(ctx, point.Heater, false)
		return
	}

	if m.priorMode != "" {
		m.log.Info("maintenance over, restoring mode", "mode", string(m.priorMode))
		m.store.WriteString(ctx, point.Mode, string(m.priorMode))
		m.priorMode = ""
	}
}

// HandleBackwash reacts to the backwash flag changing. A backwash is a
// manual service action: it runs the pump flat out for a fixed period
// and then shuts it off and clears its own flag. Not honored while an
// automatic mode is driving the pump.
func (m *Maintenance) HandleBackwash(ctx context.Context, active bool) {
	if !active {
		if m.sched.Active("maintenance", "backwash") {
			m.sched.Cancel("maintenance", "backwash")
			m.log.Info("backwash cancelled")
			m.store.WriteBool(ctx, point.Pump, false)
		}
		return
	}

	if currentMode(m.store).Automatic() {
		m.log.Warn("backwash ignored, an automatic mode is active")
		m.store.WriteBool(ctx, point.Backwash, false)
		return
	}
	if m.backwash <= 0 {
		m.store.WriteBool(ctx, point.Backwash, false)
		return
	}

	m.log.Info("backwash started", "duration", m.backwash)
	m.store.WriteBool(ctx, point.Pump, true)
	m.sched.Schedule("maintenance", "backwash", m.backwash, func() {
		m.log.Info("backwash finished")
		m.store.WriteBool(ctx, point.Pump, false)
		m.store.WriteBool(ctx, point.Backwash, false)
	})
}

// HandleMode reacts to mode changes. Off means off: whatever state the
// actuators were left in, they go dark. Any mode other than auto also
// forces the heater off, since only the auto-mode heat evaluator keeps
// the pump running for it; a heater left on across a mode change would
// sit without guaranteed flow.
func (m *Maintenance) HandleMode(ctx context.Context, mode Mode) {
	if mode == ModeOff {
		m.store.WriteBool(ctx, point.Pump, false)
		m.store.WriteBool(ctx, point.Heater, false)
		m.store.WriteBool(ctx, point.PumpSwitch, false)
		return
	}
	if mode != ModeAuto && m.store.BoolOr(point.Heater, false) {
		m.log.Info("mode change, heater off", "mode", string(mode))
		m.store.WriteBool(ctx, point.Heater, false)
	}
}
