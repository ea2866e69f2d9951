package control

import (
	"context"
	"time"

	"github.com/aqualogic/pool-core/internal/point"
)

// Heat drives the pool heater and orchestrates the pump around it: the
// pump must run before the heater is enabled (prerun, so the exchanger
// has flow) and keeps running after the heater stops (afterrun, so
// residual heat is flushed out).
//
// The state machine is layered. Season and maintenance blocks come
// first and override everything, including a missing temperature
// reading. Then the user-level off states (heater disabled, pool at
// the max-temperature ceiling). Only after that is the heating decision
// itself taken, as a plain poolTemp < target comparison with no
// hysteresis: a single crossing flips the state.
//
// Ownership over the shared pump is advisory and claimed only when
// this evaluator turned the pump on itself. An external pump-off is
// honored by silently clearing the claim, never by fighting it.
//
// Active in auto mode only.
type Heat struct {
	store  *point.Store
	log    Logger
	sched  *Scheduler
	owners *Ownership

	// desired is the last heater state this evaluator asked for.
	desired bool

	// prerunning is set while a prerun timer is in flight and heater
	// activation is deferred.
	prerunning bool
}

// NewHeat creates the heat demand evaluator.
func NewHeat(store *point.Store, log Logger, sched *Scheduler, owners *Ownership) *Heat {
	if log == nil {
		log = noopLogger{}
	}
	return &Heat{store: store, log: log, sched: sched, owners: owners}
}

// Evaluate runs one heating decision.
func (h *Heat) Evaluate(ctx context.Context) {
	if h.observeExternalOff(ctx) {
		// Stand down for this cycle; if demand persists the next
		// evaluation starts over cleanly, prerun included.
		return
	}

	if !h.store.BoolOr(point.SeasonActive, false) {
		h.off(ctx, "blocked: out of season")
		return
	}
	if h.store.BoolOr(point.MaintenanceActive, false) {
		h.off(ctx, "blocked: maintenance")
		return
	}

	if currentMode(h.store) != ModeAuto {
		// Not our mode: no actuator writes, just walk away from any
		// local state so a later return to auto starts clean.
		h.standDown(ctx)
		return
	}

	if !h.store.BoolOr(point.HeatEnabled, false) {
		h.off(ctx, "off: disabled")
		return
	}

	pool, ok := h.store.Float(point.PoolTemp)
	if !ok {
		h.log.Debug("heat: no pool temperature reading, skipping")
		return
	}

	if max, known := h.store.Float(point.HeatMax); known && pool >= max {
		h.off(ctx, "off: max temperature")
		return
	}

	target, ok := h.store.Float(point.HeatTarget)
	if !ok {
		return
	}

	if pool < target {
		h.heat(ctx)
	} else {
		h.off(ctx, "target reached")
	}
}

// observeExternalOff detects someone else switching the pump off while
// we held the claim. The claim is dropped without a recovery attempt,
// and the heater must not keep running without flow.
func (h *Heat) observeExternalOff(ctx context.Context) bool {
	if !h.owners.Held(OwnerHeat) {
		return false
	}
	if h.store.BoolOr(point.Pump, false) {
		return false
	}

	h.log.Info("heat: pump switched off externally, releasing claim")
	h.owners.Release(OwnerHeat)
	h.store.WriteBool(ctx, point.HeatOwnsPump, false)
	h.sched.Cancel("heat", purposeAfterrun)
	h.cancelPrerun()

	h.desired = false
	if h.store.BoolOr(point.Heater, false) {
		h.store.WriteBool(ctx, point.Heater, false)
	}
	h.setStatus(ctx, "released")
	return true
}

// heat is the start transition: ensure flow, then enable the heater.
func (h *Heat) heat(ctx context.Context) {
	h.sched.Cancel("heat", purposeAfterrun)

	if h.prerunning {
		h.setStatus(ctx, "prerun")
		return
	}

	pumpOn := h.store.BoolOr(point.Pump, false)
	prerun := time.Duration(h.store.FloatOr(point.HeatPrerunMin, 0)) * time.Minute

	if !pumpOn {
		h.log.Info("heat: pump on")
		h.store.WriteBool(ctx, point.Pump, true)
		h.owners.Claim(OwnerHeat)
		h.store.WriteBool(ctx, point.HeatOwnsPump, true)

		if prerun > 0 {
			// Heater stays off until the prerun elapses and the
			// decision is taken again with flow established.
			h.prerunning = true
			h.log.Info("heat: prerun started", "duration", prerun)
			h.setStatus(ctx, "prerun")
			h.sched.Schedule("heat", purposePrerun, prerun, func() {
				h.prerunDone(ctx)
			})
			return
		}
	}

	if !h.desired {
		h.desired = true
		h.log.Info("heat: heater on")
		h.store.WriteBool(ctx, point.Heater, true)
	}
	h.setStatus(ctx, "heating")
}

// prerunDone re-enters the decision once flow has been established.
func (h *Heat) prerunDone(ctx context.Context) {
	h.prerunning = false
	h.Evaluate(ctx)
}

// off is the stop transition, shared by the blocked, disabled and
// target-reached paths. The heater goes off immediately; the pump is
// released only if we own it, and only after the afterrun.
func (h *Heat) off(ctx context.Context, reason string) {
	wasPrerunning := h.prerunning
	h.cancelPrerun()

	// An aborted prerun leaves an owned pump running with the heater
	// never enabled; that pump still needs releasing.
	if h.desired || wasPrerunning {
		h.desired = false
		if h.store.BoolOr(point.Heater, false) {
			h.log.Info("heat: heater off", "reason", reason)
			h.store.WriteBool(ctx, point.Heater, false)
		}

		if h.owners.Held(OwnerHeat) {
			afterrun := time.Duration(h.store.FloatOr(point.HeatAfterrunMin, 0)) * time.Minute
			if afterrun > 0 {
				h.log.Info("heat: afterrun started", "duration", afterrun)
				h.sched.Schedule("heat", purposeAfterrun, afterrun, func() {
					h.afterrunExpired(ctx)
				})
			} else {
				h.releasePump(ctx)
			}
		}
	}

	if h.sched.Active("heat", purposeAfterrun) {
		h.setStatus(ctx, "afterrun")
	} else {
		h.setStatus(ctx, reason)
	}
}

// standDown forgets local state without actuator writes. Used on mode
// mismatch, where the actuators belong to someone else.
func (h *Heat) standDown(ctx context.Context) {
	h.cancelPrerun()
	h.sched.Cancel("heat", purposeAfterrun)
	h.desired = false
	if h.owners.Held(OwnerHeat) {
		h.owners.Release(OwnerHeat)
		h.store.WriteBool(ctx, point.HeatOwnsPump, false)
	}
	h.setStatus(ctx, "inactive")
}

// afterrunExpired releases the pump unless demand returned meanwhile.
func (h *Heat) afterrunExpired(ctx context.Context) {
	if h.desired {
		return
	}
	h.releasePump(ctx)
	h.setStatus(ctx, "idle")
}

// releasePump turns the owned pump off and clears the claim.
func (h *Heat) releasePump(ctx context.Context) {
	if !h.owners.Held(OwnerHeat) {
		return
	}
	if h.store.BoolOr(point.Pump, false) {
		h.log.Info("heat: pump off")
		h.store.WriteBool(ctx, point.Pump, false)
	}
	h.owners.Release(OwnerHeat)
	h.store.WriteBool(ctx, point.HeatOwnsPump, false)
}

func (h *Heat) cancelPrerun() {
	if h.prerunning {
		h.prerunning = false
		h.sched.Cancel("heat", purposePrerun)
	}
}

func (h *Heat) setStatus(ctx context.Context, s string) {
	h.store.WriteString(ctx, point.HeatStatus, s)
}
