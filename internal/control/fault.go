package control

import (
	"context"
	"time"

	"github.com/aqualogic/pool-core/internal/point"
)

// Fault detection thresholds.
const (
	// faultUnderloadW: a pump commanded on drawing less than this is
	// not actually running.
	faultUnderloadW = 5.0

	// faultLeakageW: a pump commanded off drawing more than this is
	// still running.
	faultLeakageW = 10.0

	// faultOverloadFactor: measured power above rated wattage times
	// this factor indicates a blocked or failing pump.
	faultOverloadFactor = 1.10
)

// Fault cross-checks the commanded pump state against its measured
// power draw. Commanded state and electrical reality disagreeing means
// a stuck relay, a dead pump, or a blocked impeller.
//
// Every commanded transition opens a grace window during which all
// fault evaluation is suppressed, absorbing motor ramp-up and ramp-down.
// A re-check is scheduled for the end of the window so a steady power
// reading still gets judged.
//
// Overload is a safety cutoff, not just a report: it forces the
// actuators off and the mode to off, requiring a human to re-arm.
type Fault struct {
	store *point.Store
	log   Logger
	clock Clock
	sched *Scheduler

	grace      time.Duration
	graceUntil time.Time

	// recheck runs when a grace window ends, so a steady power reading
	// is still judged. Wired by the Runner to a dispatched Evaluate.
	recheck func()

	// lastError dedupes the published fault flag to edges.
	lastError bool
}

// NewFault creates the fault detector.
func NewFault(store *point.Store, log Logger, clock Clock, sched *Scheduler, graceSeconds int) *Fault {
	if log == nil {
		log = noopLogger{}
	}
	return &Fault{
		store: store,
		log:   log,
		clock: clock,
		sched: sched,
		grace: time.Duration(graceSeconds) * time.Second,
	}
}

// SetRecheck installs the callback run when a grace window ends.
func (f *Fault) SetRecheck(fn func()) {
	f.recheck = fn
}

// NotePumpChange starts a grace window after a commanded pump
// transition.
func (f *Fault) NotePumpChange() {
	if f.grace <= 0 {
		return
	}
	f.graceUntil = f.clock.Now().Add(f.grace)
	if f.recheck != nil {
		f.sched.Schedule("fault", "recheck", f.grace, f.recheck)
	}
}

// Evaluate re-derives the fault state from the current readings.
func (f *Fault) Evaluate(ctx context.Context) {
	if f.clock.Now().Before(f.graceUntil) {
		return
	}

	power, ok := f.store.Float(point.PumpPower)
	if !ok {
		return
	}
	on := f.store.BoolOr(point.Pump, false)
	rated := f.store.FloatOr(point.PVPumpRatedWatt, 0)

	var reason string
	switch {
	case on && power < faultUnderloadW:
		reason = "pump commanded on but drawing no power"
	case !on && power > faultLeakageW:
		reason = "pump commanded off but still drawing power"
	case on && rated > 0 && power > rated*faultOverloadFactor:
		reason = "pump overload"
		f.cutoff(ctx, power, rated)
	}

	active := reason != ""
	if active != f.lastError {
		f.lastError = active
		f.store.WriteBool(ctx, point.Fault, active)
		f.store.WriteString(ctx, point.FaultReason, reason)
		if active {
			f.log.Error("pump fault", "reason", reason, "power_w", power, "pump_on", on)
		} else {
			f.log.Info("pump fault cleared")
		}
	}
}

// cutoff is the overload safety action: everything off, mode off.
func (f *Fault) cutoff(ctx context.Context, power, rated float64) {
	f.log.Error("pump overload cutoff",
		"power_w", power, "rated_w", rated)
	f.store.WriteBool(ctx, point.Pump, false)
	f.store.WriteBool(ctx, point.PumpSwitch, false)
	f.store.WriteBool(ctx, point.Heater, false)
	f.store.WriteString(ctx, point.Mode, string(ModeOff))
}
