package control

import (
	"context"
	"time"

	"github.com/aqualogic/pool-core/internal/point"
)

// Timer purposes used with the Scheduler.
const (
	purposeAfterrun = "afterrun"
	purposePrerun   = "prerun"
)

// PV runs the pump on photovoltaic surplus: when the house exports more
// power than the pump draws (plus a margin), circulating is effectively
// free.
//
// When surplus ends the pump keeps running for a configurable afterrun
// before releasing; a surplus that returns during the afterrun cancels
// the release, and repeated surplus dips each restart the timer.
//
// Ownership over the shared pump is advisory. PV claims it only when it
// turned the pump on itself and drops the claim silently when it
// observes the pump switched off by someone else.
//
// Active in auto_pv mode only.
type PV struct {
	store  *point.Store
	log    Logger
	sched  *Scheduler
	owners *Ownership

	// desired is the last run state this evaluator asked for.
	desired bool
}

// NewPV creates the PV surplus evaluator.
func NewPV(store *point.Store, log Logger, sched *Scheduler, owners *Ownership) *PV {
	if log == nil {
		log = noopLogger{}
	}
	return &PV{store: store, log: log, sched: sched, owners: owners}
}

// Evaluate runs one surplus decision.
func (p *PV) Evaluate(ctx context.Context) {
	pumpOn := p.store.BoolOr(point.Pump, false)

	// Someone else switched the pump off under us: drop all claims,
	// do not fight it.
	if p.desired && !pumpOn {
		p.desired = false
		p.dropOwnership(ctx)
		p.sched.Cancel("pv", purposeAfterrun)
	}

	// Collector overheat forces circulation no matter what.
	if p.store.BoolOr(point.SolarWarning, false) {
		p.start(ctx, "pump on (collector overheat)")
		return
	}

	generation, ok := p.store.Float(point.PVGeneration)
	if !ok {
		return
	}
	house, ok := p.store.Float(point.HouseConsumption)
	if !ok {
		return
	}

	surplus := generation - house
	if surplus < 0 {
		surplus = 0
	}
	p.store.WriteFloat(ctx, point.PVSurplus, surplus)

	rated := p.store.FloatOr(point.PVPumpRatedWatt, 0)
	margin := p.store.FloatOr(point.PVThreshold, 0)
	season := p.store.BoolOr(point.SeasonActive, false)

	surplusActive := season && surplus >= rated+margin
	p.store.WriteBool(ctx, point.PVSurplusActive, surplusActive)

	if !season || currentMode(p.store) != ModeAutoPV {
		p.stopImmediate(ctx, "inactive")
		return
	}

	if p.store.BoolOr(point.PVIgnoreOnCirculation, false) &&
		p.store.FloatOr(point.CirculationRemaining, 1) <= 0 {
		p.stop(ctx, "daily circulation met")
		return
	}

	if surplusActive {
		p.start(ctx, "running on surplus")
	} else {
		p.stop(ctx, "no surplus")
	}
}

// start requests the pump on, cancelling any pending release.
// Idempotent while already desired-on.
func (p *PV) start(ctx context.Context, status string) {
	p.sched.Cancel("pv", purposeAfterrun)
	if p.desired {
		p.setStatus(ctx, status)
		return
	}
	p.desired = true

	if !p.store.BoolOr(point.Pump, false) {
		p.log.Info("pv: pump on", "reason", status)
		p.store.WriteBool(ctx, point.Pump, true)
		p.owners.Claim(OwnerPV)
		p.store.WriteBool(ctx, point.PVOwnsPump, true)
	}
	p.setStatus(ctx, status)
}

// stopImmediate requests the pump off right now, bypassing any
// afterrun. Used when PV as a whole steps aside (wrong mode, season
// over). Idempotent while already desired-off.
func (p *PV) stopImmediate(ctx context.Context, reason string) {
	p.sched.Cancel("pv", purposeAfterrun)
	if !p.desired {
		p.setStatus(ctx, "idle ("+reason+")")
		return
	}
	p.desired = false
	p.release(ctx)
}

// stop requests the pump off. With an afterrun configured the release
// is deferred; a fresh stop while one is already pending does not
// shorten the deadline (idempotent while desired-off).
func (p *PV) stop(ctx context.Context, reason string) {
	if !p.desired {
		p.setStatus(ctx, "idle ("+reason+")")
		return
	}
	p.desired = false

	afterrun := time.Duration(p.store.FloatOr(point.PVAfterrunMin, 0)) * time.Minute
	if afterrun <= 0 {
		p.release(ctx)
		return
	}

	p.log.Info("pv: afterrun started", "reason", reason, "duration", afterrun)
	p.setStatus(ctx, "afterrun")
	p.sched.Schedule("pv", purposeAfterrun, afterrun, func() {
		p.afterrunExpired(ctx)
	})
}

// afterrunExpired releases the pump unless surplus returned meanwhile.
func (p *PV) afterrunExpired(ctx context.Context) {
	if p.desired {
		return
	}
	if p.surplusStillWanted() {
		// Surplus came back during the afterrun; abandon the release
		// and let the next evaluation re-engage properly.
		return
	}
	p.release(ctx)
}

// surplusStillWanted reports whether a start would be warranted right
// now. A raw surplus-active check is not enough: a stop forced by the
// circulation quota must still release even under full sun.
func (p *PV) surplusStillWanted() bool {
	if !p.store.BoolOr(point.PVSurplusActive, false) {
		return false
	}
	if currentMode(p.store) != ModeAutoPV {
		return false
	}
	if p.store.BoolOr(point.PVIgnoreOnCirculation, false) &&
		p.store.FloatOr(point.CirculationRemaining, 1) <= 0 {
		return false
	}
	return true
}

// release switches the pump off and clears ownership.
func (p *PV) release(ctx context.Context) {
	if p.store.BoolOr(point.Pump, false) {
		p.log.Info("pv: pump off")
		p.store.WriteBool(ctx, point.Pump, false)
	}
	p.dropOwnership(ctx)
	p.setStatus(ctx, "idle")
}

func (p *PV) dropOwnership(ctx context.Context) {
	if p.owners.Held(OwnerPV) {
		p.owners.Release(OwnerPV)
		p.store.WriteBool(ctx, point.PVOwnsPump, false)
	}
}

func (p *PV) setStatus(ctx context.Context, s string) {
	p.store.WriteString(ctx, point.PVStatus, s)
}
