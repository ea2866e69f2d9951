package control

import (
	"testing"
	"time"

	"github.com/aqualogic/pool-core/internal/point"
)

func newPVEnv() (*testEnv, *PV) {
	env := newTestEnv()
	env.setMode(ModeAutoPV)
	env.store.WriteBool(env.ctx, point.SeasonActive, true)
	env.store.WriteFloat(env.ctx, point.PVPumpRatedWatt, 750)
	env.store.WriteFloat(env.ctx, point.PVThreshold, 200)
	env.store.WriteFloat(env.ctx, point.PVAfterrunMin, 5)
	return env, NewPV(env.store, nil, env.sched, env.owners)
}

func (e *testEnv) setPVReadings(generation, house float64) {
	e.store.WriteFloat(e.ctx, point.PVGeneration, generation)
	e.store.WriteFloat(e.ctx, point.HouseConsumption, house)
}

func TestPVStartsOnSurplus(t *testing.T) {
	env, pv := newPVEnv()
	env.setPVReadings(2000, 500)

	pv.Evaluate(env.ctx)

	if !env.pumpOn() {
		t.Fatal("pump should run on surplus")
	}
	if got := env.store.FloatOr(point.PVSurplus, -1); got != 1500 {
		t.Errorf("published surplus = %v, want 1500", got)
	}
	if !env.store.BoolOr(point.PVSurplusActive, false) {
		t.Error("surplus-active should be published")
	}
	if !env.store.BoolOr(point.PVOwnsPump, false) {
		t.Error("ownership flag should be published")
	}
	if !env.owners.Held(OwnerPV) {
		t.Error("pv should hold the pump claim")
	}
}

func TestPVSurplusBelowRequiredPower(t *testing.T) {
	env, pv := newPVEnv()

	// 900 W surplus, required is 750 + 200.
	env.setPVReadings(1400, 500)
	pv.Evaluate(env.ctx)

	if env.pumpOn() {
		t.Fatal("pump must stay off below required power")
	}
	if env.store.BoolOr(point.PVSurplusActive, false) {
		t.Error("surplus-active should be false")
	}
}

func TestPVSurplusClampedToZero(t *testing.T) {
	env, pv := newPVEnv()
	env.setPVReadings(200, 900)

	pv.Evaluate(env.ctx)
	if got := env.store.FloatOr(point.PVSurplus, -1); got != 0 {
		t.Errorf("published surplus = %v, want 0", got)
	}
}

func TestPVAfterrunReleasesPump(t *testing.T) {
	env, pv := newPVEnv()
	env.setPVReadings(2000, 500)
	pv.Evaluate(env.ctx)

	env.setPVReadings(100, 500)
	pv.Evaluate(env.ctx)

	if !env.pumpOn() {
		t.Fatal("pump should keep running during the afterrun")
	}

	env.clock.Advance(5 * time.Minute)
	if env.pumpOn() {
		t.Fatal("pump should be released after the afterrun")
	}
	if env.owners.Holder() != Unowned {
		t.Error("claim should be cleared after release")
	}
	if env.store.BoolOr(point.PVOwnsPump, false) {
		t.Error("ownership flag should be cleared")
	}
}

func TestPVAfterrunCancelledBySurplusReturn(t *testing.T) {
	env, pv := newPVEnv()
	env.setPVReadings(2000, 500)
	pv.Evaluate(env.ctx)

	env.setPVReadings(100, 500)
	pv.Evaluate(env.ctx)

	// Surplus comes back before the afterrun elapses.
	env.clock.Advance(2 * time.Minute)
	env.setPVReadings(2000, 500)
	pv.Evaluate(env.ctx)

	env.clock.Advance(10 * time.Minute)
	if !env.pumpOn() {
		t.Fatal("the scheduled stop must never fire once surplus returns")
	}
}

func TestPVFlappingExtendsAfterrun(t *testing.T) {
	env, pv := newPVEnv()
	env.setPVReadings(2000, 500)
	pv.Evaluate(env.ctx)

	// First stop at t0.
	env.setPVReadings(100, 500)
	pv.Evaluate(env.ctx)

	// Surplus returns, then drops again three minutes in: the second
	// stop replaces the first deadline rather than shortening it.
	env.clock.Advance(time.Minute)
	env.setPVReadings(2000, 500)
	pv.Evaluate(env.ctx)
	env.clock.Advance(2 * time.Minute)
	env.setPVReadings(100, 500)
	pv.Evaluate(env.ctx)

	env.clock.Advance(4 * time.Minute)
	if !env.pumpOn() {
		t.Fatal("pump released before the extended afterrun elapsed")
	}
	env.clock.Advance(time.Minute)
	if env.pumpOn() {
		t.Fatal("pump should be released after the extended afterrun")
	}
}

func TestPVModeChangeStopsImmediately(t *testing.T) {
	env, pv := newPVEnv()
	env.setPVReadings(2000, 500)
	pv.Evaluate(env.ctx)

	env.setMode(ModeAuto)
	pv.Evaluate(env.ctx)

	if env.pumpOn() {
		t.Fatal("leaving auto_pv must stop the pump without afterrun")
	}
	if env.sched.Active("pv", purposeAfterrun) {
		t.Fatal("no afterrun may be pending after an immediate stop")
	}
}

func TestPVSeasonEndStopsImmediately(t *testing.T) {
	env, pv := newPVEnv()
	env.setPVReadings(2000, 500)
	pv.Evaluate(env.ctx)

	env.store.WriteBool(env.ctx, point.SeasonActive, false)
	pv.Evaluate(env.ctx)

	if env.pumpOn() {
		t.Fatal("season end must stop the pump without afterrun")
	}
}

func TestPVSolarWarningOverride(t *testing.T) {
	env, pv := newPVEnv()
	env.setMode(ModeManual)
	env.store.WriteBool(env.ctx, point.SeasonActive, false)
	env.store.WriteBool(env.ctx, point.SolarWarning, true)

	pv.Evaluate(env.ctx)
	if !env.pumpOn() {
		t.Fatal("collector overheat must force the pump on regardless")
	}
}

func TestPVCirculationQuotaStopsWithAfterrun(t *testing.T) {
	env, pv := newPVEnv()
	env.store.WriteBool(env.ctx, point.PVIgnoreOnCirculation, true)
	env.store.WriteFloat(env.ctx, point.CirculationRemaining, 30)
	env.setPVReadings(2000, 500)
	pv.Evaluate(env.ctx)

	env.store.WriteFloat(env.ctx, point.CirculationRemaining, 0)
	pv.Evaluate(env.ctx)

	if !env.pumpOn() {
		t.Fatal("quota stop should honor the afterrun")
	}
	if !env.sched.Active("pv", purposeAfterrun) {
		t.Fatal("an afterrun should be pending")
	}

	env.clock.Advance(5 * time.Minute)
	if env.pumpOn() {
		t.Fatal("pump should be released after the afterrun")
	}
}

func TestPVExternalOffClearsClaim(t *testing.T) {
	env, pv := newPVEnv()
	env.setPVReadings(2000, 500)
	pv.Evaluate(env.ctx)

	// External off while surplus has also gone away.
	env.store.WriteBool(env.ctx, point.Pump, false)
	env.setPVReadings(100, 500)
	pv.Evaluate(env.ctx)

	if env.pumpOn() {
		t.Fatal("pv must not fight an external off")
	}
	if env.owners.Held(OwnerPV) {
		t.Fatal("claim should be dropped on observing the external off")
	}
	if env.sched.Active("pv", purposeAfterrun) {
		t.Fatal("no afterrun may be scheduled for a pump already off")
	}
}

func TestPVEvaluationIsIdempotent(t *testing.T) {
	env, pv := newPVEnv()

	writes := 0
	env.store.Subscribe(point.Pump, func(string, point.Value) { writes++ })

	env.setPVReadings(2000, 500)
	pv.Evaluate(env.ctx)
	pv.Evaluate(env.ctx)
	pv.Evaluate(env.ctx)

	if writes != 1 {
		t.Fatalf("pump changed %d times, want 1", writes)
	}
}

func TestPVMissingReadingsIsNoOp(t *testing.T) {
	env, pv := newPVEnv()
	env.store.WriteFloat(env.ctx, point.PVGeneration, 2000)
	// House consumption never reported.

	pv.Evaluate(env.ctx)
	if env.pumpOn() {
		t.Fatal("missing readings must not start the pump")
	}
}
