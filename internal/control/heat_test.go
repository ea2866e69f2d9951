package control

import (
	"testing"
	"time"

	"github.com/aqualogic/pool-core/internal/point"
)

func newHeatEnv() (*testEnv, *Heat) {
	env := newTestEnv()
	env.setMode(ModeAuto)
	env.store.WriteBool(env.ctx, point.SeasonActive, true)
	env.store.WriteBool(env.ctx, point.HeatEnabled, true)
	env.store.WriteFloat(env.ctx, point.HeatTarget, 26)
	env.store.WriteFloat(env.ctx, point.HeatMax, 30)
	env.store.WriteFloat(env.ctx, point.HeatPrerunMin, 2)
	env.store.WriteFloat(env.ctx, point.HeatAfterrunMin, 5)
	return env, NewHeat(env.store, nil, env.sched, env.owners)
}

// Full lifecycle: prerun before the heater, afterrun after it, heater
// resuming during the afterrun without the pump ever dropping.
func TestHeatLifecycle(t *testing.T) {
	env, heat := newHeatEnv()
	env.store.WriteFloat(env.ctx, point.PoolTemp, 25.4)

	heat.Evaluate(env.ctx)
	if !env.pumpOn() {
		t.Fatal("prerun should start the pump")
	}
	if env.heaterOn() {
		t.Fatal("heater must stay off during the prerun")
	}
	if !env.owners.Held(OwnerHeat) {
		t.Fatal("heat should claim the pump it started")
	}

	// Prerun elapses; re-evaluation turns the heater on.
	env.clock.Advance(2 * time.Minute)
	if !env.heaterOn() {
		t.Fatal("heater should be on after the prerun")
	}

	// Target reached: heater off, pump stays for the afterrun.
	env.store.WriteFloat(env.ctx, point.PoolTemp, 26.0)
	heat.Evaluate(env.ctx)
	if env.heaterOn() {
		t.Fatal("heater should be off at the target")
	}
	if !env.pumpOn() {
		t.Fatal("pump should keep running during the afterrun")
	}

	// Demand returns inside the afterrun window: heater resumes
	// before the pump is ever released.
	env.clock.Advance(3 * time.Minute)
	env.store.WriteFloat(env.ctx, point.PoolTemp, 25.8)
	heat.Evaluate(env.ctx)
	if !env.heaterOn() {
		t.Fatal("heater should resume during the afterrun")
	}
	env.clock.Advance(10 * time.Minute)
	if !env.pumpOn() {
		t.Fatal("pump must not be released while heating")
	}

	// Done for good: afterrun runs out, pump released, claim cleared.
	env.store.WriteFloat(env.ctx, point.PoolTemp, 26.2)
	heat.Evaluate(env.ctx)
	env.clock.Advance(5 * time.Minute)
	if env.pumpOn() {
		t.Fatal("pump should be released after the afterrun")
	}
	if env.owners.Holder() != Unowned {
		t.Fatal("claim should be cleared after release")
	}
}

// The heating decision is a plain comparison with no hysteresis: a
// single crossing in either direction flips the state.
func TestHeatNoHysteresisAtTarget(t *testing.T) {
	env, heat := newHeatEnv()
	env.store.WriteFloat(env.ctx, point.HeatPrerunMin, 0)
	env.store.WriteBool(env.ctx, point.Pump, true)

	env.store.WriteFloat(env.ctx, point.PoolTemp, 25.9)
	heat.Evaluate(env.ctx)
	if !env.heaterOn() {
		t.Fatal("heater should be on just below the target")
	}

	env.store.WriteFloat(env.ctx, point.PoolTemp, 26.0)
	heat.Evaluate(env.ctx)
	if env.heaterOn() {
		t.Fatal("heater should be off at exactly the target")
	}

	env.store.WriteFloat(env.ctx, point.PoolTemp, 25.9)
	heat.Evaluate(env.ctx)
	if !env.heaterOn() {
		t.Fatal("heater should flip back on a single crossing")
	}
}

func TestHeatExternalOffClearsClaim(t *testing.T) {
	env, heat := newHeatEnv()
	env.store.WriteFloat(env.ctx, point.HeatPrerunMin, 0)
	env.store.WriteFloat(env.ctx, point.PoolTemp, 24)
	heat.Evaluate(env.ctx)
	if !env.owners.Held(OwnerHeat) || !env.heaterOn() {
		t.Fatal("setup: heat should be running and own the pump")
	}

	// External actor switches the pump off.
	env.store.WriteBool(env.ctx, point.Pump, false)
	heat.Evaluate(env.ctx)

	if env.owners.Held(OwnerHeat) {
		t.Fatal("claim must be cleared on observing the external off")
	}
	if env.heaterOn() {
		t.Fatal("heater must not run without flow")
	}
	if env.pumpOn() {
		t.Fatal("the external off must not be fought this cycle")
	}

	// Demand persists, so the following evaluation starts over.
	heat.Evaluate(env.ctx)
	if !env.pumpOn() || !env.owners.Held(OwnerHeat) {
		t.Fatal("heating should restart on the next evaluation")
	}
}

func TestHeatClaimsOnlyWhenItStartedThePump(t *testing.T) {
	env, heat := newHeatEnv()
	env.store.WriteBool(env.ctx, point.Pump, true)
	env.store.WriteFloat(env.ctx, point.PoolTemp, 24)

	heat.Evaluate(env.ctx)
	if !env.heaterOn() {
		t.Fatal("heater should be on immediately, the pump already runs")
	}
	if env.owners.Held(OwnerHeat) {
		t.Fatal("no claim when the pump was already on")
	}

	// Target reached: without a claim there is no afterrun and the
	// pump is left alone.
	env.store.WriteFloat(env.ctx, point.PoolTemp, 27)
	heat.Evaluate(env.ctx)
	if env.heaterOn() {
		t.Fatal("heater should be off")
	}
	if !env.pumpOn() {
		t.Fatal("an unowned pump must not be released")
	}
	if env.sched.Active("heat", purposeAfterrun) {
		t.Fatal("no afterrun without a claim")
	}
}

func TestHeatBlockedByMaintenance(t *testing.T) {
	env, heat := newHeatEnv()
	env.store.WriteFloat(env.ctx, point.HeatPrerunMin, 0)
	env.store.WriteFloat(env.ctx, point.PoolTemp, 24)
	heat.Evaluate(env.ctx)

	env.store.WriteBool(env.ctx, point.MaintenanceActive, true)
	heat.Evaluate(env.ctx)

	if env.heaterOn() {
		t.Fatal("maintenance must force the heater off")
	}
	// The owned pump is released with the afterrun honored.
	if !env.pumpOn() {
		t.Fatal("release should honor the afterrun")
	}
	env.clock.Advance(5 * time.Minute)
	if env.pumpOn() {
		t.Fatal("pump should be released after the afterrun")
	}
}

func TestHeatBlockedDuringPrerun(t *testing.T) {
	env, heat := newHeatEnv()
	env.store.WriteFloat(env.ctx, point.PoolTemp, 24)
	heat.Evaluate(env.ctx)
	if !env.pumpOn() || env.heaterOn() {
		t.Fatal("setup: prerun should be in flight")
	}

	env.store.WriteBool(env.ctx, point.SeasonActive, false)
	heat.Evaluate(env.ctx)

	// The prerun never completes.
	env.clock.Advance(2 * time.Minute)
	if env.heaterOn() {
		t.Fatal("a cancelled prerun must not enable the heater")
	}
	// The pump claimed for the prerun is still released.
	env.clock.Advance(5 * time.Minute)
	if env.pumpOn() {
		t.Fatal("the pump claimed for the prerun must be released")
	}
}

func TestHeatDisabledReleases(t *testing.T) {
	env, heat := newHeatEnv()
	env.store.WriteFloat(env.ctx, point.HeatPrerunMin, 0)
	env.store.WriteFloat(env.ctx, point.HeatAfterrunMin, 0)
	env.store.WriteFloat(env.ctx, point.PoolTemp, 24)
	heat.Evaluate(env.ctx)

	env.store.WriteBool(env.ctx, point.HeatEnabled, false)
	heat.Evaluate(env.ctx)

	if env.heaterOn() {
		t.Fatal("disabling must turn the heater off")
	}
	if env.pumpOn() {
		t.Fatal("with no afterrun configured the pump releases at once")
	}
}

func TestHeatMaxTemperatureCeiling(t *testing.T) {
	env, heat := newHeatEnv()
	env.store.WriteFloat(env.ctx, point.HeatPrerunMin, 0)
	env.store.WriteBool(env.ctx, point.Pump, true)
	env.store.WriteFloat(env.ctx, point.HeatTarget, 35)
	env.store.WriteFloat(env.ctx, point.PoolTemp, 30)

	heat.Evaluate(env.ctx)
	if env.heaterOn() {
		t.Fatal("the max-temperature ceiling must override the target")
	}
}

func TestHeatModeMismatchWritesNothing(t *testing.T) {
	env, heat := newHeatEnv()
	env.setMode(ModeManual)
	env.store.WriteBool(env.ctx, point.Pump, true)
	env.store.WriteBool(env.ctx, point.Heater, true)
	env.store.WriteFloat(env.ctx, point.PoolTemp, 24)

	heat.Evaluate(env.ctx)

	// In manual mode the actuators belong to the user.
	if !env.pumpOn() || !env.heaterOn() {
		t.Fatal("mode mismatch must not write actuators")
	}
}

func TestHeatMissingTemperatureIsNoOp(t *testing.T) {
	env, heat := newHeatEnv()
	env.store.WriteBool(env.ctx, point.Pump, true)
	env.store.WriteBool(env.ctx, point.Heater, true)

	heat.Evaluate(env.ctx)
	if !env.heaterOn() {
		t.Fatal("a missing reading must not change the heater")
	}
}
