package control

import (
	"testing"

	"github.com/aqualogic/pool-core/internal/point"
)

func newSolarEnv() (*testEnv, *Solar) {
	env := newTestEnv()
	env.setMode(ModeAuto)
	env.store.WriteBool(env.ctx, point.SolarEnabled, true)
	env.store.WriteFloat(env.ctx, point.SolarTempOn, 35)
	env.store.WriteFloat(env.ctx, point.SolarTempOff, 30)
	env.store.WriteBool(env.ctx, point.SolarWarnEnabled, true)
	env.store.WriteFloat(env.ctx, point.SolarWarnThreshold, 80)
	return env, NewSolar(env.store, nil, env.owners, nil)
}

func (e *testEnv) setSolarTemps(collector, pool float64) {
	e.store.WriteFloat(e.ctx, point.CollectorTemp, collector)
	e.store.WriteFloat(e.ctx, point.PoolTemp, pool)
}

func TestSolarRunDecision(t *testing.T) {
	tests := []struct {
		name      string
		collector float64
		pool      float64
		pumpWas   bool
		want      bool
	}{
		{"hot collector starts pump", 40, 25, false, true},
		{"collector at on-threshold starts pump", 35, 25, false, true},
		{"collector below off-threshold stops pump", 29, 25, true, false},
		{"collector not above pool stops pump", 40, 40, true, false},
		{"dead band keeps pump running", 32, 25, true, true},
		{"dead band keeps pump off", 32, 25, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, solar := newSolarEnv()
			env.store.WriteBool(env.ctx, point.Pump, tt.pumpWas)
			env.setSolarTemps(tt.collector, tt.pool)

			solar.Evaluate(env.ctx)
			if got := env.pumpOn(); got != tt.want {
				t.Errorf("pump = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSolarDefersToHeatOwnedPump(t *testing.T) {
	env, solar := newSolarEnv()
	heat := NewHeat(env.store, nil, env.sched, env.owners)

	// An active heating run: heat turned the pump on itself and owns it.
	env.store.WriteBool(env.ctx, point.SeasonActive, true)
	env.store.WriteBool(env.ctx, point.HeatEnabled, true)
	env.store.WriteFloat(env.ctx, point.HeatTarget, 28)
	env.store.WriteFloat(env.ctx, point.PoolTemp, 25)
	heat.Evaluate(env.ctx)
	if !env.pumpOn() || !env.heaterOn() {
		t.Fatal("heating run not established")
	}

	// A cold collector at night. The off decision must not touch the
	// heat-owned pump, on this sweep or any later one.
	env.store.WriteFloat(env.ctx, point.CollectorTemp, 10)
	for i := 0; i < 3; i++ {
		solar.Evaluate(env.ctx)
		heat.Evaluate(env.ctx)
	}
	if !env.pumpOn() {
		t.Fatal("solar switched off a heat-owned pump")
	}
	if !env.heaterOn() {
		t.Fatal("heater torn down by the solar off decision")
	}
	if env.owners.Holder() != OwnerHeat {
		t.Fatalf("pump holder = %q, want heat", env.owners.Holder())
	}

	// Once heat releases the pump, solar may switch it off again.
	env.store.WriteFloat(env.ctx, point.PoolTemp, 28)
	heat.Evaluate(env.ctx)
	solar.Evaluate(env.ctx)
	if env.pumpOn() {
		t.Fatal("pump still on after heat released it")
	}
}

func TestSolarRequiresAutoMode(t *testing.T) {
	env, solar := newSolarEnv()
	env.setMode(ModeManual)
	env.setSolarTemps(40, 25)

	solar.Evaluate(env.ctx)
	if env.pumpOn() {
		t.Fatal("solar must not drive the pump outside auto mode")
	}
}

func TestSolarWarningBand(t *testing.T) {
	env, solar := newSolarEnv()
	env.setSolarTemps(85, 25)

	solar.Evaluate(env.ctx)
	if !env.store.BoolOr(point.SolarWarning, false) {
		t.Fatal("warning should be raised at 85 with threshold 80")
	}

	// Cooling below the threshold is not enough; the warning holds
	// until 90% of it.
	env.setSolarTemps(75, 25)
	solar.Evaluate(env.ctx)
	if !env.store.BoolOr(point.SolarWarning, false) {
		t.Fatal("warning cleared above the 90% band")
	}

	env.setSolarTemps(72, 25)
	solar.Evaluate(env.ctx)
	if env.store.BoolOr(point.SolarWarning, false) {
		t.Fatal("warning should clear at 72 (90% of 80)")
	}
}

func TestSolarWarningIndependentOfMode(t *testing.T) {
	env, solar := newSolarEnv()
	env.setMode(ModeOff)
	env.setSolarTemps(90, 25)

	solar.Evaluate(env.ctx)
	if !env.store.BoolOr(point.SolarWarning, false) {
		t.Fatal("warning machine must run regardless of mode")
	}
	if env.pumpOn() {
		t.Fatal("run decision must still respect the mode gate")
	}
}

func TestSolarWarningNotification(t *testing.T) {
	env := newTestEnv()
	env.store.WriteBool(env.ctx, point.SolarWarnEnabled, true)
	env.store.WriteFloat(env.ctx, point.SolarWarnThreshold, 80)

	var messages []string
	solar := NewSolar(env.store, nil, env.owners, func(msg string) {
		messages = append(messages, msg)
	})

	env.store.WriteFloat(env.ctx, point.CollectorTemp, 85)
	solar.Evaluate(env.ctx)
	solar.Evaluate(env.ctx)

	// Raised once, not on every cycle while hot.
	if len(messages) != 1 {
		t.Fatalf("notifications = %d, want 1", len(messages))
	}
}
