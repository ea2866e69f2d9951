package control

import (
	"testing"
	"time"

	"github.com/aqualogic/pool-core/internal/point"
)

func newFaultEnv(graceSeconds int) (*testEnv, *Fault) {
	env := newTestEnv()
	env.setMode(ModeAuto)
	env.store.WriteFloat(env.ctx, point.PVPumpRatedWatt, 750)
	f := NewFault(env.store, nil, env.clock, env.sched, graceSeconds)
	f.SetRecheck(func() { f.Evaluate(env.ctx) })
	return env, f
}

func TestFaultConditions(t *testing.T) {
	tests := []struct {
		name   string
		pumpOn bool
		power  float64
		want   bool
	}{
		{"pump on drawing nothing", true, 2, true},
		{"pump on at threshold is healthy", true, 5, false},
		{"pump running normally", true, 700, false},
		{"pump off but drawing power", false, 50, true},
		{"pump off at threshold is healthy", false, 10, false},
		{"pump off idle", false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, f := newFaultEnv(0)
			env.store.WriteBool(env.ctx, point.Pump, tt.pumpOn)
			env.store.WriteFloat(env.ctx, point.PumpPower, tt.power)

			f.Evaluate(env.ctx)
			if got := env.store.BoolOr(point.Fault, false); got != tt.want {
				t.Errorf("fault = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFaultOverloadCutoff(t *testing.T) {
	env, f := newFaultEnv(0)
	env.store.WriteBool(env.ctx, point.Pump, true)
	env.store.WriteBool(env.ctx, point.PumpSwitch, true)

	// 1.2 x rated, above the 1.10 cutoff factor.
	env.store.WriteFloat(env.ctx, point.PumpPower, 900)
	f.Evaluate(env.ctx)

	if !env.store.BoolOr(point.Fault, false) {
		t.Fatal("overload should raise the fault")
	}
	if env.pumpOn() || env.store.BoolOr(point.PumpSwitch, false) {
		t.Fatal("overload must force the actuators off")
	}
	if got := currentMode(env.store); got != ModeOff {
		t.Fatalf("mode = %s, want off after an overload cutoff", got)
	}
}

func TestFaultGraceWindowSuppresses(t *testing.T) {
	env, f := newFaultEnv(5)

	// Pump just commanded on; the motor has not spun up yet.
	env.store.WriteBool(env.ctx, point.Pump, true)
	env.store.WriteFloat(env.ctx, point.PumpPower, 0)
	f.NotePumpChange()

	f.Evaluate(env.ctx)
	if env.store.BoolOr(point.Fault, false) {
		t.Fatal("evaluation must be suppressed inside the grace window")
	}

	// The deferred re-check fires at the end of the window and judges
	// the still-zero reading.
	env.clock.Advance(5 * time.Second)
	if !env.store.BoolOr(point.Fault, false) {
		t.Fatal("the grace re-check should raise the fault")
	}
}

func TestFaultPublishedOnEdgeOnly(t *testing.T) {
	env, f := newFaultEnv(0)

	changes := 0
	env.store.Subscribe(point.Fault, func(string, point.Value) { changes++ })

	env.store.WriteBool(env.ctx, point.Pump, true)
	env.store.WriteFloat(env.ctx, point.PumpPower, 0)
	f.Evaluate(env.ctx)
	f.Evaluate(env.ctx)
	f.Evaluate(env.ctx)

	if changes != 1 {
		t.Fatalf("fault changed %d times, want 1", changes)
	}
}

func TestFaultClears(t *testing.T) {
	env, f := newFaultEnv(0)
	env.store.WriteBool(env.ctx, point.Pump, true)
	env.store.WriteFloat(env.ctx, point.PumpPower, 0)
	f.Evaluate(env.ctx)

	env.store.WriteFloat(env.ctx, point.PumpPower, 700)
	f.Evaluate(env.ctx)

	if env.store.BoolOr(point.Fault, true) {
		t.Fatal("fault should clear once the readings agree")
	}
	if reason, _ := env.store.Str(point.FaultReason); reason != "" {
		t.Fatalf("reason = %q, want empty", reason)
	}
}

func TestFaultMissingPowerReadingIsNoOp(t *testing.T) {
	env, f := newFaultEnv(0)
	env.store.WriteBool(env.ctx, point.Pump, true)

	f.Evaluate(env.ctx)
	if _, known := env.store.Bool(point.Fault); known {
		t.Fatal("no reading, no verdict")
	}
}
