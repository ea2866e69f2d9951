package control

import (
	"context"

	"github.com/aqualogic/pool-core/internal/point"
)

// FrostGuard circulates the pool when the outside temperature drops to
// the configured threshold, so exposed pipework does not freeze.
//
// The release point sits 1°C above the trip point, which stops the pump
// chattering when the temperature hovers around the threshold. The
// guard remembers whether it asked for the pump itself: a pump that is
// running for some other reason at a mild temperature is left alone.
//
// Active in auto mode only.
type FrostGuard struct {
	store *point.Store
	log   Logger

	// active records whether frost protection currently demands the
	// pump. Process-local; resets to false on restart.
	active bool
}

// NewFrostGuard creates the frost guard.
func NewFrostGuard(store *point.Store, log Logger) *FrostGuard {
	if log == nil {
		log = noopLogger{}
	}
	return &FrostGuard{store: store, log: log}
}

// Evaluate runs one frost decision.
func (f *FrostGuard) Evaluate(ctx context.Context) {
	if !f.store.BoolOr(point.FrostEnabled, false) {
		return
	}
	if currentMode(f.store) != ModeAuto {
		return
	}

	threshold, ok := f.store.Float(point.FrostThreshold)
	if !ok {
		return
	}
	outside, ok := f.store.Float(point.OutsideTemp)
	if !ok {
		f.log.Debug("frost: no outside temperature reading, skipping")
		return
	}

	pumpOn := f.store.BoolOr(point.Pump, false)

	switch {
	case !f.active && outside <= threshold:
		f.active = true
		f.log.Info("frost protection on",
			"outside_c", outside, "threshold_c", threshold)

	case f.active && outside >= threshold+frostReleaseBandC:
		f.active = false
		if pumpOn {
			f.log.Info("frost protection released",
				"outside_c", outside, "threshold_c", threshold)
			f.store.WriteBool(ctx, point.Pump, false)
		}
		return
	}

	// Re-assert while active: a lower-priority evaluator may have
	// flipped the pump off since the last cycle.
	if f.active && !pumpOn {
		f.store.WriteBool(ctx, point.Pump, true)
	}
}

// frostReleaseBandC is the hysteresis band above the trip threshold.
const frostReleaseBandC = 1.0
