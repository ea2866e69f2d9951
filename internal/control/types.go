package control

import (
	"github.com/aqualogic/pool-core/internal/point"
)

// Mode is the global operating mode. It gates which evaluators are
// allowed to drive the shared pump actuator.
type Mode string

// Operating modes. The string values are what gets stored in the mode
// point and published over MQTT.
const (
	// ModeAuto enables frost guard, solar circulation and heat control.
	ModeAuto Mode = "auto"

	// ModeAutoPV enables the PV surplus evaluator exclusively.
	ModeAutoPV Mode = "auto_pv"

	// ModeManual hands the actuators to the user; no evaluator writes.
	ModeManual Mode = "manual"

	// ModeTime drives the pump's underlying switch from weekly windows.
	ModeTime Mode = "time"

	// ModeOff keeps everything off. Fault cutoffs force this mode.
	ModeOff Mode = "off"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeAuto, ModeAutoPV, ModeManual, ModeTime, ModeOff:
		return Mode(s), true
	}
	return "", false
}

// Automatic reports whether the mode is one an evaluator may act in.
// Manual and off are user-controlled.
func (m Mode) Automatic() bool {
	return m == ModeAuto || m == ModeAutoPV || m == ModeTime
}

// currentMode reads the mode point, defaulting to off when the point
// is unknown or carries an unrecognised value. Off is the safe default:
// no evaluator will touch an actuator.
func currentMode(store *point.Store) Mode {
	s, ok := store.Str(point.Mode)
	if !ok {
		return ModeOff
	}
	m, ok := ParseMode(s)
	if !ok {
		return ModeOff
	}
	return m
}

// Logger is the logging interface the evaluators need. Satisfied by
// *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards everything. Used when no logger is configured
// and in tests that do not assert on log output.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
