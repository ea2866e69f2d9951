package control

import (
	"context"

	"github.com/aqualogic/pool-core/internal/point"
)

// Status projects the many per-evaluator outputs into one
// human-readable system status line, for dashboards and notifications.
type Status struct {
	store *point.Store
}

// NewStatus creates the status projector.
func NewStatus(store *point.Store) *Status {
	return &Status{store: store}
}

// Project recomputes and publishes the status line.
func (s *Status) Project(ctx context.Context) {
	s.store.WriteString(ctx, point.Status, s.compose())
}

func (s *Status) compose() string {
	if s.store.BoolOr(point.Fault, false) {
		if reason, ok := s.store.Str(point.FaultReason); ok && reason != "" {
			return "fault: " + reason
		}
		return "fault"
	}
	if s.store.BoolOr(point.MaintenanceActive, false) {
		return "maintenance"
	}
	if s.store.BoolOr(point.Backwash, false) {
		return "backwash"
	}

	mode := currentMode(s.store)
	pumpOn := s.store.BoolOr(point.Pump, false)

	switch mode {
	case ModeOff:
		return "off"
	case ModeManual:
		if pumpOn {
			return "manual: pump on"
		}
		return "manual"
	case ModeTime:
		if s.store.BoolOr(point.TimeActive, false) {
			return "time: running"
		}
		return "time: idle"
	case ModeAutoPV:
		if st, ok := s.store.Str(point.PVStatus); ok && st != "" {
			return "auto_pv: " + st
		}
		return "auto_pv"
	case ModeAuto:
		switch {
		case s.store.BoolOr(point.Heater, false):
			return "auto: heating"
		case pumpOn:
			return "auto: circulating"
		default:
			return "auto: idle"
		}
	}
	return string(mode)
}
