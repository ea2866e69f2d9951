package bridge

import (
	"github.com/aqualogic/pool-core/internal/point"
)

// TelemetrySink receives measurements derived from point changes.
// Satisfied by *influxdb.Client.
type TelemetrySink interface {
	WriteTemperature(sensor string, celsius float64)
	WritePower(source string, watts float64)
	WriteSurplus(watts float64, active bool)
	WriteActuator(actuator string, on bool, source string)
	WriteFault(active bool, reason string)
}

// Recorder forwards the interesting point changes to the telemetry
// sink. Entirely passive: it never writes back into the store, and a
// missing sink just means no history.
type Recorder struct {
	store *point.Store
	sink  TelemetrySink
}

// NewRecorder creates a recorder. A nil sink disables it.
func NewRecorder(store *point.Store, sink TelemetrySink) *Recorder {
	return &Recorder{store: store, sink: sink}
}

// Start registers the point subscriptions.
func (r *Recorder) Start() {
	if r.sink == nil {
		return
	}
	r.store.SubscribeAll(r.record)
}

func (r *Recorder) record(id string, v point.Value) {
	switch id {
	case point.OutsideTemp, point.PoolTemp, point.CollectorTemp:
		r.sink.WriteTemperature(id, v.Float)

	case point.PumpPower:
		r.sink.WritePower("pump", v.Float)
	case point.PVGeneration:
		r.sink.WritePower("pv", v.Float)
	case point.HouseConsumption:
		r.sink.WritePower("house", v.Float)

	case point.PVSurplus:
		r.sink.WriteSurplus(v.Float, r.store.BoolOr(point.PVSurplusActive, false))

	case point.Pump, point.PumpSwitch, point.Heater:
		source, _ := r.store.Str(point.Status)
		r.sink.WriteActuator(id, v.Bool, source)

	case point.Fault:
		reason, _ := r.store.Str(point.FaultReason)
		r.sink.WriteFault(v.Bool, reason)
	}
}
