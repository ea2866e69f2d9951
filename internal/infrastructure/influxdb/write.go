package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTemperature records a temperature reading.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - sensor: Which temperature (e.g., "outside", "pool", "collector")
//   - celsius: The reading in degrees Celsius
//
// Example:
//
//	client.WriteTemperature("collector", 41.5)
func (c *Client) WriteTemperature(sensor string, celsius float64) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"temperature",
		map[string]string{"sensor": sensor},
		map[string]interface{}{"celsius": celsius},
		time.Now(),
	))
}

// WritePower records instantaneous electrical readings.
//
// Parameters:
//   - source: Which meter (e.g., "pump", "pv_generation", "house")
//   - watts: Instantaneous power in watts
func (c *Client) WritePower(source string, watts float64) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"power",
		map[string]string{"source": source},
		map[string]interface{}{"watts": watts},
		time.Now(),
	))
}

// WriteSurplus records the computed PV surplus and whether it is driving
// the pump.
func (c *Client) WriteSurplus(watts float64, active bool) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"pv_surplus",
		nil,
		map[string]interface{}{
			"watts":  watts,
			"active": active,
		},
		time.Now(),
	))
}

// WriteActuator records a commanded actuator transition.
//
// Only edges are recorded (the caller publishes on change, not per cycle).
func (c *Client) WriteActuator(actuator string, on bool, source string) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"actuator",
		map[string]string{
			"actuator": actuator,
			"source":   source,
		},
		map[string]interface{}{"on": on},
		time.Now(),
	))
}

// WriteFault records a fault state edge with its reason.
func (c *Client) WriteFault(active bool, reason string) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"fault",
		nil,
		map[string]interface{}{
			"active": active,
			"reason": reason,
		},
		time.Now(),
	))
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
