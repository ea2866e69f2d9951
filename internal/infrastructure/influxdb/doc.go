// Package influxdb provides the telemetry sink for Pool Core.
//
// It wraps the official influxdb-client-go v2 library for recording
// time-series data:
//
//   - temperature readings (outside, pool, collector)
//   - electrical readings (pump draw, PV generation, house consumption)
//   - computed PV surplus and its active flag
//   - actuator command edges and fault edges
//
// Writes are non-blocking and batched according to config.yaml
// (batch_size, flush_interval); async write failures are reported through
// the SetOnError callback. When InfluxDB is disabled in config, callers
// receive ErrDisabled from Connect and simply skip telemetry.
package influxdb
