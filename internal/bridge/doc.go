// Package bridge connects the point store to the MQTT broker.
//
// Inbound, it feeds sensor readings (pool/sensor/+) and user writes
// (pool/set/+) into the store, typed per point. Outbound, it mirrors
// every point change to a retained state topic (pool/state/{id}) and
// issues actuator commands (pool/command/{id}) with unique command IDs
// so downstream device integrations can deduplicate.
//
// The control logic never touches MQTT directly; the bridge is the
// only component that knows points have a wire representation.
package bridge
