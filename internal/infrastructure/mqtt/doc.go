// Package mqtt provides the MQTT transport for Pool Core.
//
// It wraps eclipse/paho.mqtt.golang with connection management,
// automatic re-subscription on reconnect, Last Will and Testament
// for offline detection, and panic-safe message handlers.
//
// # Topic scheme
//
// Flat scheme: pool/{category}/{name}
//
//	pool/sensor/{name}   inbound sensor readings (foreign integrations)
//	pool/set/{name}      inbound control-point writes (mode, settings)
//	pool/state/{name}    retained outbound point values
//	pool/command/{name}  outbound actuator commands (never retained)
//	pool/system/status   controller online/offline (retained, LWT)
//
// Use the Topics builders rather than hand-assembling topic strings.
package mqtt
