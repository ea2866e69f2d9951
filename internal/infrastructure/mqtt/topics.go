package mqtt

import "fmt"

// Topic prefixes for the Pool Core MQTT namespace.
//
// Flat scheme: pool/{category}/{point_or_actuator}
//   - sensor:  inbound readings from device integrations (read-only here)
//   - set:     inbound writes to control points (mode, settings, flags)
//   - state:   retained outbound point values
//   - command: outbound actuator commands (fire-and-forget, never retained)
//   - system:  controller lifecycle (online/offline)
const (
	// TopicPrefix is the base for all Pool Core topics.
	TopicPrefix = "pool"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "pool/system"
)

// Topics provides builders for Pool Core MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.State("pump")
//	// Returns: "pool/state/pump"
type Topics struct{}

// Sensor returns the topic a sensor reading arrives on.
//
// Example: pool/sensor/collector_temp
func (Topics) Sensor(name string) string {
	return fmt.Sprintf("%s/sensor/%s", TopicPrefix, name)
}

// AllSensors returns the wildcard pattern matching every sensor topic.
func (Topics) AllSensors() string {
	return fmt.Sprintf("%s/sensor/+", TopicPrefix)
}

// Set returns the topic for inbound control-point writes.
//
// Example: pool/set/mode
func (Topics) Set(name string) string {
	return fmt.Sprintf("%s/set/%s", TopicPrefix, name)
}

// AllSets returns the wildcard pattern matching every set topic.
func (Topics) AllSets() string {
	return fmt.Sprintf("%s/set/+", TopicPrefix)
}

// State returns the retained topic a point value is mirrored to.
//
// Example: pool/state/pump
func (Topics) State(name string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, name)
}

// Command returns the topic for commands to an actuator.
//
// Example: pool/command/pump
func (Topics) Command(actuator string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, actuator)
}

// SystemStatus returns the topic for controller online/offline status.
//
// Example: pool/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// PointName extracts the trailing point name from a sensor or set topic.
// Returns "" if the topic does not have the expected three levels.
func PointName(topic string) string {
	// pool/{category}/{name} - find the second slash
	slashes := 0
	for i := 0; i < len(topic); i++ {
		if topic[i] == '/' {
			slashes++
			if slashes == 2 {
				name := topic[i+1:]
				// Reject deeper topics like pool/sensor/a/b
				for j := 0; j < len(name); j++ {
					if name[j] == '/' {
						return ""
					}
				}
				return name
			}
		}
	}
	return ""
}
