package bridge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aqualogic/pool-core/internal/point"
)

// sensorPoints are accepted on pool/sensor/+. Sourced by foreign device
// integrations; read-only from everywhere else.
var sensorPoints = map[string]bool{
	point.OutsideTemp:      true,
	point.PoolTemp:         true,
	point.CollectorTemp:    true,
	point.PumpPower:        true,
	point.PVGeneration:     true,
	point.HouseConsumption: true,
}

// settablePoints are accepted on pool/set/+: operating state, manual
// actuator writes and runtime-tunable settings.
var settablePoints = map[string]bool{
	point.Mode:              true,
	point.SeasonActive:      true,
	point.MaintenanceActive: true,
	point.Backwash:          true,

	point.Pump:       true,
	point.PumpSwitch: true,
	point.Heater:     true,

	point.FrostEnabled:          true,
	point.FrostThreshold:        true,
	point.SolarEnabled:          true,
	point.SolarTempOn:           true,
	point.SolarTempOff:          true,
	point.SolarWarnEnabled:      true,
	point.SolarWarnThreshold:    true,
	point.PVThreshold:           true,
	point.PVPumpRatedWatt:       true,
	point.PVAfterrunMin:         true,
	point.PVIgnoreOnCirculation: true,
	point.HeatEnabled:           true,
	point.HeatTarget:            true,
	point.HeatMax:               true,
	point.HeatPrerunMin:         true,
	point.HeatAfterrunMin:       true,
}

// commandPoints additionally produce an actuator command on change.
var commandPoints = map[string]bool{
	point.Pump:       true,
	point.PumpSwitch: true,
	point.Heater:     true,
}

// boolPoints hold booleans on the wire; stringPoints hold raw strings;
// everything else is numeric.
var boolPoints = map[string]bool{
	point.Pump:                  true,
	point.PumpSwitch:            true,
	point.Heater:                true,
	point.SeasonActive:          true,
	point.MaintenanceActive:     true,
	point.Backwash:              true,
	point.FrostEnabled:          true,
	point.SolarEnabled:          true,
	point.SolarWarnEnabled:      true,
	point.PVIgnoreOnCirculation: true,
	point.HeatEnabled:           true,
	point.SolarWarning:          true,
	point.PVSurplusActive:       true,
	point.PVOwnsPump:            true,
	point.HeatOwnsPump:          true,
	point.TimeActive:            true,
	point.Fault:                 true,
}

var stringPoints = map[string]bool{
	point.Mode:        true,
	point.FaultReason: true,
	point.PVStatus:    true,
	point.HeatStatus:  true,
	point.Status:      true,
}

// parseValue converts a wire payload into a typed point value.
func parseValue(name string, payload []byte) (point.Value, error) {
	s := strings.TrimSpace(string(payload))

	switch {
	case boolPoints[name]:
		switch strings.ToLower(s) {
		case "true", "1", "on":
			return point.Bool(true), nil
		case "false", "0", "off":
			return point.Bool(false), nil
		}
		return point.Value{}, fmt.Errorf("invalid boolean payload %q", s)

	case stringPoints[name]:
		return point.String(s), nil

	default:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return point.Value{}, fmt.Errorf("invalid numeric payload %q", s)
		}
		return point.Float(f), nil
	}
}

// formatValue renders a point value for the wire.
func formatValue(v point.Value) string {
	switch v.Kind {
	case point.KindBool:
		return strconv.FormatBool(v.Bool)
	case point.KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	default:
		return v.Str
	}
}
