package point

// Control-point identifiers.
//
// The names double as the trailing MQTT topic segment (pool/state/{id},
// pool/sensor/{id}, pool/set/{id}), so they are lowercase snake_case.
const (
	// Actuators. Pump is the shared logical actuator every evaluator
	// arbitrates over; PumpSwitch is the real underlying switching point
	// driven directly by time mode and mirrored by an external
	// collaborator otherwise. Heater is the secondary actuator owned by
	// the heat evaluator.
	Pump       = "pump"
	PumpSwitch = "pump_switch"
	Heater     = "heater"

	// Operating state.
	Mode              = "mode"
	SeasonActive      = "season_active"
	MaintenanceActive = "maintenance_active"
	Backwash          = "backwash"

	// Sensor readings (read-only here, sourced by device integrations).
	OutsideTemp      = "outside_temp"
	PoolTemp         = "pool_temp"
	CollectorTemp    = "collector_temp"
	PumpPower        = "pump_power"
	PVGeneration     = "pv_generation"
	HouseConsumption = "house_consumption"

	// Settings, seeded from config and writable at runtime.
	FrostEnabled          = "frost_enabled"
	FrostThreshold        = "frost_threshold"
	SolarEnabled          = "solar_enabled"
	SolarTempOn           = "solar_temp_on"
	SolarTempOff          = "solar_temp_off"
	SolarWarnEnabled      = "solar_warn_enabled"
	SolarWarnThreshold    = "solar_warn_threshold"
	PVThreshold           = "pv_threshold"
	PVPumpRatedWatt       = "pv_pump_rated_watt"
	PVAfterrunMin         = "pv_afterrun_min"
	PVIgnoreOnCirculation = "pv_ignore_on_circulation"
	HeatEnabled           = "heat_enabled"
	HeatTarget            = "heat_target"
	HeatMax               = "heat_max"
	HeatPrerunMin         = "heat_prerun_min"
	HeatAfterrunMin       = "heat_afterrun_min"

	// Derived outputs (write-only from the core's perspective).
	SolarWarning         = "solar_warning"
	PVSurplus            = "pv_surplus"
	PVSurplusActive      = "pv_surplus_active"
	PVStatus             = "pv_status"
	HeatStatus           = "heat_status"
	HeatOwnsPump         = "heat_owns_pump"
	PVOwnsPump           = "pv_owns_pump"
	TimeActive           = "time_active"
	Fault                = "fault"
	FaultReason          = "fault_reason"
	Status               = "status"
	CirculationRemaining = "circulation_remaining_min"
)

// durableIDs lists the points persisted to SQLite and reloaded at startup.
//
// Only the active mode and the last commanded actuator values survive a
// restart. Ownership flags, desired-state memory and timers are
// process-local and reset to unowned/none (fail safe to off).
var durableIDs = map[string]bool{
	Pump:   true,
	Heater: true,
	Mode:   true,
}

// Durable reports whether a point survives restarts.
func Durable(id string) bool {
	return durableIDs[id]
}
