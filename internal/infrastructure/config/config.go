package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Pool Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Pool     PoolConfig     `yaml:"pool"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// PoolConfig contains the control defaults for the pool controller.
//
// These values seed the settings points in the point store on first start.
// Once seeded, the points are authoritative: a setting changed at runtime
// (via MQTT) wins over the YAML file.
type PoolConfig struct {
	Frost       FrostConfig       `yaml:"frost"`
	Solar       SolarConfig       `yaml:"solar"`
	PV          PVConfig          `yaml:"pv"`
	Heat        HeatConfig        `yaml:"heat"`
	TimeWindows []TimeWindow      `yaml:"time_windows"`
	Fault       FaultConfig       `yaml:"fault"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// FrostConfig contains frost protection settings.
type FrostConfig struct {
	Enabled bool `yaml:"enabled"`

	// ThresholdC is the outside temperature (degrees Celsius) at or below
	// which the pump is forced on. Release is at ThresholdC + 1.
	ThresholdC float64 `yaml:"threshold_c"`
}

// SolarConfig contains solar-thermal circulation settings.
type SolarConfig struct {
	Enabled bool `yaml:"enabled"`

	// TempOnC / TempOffC are collector temperatures gating circulation.
	TempOnC  float64 `yaml:"temp_on_c"`
	TempOffC float64 `yaml:"temp_off_c"`

	// Hysteresis is reserved; accepted but not used in the run decision.
	Hysteresis bool `yaml:"hysteresis"`

	Warning SolarWarningConfig `yaml:"warning"`
}

// SolarWarningConfig contains collector over-temperature warning settings.
type SolarWarningConfig struct {
	Enabled    bool    `yaml:"enabled"`
	ThresholdC float64 `yaml:"threshold_c"`
}

// PVConfig contains photovoltaic surplus settings.
type PVConfig struct {
	// ThresholdW is the margin on top of the pump's rated draw that the
	// surplus must exceed before the pump starts.
	ThresholdW float64 `yaml:"threshold_w"`

	// PumpRatedW is the pump's rated electrical draw in watts.
	PumpRatedW float64 `yaml:"pump_rated_w"`

	// AfterrunMin is how long the pump keeps running after surplus ends.
	AfterrunMin int `yaml:"afterrun_min"`

	// IgnoreOnCirculation stops PV operation once the daily circulation
	// quota has been met.
	IgnoreOnCirculation bool `yaml:"ignore_on_circulation"`

	// DailyQuotaMin is the daily circulation quota in minutes, counted
	// against the pump runtime log. Only meaningful with
	// IgnoreOnCirculation.
	DailyQuotaMin int `yaml:"daily_quota_min"`
}

// HeatConfig contains auxiliary heating settings.
type HeatConfig struct {
	Enabled bool `yaml:"enabled"`

	// TargetC is the pool temperature the heater drives towards.
	TargetC float64 `yaml:"target_c"`

	// MaxC is the safety ceiling; heating is refused at or above it.
	MaxC float64 `yaml:"max_c"`

	// PrerunMin is how long the pump runs before the heater is enabled.
	PrerunMin int `yaml:"prerun_min"`

	// AfterrunMin is how long the pump keeps running after the heater stops.
	AfterrunMin int `yaml:"afterrun_min"`
}

// TimeWindow is one weekly circulation window for time mode.
type TimeWindow struct {
	Enabled bool   `yaml:"enabled"`
	Start   string `yaml:"start"` // HH:MM
	End     string `yaml:"end"`   // HH:MM, exclusive

	// Weekdays enables the window per day, keyed mon..sun.
	Weekdays []string `yaml:"weekdays"`
}

// FaultConfig contains pump fault detection settings.
type FaultConfig struct {
	Enabled bool `yaml:"enabled"`

	// GraceSeconds suppresses fault evaluation after a commanded transition.
	GraceSeconds int `yaml:"grace_seconds"`
}

// MaintenanceConfig contains manual/maintenance settings.
type MaintenanceConfig struct {
	// BackwashMin is the duration of a manual backwash pump hold.
	BackwashMin int `yaml:"backwash_min"`
}

// maxTimeWindows is the number of configurable weekly windows.
const maxTimeWindows = 3

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: POOLCORE_SECTION_KEY
// For example: POOLCORE_DATABASE_PATH, POOLCORE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "pool-001",
			Name:     "Pool Core",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/poolcore.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "poolcore",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Pool: PoolConfig{
			Frost: FrostConfig{
				Enabled:    true,
				ThresholdC: 2.0,
			},
			Solar: SolarConfig{
				Enabled:  true,
				TempOnC:  35.0,
				TempOffC: 30.0,
				Warning: SolarWarningConfig{
					Enabled:    true,
					ThresholdC: 80.0,
				},
			},
			PV: PVConfig{
				ThresholdW:    200,
				PumpRatedW:    750,
				AfterrunMin:   5,
				DailyQuotaMin: 240,
			},
			Heat: HeatConfig{
				Enabled:     false,
				TargetC:     26.0,
				MaxC:        30.0,
				PrerunMin:   2,
				AfterrunMin: 5,
			},
			Fault: FaultConfig{
				Enabled:      true,
				GraceSeconds: 5,
			},
			Maintenance: MaintenanceConfig{
				BackwashMin: 5,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: POOLCORE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("POOLCORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("POOLCORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("POOLCORE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("POOLCORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("POOLCORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("POOLCORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("site.timezone %q is not a valid IANA zone", c.Site.Timezone))
	}

	// Pool control validation
	if c.Pool.Solar.TempOffC >= c.Pool.Solar.TempOnC {
		errs = append(errs, "pool.solar.temp_off_c must be below pool.solar.temp_on_c")
	}
	if c.Pool.PV.PumpRatedW <= 0 {
		errs = append(errs, "pool.pv.pump_rated_w must be positive")
	}
	if c.Pool.PV.ThresholdW < 0 {
		errs = append(errs, "pool.pv.threshold_w must not be negative")
	}
	if c.Pool.PV.DailyQuotaMin < 0 {
		errs = append(errs, "pool.pv.daily_quota_min must not be negative")
	}
	if c.Pool.Heat.MaxC <= c.Pool.Heat.TargetC {
		errs = append(errs, "pool.heat.max_c must be above pool.heat.target_c")
	}
	if c.Pool.Fault.GraceSeconds < 0 {
		errs = append(errs, "pool.fault.grace_seconds must not be negative")
	}
	if len(c.Pool.TimeWindows) > maxTimeWindows {
		errs = append(errs, fmt.Sprintf("pool.time_windows supports at most %d windows", maxTimeWindows))
	}
	for i, w := range c.Pool.TimeWindows {
		if !w.Enabled {
			continue
		}
		if _, err := ParseClock(w.Start); err != nil {
			errs = append(errs, fmt.Sprintf("pool.time_windows[%d].start: %v", i, err))
		}
		if _, err := ParseClock(w.End); err != nil {
			errs = append(errs, fmt.Sprintf("pool.time_windows[%d].end: %v", i, err))
		}
		for _, day := range w.Weekdays {
			if _, ok := ParseWeekday(day); !ok {
				errs = append(errs, fmt.Sprintf("pool.time_windows[%d]: unknown weekday %q", i, day))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location returns the configured site timezone.
// Falls back to UTC if the zone cannot be loaded (Validate catches this earlier).
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseClock parses an HH:MM string into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}

// ParseWeekday maps a short weekday name (mon..sun, case-insensitive)
// to a time.Weekday.
func ParseWeekday(s string) (time.Weekday, bool) {
	switch strings.ToLower(s) {
	case "mon":
		return time.Monday, true
	case "tue":
		return time.Tuesday, true
	case "wed":
		return time.Wednesday, true
	case "thu":
		return time.Thursday, true
	case "fri":
		return time.Friday, true
	case "sat":
		return time.Saturday, true
	case "sun":
		return time.Sunday, true
	default:
		return time.Sunday, false
	}
}
