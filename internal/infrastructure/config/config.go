package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the simulator daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Machine  MachineConfig  `yaml:"machine"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MachineConfig contains the simulated machine's identity and initial
// condition.
type MachineConfig struct {
	// Name is the advertised device name.
	Name string `yaml:"name"`

	// Model is the reported machine model register (2 = Plus).
	Model uint32 `yaml:"model"`

	// SerialNumber is the reported serial number register.
	SerialNumber uint32 `yaml:"serial_number"`

	// HeaterVoltage is the reported mains voltage register.
	HeaterVoltage uint32 `yaml:"heater_voltage"`

	// GHCLevel is the initial group head controller install level
	// (0-4; level 3 refuses remote operation starts).
	GHCLevel uint32 `yaml:"ghc_level"`

	// WaterLevel is the initial tank level in percent.
	WaterLevel float64 `yaml:"water_level"`

	// SamplePeriodMS is the live sample interval in milliseconds.
	SamplePeriodMS int `yaml:"sample_period_ms"`

	// WaterLevelPeriodS is the water level report interval in seconds.
	WaterLevelPeriodS int `yaml:"water_level_period_s"`

	// APIVersion and Release fill the version characteristic.
	APIVersion uint8 `yaml:"api_version"`
	Release    uint8 `yaml:"release"`
}

// DaemonConfig contains BLE peripheral daemon connection settings.
type DaemonConfig struct {
	// Address is the daemon's TCP address.
	Address string `yaml:"address"`

	// ConnectTimeout is the dial-plus-handshake timeout in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`

	// ReadTimeout is the per-read timeout in seconds.
	ReadTimeout int `yaml:"read_timeout"`

	// ReconnectInterval is the initial reconnect backoff in seconds.
	ReconnectInterval int `yaml:"reconnect_interval"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
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

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DE1SIM_SECTION_KEY
// For example: DE1SIM_DAEMON_ADDRESS, DE1SIM_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Machine: MachineConfig{
			Name:              "DE1-SIM",
			Model:             2,
			SerialNumber:      4242,
			HeaterVoltage:     230,
			GHCLevel:          0,
			WaterLevel:        75,
			SamplePeriodMS:    200,
			WaterLevelPeriodS: 5,
			APIVersion:        4,
			Release:           1,
		},
		Daemon: DaemonConfig{
			Address:           "localhost:12345",
			ConnectTimeout:    10,
			ReadTimeout:       30,
			ReconnectInterval: 5,
		},
		Database: DatabaseConfig{
			Path:        "./data/de1sim.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "de1sim-core",
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
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DE1SIM_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Machine
	if v := os.Getenv("DE1SIM_MACHINE_GHC_LEVEL"); v != "" {
		if level, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Machine.GHCLevel = uint32(level)
		}
	}

	// Daemon
	if v := os.Getenv("DE1SIM_DAEMON_ADDRESS"); v != "" {
		cfg.Daemon.Address = v
	}

	// Database
	if v := os.Getenv("DE1SIM_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("DE1SIM_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DE1SIM_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DE1SIM_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("DE1SIM_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Machine validation
	if c.Machine.Name == "" {
		errs = append(errs, "machine.name is required")
	}
	const ghcMaxLevel = 4
	if c.Machine.GHCLevel > ghcMaxLevel {
		errs = append(errs, "machine.ghc_level must be between 0 and 4")
	}
	if c.Machine.WaterLevel < 0 || c.Machine.WaterLevel > 100 {
		errs = append(errs, "machine.water_level must be between 0 and 100")
	}
	if c.Machine.SamplePeriodMS < 0 {
		errs = append(errs, "machine.sample_period_ms must not be negative")
	}

	// Daemon validation
	if c.Daemon.Address == "" {
		errs = append(errs, "daemon.address is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetConnectTimeout returns the daemon connect timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.Daemon.ConnectTimeout) * time.Second
}

// GetReadTimeout returns the daemon read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Daemon.ReadTimeout) * time.Second
}

// GetReconnectInterval returns the daemon reconnect interval as a Duration.
func (c *Config) GetReconnectInterval() time.Duration {
	return time.Duration(c.Daemon.ReconnectInterval) * time.Second
}

// GetSamplePeriod returns the live sample interval as a Duration.
func (c *Config) GetSamplePeriod() time.Duration {
	return time.Duration(c.Machine.SamplePeriodMS) * time.Millisecond
}

// GetWaterLevelPeriod returns the water level interval as a Duration.
func (c *Config) GetWaterLevelPeriod() time.Duration {
	return time.Duration(c.Machine.WaterLevelPeriodS) * time.Second
}
