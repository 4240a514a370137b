// Package config provides the unified configuration system for Honkey Pi.
// It defines a single Config structure covering the CAN input, CSV logging,
// status reporting, and metrics sections, loaded from YAML with environment
// variable substitution.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can carry values like "200ms".
// Plain integers are accepted as nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(v)
	case int64:
		*d = Duration(v)
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the top-level application configuration.
type Config struct {
	// CAN describes the upstream bus the external decoder reads from
	CAN CANConfig `yaml:"can" json:"can"`

	// Logging controls the CSV logging session
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Status controls the operator-facing status surface
	Status StatusConfig `yaml:"status" json:"status"`

	// Metrics controls Prometheus metrics exposure
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// CANConfig identifies the CAN interface the decoder is attached to.
// The decoder itself is an external collaborator; these values are passed
// through to it and recorded in logs.
type CANConfig struct {
	// Channel is the CAN channel name (e.g. "can0")
	Channel string `yaml:"channel" json:"channel"`
	// Bitrate is the CAN bitrate; NMEA 2000 runs at 250000
	Bitrate int `yaml:"bitrate" json:"bitrate"`
}

// LoggingConfig controls the CSV logging session.
type LoggingConfig struct {
	// DataDirectory is where session CSV files are created
	DataDirectory string `yaml:"data_directory" json:"data_directory"`
	// BoatID is the value of the first column in every row
	BoatID string `yaml:"boat_id" json:"boat_id"`
	// FlushEvery is the number of rows between explicit flushes to disk
	FlushEvery int `yaml:"flush_every" json:"flush_every"`
	// SampleInterval is the row emission cadence
	SampleInterval Duration `yaml:"sample_interval" json:"sample_interval"`
	// TimingTolerance is the allowed lateness of a tick before it counts
	// as a timing error
	TimingTolerance Duration `yaml:"timing_tolerance" json:"timing_tolerance"`
	// CompressOnClose gzips the session file when the session ends
	CompressOnClose bool `yaml:"compress_on_close" json:"compress_on_close"`
}

// StatusConfig controls the periodic status summary.
type StatusConfig struct {
	// UpdateInterval is how often the status summary is logged
	UpdateInterval Duration `yaml:"update_interval" json:"update_interval"`
	// ListenAddr, when set, serves /status and /metrics over HTTP
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// MetricsConfig controls metrics collection.
type MetricsConfig struct {
	// Enabled activates Prometheus metric recording
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Default returns a Config with production defaults matching the shipped
// config.yaml.
func Default() *Config {
	return &Config{
		CAN: CANConfig{
			Channel: "can0",
			Bitrate: 250000,
		},
		Logging: LoggingConfig{
			DataDirectory:   "/home/pi/honkey_pi_data",
			BoatID:          "0",
			FlushEvery:      10,
			SampleInterval:  Duration(time.Second),
			TimingTolerance: Duration(200 * time.Millisecond),
			CompressOnClose: false,
		},
		Status: StatusConfig{
			UpdateInterval: Duration(30 * time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate validates the configuration for correctness.
func (c *Config) Validate() error {
	if c.Logging.DataDirectory == "" {
		return fmt.Errorf("logging.data_directory is required")
	}
	if c.Logging.FlushEvery <= 0 {
		return fmt.Errorf("logging.flush_every must be positive")
	}
	if c.Logging.SampleInterval <= 0 {
		return fmt.Errorf("logging.sample_interval must be positive")
	}
	if c.Logging.TimingTolerance < 0 {
		return fmt.Errorf("logging.timing_tolerance cannot be negative")
	}
	if c.Logging.TimingTolerance >= c.Logging.SampleInterval {
		return fmt.Errorf("logging.timing_tolerance must be smaller than the sample interval")
	}
	if c.CAN.Bitrate <= 0 {
		return fmt.Errorf("can.bitrate must be positive")
	}
	if c.Status.UpdateInterval <= 0 {
		return fmt.Errorf("status.update_interval must be positive")
	}
	return nil
}
