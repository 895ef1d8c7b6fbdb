package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CaptureConfig describes how the external capture tool is invoked.
type CaptureConfig struct {
	Mode          string `yaml:"mode"` // "ip" or "wlan"
	Interface     string `yaml:"interface"`
	ReadFile      string `yaml:"read_file"`
	CaptureFilter string `yaml:"capture_filter"`
	DisplayFilter string `yaml:"display_filter"`
	WriteCapture  string `yaml:"write_capture"`
}

// BurstConfig holds the burst segmentation parameters.
type BurstConfig struct {
	InactiveTime string `yaml:"inactive_time"` // gap that starts a new burst
	TickInterval string `yaml:"tick_interval"` // timeout scheduler period
	IgnorePorts  bool   `yaml:"ignore_ports"`
}

// WLANConfig holds the missed-frame estimation parameters for monitor mode.
type WLANConfig struct {
	NoGuess      bool   `yaml:"no_guess"`
	MaxDeviation uint16 `yaml:"max_deviation"`
	Average      string `yaml:"average"` // "burst" or "flow"
}

// FilterConfig bounds which bursts are reported. Nil means unconstrained;
// all bounds are inclusive.
type FilterConfig struct {
	MinBytes     *uint64  `yaml:"min_bytes"`
	MaxBytes     *uint64  `yaml:"max_bytes"`
	MinPackets   *uint64  `yaml:"min_packets"`
	MaxPackets   *uint64  `yaml:"max_packets"`
	MinStartTime *float64 `yaml:"min_start_time"`
}

// NATSConfig configures the burst export publisher.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// ClickHouseConfig configures the warehouse writer.
type ClickHouseConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Database  string `yaml:"database"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	BatchSize int    `yaml:"batch_size"`
}

// SQLiteConfig configures the local burst store.
type SQLiteConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// OutputConfig controls rendering and the set of active writers.
type OutputConfig struct {
	TimeFormat string           `yaml:"time_format"` // "relative" or "epoch"
	Suppress   bool             `yaml:"suppress"`    // no standard-output rows
	File       string           `yaml:"file"`        // mirror rows to this file
	NATS       NATSConfig       `yaml:"nats"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
}

// APIConfig configures the optional HTTP stats endpoint.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Capture CaptureConfig `yaml:"capture"`
	Burst   BurstConfig   `yaml:"burst"`
	WLAN    WLANConfig    `yaml:"wlan"`
	Filter  FilterConfig  `yaml:"filter"`
	Output  OutputConfig  `yaml:"output"`
	API     APIConfig     `yaml:"api"`
}

const (
	defaultInactiveTime = time.Second
	defaultTickInterval = 250 * time.Millisecond
	defaultMaxDeviation = 50
)

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that must not reach the pipeline:
// unknown modes, non-positive durations and inverted filter bounds.
func (c *Config) Validate() error {
	if _, err := c.InactiveTime(); err != nil {
		return err
	}
	if _, err := c.TickInterval(); err != nil {
		return err
	}
	switch c.Capture.Mode {
	case "", "ip", "wlan":
	default:
		return fmt.Errorf("invalid capture mode: %q", c.Capture.Mode)
	}
	switch c.Output.TimeFormat {
	case "", "relative", "epoch":
	default:
		return fmt.Errorf("invalid time format: %q", c.Output.TimeFormat)
	}
	switch c.WLAN.Average {
	case "", "burst", "flow":
	default:
		return fmt.Errorf("invalid wlan average policy: %q", c.WLAN.Average)
	}
	f := c.Filter
	if f.MinBytes != nil && f.MaxBytes != nil && *f.MinBytes > *f.MaxBytes {
		return fmt.Errorf("min_bytes (%d) exceeds max_bytes (%d)", *f.MinBytes, *f.MaxBytes)
	}
	if f.MinPackets != nil && f.MaxPackets != nil && *f.MinPackets > *f.MaxPackets {
		return fmt.Errorf("min_packets (%d) exceeds max_packets (%d)", *f.MinPackets, *f.MaxPackets)
	}
	if c.Capture.Mode == "wlan" && c.Burst.IgnorePorts {
		return fmt.Errorf("ignore_ports has no effect in wlan mode")
	}
	if c.Output.ClickHouse.Enabled && c.Output.ClickHouse.BatchSize < 0 {
		return fmt.Errorf("clickhouse batch_size must not be negative")
	}
	return nil
}

// InactiveTime returns the parsed inactivity threshold.
func (c *Config) InactiveTime() (time.Duration, error) {
	return c.positiveDuration("inactive_time", c.Burst.InactiveTime, defaultInactiveTime)
}

// TickInterval returns the parsed timeout scheduler period.
func (c *Config) TickInterval() (time.Duration, error) {
	return c.positiveDuration("tick_interval", c.Burst.TickInterval, defaultTickInterval)
}

// MaxDeviation returns the WLAN sequence deviation threshold.
func (c *Config) MaxDeviation() uint16 {
	if c.WLAN.MaxDeviation == 0 {
		return defaultMaxDeviation
	}
	return c.WLAN.MaxDeviation
}

func (c *Config) positiveDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration", name)
	}
	return d, nil
}
