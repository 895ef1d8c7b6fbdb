package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
capture:
  mode: wlan
burst:
  inactive_time: "2s"
  tick_interval: "100ms"
wlan:
  max_deviation: 25
  average: flow
output:
  time_format: epoch
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "wlan", cfg.Capture.Mode)
	inactive, err := cfg.InactiveTime()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, inactive)
	tick, err := cfg.TickInterval()
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, tick)
	assert.Equal(t, uint16(25), cfg.MaxDeviation())
	assert.Equal(t, "flow", cfg.WLAN.Average)
	assert.Equal(t, "epoch", cfg.Output.TimeFormat)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{}`))
	require.NoError(t, err)

	inactive, err := cfg.InactiveTime()
	require.NoError(t, err)
	assert.Equal(t, time.Second, inactive)
	tick, err := cfg.TickInterval()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, tick)
	assert.Equal(t, uint16(50), cfg.MaxDeviation())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsInvalidConfigs(t *testing.T) {
	min, max := uint64(100), uint64(10)
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Capture.Mode = "bluetooth" }},
		{"unknown time format", func(c *Config) { c.Output.TimeFormat = "iso" }},
		{"unknown average policy", func(c *Config) { c.WLAN.Average = "median" }},
		{"bad inactive time", func(c *Config) { c.Burst.InactiveTime = "soon" }},
		{"negative inactive time", func(c *Config) { c.Burst.InactiveTime = "-1s" }},
		{"bad tick interval", func(c *Config) { c.Burst.TickInterval = "often" }},
		{"min bytes above max", func(c *Config) { c.Filter.MinBytes, c.Filter.MaxBytes = &min, &max }},
		{"min packets above max", func(c *Config) { c.Filter.MinPackets, c.Filter.MaxPackets = &min, &max }},
		{"ignore ports in wlan mode", func(c *Config) {
			c.Capture.Mode = "wlan"
			c.Burst.IgnorePorts = true
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Config
			tc.mod(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAcceptsEqualBounds(t *testing.T) {
	bound := uint64(500)
	cfg := Config{}
	cfg.Filter.MinBytes, cfg.Filter.MaxBytes = &bound, &bound
	assert.NoError(t, cfg.Validate())
}
