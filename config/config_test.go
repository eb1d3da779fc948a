package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, float32(0), cfg.Brake.CommandMin)
	assert.Equal(t, float32(1), cfg.Brake.CommandMax)
	assert.Equal(t, 100*time.Millisecond, cfg.Brake.FaultHysteresis)
	assert.Less(t, cfg.Brake.Low.SignalMax, cfg.Brake.High.SignalMin, "channel ranges must not overlap")
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brake.yaml")
	data := []byte(`
brake:
  override_threshold: 1500
  fault_hysteresis: 250ms
hardware:
  backend: sim
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint16(1500), cfg.Brake.OverrideThreshold)
	assert.Equal(t, 250*time.Millisecond, cfg.Brake.FaultHysteresis)
	assert.Equal(t, "sim", cfg.Hardware.Backend)

	// untouched fields keep their defaults
	def := Default()
	assert.Equal(t, def.Brake.High, cfg.Brake.High)
	assert.Equal(t, def.Brake.StepsPerVolt, cfg.Brake.StepsPerVolt)
	assert.Equal(t, def.Hardware.DACSPIPort, cfg.Hardware.DACSPIPort)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brake.yaml")
	require.NoError(t, os.WriteFile(path, []byte("brake: [1, 2"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidTuning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brake.yaml")
	data := []byte(`
brake:
  low:
    signal_min: 1100
    signal_max: 1200
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "overlap")
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brake.yaml")

	cfg := Default()
	cfg.Brake.GroundedThreshold = 20
	cfg.Hardware.Backend = "sim"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"empty command range", func(c *Config) { c.Brake.CommandMin = 1 }, "command range"},
		{"inverted high voltage", func(c *Config) { c.Brake.High.VoltageMin = 4 }, "high voltage range"},
		{"inverted low signal", func(c *Config) { c.Brake.Low.SignalMin = 2000 }, "low signal range"},
		{"signal beyond 12 bits", func(c *Config) { c.Brake.High.SignalMax = 5000 }, "exceeds 12 bits"},
		{"zero steps per volt", func(c *Config) { c.Brake.StepsPerVolt = 0 }, "steps_per_volt"},
		{"negative hysteresis", func(c *Config) { c.Brake.FaultHysteresis = -time.Second }, "fault_hysteresis"},
		{"zero control period", func(c *Config) { c.Brake.ControlPeriod = 0 }, "control_period"},
		{"unknown backend", func(c *Config) { c.Hardware.Backend = "arduino" }, "backend"},
		{"negative spi frequency", func(c *Config) { c.Hardware.DACSPIFrequency = -1 }, "dac_spi_frequency_hz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}
