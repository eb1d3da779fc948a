package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the per-vehicle tuning and the pin mapping of the brake module.
type Config struct {
	Brake    BrakeConfig    `yaml:"brake"`
	Hardware HardwareConfig `yaml:"hardware"`
}

// BrakeConfig contains the brake control tuning.
type BrakeConfig struct {
	// Pedal command range accepted from the bus
	CommandMin float32 `yaml:"command_min"`
	CommandMax float32 `yaml:"command_max"`

	High ChannelConfig `yaml:"high"`
	Low  ChannelConfig `yaml:"low"`

	OverrideThreshold uint16        `yaml:"override_threshold"` // averaged ADC counts
	GroundedThreshold uint16        `yaml:"grounded_threshold"` // ADC counts, both channels at or below
	FaultHysteresis   time.Duration `yaml:"fault_hysteresis"`
	StepsPerVolt      float32       `yaml:"steps_per_volt"`
	ControlPeriod     time.Duration `yaml:"control_period"`
}

// ChannelConfig describes one of the two redundant spoof channels.
type ChannelConfig struct {
	VoltageMin          float32 `yaml:"voltage_min"`
	VoltageMax          float32 `yaml:"voltage_max"`
	SignalMin           uint16  `yaml:"signal_min"` // DAC counts
	SignalMax           uint16  `yaml:"signal_max"`
	BrakeLightThreshold uint16  `yaml:"brake_light_threshold"`
}

// HardwareConfig maps the module's collaborators onto the host.
type HardwareConfig struct {
	Backend string `yaml:"backend"` // "linux" or "sim"

	// Sysfs IIO device holding in_voltageN_raw files
	ADCDevice  string `yaml:"adc_device"`
	ADCHighPin int    `yaml:"adc_high_channel"`
	ADCLowPin  int    `yaml:"adc_low_channel"`

	SpoofEnableGPIO int `yaml:"spoof_enable_gpio"`
	BrakeLightGPIO  int `yaml:"brake_light_gpio"`
	DACChipSelGPIO  int `yaml:"dac_chip_select_gpio"`

	// spidev port of the converter; chip select is driven on DACChipSelGPIO
	DACSPIPort      string `yaml:"dac_spi_port"`
	DACSPIFrequency int    `yaml:"dac_spi_frequency_hz"`
}

// Default returns the Kia Niro tuning with the reference board pin mapping.
func Default() *Config {
	return &Config{
		Brake: BrakeConfig{
			CommandMin: 0.0,
			CommandMax: 1.0,
			High: ChannelConfig{
				VoltageMin:          1.300,
				VoltageMax:          3.060,
				SignalMin:           1064,
				SignalMax:           2506,
				BrakeLightThreshold: 1228,
			},
			Low: ChannelConfig{
				VoltageMin:          0.336,
				VoltageMax:          1.200,
				SignalMin:           275,
				SignalMax:           983,
				BrakeLightThreshold: 368,
			},
			OverrideThreshold: 1300,
			GroundedThreshold: 8,
			FaultHysteresis:   100 * time.Millisecond,
			StepsPerVolt:      4096.0 / 5.0,
			ControlPeriod:     50 * time.Millisecond,
		},
		Hardware: HardwareConfig{
			Backend:         "linux",
			ADCDevice:       "/sys/bus/iio/devices/iio:device0",
			ADCHighPin:      0,
			ADCLowPin:       1,
			SpoofEnableGPIO: 17,
			BrakeLightGPIO:  27,
			DACChipSelGPIO:  22,
			DACSPIPort:      "/dev/spidev0.0",
			DACSPIFrequency: 1000000,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; missing fields are filled from the defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults fills zero values that have no meaningful zero setting.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Brake.CommandMax == 0 {
		c.Brake.CommandMax = def.Brake.CommandMax
	}
	if c.Brake.FaultHysteresis == 0 {
		c.Brake.FaultHysteresis = def.Brake.FaultHysteresis
	}
	if c.Brake.StepsPerVolt == 0 {
		c.Brake.StepsPerVolt = def.Brake.StepsPerVolt
	}
	if c.Brake.ControlPeriod == 0 {
		c.Brake.ControlPeriod = def.Brake.ControlPeriod
	}
	if c.Brake.OverrideThreshold == 0 {
		c.Brake.OverrideThreshold = def.Brake.OverrideThreshold
	}

	if c.Hardware.Backend == "" {
		c.Hardware.Backend = def.Hardware.Backend
	}
	if c.Hardware.ADCDevice == "" {
		c.Hardware.ADCDevice = def.Hardware.ADCDevice
	}
	if c.Hardware.DACSPIPort == "" {
		c.Hardware.DACSPIPort = def.Hardware.DACSPIPort
	}
	if c.Hardware.DACSPIFrequency == 0 {
		c.Hardware.DACSPIFrequency = def.Hardware.DACSPIFrequency
	}
}

// Validate checks that the tuning is internally consistent.
func (c *Config) Validate() error {
	b := &c.Brake

	if b.CommandMin >= b.CommandMax {
		return fmt.Errorf("command range [%g, %g] is empty", b.CommandMin, b.CommandMax)
	}
	if err := b.High.validate("high"); err != nil {
		return err
	}
	if err := b.Low.validate("low"); err != nil {
		return err
	}
	if rangesOverlap(b.High.SignalMin, b.High.SignalMax, b.Low.SignalMin, b.Low.SignalMax) {
		return errors.New("high and low signal ranges overlap")
	}
	if b.StepsPerVolt <= 0 {
		return fmt.Errorf("steps_per_volt must be positive, got %g", b.StepsPerVolt)
	}
	if b.FaultHysteresis < 0 {
		return fmt.Errorf("fault_hysteresis must not be negative, got %s", b.FaultHysteresis)
	}
	if b.ControlPeriod <= 0 {
		return fmt.Errorf("control_period must be positive, got %s", b.ControlPeriod)
	}

	if c.Hardware.DACSPIFrequency < 0 {
		return fmt.Errorf("dac_spi_frequency_hz must be positive, got %d", c.Hardware.DACSPIFrequency)
	}

	switch c.Hardware.Backend {
	case "linux", "sim":
	default:
		return fmt.Errorf("unknown hardware backend %q (must be 'linux' or 'sim')", c.Hardware.Backend)
	}

	return nil
}

func (ch *ChannelConfig) validate(name string) error {
	if ch.VoltageMin >= ch.VoltageMax {
		return fmt.Errorf("%s voltage range [%g, %g] is empty", name, ch.VoltageMin, ch.VoltageMax)
	}
	if ch.SignalMin >= ch.SignalMax {
		return fmt.Errorf("%s signal range [%d, %d] is empty", name, ch.SignalMin, ch.SignalMax)
	}
	if ch.SignalMax > 4095 {
		return fmt.Errorf("%s signal max %d exceeds 12 bits", name, ch.SignalMax)
	}
	return nil
}

func rangesOverlap(aMin, aMax, bMin, bMax uint16) bool {
	return aMin <= bMax && bMin <= aMax
}
