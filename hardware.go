package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"brake-service/brake"
	"brake-service/config"
	"brake-service/dac"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	BackendLinux = "linux"
	BackendSim   = "sim"
)

// Converter words go out as two bytes in SPI mode 0
const dacSPIBits = 8

// Hardware bundles the brake module's collaborators on the host
type Hardware struct {
	ADC         brake.ADC
	DAC         brake.DAC
	SpoofEnable brake.OutputPin
	BrakeLight  brake.OutputPin

	HighInput brake.ADCInput
	LowInput  brake.ADCInput

	closers []io.Closer
}

// NewHardware opens the backend named in cfg. The sim backend holds the
// pedal at the bottom of both channel ranges.
func NewHardware(cfg config.HardwareConfig, tuning config.BrakeConfig, logger *LeveledLogger) (*Hardware, error) {
	switch cfg.Backend {
	case BackendLinux:
		return newLinuxHardware(cfg, logger)
	case BackendSim:
		return newSimHardware(cfg, tuning, logger)
	default:
		return nil, fmt.Errorf("unknown hardware backend %q", cfg.Backend)
	}
}

func newLinuxHardware(cfg config.HardwareConfig, logger *LeveledLogger) (*Hardware, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host drivers: %w", err)
	}

	hw := &Hardware{
		ADC:       &iioADC{device: cfg.ADCDevice},
		HighInput: brake.ADCInput(cfg.ADCHighPin),
		LowInput:  brake.ADCInput(cfg.ADCLowPin),
	}

	spoof, err := openGPIOOutput(cfg.SpoofEnableGPIO)
	if err != nil {
		return nil, fmt.Errorf("spoof enable: %w", err)
	}
	hw.SpoofEnable = spoof

	light, err := openGPIOOutput(cfg.BrakeLightGPIO)
	if err != nil {
		return nil, fmt.Errorf("brake light: %w", err)
	}
	hw.BrakeLight = light

	chipSelect, err := openGPIOOutput(cfg.DACChipSelGPIO)
	if err != nil {
		return nil, fmt.Errorf("dac chip select: %w", err)
	}

	port, err := spireg.Open(cfg.DACSPIPort)
	if err != nil {
		return nil, fmt.Errorf("failed to open spi port %s: %w", cfg.DACSPIPort, err)
	}
	hw.closers = append(hw.closers, port)

	conn, err := port.Connect(physic.Frequency(cfg.DACSPIFrequency)*physic.Hertz, spi.Mode0, dacSPIBits)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("failed to configure spi port %s: %w", cfg.DACSPIPort, err)
	}

	converter, err := dac.NewMCP4922(&spiWriter{conn: conn}, chipSelect)
	if err != nil {
		hw.Close()
		return nil, err
	}
	hw.DAC = converter

	logger.Info("Linux hardware opened: adc=%s spi=%s@%s", cfg.ADCDevice, cfg.DACSPIPort, physic.Frequency(cfg.DACSPIFrequency)*physic.Hertz)
	return hw, nil
}

// Close releases the backend's open handles
func (hw *Hardware) Close() error {
	var errs []error
	for _, c := range hw.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	hw.closers = nil
	return errors.Join(errs...)
}

// iioADC reads raw samples from an industrial I/O device
type iioADC struct {
	device string
}

func (a *iioADC) Read(input brake.ADCInput) (uint16, error) {
	path := filepath.Join(a.device, fmt.Sprintf("in_voltage%d_raw", input))

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read adc input %d: %w", input, err)
	}

	raw, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid adc sample %q on input %d: %w", strings.TrimSpace(string(data)), input, err)
	}

	return uint16(raw), nil
}

// gpioOutput is a digital output line driven through periph
type gpioOutput struct {
	pin gpio.PinOut
}

// openGPIOOutput looks the line up by number and drives it low
func openGPIOOutput(number int) (*gpioOutput, error) {
	pin := gpioreg.ByName(strconv.Itoa(number))
	if pin == nil {
		return nil, fmt.Errorf("gpio %d not found", number)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to configure gpio %d as output: %w", number, err)
	}
	return &gpioOutput{pin: pin}, nil
}

func (o *gpioOutput) High() error {
	return o.pin.Out(gpio.High)
}

func (o *gpioOutput) Low() error {
	return o.pin.Out(gpio.Low)
}

// spiTx is the write side of a periph spi.Conn
type spiTx interface {
	Tx(w, r []byte) error
}

// spiWriter sends each converter word as one half-duplex transfer
type spiWriter struct {
	conn spiTx
}

func (s *spiWriter) Write(p []byte) (int, error) {
	if err := s.conn.Tx(p, nil); err != nil {
		return 0, fmt.Errorf("spi transfer failed: %w", err)
	}
	return len(p), nil
}
