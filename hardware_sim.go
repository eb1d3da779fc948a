package main

import (
	"sync"

	"brake-service/brake"
	"brake-service/config"
	"brake-service/dac"
)

const (
	simHighInput brake.ADCInput = 0
	simLowInput  brake.ADCInput = 1
)

func newSimHardware(cfg config.HardwareConfig, tuning config.BrakeConfig, logger *LeveledLogger) (*Hardware, error) {
	adc := newSimADC()
	adc.Set(tuning.High.SignalMin, tuning.Low.SignalMin)

	converter, err := dac.NewMCP4922(&simSPI{log: logger}, &simPin{name: "dac-cs", log: logger})
	if err != nil {
		return nil, err
	}

	logger.Info("Simulated hardware: pedal at rest (high=%d low=%d)", tuning.High.SignalMin, tuning.Low.SignalMin)

	return &Hardware{
		ADC:         adc,
		DAC:         converter,
		SpoofEnable: &simPin{name: "spoof-enable", log: logger},
		BrakeLight:  &simPin{name: "brake-light", log: logger},
		HighInput:   simHighInput,
		LowInput:    simLowInput,
	}, nil
}

// simADC returns whatever the pedal was last set to
type simADC struct {
	mu     sync.Mutex
	values map[brake.ADCInput]uint16
}

func newSimADC() *simADC {
	return &simADC{values: make(map[brake.ADCInput]uint16)}
}

func (a *simADC) Read(input brake.ADCInput) (uint16, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.values[input], nil
}

// Set moves the simulated pedal
func (a *simADC) Set(high, low uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[simHighInput] = high
	a.values[simLowInput] = low
}

type simPin struct {
	name  string
	log   *LeveledLogger
	state bool
}

func (p *simPin) High() error {
	if !p.state {
		p.log.Debug("GPIO %s high", p.name)
	}
	p.state = true
	return nil
}

func (p *simPin) Low() error {
	if p.state {
		p.log.Debug("GPIO %s low", p.name)
	}
	p.state = false
	return nil
}

// simSPI accepts every word
type simSPI struct {
	log   *LeveledLogger
	words int
}

func (s *simSPI) Write(p []byte) (int, error) {
	s.words++
	s.log.Debug("SPI word %d: %02X", s.words, p)
	return len(p), nil
}
