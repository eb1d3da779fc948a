package brake

import "brake-service/dac"

// DualSignal holds the two redundant readings of the brake pedal position
// sensor. Both inputs measure the same pedal through different dividers.
type DualSignal struct {
	adc    ADC
	logger Logger

	highInput ADCInput
	lowInput  ADCInput

	high uint16
	low  uint16

	// priming pair written to the converter right before a mode change
	dacOutputA uint16
	dacOutputB uint16
}

func NewDualSignal(adc ADC, highInput, lowInput ADCInput, logger Logger) *DualSignal {
	return &DualSignal{
		adc:       adc,
		logger:    logger,
		highInput: highInput,
		lowInput:  lowInput,
	}
}

// Update samples both inputs for the current cycle.
func (s *DualSignal) Update() {
	s.high = s.read(s.highInput)
	s.low = s.read(s.lowInput)
}

func (s *DualSignal) High() uint16 {
	return s.high
}

func (s *DualSignal) Low() uint16 {
	return s.low
}

// Average returns the mean of the last two samples.
func (s *DualSignal) Average() uint16 {
	return uint16((uint32(s.high) + uint32(s.low)) / 2)
}

// PreventSignalDiscontinuity samples the pedal as the vehicle sees it right
// now, so that the first frame driven after a transition carries the same
// voltages as the physical sensors.
func (s *DualSignal) PreventSignalDiscontinuity() {
	s.dacOutputA = s.read(s.highInput)
	s.dacOutputB = s.read(s.lowInput)
}

func (s *DualSignal) DACOutputA() uint16 {
	return s.dacOutputA
}

func (s *DualSignal) DACOutputB() uint16 {
	return s.dacOutputB
}

// read returns 0 on a failed sample; two failed inputs look like a grounded
// sensor and are caught by the grounded fault check.
func (s *DualSignal) read(input ADCInput) uint16 {
	v, err := s.adc.Read(input)
	if err != nil {
		s.logger.Warn("Failed to read pedal position input %d: %v", input, err)
		return 0
	}
	if v > dac.MaxOutput {
		v = dac.MaxOutput
	}
	return v
}
