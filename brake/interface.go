package brake

import (
	"time"

	"brake-service/dac"

	"github.com/brutella/can"
)

// ADCInput identifies one analog input of the sampling driver.
type ADCInput int

// ADC samples 12-bit readings from named analog inputs.
type ADC interface {
	Read(input ADCInput) (uint16, error)
}

// OutputPin is a digital output owned by the module.
type OutputPin interface {
	High() error
	Low() error
}

// DAC drives both spoof channels of the converter.
type DAC interface {
	OutputAB(a, b dac.Output) error
}

// Publisher sends frames on the control bus. *can.Bus satisfies it.
type Publisher interface {
	Publish(frame can.Frame) error
}

// Clock is the monotonic time source used for fault hysteresis.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock, which carries a monotonic reading.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
