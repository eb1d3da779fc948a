package brake

import (
	"errors"
	"time"

	"brake-service/config"
	"brake-service/dac"

	"github.com/brutella/can"
)

// testLogger implements Logger for testing
type testLogger struct{}

func (l *testLogger) Printf(format string, v ...interface{}) {}
func (l *testLogger) Debug(format string, v ...interface{})  {}
func (l *testLogger) Info(format string, v ...interface{})   {}
func (l *testLogger) Warn(format string, v ...interface{})   {}
func (l *testLogger) Error(format string, v ...interface{})  {}
func (l *testLogger) DebugCAN(direction string, id uint32, data []byte, length uint8) {
}

const (
	inputHigh ADCInput = 0
	inputLow  ADCInput = 1
)

type fakeADC struct {
	values map[ADCInput]uint16
	errs   map[ADCInput]error
	reads  int
}

func newFakeADC(high, low uint16) *fakeADC {
	return &fakeADC{
		values: map[ADCInput]uint16{inputHigh: high, inputLow: low},
		errs:   map[ADCInput]error{},
	}
}

func (a *fakeADC) Read(input ADCInput) (uint16, error) {
	a.reads++
	if err := a.errs[input]; err != nil {
		return 0, err
	}
	return a.values[input], nil
}

func (a *fakeADC) set(high, low uint16) {
	a.values[inputHigh] = high
	a.values[inputLow] = low
}

type fakePin struct {
	high     bool
	writes   int
	failHigh bool
}

func (p *fakePin) High() error {
	if p.failHigh {
		return errors.New("gpio line busy")
	}
	p.high = true
	p.writes++
	return nil
}

func (p *fakePin) Low() error {
	p.high = false
	p.writes++
	return nil
}

type pair struct {
	a, b uint16
}

type fakeDAC struct {
	pairs []pair
	fail  bool
}

func (d *fakeDAC) OutputAB(a, b dac.Output) error {
	if d.fail {
		return errors.New("spi transfer timeout")
	}
	d.pairs = append(d.pairs, pair{a.Value(), b.Value()})
	return nil
}

func (d *fakeDAC) last() pair {
	return d.pairs[len(d.pairs)-1]
}

type fakeBus struct {
	frames []can.Frame
}

func (b *fakeBus) Publish(frame can.Frame) error {
	b.frames = append(b.frames, frame)
	return nil
}

func (b *fakeBus) count(id uint32) int {
	n := 0
	for _, f := range b.frames {
		if f.ID == id {
			n++
		}
	}
	return n
}

func (b *fakeBus) lastFrame(id uint32) (can.Frame, bool) {
	for i := len(b.frames) - 1; i >= 0; i-- {
		if b.frames[i].ID == id {
			return b.frames[i], true
		}
	}
	return can.Frame{}, false
}

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// testRig bundles a module with all of its fakes
type testRig struct {
	module     *Module
	adc        *fakeADC
	dac        *fakeDAC
	bus        *fakeBus
	clock      *fakeClock
	spoof      *fakePin
	brakeLight *fakePin
	tuning     config.BrakeConfig
}

const cycle = 10 * time.Millisecond

// Pedal at rest: well above ground, well below the override threshold
const (
	restHigh = 600
	restLow  = 300
)

func newTestRig() *testRig {
	r := &testRig{
		adc:        newFakeADC(restHigh, restLow),
		dac:        &fakeDAC{},
		bus:        &fakeBus{},
		clock:      newFakeClock(),
		spoof:      &fakePin{},
		brakeLight: &fakePin{},
		tuning:     config.Default().Brake,
	}

	m, err := NewModule(ModuleConfig{
		Logger:         &testLogger{},
		Bus:            r.bus,
		ADC:            r.adc,
		DAC:            r.dac,
		Clock:          r.clock,
		SpoofEnable:    r.spoof,
		BrakeLight:     r.brakeLight,
		PedalHighInput: inputHigh,
		PedalLowInput:  inputLow,
		Tuning:         r.tuning,
	})
	if err != nil {
		panic(err)
	}
	r.module = m
	return r
}

// runCycle advances the clock by one control period and runs the periodic task
func (r *testRig) runCycle() {
	r.clock.Advance(cycle)
	r.module.CheckForFaults()
	r.module.PublishStatusReport()
}

func (r *testRig) runCycles(n int) {
	for i := 0; i < n; i++ {
		r.runCycle()
	}
}

func (r *testRig) lastStatus() BrakeReport {
	frame, ok := r.bus.lastFrame(BrakeReportFrameID)
	if !ok {
		return BrakeReport{}
	}
	report, _ := ParseBrakeReport(frame)
	return report
}

func (r *testRig) lastFault() FaultReport {
	frame, ok := r.bus.lastFrame(FaultReportFrameID)
	if !ok {
		return FaultReport{}
	}
	report, _ := ParseFaultReport(frame)
	return report
}
