package brake

import "time"

// FaultCondition debounces a raw boolean condition: it confirms only after
// the condition has been observed true on every check for at least the
// requested duration.
type FaultCondition struct {
	clock      Clock
	monitoring bool
	start      time.Time
	confirmed  bool
}

func NewFaultCondition(clock Clock) *FaultCondition {
	return &FaultCondition{clock: clock}
}

// ConditionExceededDuration feeds the current observation and reports
// whether the condition is confirmed. The first true observation only starts
// the timer.
func (f *FaultCondition) ConditionExceededDuration(active bool, duration time.Duration) bool {
	switch {
	case !active:
		f.monitoring = false
		f.confirmed = false
	case !f.monitoring:
		f.monitoring = true
		f.start = f.clock.Now()
	default:
		if f.clock.Now().Sub(f.start) >= duration {
			f.confirmed = true
		}
	}

	return f.confirmed
}

// CheckVoltageGrounded treats both inputs at or near zero as a grounded or
// disconnected sensor; a real pedal never reads zero on both dividers.
func (f *FaultCondition) CheckVoltageGrounded(signal *DualSignal, threshold uint16, duration time.Duration) bool {
	grounded := signal.High() <= threshold && signal.Low() <= threshold
	return f.ConditionExceededDuration(grounded, duration)
}

func (f *FaultCondition) Confirmed() bool {
	return f.confirmed
}
