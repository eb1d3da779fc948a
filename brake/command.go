package brake

import (
	"brake-service/config"
	"brake-service/dac"

	"github.com/chewxy/math32"
)

func (m *Module) processBrakeCommand(command BrakeCommand) {
	high, low := m.spoofValues(command.PedalCommand)
	m.UpdateCommand(high, low)
}

// spoofValues translates a pedal position into the converter counts of the
// high and low sensor channels.
func (m *Module) spoofValues(pedalCommand float32) (high, low uint16) {
	t := &m.tuning

	position := clampF32(pedalCommand, t.CommandMin, t.CommandMax)

	voltageHigh := clampF32(
		positionToVolts(position, t.CommandMin, t.CommandMax, t.High),
		t.High.VoltageMin,
		t.High.VoltageMax,
	)
	voltageLow := clampF32(
		positionToVolts(position, t.CommandMin, t.CommandMax, t.Low),
		t.Low.VoltageMin,
		t.Low.VoltageMax,
	)

	return voltsToSteps(voltageHigh, t.StepsPerVolt), voltsToSteps(voltageLow, t.StepsPerVolt)
}

// positionToVolts maps the command range linearly onto the channel's
// voltage range.
func positionToVolts(position, commandMin, commandMax float32, ch config.ChannelConfig) float32 {
	fraction := (position - commandMin) / (commandMax - commandMin)
	return fraction*(ch.VoltageMax-ch.VoltageMin) + ch.VoltageMin
}

// voltsToSteps truncates to whole converter counts.
func voltsToSteps(volts, stepsPerVolt float32) uint16 {
	steps := math32.Trunc(stepsPerVolt * volts)
	return uint16(clampF32(steps, 0, dac.MaxOutput))
}

// clampF32 maps NaN to lo.
func clampF32(v, lo, hi float32) float32 {
	if math32.IsNaN(v) {
		return lo
	}
	return math32.Max(lo, math32.Min(hi, v))
}
