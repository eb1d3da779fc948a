package brake

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(log.New(&buf, "", 0), false)

	l.Debug("hidden %d", 1)
	l.Info("info %d", 2)
	l.Warn("warn %d", 3)
	l.Error("error %d", 4)

	assert.Equal(t, "brake: info 2\nbrake WARN: warn 3\nbrake ERROR: error 4\n", buf.String())
}

func TestStdLogger_DebugCAN(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(log.New(&buf, "", 0), true)

	frame := BrakeReport{Enabled: true}.Frame()
	DebugCANFrame(l, "TX", frame.ID, frame.Data, 5)
	assert.Equal(t, "brake DEBUG: TX 0x073 05 CC 01 00 00\n", buf.String())

	buf.Reset()
	l.DebugCAN("RX", 0x70, []byte{0x05, 0xCC}, 8)
	assert.Equal(t, "brake DEBUG: RX 0x070 05 CC\n", buf.String(), "length is capped to the payload")

	buf.Reset()
	NewStdLogger(log.New(&buf, "", 0), false).DebugCAN("RX", 0x70, []byte{0x05, 0xCC}, 2)
	assert.Empty(t, buf.String())
}

func TestNewModule_FallbackLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	r := newTestRig()
	m, err := NewModule(ModuleConfig{
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
	require.NoError(t, err)

	m.Enable()
	assert.Contains(t, buf.String(), "brake: Brake control enabled (primed high=600 low=300)")
}
