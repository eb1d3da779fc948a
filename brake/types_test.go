package brake

import (
	"testing"

	"github.com/brutella/can"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeCANFrame(id uint32, data []byte) can.Frame {
	f := can.Frame{
		ID:     id,
		Length: uint8(len(data)),
	}
	copy(f.Data[:], data)
	return f
}

func TestParseBrakeCommand(t *testing.T) {
	// 0.5 as little-endian IEEE 754 single
	frame := makeCANFrame(BrakeCommandFrameID, []byte{0x05, 0xCC, 0x00, 0x00, 0x00, 0x3F, 0, 0})

	cmd, err := ParseBrakeCommand(frame)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), cmd.PedalCommand)
}

func TestParseBrakeCommand_ShortFrame(t *testing.T) {
	_, err := ParseBrakeCommand(makeCANFrame(BrakeCommandFrameID, []byte{0x05, 0xCC, 0x00}))
	assert.Error(t, err)
}

func TestBrakeCommand_Frame(t *testing.T) {
	frame := BrakeCommand{PedalCommand: 1.0}.Frame()

	assert.Equal(t, uint32(BrakeCommandFrameID), frame.ID)
	assert.Equal(t, uint8(8), frame.Length)
	assert.Equal(t, [8]byte{0x05, 0xCC, 0x00, 0x00, 0x80, 0x3F, 0, 0}, frame.Data)
}

func TestBrakeReport_Layout(t *testing.T) {
	var dtcs DTCBitfield
	dtcs.Set(DTCOperatorOverride)

	frame := BrakeReport{Enabled: false, OperatorOverride: true, DTCs: dtcs}.Frame()

	assert.Equal(t, uint32(BrakeReportFrameID), frame.ID)
	assert.Equal(t, uint8(8), frame.Length)
	assert.Equal(t, [8]byte{0x05, 0xCC, 0x00, 0x01, 0x02, 0, 0, 0}, frame.Data)
}

func TestFaultReport_Layout(t *testing.T) {
	var dtcs DTCBitfield
	dtcs.Set(DTCInvalidSensorValue)

	frame := FaultReport{Origin: FaultOriginBrake, DTCs: dtcs}.Frame()
	assert.Equal(t, uint32(FaultReportFrameID), frame.ID)
	assert.Equal(t, [8]byte{0x05, 0xCC, 0, 0, 0, 0, 0x01, 0}, frame.Data)

	report, err := ParseFaultReport(makeCANFrame(FaultReportFrameID, []byte{0x05, 0xCC, 0x02, 0, 0, 0, 0x04, 0}))
	require.NoError(t, err)
	assert.Equal(t, FaultOriginThrottle, report.Origin)
	assert.True(t, report.DTCs.Has(DTCOutputTransfer))
}

func TestHasMagic(t *testing.T) {
	tests := []struct {
		data []byte
		want bool
	}{
		{[]byte{0x05, 0xCC}, true},
		{[]byte{0x05, 0xCC, 0x01, 0x02}, true},
		{[]byte{0x05}, false},
		{[]byte{0xCC, 0x05}, false},
		{[]byte{}, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, hasMagic(makeCANFrame(BrakeEnableFrameID, tt.data)), "data %X", tt.data)
	}
}

func TestDTCBitfield(t *testing.T) {
	var b DTCBitfield
	assert.Empty(t, b.Active())

	b.Set(DTCInvalidSensorValue)
	b.Set(DTCOutputTransfer)
	assert.Equal(t, DTCBitfield(0x05), b)
	assert.Equal(t, []DTC{DTCInvalidSensorValue, DTCOutputTransfer}, b.Active())
	assert.False(t, b.Has(DTCOperatorOverride))

	b.Clear()
	assert.Equal(t, DTCBitfield(0), b)
}

func TestGetDTCDescription(t *testing.T) {
	assert.Equal(t, "Operator override", GetDTCDescription(DTCOperatorOverride))
	assert.Equal(t, "Unknown DTC", GetDTCDescription(DTC(7)))
}

func TestFaultOrigin_String(t *testing.T) {
	assert.Equal(t, "steering", FaultOriginSteering.String())
	assert.Equal(t, "unknown(9)", FaultOrigin(9).String())
}
