package brake

import (
	"encoding/binary"
	"fmt"

	"github.com/brutella/can"
	"github.com/chewxy/math32"
)

const (
	// Every by-wire frame starts with these two bytes
	MagicByte0 = 0x05
	MagicByte1 = 0xCC

	// Brake CAN IDs
	BrakeEnableFrameID  = 0x70
	BrakeDisableFrameID = 0x71
	BrakeCommandFrameID = 0x72
	BrakeReportFrameID  = 0x73

	// Shared by every by-wire module
	FaultReportFrameID = 0xAF

	reportFrameLength = 8
)

// BrakeCommand is the pedal position requested by the external controller.
type BrakeCommand struct {
	PedalCommand float32
}

// BrakeReport is the status published every control cycle.
type BrakeReport struct {
	Enabled          bool
	OperatorOverride bool
	DTCs             DTCBitfield
}

// FaultReport announces that a module disabled itself because of a fault.
type FaultReport struct {
	Origin FaultOrigin
	DTCs   DTCBitfield
}

// hasMagic checks the by-wire marker in the first two payload bytes
func hasMagic(frame can.Frame) bool {
	return frame.Length >= 2 && frame.Data[0] == MagicByte0 && frame.Data[1] == MagicByte1
}

// ParseBrakeCommand decodes a brake command frame
func ParseBrakeCommand(frame can.Frame) (BrakeCommand, error) {
	if frame.Length < 6 {
		return BrakeCommand{}, fmt.Errorf("brake command frame too short: %d bytes", frame.Length)
	}

	bits := binary.LittleEndian.Uint32(frame.Data[2:6])
	return BrakeCommand{PedalCommand: math32.Float32frombits(bits)}, nil
}

// Frame encodes the command, used by tools and tests driving the module
func (c BrakeCommand) Frame() can.Frame {
	data := make([]byte, reportFrameLength)
	data[0], data[1] = MagicByte0, MagicByte1
	binary.LittleEndian.PutUint32(data[2:6], math32.Float32bits(c.PedalCommand))
	return packFrame(BrakeCommandFrameID, data)
}

// ParseBrakeReport decodes a brake report frame
func ParseBrakeReport(frame can.Frame) (BrakeReport, error) {
	if frame.Length < 5 {
		return BrakeReport{}, fmt.Errorf("brake report frame too short: %d bytes", frame.Length)
	}

	return BrakeReport{
		Enabled:          frame.Data[2] != 0,
		OperatorOverride: frame.Data[3] != 0,
		DTCs:             DTCBitfield(frame.Data[4]),
	}, nil
}

// Frame encodes the report for the bus
func (r BrakeReport) Frame() can.Frame {
	data := make([]byte, reportFrameLength)
	data[0], data[1] = MagicByte0, MagicByte1
	data[2] = boolToByte(r.Enabled)
	data[3] = boolToByte(r.OperatorOverride)
	data[4] = byte(r.DTCs)
	return packFrame(BrakeReportFrameID, data)
}

// ParseFaultReport decodes a fault report frame from any by-wire module
func ParseFaultReport(frame can.Frame) (FaultReport, error) {
	if frame.Length < 7 {
		return FaultReport{}, fmt.Errorf("fault report frame too short: %d bytes", frame.Length)
	}

	return FaultReport{
		Origin: FaultOrigin(binary.LittleEndian.Uint32(frame.Data[2:6])),
		DTCs:   DTCBitfield(frame.Data[6]),
	}, nil
}

// Frame encodes the fault report for the bus
func (r FaultReport) Frame() can.Frame {
	data := make([]byte, reportFrameLength)
	data[0], data[1] = MagicByte0, MagicByte1
	binary.LittleEndian.PutUint32(data[2:6], uint32(r.Origin))
	data[6] = byte(r.DTCs)
	return packFrame(FaultReportFrameID, data)
}

// ControlFrame builds an enable or disable request
func ControlFrame(id uint32) can.Frame {
	return packFrame(id, []byte{MagicByte0, MagicByte1, 0, 0, 0, 0, 0, 0})
}

// packFrame creates a CAN frame with the given ID and data
func packFrame(id uint32, data []byte) can.Frame {
	var frameData [8]byte
	copy(frameData[:], data)
	return can.Frame{
		ID:     id,
		Length: uint8(len(data)),
		Flags:  0,
		Data:   frameData,
	}
}

// Helper function to convert bool to byte
func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
