package dac

import (
	"fmt"
	"io"
)

// MaxOutput is the largest value the 12-bit converter accepts.
const MaxOutput = 4095

// Output is a 12-bit converter value. Build it with NewOutput so that
// out-of-range magnitudes never reach the driver.
type Output uint16

// NewOutput returns v as an Output, or an error if v does not fit in 12 bits.
func NewOutput(v uint16) (Output, error) {
	if v > MaxOutput {
		return 0, fmt.Errorf("dac output %d out of range [0, %d]", v, MaxOutput)
	}
	return Output(v), nil
}

// MustOutput is NewOutput for values known to be in range. It panics otherwise.
func MustOutput(v uint16) Output {
	out, err := NewOutput(v)
	if err != nil {
		panic(err)
	}
	return out
}

// Value returns the raw magnitude.
func (o Output) Value() uint16 {
	return uint16(o)
}

// Channel selects one of the two converter outputs
type Channel uint8

const (
	ChannelA Channel = iota
	ChannelB
)

func (c Channel) String() string {
	if c == ChannelB {
		return "B"
	}
	return "A"
}

// Command word bits in the high byte
const (
	activeBit  = 1 << 4 // 1 = active operation, 0 = shutdown
	gainBit    = 1 << 6 // left clear, 1x gain
	channelBit = 1 << 7 // 0 = DAC A, 1 = DAC B
)

// ChipSelect is the active-low select line of the converter.
type ChipSelect interface {
	High() error
	Low() error
}

// MCP4922 drives a dual-channel 12-bit serial-input converter.
type MCP4922 struct {
	spi io.Writer
	cs  ChipSelect
}

// NewMCP4922 creates a driver and leaves the device unselected.
func NewMCP4922(spi io.Writer, cs ChipSelect) (*MCP4922, error) {
	if err := cs.High(); err != nil {
		return nil, fmt.Errorf("failed to deselect dac: %w", err)
	}
	return &MCP4922{spi: spi, cs: cs}, nil
}

// Encode builds the two bytes sent for value on channel, high byte first.
func Encode(value Output, channel Channel) [2]byte {
	v := uint16(value)
	if v > MaxOutput {
		v = MaxOutput
	}

	hi := byte(v>>8)&0x0F | activeBit
	hi &^= gainBit
	if channel == ChannelB {
		hi |= channelBit
	}

	return [2]byte{hi, byte(v & 0xFF)}
}

// Output writes value to one channel. The chip select is released whether
// or not the transfer succeeded.
func (d *MCP4922) Output(value Output, channel Channel) error {
	if err := d.cs.Low(); err != nil {
		return fmt.Errorf("failed to select dac: %w", err)
	}

	word := Encode(value, channel)
	_, werr := d.spi.Write(word[:])

	if err := d.cs.High(); err != nil && werr == nil {
		werr = fmt.Errorf("failed to deselect dac: %w", err)
	}

	if werr != nil {
		return fmt.Errorf("dac channel %s write failed: %w", channel, werr)
	}
	return nil
}

// OutputAB writes a to channel A and then b to channel B. These are two
// transfers; on error the channels may hold an inconsistent pair.
func (d *MCP4922) OutputAB(a, b Output) error {
	if err := d.Output(a, ChannelA); err != nil {
		return err
	}
	return d.Output(b, ChannelB)
}
