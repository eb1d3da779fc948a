package brake

import "fmt"

// DTC is the bit index of a brake diagnostic trouble code.
type DTC uint8

const (
	DTCInvalidSensorValue DTC = iota
	DTCOperatorOverride
	DTCOutputTransfer
)

var dtcDescriptions = map[DTC]string{
	DTCInvalidSensorValue: "Invalid pedal position sensor value",
	DTCOperatorOverride:   "Operator override",
	DTCOutputTransfer:     "Spoof output transfer failed",
}

// GetDTCDescription returns a human-readable description of a DTC
func GetDTCDescription(dtc DTC) string {
	if desc, ok := dtcDescriptions[dtc]; ok {
		return desc
	}
	return "Unknown DTC"
}

// DTCBitfield holds the latched DTCs of a module as it appears on the bus.
type DTCBitfield uint8

func (b *DTCBitfield) Set(dtc DTC) {
	*b |= 1 << dtc
}

func (b DTCBitfield) Has(dtc DTC) bool {
	return b&(1<<dtc) != 0
}

func (b *DTCBitfield) Clear() {
	*b = 0
}

// Active lists the DTCs set in b, lowest bit first.
func (b DTCBitfield) Active() []DTC {
	var dtcs []DTC
	for dtc := DTC(0); dtc < 8; dtc++ {
		if b.Has(dtc) {
			dtcs = append(dtcs, dtc)
		}
	}
	return dtcs
}

// FaultOrigin identifies the by-wire module that raised a fault report.
type FaultOrigin uint32

const (
	FaultOriginBrake FaultOrigin = iota
	FaultOriginSteering
	FaultOriginThrottle
)

func (o FaultOrigin) String() string {
	switch o {
	case FaultOriginBrake:
		return "brake"
	case FaultOriginSteering:
		return "steering"
	case FaultOriginThrottle:
		return "throttle"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(o))
	}
}
