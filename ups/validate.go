package ups

// Plausibility limits for raw fuel gauge values. The MAX1704x returns
// garbage words during a bus glitch, so anything outside these windows
// is discarded rather than acted on.
const (
	minValidVoltage  = 0.0 // exclusive
	maxValidVoltage  = 6.0 // exclusive
	minValidCapacity = 0.0
	maxValidCapacity = 100.0
)

// RejectReason says why a raw sample was discarded.
type RejectReason int

const (
	RejectNone RejectReason = iota
	// SensorUnavailable means one of the I2C reads failed outright.
	SensorUnavailable
	// CapacityOutOfRange means the capacity word was outside 0-100%.
	CapacityOutOfRange
	// VoltageOutOfRange means the voltage word was outside 0-6V.
	VoltageOutOfRange
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "valid"
	case SensorUnavailable:
		return "sensor unavailable"
	case CapacityOutOfRange:
		return "capacity out of range"
	case VoltageOutOfRange:
		return "voltage out of range"
	default:
		return "unknown"
	}
}

// Validate checks one poll's raw fuel gauge values and returns a
// Reading only if both pass. readErr carries any I2C failure from the
// caller; a rejected sample is a normal outcome during a transient bus
// glitch, never an error. Downstream needs both values, so a single
// bad one discards the pair.
func Validate(voltage, capacity float64, readErr error) (*Reading, RejectReason) {
	if readErr != nil {
		return nil, SensorUnavailable
	}
	if capacity < minValidCapacity || capacity > maxValidCapacity {
		return nil, CapacityOutOfRange
	}
	if voltage <= minValidVoltage || voltage >= maxValidVoltage {
		return nil, VoltageOutOfRange
	}
	return &Reading{Voltage: voltage, Capacity: capacity}, RejectNone
}
