// Package ups holds the decision core of the UPS monitor: reading
// validation, battery band classification and the debounced shutdown
// state machine. It has no hardware dependencies; the fuel gauge and
// power-loss-detect line are read by the caller and fed in once per
// poll.
package ups

// ACStatus is the state of the external power input as reported by the
// power-loss-detect (PLD) line.
type ACStatus int

const (
	// ACUnknown means AC sensing is disabled and the line is not read.
	ACUnknown ACStatus = iota
	// ACOffline means the PLD line reads low, AC power is lost.
	ACOffline
	// ACOnline means the PLD line reads high, AC power is present.
	ACOnline
)

func (s ACStatus) String() string {
	switch s {
	case ACOffline:
		return "Unplugged"
	case ACOnline:
		return "Plugged in"
	default:
		return "Unknown (PLD disabled)"
	}
}

// Reading is a validated fuel gauge sample. A Reading is only ever
// constructed by Validate; raw values that fail the plausibility checks
// never materialise one.
type Reading struct {
	Voltage  float64 // volts
	Capacity float64 // percent
}
