package ups

// Band is a named battery charge level derived from cell voltage.
type Band int

const (
	BandUnknown Band = iota
	BandCritical
	BandVeryLow
	BandLow
	BandMedium
	BandHigh
	BandFull
)

func (b Band) String() string {
	switch b {
	case BandFull:
		return "Full"
	case BandHigh:
		return "High"
	case BandMedium:
		return "Medium"
	case BandLow:
		return "Low"
	case BandVeryLow:
		return "Very Low"
	case BandCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// Classify maps a cell voltage to a charge band. The boundary between
// Very Low and Critical is the configured shutdown voltage so the
// displayed band always agrees with the decision the engine is about
// to make. Voltages above 4.25V land in Unknown.
func Classify(voltage, minVoltageShutdown float64) Band {
	switch {
	case voltage >= 3.87 && voltage <= 4.25:
		return BandFull
	case voltage >= 3.70 && voltage < 3.87:
		return BandHigh
	case voltage >= 3.55 && voltage < 3.70:
		return BandMedium
	case voltage >= 3.40 && voltage < 3.55:
		return BandLow
	case voltage >= minVoltageShutdown && voltage < 3.40:
		return BandVeryLow
	case voltage < minVoltageShutdown:
		return BandCritical
	default:
		return BandUnknown
	}
}
