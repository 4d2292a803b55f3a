package ups

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBands(t *testing.T) {
	const minShutdown = 3.20

	tests := []struct {
		name    string
		voltage float64
		want    Band
	}{
		{"full upper bound", 4.25, BandFull},
		{"full typical", 4.0, BandFull},
		{"full lower bound", 3.87, BandFull},
		{"high upper", 3.86, BandHigh},
		{"high lower bound", 3.70, BandHigh},
		{"medium upper", 3.69, BandMedium},
		{"medium lower bound", 3.55, BandMedium},
		{"low upper", 3.54, BandLow},
		{"low lower bound", 3.40, BandLow},
		{"very low upper", 3.39, BandVeryLow},
		{"very low lower bound", minShutdown, BandVeryLow},
		{"critical", 3.19, BandCritical},
		{"critical deep", 0.5, BandCritical},
		{"above full is unknown", 4.30, BandUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.voltage, minShutdown))
		})
	}
}

func TestClassifyTracksShutdownThreshold(t *testing.T) {
	// The Very Low / Critical boundary follows the configured
	// threshold so the displayed band matches the decision.
	assert.Equal(t, BandCritical, Classify(3.25, 3.30))
	assert.Equal(t, BandVeryLow, Classify(3.25, 3.20))
}

func TestClassifyPartitionsValidDomain(t *testing.T) {
	// Sweep the whole valid voltage domain below the Full upper bound
	// at millivolt resolution; every voltage must land in exactly one
	// band and the bands must come out in monotonic order.
	for _, minShutdown := range []float64{2.8, 3.0, 3.20, 3.39} {
		prev := BandFull
		for mv := 4250; mv > 0; mv-- {
			v := float64(mv) / 1000.0
			band := Classify(v, minShutdown)
			assert.NotEqual(t, BandUnknown, band, "gap at %.3fV (min=%.2f)", v, minShutdown)
			assert.LessOrEqual(t, int(band), int(prev), "band order broken at %.3fV (min=%.2f)", v, minShutdown)
			prev = band
		}
	}
}
