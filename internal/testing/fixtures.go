package testing

import (
	"math"

	"github.com/aristath/hamilton/internal/domain"
)

// NewQuietParameters returns a one-channel set whose operator vanishes at
// t = 0: sin(0) = 0, no decay amplitude, no noise and every scalar at zero.
func NewQuietParameters() domain.ParameterSet {
	return domain.MustParameterSet(domain.Values{
		ChannelCount:   1,
		Amplitude:      []float64{1.0},
		Frequency:      []float64{domain.MinParamValue},
		Phase:          []float64{0.0},
		DecayAmplitude: []float64{0.0},
		DecayRate:      []float64{1.0},
	})
}

// NewNoiselessParameters returns the default set for channels with sigma = 0,
// so operators are deterministic.
func NewNoiselessParameters(channels int) domain.ParameterSet {
	v := domain.DefaultParameters(channels).Values()
	v.Sigma = 0
	return domain.MustParameterSet(v)
}

// NewOverflowParameters returns a valid set whose operator norm exceeds the
// overflow limit at t = 0.
func NewOverflowParameters() domain.ParameterSet {
	return domain.MustParameterSet(domain.Values{
		ChannelCount:   1,
		Amplitude:      []float64{1e11},
		Frequency:      []float64{1},
		Phase:          []float64{math.Pi / 2},
		DecayAmplitude: []float64{0},
		DecayRate:      []float64{1},
	})
}

// NewSeedFixtures returns a fixed list of seeds for batch tests
func NewSeedFixtures() []uint64 {
	return []uint64{11, 22, 33, 44}
}
