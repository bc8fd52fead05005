package quantum

import (
	"math"
	"testing"

	"github.com/aristath/hamilton/internal/domain"
	testingpkg "github.com/aristath/hamilton/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal(t *testing.T) {
	e := newTestEngine(t, 2, 10)

	tests := []struct {
		name  string
		state []complex128
		want  float64
	}{
		{"ground state", []complex128{1, 0, 0, 0}, 0},
		{"uniform superposition", []complex128{0.5, 0.5, 0.5, 0.5}, 1},
		{"alternating signs", []complex128{0.5, -0.5, -0.5, 0.5}, -1},
		{"single flip", []complex128{0, 1, 0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Signal(tt.state)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-15)
		})
	}

	_, err := e.Signal([]complex128{1, 0})
	assert.ErrorIs(t, err, domain.ErrState)
}

func TestSignal_BoundedAfterEvolution(t *testing.T) {
	e := newTestEngine(t, 3, 30)
	_, err := e.Evolve(domain.DefaultParameters(3), DefaultTimeStep, 30)
	require.NoError(t, err)

	s := e.CurrentSignal()
	assert.GreaterOrEqual(t, s, -1.0)
	assert.LessOrEqual(t, s, 1.0)
}

func TestOptimalTiming(t *testing.T) {
	e := newTestEngine(t, 2, 7)
	p := testingpkg.NewNoiselessParameters(2)

	got, err := e.OptimalTiming(p)
	require.NoError(t, err)

	steps := got / DefaultTimeStep
	assert.InDelta(t, math.Round(steps), steps, 1e-9)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.Less(t, got, 7*DefaultTimeStep)
}

func TestOptimalTiming_PicksFlattestPoint(t *testing.T) {
	// A single channel A·sin(B·t + φ) changes slowest at its crest. With
	// B = 1 and φ = π/2 - 0.505 the crest sits at t = 0.505, centred in the
	// sample interval [0.50, 0.51].
	p, err := domain.NewParameterSet(domain.Values{
		ChannelCount:   1,
		Amplitude:      []float64{1},
		Frequency:      []float64{1},
		Phase:          []float64{math.Pi/2 - 0.505},
		DecayAmplitude: []float64{0},
		DecayRate:      []float64{1},
		B:              -60,
		Tau:            100,
	})
	require.NoError(t, err)

	e := newTestEngine(t, 1, 200)
	got, err := e.OptimalTiming(p)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 1e-9)
}
