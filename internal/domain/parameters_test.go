package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validValues() Values {
	return Values{
		ChannelCount:   2,
		Amplitude:      []float64{0.5, 0.7},
		Frequency:      []float64{0.1, 1.0},
		Phase:          []float64{0, 0.3},
		DecayAmplitude: []float64{0.3, 0.2},
		DecayRate:      []float64{0.1, 0.4},
		A:              1,
		X0:             0.5,
		Sigma:          0.01,
		Beta:           0.05,
	}
}

func TestNewParameterSet_Valid(t *testing.T) {
	p, err := NewParameterSet(validValues())
	require.NoError(t, err)

	assert.Equal(t, 2, p.ChannelCount())
	assert.Equal(t, 0.7, p.Channel(FieldAmplitude, 1))
	assert.Equal(t, 0.5, p.Scalar(FieldX0))
	assert.Equal(t, validValues(), p.Values())
}

func TestNewParameterSet_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(v *Values)
		field  string
	}{
		{"zero channels", func(v *Values) { v.ChannelCount = 0 }, "channelCount"},
		{"length mismatch", func(v *Values) { v.Phase = []float64{0} }, "phase"},
		{"tiny amplitude", func(v *Values) { v.Amplitude[0] = 1e-11 }, "amplitude[0]"},
		{"zero frequency", func(v *Values) { v.Frequency[1] = 0 }, "frequency[1]"},
		{"negative decay rate", func(v *Values) { v.DecayRate[0] = -1 }, "decayRate[0]"},
		{"noise too large", func(v *Values) { v.Sigma = -1.5 }, "sigma"},
		{"non-finite scalar", func(v *Values) { v.Gamma = math.Inf(1) }, "gamma"},
		{"non-finite channel", func(v *Values) { v.DecayAmplitude[1] = math.NaN() }, "decayAmplitude[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validValues()
			tt.mutate(&v)

			_, err := NewParameterSet(v)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var errs ValidationErrors
			require.True(t, errors.As(err, &errs))
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestNewParameterSet_BoundaryValues(t *testing.T) {
	v := validValues()
	v.Amplitude[0] = MinParamValue
	v.Sigma = MaxNoiseAmplitude

	_, err := NewParameterSet(v)
	assert.NoError(t, err)
}

func TestParameterSet_NoAliasing(t *testing.T) {
	v := validValues()
	p, err := NewParameterSet(v)
	require.NoError(t, err)

	// Mutating the input after construction does not leak in.
	v.Amplitude[0] = 99
	assert.Equal(t, 0.5, p.Channel(FieldAmplitude, 0))

	// Mutating an accessor's result does not leak in either.
	amp := p.ChannelValues(FieldAmplitude)
	amp[0] = 99
	assert.Equal(t, 0.5, p.Channel(FieldAmplitude, 0))

	out := p.Values()
	out.Frequency[0] = 99
	assert.Equal(t, 0.1, p.Channel(FieldFrequency, 0))
}

func TestParameterSet_Perturb(t *testing.T) {
	p, err := NewParameterSet(validValues())
	require.NoError(t, err)

	plus, err := p.Perturb(FieldPhase, 1, 1e-5)
	require.NoError(t, err)
	assert.InDelta(t, 0.30001, plus.Channel(FieldPhase, 1), 1e-15)
	assert.Equal(t, 0.3, p.Channel(FieldPhase, 1))
	assert.Equal(t, p.Channel(FieldPhase, 0), plus.Channel(FieldPhase, 0))

	eta, err := p.Perturb(FieldEta, 0, -2)
	require.NoError(t, err)
	assert.Equal(t, -2.0, eta.Scalar(FieldEta))
	assert.Equal(t, 0.0, p.Scalar(FieldEta))

	// Perturbations are validated like any other construction.
	_, err = p.Perturb(FieldSigma, 0, 5)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = p.WithChannelDelta(FieldAmplitude, 2, 1)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = p.WithScalarDelta(FieldAmplitude, 1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParameterSet_FlattenRoundTrip(t *testing.T) {
	p, err := NewParameterSet(validValues())
	require.NoError(t, err)

	flat := p.Flatten()
	require.Len(t, flat, p.Len())
	assert.Equal(t, 5*2+11, p.Len())

	// Channel fields come first, each expanded, then scalars in field order.
	assert.Equal(t, []float64{0.5, 0.7}, flat[0:2])
	assert.Equal(t, 1.0, flat[10])
	assert.Equal(t, 0.05, flat[len(flat)-1])

	flat[0] = 0.9
	q, err := p.WithFlat(flat)
	require.NoError(t, err)
	assert.Equal(t, 0.9, q.Channel(FieldAmplitude, 0))
	assert.Equal(t, 0.5, p.Channel(FieldAmplitude, 0))

	_, err = p.WithFlat(flat[:3])
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFields(t *testing.T) {
	assert.Len(t, Fields(), 16)
	assert.Len(t, ChannelFields(), 5)
	assert.Len(t, ScalarFields(), 11)

	assert.Equal(t, "decayAmplitude", FieldDecayAmplitude.String())
	assert.Equal(t, "alpha2", FieldAlpha2.String())
	assert.True(t, FieldDecayRate.IsChannel())
	assert.False(t, FieldA.IsChannel())
}

func TestDefaultParameters(t *testing.T) {
	p := DefaultParameters(4)
	assert.Equal(t, 4, p.ChannelCount())
	assert.InDeltaSlice(t, []float64{0.1, 0.4, 0.7, 1.0}, p.ChannelValues(FieldFrequency), 1e-12)
	assert.Equal(t, 5.0, p.Scalar(FieldTau))

	single := DefaultParameters(1)
	assert.Equal(t, []float64{0.1}, single.ChannelValues(FieldFrequency))
}

func TestOperatorError(t *testing.T) {
	err := &OperatorError{Time: 1.5, Err: ErrNumericalOverflow}
	assert.ErrorIs(t, err, ErrNumericalOverflow)
	assert.Contains(t, err.Error(), "t=1.5")
}

func TestFlatIndexMatchesFlatten(t *testing.T) {
	p, err := NewParameterSet(validValues())
	require.NoError(t, err)

	flat := p.Flatten()
	n := p.ChannelCount()
	for _, f := range ChannelFields() {
		for i := 0; i < n; i++ {
			assert.Equal(t, p.Channel(f, i), flat[FlatIndex(f, i, n)], "%s[%d]", f, i)
		}
	}
	for _, f := range ScalarFields() {
		assert.Equal(t, p.Scalar(f), flat[FlatIndex(f, 0, n)], "%s", f)
	}
}

func TestProject(t *testing.T) {
	p, err := NewParameterSet(validValues())
	require.NoError(t, err)
	n := p.ChannelCount()

	x := p.Flatten()
	assert.Equal(t, 0, Project(x, n))
	assert.Equal(t, p.Flatten(), x)

	x[FlatIndex(FieldFrequency, 1, n)] = -0.2
	x[FlatIndex(FieldSigma, 0, n)] = 1.2
	x[FlatIndex(FieldPhase, 0, n)] = -3 // unbounded, left alone
	assert.Equal(t, 2, Project(x, n))
	assert.Equal(t, MinParamValue, x[FlatIndex(FieldFrequency, 1, n)])
	assert.Equal(t, MaxNoiseAmplitude, x[FlatIndex(FieldSigma, 0, n)])
	assert.Equal(t, -3.0, x[FlatIndex(FieldPhase, 0, n)])

	_, err = p.WithFlat(x)
	assert.NoError(t, err)
}
