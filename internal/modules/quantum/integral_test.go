package quantum

import (
	"math"
	"testing"

	"github.com/aristath/hamilton/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrate_SmoothFunctions(t *testing.T) {
	tests := []struct {
		name   string
		f      func(float64) float64
		lo, hi float64
		want   float64
	}{
		{"polynomial", func(x float64) float64 { return x * x }, 0, 1, 1.0 / 3},
		{"sine", math.Sin, 0, math.Pi, 2},
		{"exponential", math.Exp, 0, 10, math.Exp(10) - 1},
		{"reversed bounds", func(x float64) float64 { return x }, 2, 0, -2},
		{"empty interval", math.Exp, 1, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errEst, err := Integrate(tt.f, tt.lo, tt.hi, IntegrationTolerance, IntegrationTolerance, MaxSubdivisions)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12*math.Max(1, math.Abs(tt.want)))
			assert.GreaterOrEqual(t, errEst, 0.0)
		})
	}
}

func TestIntegrate_KinkNeedsSubdivision(t *testing.T) {
	kink := func(x float64) float64 { return math.Abs(x - 0.3) }

	_, _, err := Integrate(kink, 0, 1, IntegrationTolerance, IntegrationTolerance, 1)
	assert.ErrorIs(t, err, domain.ErrIntegration)

	got, _, err := Integrate(kink, 0, 1, 1e-8, 1e-8, MaxSubdivisions)
	require.NoError(t, err)
	assert.InDelta(t, 0.3*0.3/2+0.7*0.7/2, got, 1e-6)
}

func TestIntegrate_NonFinite(t *testing.T) {
	_, _, err := Integrate(func(float64) float64 { return math.NaN() }, 0, 1,
		IntegrationTolerance, IntegrationTolerance, MaxSubdivisions)
	assert.ErrorIs(t, err, domain.ErrIntegration)
}
