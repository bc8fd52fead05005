package quantum

import (
	"fmt"
	"math"

	"github.com/aristath/hamilton/internal/domain"
	"gonum.org/v1/gonum/integrate/quad"
)

// Quadrature settings for the softplus integral term.
const (
	IntegrationTolerance = 1e-12 // absolute and relative
	MaxSubdivisions      = 100

	// Each panel is integrated with two Gauss–Legendre orders; their
	// difference is the panel's error estimate.
	lowOrder  = 10
	highOrder = 21
)

type panel struct {
	lo, hi float64
	value  float64
	err    float64
}

func evalPanel(f func(float64) float64, lo, hi float64) panel {
	fine := quad.Fixed(f, lo, hi, highOrder, quad.Legendre{}, 0)
	coarse := quad.Fixed(f, lo, hi, lowOrder, quad.Legendre{}, 0)
	return panel{lo: lo, hi: hi, value: fine, err: math.Abs(fine - coarse)}
}

// Integrate approximates the integral of f from lo to hi by bisecting the
// panel with the largest error estimate until the summed estimate is within
// max(epsAbs, epsRel*|value|). It fails with domain.ErrIntegration when limit
// panels are not enough or the result is not finite. The partial value is
// returned alongside the error.
func Integrate(f func(float64) float64, lo, hi, epsAbs, epsRel float64, limit int) (value, errEst float64, err error) {
	if lo == hi {
		return 0, 0, nil
	}
	sign := 1.0
	if lo > hi {
		lo, hi = hi, lo
		sign = -1
	}
	if limit < 1 {
		limit = 1
	}

	panels := []panel{evalPanel(f, lo, hi)}
	for {
		value, errEst = 0, 0
		worst := 0
		for i, p := range panels {
			value += p.value
			errEst += p.err
			if p.err > panels[worst].err {
				worst = i
			}
		}

		if math.IsNaN(value) || math.IsInf(value, 0) {
			return sign * value, errEst, fmt.Errorf("%w: non-finite result on [%g, %g]", domain.ErrIntegration, lo, hi)
		}
		if errEst <= math.Max(epsAbs, epsRel*math.Abs(value)) {
			return sign * value, errEst, nil
		}
		if len(panels) >= limit {
			return sign * value, errEst, fmt.Errorf("%w: error estimate %g after %d subdivisions", domain.ErrIntegration, errEst, limit)
		}

		p := panels[worst]
		mid := p.lo + 0.5*(p.hi-p.lo)
		if mid <= p.lo || mid >= p.hi {
			return sign * value, errEst, fmt.Errorf("%w: panel [%g, %g] cannot be subdivided", domain.ErrIntegration, p.lo, p.hi)
		}
		panels[worst] = evalPanel(f, p.lo, mid)
		panels = append(panels, evalPanel(f, mid, p.hi))
	}
}
