package quantum

import (
	"fmt"
	"math"

	"github.com/aristath/hamilton/internal/domain"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/cmplxs"
)

// MaxTimingSamples caps the optimal timing scan.
const MaxTimingSamples = 100

// Signal returns Re<ψ|ΣA_i|ψ> / qubits, nominally in [-1, 1].
func (e *Engine) Signal(state []complex128) (float64, error) {
	dim := e.Dim()
	if len(state) != dim {
		return 0, fmt.Errorf("%w: length %d, expected %d", domain.ErrState, len(state), dim)
	}

	applied := make([]complex128, dim)
	cblas128.Gemv(blas.NoTrans, 1, e.basis.SumA().RawCMatrix(),
		cblas128.Vector{N: dim, Inc: 1, Data: state},
		0, cblas128.Vector{N: dim, Inc: 1, Data: applied})

	expectation := cmplxs.Dot(state, applied)
	return real(expectation) / float64(e.Qubits()), nil
}

// CurrentSignal returns Signal of the engine's current state.
func (e *Engine) CurrentSignal() float64 {
	s, _ := e.Signal(e.state)
	return s
}

// OptimalTiming scans min(steps, MaxTimingSamples) times t = k·dt and returns
// the one where ‖H(t+dt) - H(t)‖/dt is smallest.
func (e *Engine) OptimalTiming(p domain.ParameterSet) (float64, error) {
	dt := DefaultTimeStep
	samples := e.opts.Steps
	if samples > MaxTimingSamples {
		samples = MaxTimingSamples
	}

	bestTime := 0.0
	minRate := math.Inf(1)
	for k := 0; k < samples; k++ {
		t := float64(k) * dt

		h1, err := e.BuildOperator(t, p)
		if err != nil {
			return 0, fmt.Errorf("optimal timing: %w", err)
		}
		h2, err := e.BuildOperator(t+dt, p)
		if err != nil {
			return 0, fmt.Errorf("optimal timing: %w", err)
		}

		rate := cmplxs.Distance(h2.RawCMatrix().Data, h1.RawCMatrix().Data, 2) / dt
		if rate < minRate {
			minRate = rate
			bestTime = t
		}
	}

	e.log.Info().Float64("optimal_time", bestTime).Float64("rate", minRate).Msg("Optimal timing")
	return bestTime, nil
}
