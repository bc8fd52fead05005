package quantum

import (
	"fmt"
	"math"

	"github.com/aristath/hamilton/internal/domain"
	"github.com/aristath/hamilton/internal/utils"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
)

// DefaultTimeStep is the dt used by the demo runner and the timing scan.
const DefaultTimeStep = 0.01

// Evolve advances the state through steps applications of the first-order
// propagator U(dt) ≈ I - i·H(t)·dt at t = step·dt, renormalizing after each
// one. Every accepted state is appended to the bounded history. steps <= 0
// uses the engine's configured step count. The final state is returned as a copy.
func (e *Engine) Evolve(p domain.ParameterSet, dt float64, steps int) ([]complex128, error) {
	if math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("evolve: %w", domain.ValidationError{Field: "dt", Message: "must be finite"})
	}
	if steps <= 0 {
		steps = e.opts.Steps
	}

	e.log.Info().Int("steps", steps).Float64("dt", dt).Msg("Starting time evolution")
	defer utils.OperationTimer("evolve", e.log)()

	dim := e.Dim()
	next := make([]complex128, dim)
	for step := 0; step < steps; step++ {
		t := float64(step) * dt

		h, err := e.BuildOperator(t, p)
		if err != nil {
			return nil, fmt.Errorf("evolve step %d: %w", step, err)
		}

		copy(next, e.state)
		cblas128.Gemv(blas.NoTrans, complex(0, -dt), h.RawCMatrix(),
			cblas128.Vector{N: dim, Inc: 1, Data: e.state},
			1, cblas128.Vector{N: dim, Inc: 1, Data: next})

		residual, err := normalize(next)
		if err != nil {
			return nil, fmt.Errorf("evolve step %d: %w", step, err)
		}
		if residual > NormTolerance {
			e.log.Warn().
				Int("step", step).
				Float64("residual", residual).
				Msg("State norm drifted past tolerance after renormalization")
		}
		e.commit(next)

		if step%100 == 0 {
			e.log.Info().Int("step", step).Int("steps", steps).Float64("t", t).Msg("Evolution progress")
		}
	}

	e.log.Info().Msg("Time evolution complete")
	return e.State(), nil
}
