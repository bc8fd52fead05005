package quantum

import (
	"fmt"
	"math"

	"github.com/aristath/hamilton/internal/domain"
	"gonum.org/v1/gonum/cmplxs"
)

// State limits.
const (
	NormTolerance = 1e-15 // allowed |<ψ|ψ> - 1|
	MaxHistory    = 1000  // retained states, oldest dropped first
	renormPasses  = 3
)

// NormSquared returns <ψ|ψ>.
func NormSquared(state []complex128) float64 {
	return real(cmplxs.Dot(state, state))
}

// normalize scales state in place to unit norm and returns the remaining
// |<ψ|ψ> - 1|. Further passes absorb the rounding left by the first on large
// vectors; after renormPasses the residual is returned even if it exceeds
// NormTolerance.
func normalize(state []complex128) (float64, error) {
	var residual float64
	for pass := 0; pass < renormPasses; pass++ {
		norm := cmplxs.Norm(state, 2)
		if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
			return 0, fmt.Errorf("%w: cannot normalize state with norm %g", domain.ErrState, norm)
		}
		cmplxs.ScaleReal(1/norm, state)
		residual = math.Abs(NormSquared(state) - 1)
		if residual <= NormTolerance {
			break
		}
	}
	return residual, nil
}

// Reset puts the engine back in the index-0 basis state with empty history.
func (e *Engine) Reset() {
	e.state = make([]complex128, e.basis.Dim())
	e.state[0] = 1
	e.history = e.history[:0]
}

// State returns a copy of the current state vector.
func (e *Engine) State() []complex128 {
	out := make([]complex128, len(e.state))
	copy(out, e.state)
	return out
}

// HistoryLen returns the number of retained states.
func (e *Engine) HistoryLen() int {
	return len(e.history)
}

// SetState replaces the current state with a copy of state and appends it to
// the history. The state must have the engine's dimension and unit norm
// within NormTolerance.
func (e *Engine) SetState(state []complex128) error {
	if len(state) != e.basis.Dim() {
		return fmt.Errorf("%w: length %d, expected %d", domain.ErrState, len(state), e.basis.Dim())
	}
	if n := NormSquared(state); math.Abs(n-1) > NormTolerance {
		return fmt.Errorf("%w: state not normalized, <ψ|ψ> = %.17g", domain.ErrState, n)
	}

	e.commit(state)
	return nil
}

// commit copies state in as the current state and appends it to the history,
// dropping the oldest entry when full.
func (e *Engine) commit(state []complex128) {
	e.state = append(e.state[:0], state...)

	kept := make([]complex128, len(state))
	copy(kept, state)
	if len(e.history) >= MaxHistory {
		copy(e.history, e.history[1:])
		e.history[len(e.history)-1] = kept
	} else {
		e.history = append(e.history, kept)
	}
}

// lastNormSquared returns <ψ|ψ> of the newest retained state, or 0 without history.
func (e *Engine) lastNormSquared() float64 {
	if len(e.history) == 0 {
		return 0
	}
	return NormSquared(e.history[len(e.history)-1])
}
