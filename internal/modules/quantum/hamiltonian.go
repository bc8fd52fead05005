package quantum

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/aristath/hamilton/internal/domain"
	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/mat"
)

// Operator validation bounds.
const (
	MaxOperatorNorm    = 1e10
	HermitianTolerance = 1e-15
)

// ChannelSignal returns A_i·sin(B_i·t + φ_i) + C_i·exp(-D_i·t) for channel i.
func ChannelSignal(p domain.ParameterSet, i int, t float64) float64 {
	sinTerm := p.Channel(domain.FieldAmplitude, i) *
		math.Sin(p.Channel(domain.FieldFrequency, i)*t+p.Channel(domain.FieldPhase, i))
	expTerm := p.Channel(domain.FieldDecayAmplitude, i) *
		math.Exp(-p.Channel(domain.FieldDecayRate, i)*t)
	return sinTerm + expTerm
}

// ShapeArgument returns a·(x-x0)² + b, the argument of the softplus integrand.
func ShapeArgument(p domain.ParameterSet, x float64) float64 {
	d := x - p.Scalar(domain.FieldX0)
	return p.Scalar(domain.FieldA)*d*d + p.Scalar(domain.FieldB)
}

// PolynomialTerm returns alpha0·t² + alpha1·sin(2πt) + alpha2·log(1+t).
func PolynomialTerm(p domain.ParameterSet, t float64) float64 {
	return p.Scalar(domain.FieldAlpha0)*t*t +
		p.Scalar(domain.FieldAlpha1)*math.Sin(2*math.Pi*t) +
		p.Scalar(domain.FieldAlpha2)*math.Log1p(t)
}

// RegimeActive reports whether the regime switch is on at time t.
func RegimeActive(p domain.ParameterSet, t float64) bool {
	return t >= p.Scalar(domain.FieldTau)
}

// RegimeTerm returns eta·H·sigmoid(gamma·H) with the step H fixed to 1 once
// t ≥ tau and 0 before. gamma therefore scales a constant, not t - tau.
func RegimeTerm(p domain.ParameterSet, t float64) float64 {
	if !RegimeActive(p, t) {
		return 0
	}
	const step = 1.0
	return p.Scalar(domain.FieldEta) * step * Sigmoid(p.Scalar(domain.FieldGamma)*step)
}

// channelOperator alternates KindA (even) and KindB (odd) channels over the sites.
func (e *Engine) channelOperator(i int) *mat.CDense {
	kind := KindA
	if i%2 == 1 {
		kind = KindB
	}
	return e.basis.Operator(i%e.Qubits(), kind)
}

// SoftplusIntegral returns the integral from 0 to t of
// softplus(a(x-x0)²+b)·f(x)·g'(x). A quadrature failure is returned together
// with the point approximation at x = t.
func (e *Engine) SoftplusIntegral(t float64, p domain.ParameterSet) (float64, error) {
	integrand := func(x float64) float64 {
		return Softplus(ShapeArgument(p, x)) * e.integrandF(x) * e.integrandGPrime(x)
	}

	value, errEst, err := Integrate(integrand, 0, t, IntegrationTolerance, IntegrationTolerance, MaxSubdivisions)
	if err != nil {
		return integrand(t), err
	}
	if errEst > 10*IntegrationTolerance {
		e.log.Debug().Float64("t", t).Float64("error_estimate", errEst).Msg("Large integration error estimate")
	}
	return value, nil
}

// BuildOperator assembles the validated operator H(t) for p. H is the sum of
// the channel terms, the softplus integral term, the polynomial term, the
// regime term and the state-feedback noise term. A non-Hermitian result is
// symmetrized; a norm above MaxOperatorNorm fails with
// domain.ErrNumericalOverflow. The noise term draws from the engine's random
// source on every call.
func (e *Engine) BuildOperator(t float64, p domain.ParameterSet) (*mat.CDense, error) {
	if p.IsZero() {
		return nil, fmt.Errorf("build operator: %w", domain.ValidationError{
			Field:   "params",
			Message: "parameter set is empty",
		})
	}

	dim := e.Dim()
	h := mat.NewCDense(dim, dim, nil)
	data := h.RawCMatrix().Data

	for i := 0; i < p.ChannelCount(); i++ {
		signal := ChannelSignal(p, i, t)
		cmplxs.AddScaled(data, complex(signal, 0), e.channelOperator(i).RawCMatrix().Data)
		e.log.Debug().Int("channel", i).Float64("signal", signal).Msg("Channel term")
	}

	integral, err := e.SoftplusIntegral(t, p)
	if err != nil {
		e.log.Warn().Err(err).Float64("t", t).Float64("approximation", integral).
			Msg("Softplus integral failed, using point approximation")
	}
	cmplxs.AddScaled(data, complex(integral, 0), e.basis.SumA().RawCMatrix().Data)

	poly := PolynomialTerm(p, t)
	cmplxs.AddScaled(data, complex(poly, 0), e.basis.SumB().RawCMatrix().Data)

	if RegimeActive(p, t) {
		regime := RegimeTerm(p, t)
		cmplxs.AddScaled(data, complex(regime, 0), e.basis.AdjacentA().RawCMatrix().Data)
		e.log.Debug().Float64("regime", regime).Msg("Regime term")
	}

	noise, site := e.drawNoise(p)
	cmplxs.AddScaled(data, complex(noise, 0), e.basis.Operator(site, KindB).RawCMatrix().Data)

	e.log.Debug().
		Float64("t", t).
		Float64("integral", integral).
		Float64("polynomial", poly).
		Float64("noise", noise).
		Int("noise_site", site).
		Msg("Assembled operator terms")

	if err := e.validateOperator(h, t); err != nil {
		return nil, err
	}
	return h, nil
}

// drawNoise returns sigma·N(0, 1 + beta·‖ψ_last‖²) and a uniformly random site.
// A negative variance factor is used as is, which flips the sign of the draw.
func (e *Engine) drawNoise(p domain.ParameterSet) (float64, int) {
	scale := 1 + p.Scalar(domain.FieldBeta)*e.lastNormSquared()
	if scale < 0 {
		e.log.Warn().
			Float64("beta", p.Scalar(domain.FieldBeta)).
			Float64("scale", scale).
			Msg("Negative noise scale, draw sign flipped")
	}
	e.noise.Sigma = scale
	noise := p.Scalar(domain.FieldSigma) * e.noise.Rand()
	site := e.rng.IntN(e.Qubits())
	return noise, site
}

// validateOperator symmetrizes h in place when it drifts from Hermitian and
// rejects it when its Frobenius norm exceeds MaxOperatorNorm.
func (e *Engine) validateOperator(h *mat.CDense, t float64) error {
	if !mat.CEqualApprox(h, h.H(), HermitianTolerance) {
		e.log.Warn().Float64("t", t).Msg("Operator not Hermitian, symmetrizing")
		Symmetrize(h)
	}

	norm := FrobeniusNorm(h)
	if !(norm <= MaxOperatorNorm) {
		return &domain.OperatorError{
			Time: t,
			Err:  fmt.Errorf("%w: norm %g exceeds %g", domain.ErrNumericalOverflow, norm, MaxOperatorNorm),
		}
	}

	e.log.Debug().Float64("t", t).Float64("norm", norm).Msg("Operator validated")
	return nil
}

// Symmetrize replaces h with (h + h†)/2 in place.
func Symmetrize(h *mat.CDense) {
	r, _ := h.Dims()
	for i := 0; i < r; i++ {
		h.Set(i, i, complex(real(h.At(i, i)), 0))
		for j := i + 1; j < r; j++ {
			v := (h.At(i, j) + cmplx.Conj(h.At(j, i))) / 2
			h.Set(i, j, v)
			h.Set(j, i, cmplx.Conj(v))
		}
	}
}

// FrobeniusNorm returns sqrt(Σ|h_ij|²).
func FrobeniusNorm(h *mat.CDense) float64 {
	raw := h.RawCMatrix()
	if raw.Stride == raw.Cols {
		return cmplxs.Norm(raw.Data[:raw.Rows*raw.Cols], 2)
	}
	var sum float64
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		n := cmplxs.Norm(row, 2)
		sum += n * n
	}
	return math.Sqrt(sum)
}

// IsHermitian reports whether h equals its conjugate transpose within tol.
func IsHermitian(h *mat.CDense, tol float64) bool {
	r, c := h.Dims()
	if r != c {
		return false
	}
	for i := 0; i < r; i++ {
		for j := i; j < c; j++ {
			if cmplx.Abs(h.At(i, j)-cmplx.Conj(h.At(j, i))) > tol {
				return false
			}
		}
	}
	return true
}
