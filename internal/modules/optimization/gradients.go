package optimization

import (
	"errors"
	"fmt"
	"math"

	"github.com/aristath/hamilton/internal/domain"
	"github.com/aristath/hamilton/internal/modules/quantum"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

const (
	// FiniteDifferenceStep is the perturbation used for numerical derivatives.
	FiniteDifferenceStep = 1e-5
	// GradientClipThreshold bounds the global L2 norm of a clipped gradient.
	GradientClipThreshold = 10.0
)

// Gradients holds one partial derivative per parameter, laid out in the
// same order as ParameterSet.Flatten.
type Gradients struct {
	channelCount int
	values       []float64
}

func newGradients(channelCount int) Gradients {
	return Gradients{
		channelCount: channelCount,
		values:       make([]float64, domain.FlatLen(channelCount)),
	}
}

func (g Gradients) set(f domain.Field, i int, v float64) {
	g.values[domain.FlatIndex(f, i, g.channelCount)] = v
}

// ChannelCount returns the number of channels the gradient was computed for.
func (g Gradients) ChannelCount() int { return g.channelCount }

// Channel returns the partial derivatives for every entry of a channel field.
func (g Gradients) Channel(f domain.Field) []float64 {
	start := domain.FlatIndex(f, 0, g.channelCount)
	out := make([]float64, g.channelCount)
	copy(out, g.values[start:start+g.channelCount])
	return out
}

// Scalar returns the partial derivative for a scalar field.
func (g Gradients) Scalar(f domain.Field) float64 {
	return g.values[domain.FlatIndex(f, 0, g.channelCount)]
}

// Flat returns a copy of all partial derivatives in flattening order.
func (g Gradients) Flat() []float64 {
	out := make([]float64, len(g.values))
	copy(out, g.values)
	return out
}

// Named returns the gradient keyed by field name. Scalar fields map to a
// one-element slice.
func (g Gradients) Named() map[string][]float64 {
	out := make(map[string][]float64, len(domain.Fields()))
	for _, f := range domain.ChannelFields() {
		out[f.String()] = g.Channel(f)
	}
	for _, f := range domain.ScalarFields() {
		out[f.String()] = []float64{g.Scalar(f)}
	}
	return out
}

// Norm returns the global L2 norm across every component.
func (g Gradients) Norm() float64 {
	return floats.Norm(g.values, 2)
}

// Clip rescales g in place so its global L2 norm does not exceed threshold.
// It reports the norm before clipping and whether scaling was applied.
func (g Gradients) Clip(threshold float64) (float64, bool) {
	norm := g.Norm()
	if norm <= threshold || norm == 0 {
		return norm, false
	}
	floats.Scale(threshold/norm, g.values)
	return norm, true
}

// OperatorNormLoss returns the default loss: the Frobenius norm of H(t).
func OperatorNormLoss(b OperatorBuilder, t float64) LossFunc {
	return func(p domain.ParameterSet) (float64, error) {
		h, err := b.BuildOperator(t, p)
		if err != nil {
			return 0, err
		}
		return quantum.FrobeniusNorm(h), nil
	}
}

// GradientEngine computes parameter gradients of a loss at a time point.
// With the default operator-norm loss, closed-form partials are used where
// they exist. A caller-supplied loss is differentiated numerically for every
// component.
type GradientEngine struct {
	builder   OperatorBuilder
	step      float64
	clip      bool
	threshold float64
	log       zerolog.Logger
}

// NewGradientEngine creates a gradient engine over builder with clipping enabled.
func NewGradientEngine(builder OperatorBuilder, log zerolog.Logger) *GradientEngine {
	return &GradientEngine{
		builder:   builder,
		step:      FiniteDifferenceStep,
		clip:      true,
		threshold: GradientClipThreshold,
		log:       log.With().Str("component", "gradients").Logger(),
	}
}

// SetClipping enables or disables global norm clipping.
func (g *GradientEngine) SetClipping(enabled bool) {
	g.clip = enabled
}

// Compute returns the gradient of loss at parameters p and time t. A nil loss
// selects the operator-norm loss at t.
func (g *GradientEngine) Compute(p domain.ParameterSet, t float64, loss LossFunc) (Gradients, error) {
	if p.IsZero() {
		return Gradients{}, domain.ValidationError{Field: "params", Message: "parameter set is empty"}
	}

	analytic := loss == nil
	if analytic {
		loss = OperatorNormLoss(g.builder, t)
	}

	n := p.ChannelCount()
	grads := newGradients(n)
	fd := &centralDifference{p: p, loss: loss, h: g.step}

	numeric := func(f domain.Field, i int) error {
		v, err := fd.at(f, i)
		if err != nil {
			return fmt.Errorf("gradient of %s[%d]: %w", f, i, err)
		}
		grads.set(f, i, v)
		return nil
	}

	for _, f := range []domain.Field{domain.FieldAmplitude, domain.FieldFrequency, domain.FieldDecayAmplitude} {
		for i := 0; i < n; i++ {
			if err := numeric(f, i); err != nil {
				return Gradients{}, err
			}
		}
	}

	for i := 0; i < n; i++ {
		if err := numeric(domain.FieldPhase, i); err != nil {
			return Gradients{}, err
		}
		if !analytic {
			continue
		}
		// Blend the closed form of ∂/∂φ A·sin(Bt+φ) with the numerical value.
		amp := p.Channel(domain.FieldAmplitude, i)
		closed := amp * math.Cos(p.Channel(domain.FieldFrequency, i)*t+p.Channel(domain.FieldPhase, i))
		grads.set(domain.FieldPhase, i, 0.5*(closed+grads.at(domain.FieldPhase, i)))
	}

	for i := 0; i < n; i++ {
		if !analytic {
			if err := numeric(domain.FieldDecayRate, i); err != nil {
				return Gradients{}, err
			}
			continue
		}
		c := p.Channel(domain.FieldDecayAmplitude, i)
		d := p.Channel(domain.FieldDecayRate, i)
		grads.set(domain.FieldDecayRate, i, -t*c*math.Exp(-d*t))
	}

	shape := []domain.Field{domain.FieldA, domain.FieldB, domain.FieldX0}
	poly := []domain.Field{domain.FieldAlpha0, domain.FieldAlpha1, domain.FieldAlpha2}
	if analytic {
		a, x0 := p.Scalar(domain.FieldA), p.Scalar(domain.FieldX0)
		sig := quantum.Sigmoid(quantum.ShapeArgument(p, t))
		dx := t - x0
		grads.set(domain.FieldA, 0, dx*dx*sig)
		grads.set(domain.FieldB, 0, sig)
		grads.set(domain.FieldX0, 0, -2*a*dx*sig)

		grads.set(domain.FieldAlpha0, 0, t*t)
		grads.set(domain.FieldAlpha1, 0, math.Sin(2*math.Pi*t))
		grads.set(domain.FieldAlpha2, 0, math.Log1p(t))
	} else {
		for _, f := range append(shape, poly...) {
			if err := numeric(f, 0); err != nil {
				return Gradients{}, err
			}
		}
	}

	// Regime partials are zero until the switch engages.
	if quantum.RegimeActive(p, t) {
		for _, f := range []domain.Field{domain.FieldTau, domain.FieldEta, domain.FieldGamma} {
			if err := numeric(f, 0); err != nil {
				return Gradients{}, err
			}
		}
	}

	for _, f := range []domain.Field{domain.FieldSigma, domain.FieldBeta} {
		if err := numeric(f, 0); err != nil {
			return Gradients{}, err
		}
	}

	if g.clip {
		if norm, clipped := grads.Clip(g.threshold); clipped {
			g.log.Warn().
				Float64("norm", norm).
				Float64("threshold", g.threshold).
				Float64("t", t).
				Msg("Gradient norm clipped")
		}
	}

	return grads, nil
}

func (g Gradients) at(f domain.Field, i int) float64 {
	return g.values[domain.FlatIndex(f, i, g.channelCount)]
}

// centralDifference evaluates (L(p+h) - L(p-h)) / 2h for one component. When
// one side of the stencil leaves the valid parameter region it falls back to
// a one-sided difference against L(p).
type centralDifference struct {
	p    domain.ParameterSet
	loss LossFunc
	h    float64

	base    float64
	hasBase bool
}

func (c *centralDifference) baseline() (float64, error) {
	if c.hasBase {
		return c.base, nil
	}
	v, err := c.loss(c.p)
	if err != nil {
		return 0, err
	}
	c.base, c.hasBase = v, true
	return v, nil
}

func (c *centralDifference) at(f domain.Field, i int) (float64, error) {
	plus, errPlus := c.p.Perturb(f, i, c.h)
	minus, errMinus := c.p.Perturb(f, i, -c.h)

	switch {
	case errPlus == nil && errMinus == nil:
		lp, err := c.loss(plus)
		if err != nil {
			return 0, err
		}
		lm, err := c.loss(minus)
		if err != nil {
			return 0, err
		}
		return (lp - lm) / (2 * c.h), nil

	case errPlus == nil && errors.Is(errMinus, domain.ErrValidation):
		lp, err := c.loss(plus)
		if err != nil {
			return 0, err
		}
		base, err := c.baseline()
		if err != nil {
			return 0, err
		}
		return (lp - base) / c.h, nil

	case errMinus == nil && errors.Is(errPlus, domain.ErrValidation):
		lm, err := c.loss(minus)
		if err != nil {
			return 0, err
		}
		base, err := c.baseline()
		if err != nil {
			return 0, err
		}
		return (base - lm) / c.h, nil
	}

	if errPlus != nil {
		return 0, errPlus
	}
	return 0, errMinus
}
