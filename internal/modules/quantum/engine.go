// Package quantum builds the time-dependent operator H(t) over a tensor-product
// state space, evolves a state vector under it and derives scalar metrics from
// the result.
package quantum

import (
	"fmt"
	"math/rand/v2"

	"github.com/aristath/hamilton/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
	"gonum.org/v1/gonum/stat/distuv"
)

// Engine construction limits.
const (
	MinQubits = 1
	MaxQubits = 20

	// Dense matrices alive during one BuildOperator call besides the cache:
	// the result, its conjugate transpose check and the Kronecker scratch.
	workingMatrices = 4
	bytesPerEntry   = 16
)

// Options are the engine construction options.
type Options struct {
	QubitCount int // sites; the state space has dimension 2^QubitCount
	Steps      int // default number of evolution steps
}

// DefaultOptions returns an 8-site engine evolving 1000 steps.
func DefaultOptions() Options {
	return Options{QubitCount: 8, Steps: 1000}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	var errs domain.ValidationErrors
	if o.QubitCount < MinQubits || o.QubitCount > MaxQubits {
		errs = append(errs, domain.ValidationError{
			Field:   "qubitCount",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinQubits, MaxQubits, o.QubitCount),
		})
	}
	if o.Steps < 1 {
		errs = append(errs, domain.ValidationError{
			Field:   "steps",
			Message: fmt.Sprintf("must be positive, got %d", o.Steps),
		})
	}
	return errs.OrNil()
}

// RequiredMemory estimates the bytes a warmed engine needs for its dense operators.
func (o Options) RequiredMemory() uint64 {
	dim := uint64(1) << uint(o.QubitCount)
	return uint64(OperatorCount(o.QubitCount)+workingMatrices) * bytesPerEntry * dim * dim
}

// CheckMemory reports ErrInsufficientMemory when the dense operators for
// these options would not fit in available memory. A failure to read the
// available memory is logged and ignored.
func (o Options) CheckMemory(log zerolog.Logger) error {
	required := o.RequiredMemory()
	available, err := availableMemory()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read available memory, skipping preflight")
		return nil
	}
	if required > available {
		return fmt.Errorf("%w: %d qubits need about %d bytes of dense operators, %d available",
			domain.ErrInsufficientMemory, o.QubitCount, required, available)
	}
	return nil
}

// availableMemory is replaced in tests.
var availableMemory = func() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// Engine assembles H(t) for a parameter set and owns the evolving state,
// its bounded history and the random source of the noise term. An Engine is
// not safe for concurrent use; run independent engines instead.
type Engine struct {
	opts  Options
	basis *Basis
	log   zerolog.Logger

	src   rand.Source
	rng   *rand.Rand
	noise distuv.Normal

	integrandF      func(float64) float64
	integrandGPrime func(float64) float64

	skipMemoryCheck bool

	state   []complex128
	history [][]complex128
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRandSource sets the source used by the noise term.
func WithRandSource(src rand.Source) Option {
	if src == nil {
		panic("quantum: WithRandSource(nil)")
	}
	return func(e *Engine) {
		e.src = src
	}
}

// WithSeed makes the noise term reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.src = rand.NewPCG(seed, seed)
	}
}

// WithBasis reuses an existing operator cache. The basis must have the same
// number of sites as the engine.
func WithBasis(b *Basis) Option {
	if b == nil {
		panic("quantum: WithBasis(nil)")
	}
	return func(e *Engine) {
		e.basis = b
	}
}

// WithIntegrand replaces the f(x) and g'(x) weights of the softplus
// integral. Both default to the constant 1.
func WithIntegrand(f, gPrime func(float64) float64) Option {
	if f == nil || gPrime == nil {
		panic("quantum: WithIntegrand(nil)")
	}
	return func(e *Engine) {
		e.integrandF = f
		e.integrandGPrime = gPrime
	}
}

// WithoutMemoryCheck skips the available-memory preflight.
func WithoutMemoryCheck() Option {
	return func(e *Engine) {
		e.skipMemoryCheck = true
	}
}

func one(float64) float64 { return 1 }

// NewEngine validates opts, checks that the dense operators fit in memory and
// returns an engine whose state is the index-0 basis vector.
func NewEngine(opts Options, log zerolog.Logger, options ...Option) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine options: %w", err)
	}

	e := &Engine{
		opts:            opts,
		log:             log.With().Str("component", "quantum_engine").Logger(),
		integrandF:      one,
		integrandGPrime: one,
	}
	for _, o := range options {
		o(e)
	}

	if e.basis != nil && e.basis.Qubits() != opts.QubitCount {
		return nil, fmt.Errorf("invalid engine options: %w", domain.ValidationError{
			Field:   "basis",
			Message: fmt.Sprintf("has %d sites, engine needs %d", e.basis.Qubits(), opts.QubitCount),
		})
	}

	if !e.skipMemoryCheck {
		if err := opts.CheckMemory(e.log); err != nil {
			return nil, err
		}
	}

	if e.basis == nil {
		e.basis = NewBasis(opts.QubitCount)
	}
	if e.src == nil {
		e.src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	e.rng = rand.New(e.src)
	e.noise = distuv.Normal{Mu: 0, Sigma: 1, Src: e.src}
	e.Reset()

	e.log.Info().
		Int("qubits", opts.QubitCount).
		Int("dim", e.basis.Dim()).
		Int("steps", opts.Steps).
		Msg("Initialized quantum engine")

	return e, nil
}

// Options returns the construction options.
func (e *Engine) Options() Options { return e.opts }

// Basis returns the engine's operator cache.
func (e *Engine) Basis() *Basis { return e.basis }

// Qubits returns the number of sites.
func (e *Engine) Qubits() int { return e.opts.QubitCount }

// Dim returns the state space dimension.
func (e *Engine) Dim() int { return e.basis.Dim() }
