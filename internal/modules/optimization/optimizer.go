// Package optimization tunes signal parameters by gradient descent on a loss
// derived from the operator H(t).
package optimization

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/hamilton/internal/domain"
	"github.com/aristath/hamilton/internal/progress"
	"github.com/aristath/hamilton/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// EpochTimeStep maps epoch k to evaluation time t = k·EpochTimeStep.
	EpochTimeStep = 0.01
	// ImprovementTolerance is the margin a loss must beat the best by to
	// count as an improvement.
	ImprovementTolerance = 1e-6

	progressLogInterval = 100
)

// ConvergenceReason records why a run stopped.
type ConvergenceReason string

const (
	ReasonPatience  ConvergenceReason = "patience"
	ReasonMaxEpochs ConvergenceReason = "max_epochs"
)

// Config holds optimizer hyperparameters.
type Config struct {
	LearningRate  float64
	Beta1         float64
	Beta2         float64
	Epsilon       float64
	UseAdam       bool
	ClipGradients bool
	Scheduler     SchedulerType
}

// DefaultConfig returns the standard Adam configuration with a cosine schedule.
func DefaultConfig() Config {
	return Config{
		LearningRate:  0.01,
		Beta1:         0.9,
		Beta2:         0.999,
		Epsilon:       1e-8,
		UseAdam:       true,
		ClipGradients: true,
		Scheduler:     SchedulerCosine,
	}
}

// Validate checks the hyperparameters.
func (c Config) Validate() error {
	var errs domain.ValidationErrors

	if !(c.LearningRate >= MinLearningRate && c.LearningRate <= 1) {
		errs = append(errs, domain.ValidationError{
			Field:   "learningRate",
			Message: fmt.Sprintf("%g is outside [%g, 1]", c.LearningRate, MinLearningRate),
		})
	}
	if !(c.Beta1 > 0 && c.Beta1 < 1) {
		errs = append(errs, domain.ValidationError{Field: "beta1", Message: "must be in (0, 1)"})
	}
	if !(c.Beta2 > 0 && c.Beta2 < 1) {
		errs = append(errs, domain.ValidationError{Field: "beta2", Message: "must be in (0, 1)"})
	}
	if !(c.Epsilon > 0) {
		errs = append(errs, domain.ValidationError{Field: "epsilon", Message: "must be positive"})
	}
	if _, err := ParseScheduler(string(c.Scheduler)); err != nil {
		errs = append(errs, domain.ValidationError{Field: "scheduler", Message: err.Error()})
	}

	return errs.OrNil()
}

// RunOptions configures a single Optimize call.
type RunOptions struct {
	MaxEpochs int
	Patience  int
	// Loss overrides the default operator-norm loss when non-nil.
	Loss LossFunc
	// Progress, if set, receives one update per epoch.
	Progress progress.DetailedCallback
}

// DefaultRunOptions returns 1000 epochs with a patience of 50.
func DefaultRunOptions() RunOptions {
	return RunOptions{MaxEpochs: 1000, Patience: 50}
}

func (o RunOptions) validate() error {
	var errs domain.ValidationErrors
	if o.MaxEpochs < 1 {
		errs = append(errs, domain.ValidationError{Field: "maxEpochs", Message: "must be at least 1"})
	}
	if o.Patience < 1 {
		errs = append(errs, domain.ValidationError{Field: "patience", Message: "must be at least 1"})
	}
	return errs.OrNil()
}

// Record is the outcome of one optimization run.
type Record struct {
	RunID           string
	FinalParams     domain.ParameterSet
	FinalLoss       float64
	LossHistory     []float64
	BestLossHistory []float64
	GradientNorms   []float64
	LearningRates   []float64
	Epochs          int
	Converged       bool
	Reason          ConvergenceReason
	Duration        time.Duration
}

// BestLoss returns the lowest loss seen, or +Inf for an empty record.
func (r *Record) BestLoss() float64 {
	if len(r.BestLossHistory) == 0 {
		return math.Inf(1)
	}
	return r.BestLossHistory[len(r.BestLossHistory)-1]
}

// Optimizer runs gradient descent with optional Adam moments, a learning
// rate schedule and early stopping. An Optimizer is not safe for concurrent
// use. Each Optimize call starts from fresh moment estimates.
type Optimizer struct {
	cfg     Config
	builder OperatorBuilder
	grads   *GradientEngine
	log     zerolog.Logger

	lr   float64
	m, v []float64
	iter int
}

// NewOptimizer validates cfg and returns an optimizer over builder.
func NewOptimizer(cfg Config, builder OperatorBuilder, log zerolog.Logger) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if builder == nil {
		return nil, domain.ValidationError{Field: "builder", Message: "operator builder is required"}
	}

	grads := NewGradientEngine(builder, log)
	grads.SetClipping(cfg.ClipGradients)

	return &Optimizer{
		cfg:     cfg,
		builder: builder,
		grads:   grads,
		log:     log.With().Str("component", "optimizer").Logger(),
		lr:      cfg.LearningRate,
	}, nil
}

// Config returns the optimizer's hyperparameters.
func (o *Optimizer) Config() Config { return o.cfg }

// LearningRate returns the rate applied in the most recent epoch.
func (o *Optimizer) LearningRate() float64 { return o.lr }

func (o *Optimizer) reset(n int) {
	o.lr = o.cfg.LearningRate
	o.m = make([]float64, n)
	o.v = make([]float64, n)
	o.iter = 0
}

// Optimize runs up to opts.MaxEpochs epochs starting from initial. Epoch k
// evaluates the loss and its gradient at t = k·EpochTimeStep and then takes
// one step. The first epoch sets the baseline loss and counts toward
// patience, so a run whose loss never improves stops after exactly
// opts.Patience epochs.
func (o *Optimizer) Optimize(initial domain.ParameterSet, opts RunOptions) (*Record, error) {
	if initial.IsZero() {
		return nil, domain.ValidationError{Field: "params", Message: "parameter set is empty"}
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	log := o.log.With().Str("run_id", runID).Logger()
	timer := utils.NewTimer("optimize", log)

	o.reset(initial.Len())
	rec := &Record{
		RunID:           runID,
		LossHistory:     make([]float64, 0, opts.MaxEpochs),
		BestLossHistory: make([]float64, 0, opts.MaxEpochs),
		GradientNorms:   make([]float64, 0, opts.MaxEpochs),
		LearningRates:   make([]float64, 0, opts.MaxEpochs),
		Reason:          ReasonMaxEpochs,
	}

	log.Info().
		Int("channels", initial.ChannelCount()).
		Int("max_epochs", opts.MaxEpochs).
		Int("patience", opts.Patience).
		Bool("adam", o.cfg.UseAdam).
		Str("scheduler", string(o.cfg.Scheduler)).
		Msg("Starting optimization")

	params := initial
	best := math.Inf(1)
	stale := 0

	for epoch := 0; epoch < opts.MaxEpochs; epoch++ {
		o.iter = epoch + 1
		o.lr = o.cfg.Scheduler.LearningRate(o.cfg.LearningRate, epoch, opts.MaxEpochs)
		rec.LearningRates = append(rec.LearningRates, o.lr)

		t := float64(epoch) * EpochTimeStep
		loss, err := o.evaluate(params, t, opts.Loss)
		if err != nil {
			return nil, fmt.Errorf("epoch %d: loss: %w", epoch, err)
		}
		rec.LossHistory = append(rec.LossHistory, loss)

		grads, err := o.grads.Compute(params, t, opts.Loss)
		if err != nil {
			return nil, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		rec.GradientNorms = append(rec.GradientNorms, grads.Norm())

		params, err = o.step(params, grads)
		if err != nil {
			return nil, fmt.Errorf("epoch %d: update: %w", epoch, err)
		}

		if epoch == 0 {
			best = loss
		}
		if loss < best-ImprovementTolerance {
			best = loss
			stale = 0
		} else {
			stale++
		}
		rec.BestLossHistory = append(rec.BestLossHistory, best)
		rec.Epochs = epoch + 1

		progress.CallDetailed(opts.Progress, progress.Update{
			Phase:   "optimize",
			RunID:   runID,
			Current: epoch + 1,
			Total:   opts.MaxEpochs,
			Message: fmt.Sprintf("epoch %d/%d", epoch+1, opts.MaxEpochs),
			Metrics: map[string]float64{
				"loss":          loss,
				"best_loss":     best,
				"gradient_norm": grads.Norm(),
				"learning_rate": o.lr,
				"elapsed_s":     timer.Elapsed().Seconds(),
			},
		})

		if epoch%progressLogInterval == 0 {
			log.Info().
				Int("epoch", epoch).
				Float64("loss", loss).
				Float64("best_loss", best).
				Float64("learning_rate", o.lr).
				Msg("Optimization progress")
		}

		if stale >= opts.Patience {
			rec.Converged = true
			rec.Reason = ReasonPatience
			break
		}
	}

	rec.FinalParams = params
	rec.FinalLoss = rec.LossHistory[len(rec.LossHistory)-1]
	rec.Duration = timer.StopWithFields(map[string]any{
		"epochs": rec.Epochs,
		"reason": string(rec.Reason),
	})

	log.Info().
		Int("epochs", rec.Epochs).
		Str("reason", string(rec.Reason)).
		Float64("best_loss", best).
		Dur("duration", rec.Duration).
		Msg("Optimization finished")

	return rec, nil
}

func (o *Optimizer) evaluate(p domain.ParameterSet, t float64, loss LossFunc) (float64, error) {
	if loss == nil {
		loss = OperatorNormLoss(o.builder, t)
	}
	return loss(p)
}

// step applies one Adam or SGD update and projects the result back onto the
// valid parameter region.
func (o *Optimizer) step(p domain.ParameterSet, g Gradients) (domain.ParameterSet, error) {
	x := p.Flatten()
	grad := g.values

	if o.cfg.UseAdam {
		b1, b2 := o.cfg.Beta1, o.cfg.Beta2
		c1 := 1 - math.Pow(b1, float64(o.iter))
		c2 := 1 - math.Pow(b2, float64(o.iter))
		for k := range x {
			o.m[k] = b1*o.m[k] + (1-b1)*grad[k]
			o.v[k] = b2*o.v[k] + (1-b2)*grad[k]*grad[k]
			mHat := o.m[k] / c1
			vHat := o.v[k] / c2
			x[k] -= o.lr * mHat / (math.Sqrt(vHat) + o.cfg.Epsilon)
		}
	} else {
		for k := range x {
			x[k] -= o.lr * grad[k]
		}
	}

	if n := domain.Project(x, p.ChannelCount()); n > 0 {
		o.log.Debug().Int("components", n).Msg("Projected update onto valid parameter region")
	}
	return p.WithFlat(x)
}
