// Package workers runs independent optimize-and-evolve jobs in parallel.
package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/aristath/hamilton/internal/domain"
	"github.com/aristath/hamilton/internal/modules/optimization"
	"github.com/aristath/hamilton/internal/modules/quantum"
	"github.com/aristath/hamilton/internal/progress"
	"github.com/aristath/hamilton/internal/utils"
	"github.com/rs/zerolog"
)

// Job is one independent run: optimize Params, then evolve the state under
// the optimized parameters.
type Job struct {
	Seed   uint64 // 0 selects a non-deterministic source
	Params domain.ParameterSet
	Run    optimization.RunOptions
}

// Result is the outcome of a Job. Err is set when any stage failed; the
// remaining fields then hold whatever completed before the failure.
type Result struct {
	Seed          uint64
	Record        *optimization.Record
	FinalState    []complex128
	Signal        float64
	OptimalTiming float64
	Err           error
}

// WorkerPool runs jobs on a fixed number of goroutines. Every job gets its
// own engine and optimizer; the read-only basis is shared.
type WorkerPool struct {
	numWorkers int
	engineOpts quantum.Options
	optCfg     optimization.Config
	basis      *quantum.Basis
	metrics    *utils.PerformanceMetrics
	log        zerolog.Logger
}

// NewWorkerPool creates a pool. numWorkers <= 0 selects a single worker.
func NewWorkerPool(numWorkers int, engineOpts quantum.Options, optCfg optimization.Config, log zerolog.Logger) (*WorkerPool, error) {
	if err := engineOpts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine options: %w", err)
	}
	if err := optCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid optimizer config: %w", err)
	}
	log = log.With().Str("component", "worker_pool").Logger()
	// Every job shares one basis, so one preflight covers the whole batch.
	if err := engineOpts.CheckMemory(log); err != nil {
		return nil, err
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}

	return &WorkerPool{
		numWorkers: numWorkers,
		engineOpts: engineOpts,
		optCfg:     optCfg,
		basis:      quantum.NewBasis(engineOpts.QubitCount),
		metrics:    utils.NewPerformanceMetrics("batch_job"),
		log:        log,
	}, nil
}

// Metrics returns the aggregated job durations.
func (wp *WorkerPool) Metrics() *utils.PerformanceMetrics {
	return wp.metrics
}

// RunBatch runs every job and returns the results in input order. Jobs not
// yet started when ctx is cancelled report ctx.Err().
func (wp *WorkerPool) RunBatch(ctx context.Context, jobs []Job, cb progress.Callback) []Result {
	numJobs := len(jobs)
	if numJobs == 0 {
		return []Result{}
	}

	// Build the shared operators once, before any worker reads them.
	wp.basis.Warm()

	jobCh := make(chan jobItem, numJobs)
	results := make(chan resultItem, numJobs)

	var wg sync.WaitGroup
	numActualWorkers := wp.numWorkers
	if numJobs < numActualWorkers {
		numActualWorkers = numJobs
	}

	for i := 0; i < numActualWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wp.worker(ctx, jobCh, results)
		}()
	}

	for idx, job := range jobs {
		jobCh <- jobItem{index: idx, job: job}
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(results)
	}()

	resultSlice := make([]Result, numJobs)
	done := 0
	for result := range results {
		resultSlice[result.index] = result.result
		done++
		progress.Call(cb, done, numJobs, fmt.Sprintf("job %d finished", result.index))
	}

	wp.metrics.LogMetrics(wp.log)
	return resultSlice
}

type jobItem struct {
	index int
	job   Job
}

type resultItem struct {
	index  int
	result Result
}

func (wp *WorkerPool) worker(ctx context.Context, jobs <-chan jobItem, results chan<- resultItem) {
	for item := range jobs {
		if err := ctx.Err(); err != nil {
			results <- resultItem{index: item.index, result: Result{Seed: item.job.Seed, Err: err}}
			continue
		}

		timer := utils.NewTimer("batch_job", wp.log)
		res := wp.runJob(item.job)
		wp.metrics.Record(timer.Stop())

		if res.Err != nil {
			wp.log.Error().Err(res.Err).Int("job", item.index).Uint64("seed", item.job.Seed).Msg("Batch job failed")
		}
		results <- resultItem{index: item.index, result: res}
	}
}

func (wp *WorkerPool) runJob(job Job) Result {
	res := Result{Seed: job.Seed}
	log := wp.log.With().Uint64("seed", job.Seed).Logger()

	// The pool checked memory for the shared basis up front. Checking again
	// per job would count the already allocated operators twice.
	options := []quantum.Option{quantum.WithBasis(wp.basis), quantum.WithoutMemoryCheck()}
	if job.Seed != 0 {
		options = append(options, quantum.WithSeed(job.Seed))
	}

	engine, err := quantum.NewEngine(wp.engineOpts, log, options...)
	if err != nil {
		res.Err = err
		return res
	}

	opt, err := optimization.NewOptimizer(wp.optCfg, engine, log)
	if err != nil {
		res.Err = err
		return res
	}

	rec, err := opt.Optimize(job.Params, job.Run)
	if err != nil {
		res.Err = fmt.Errorf("optimize: %w", err)
		return res
	}
	res.Record = rec

	state, err := engine.Evolve(rec.FinalParams, quantum.DefaultTimeStep, 0)
	if err != nil {
		res.Err = fmt.Errorf("evolve: %w", err)
		return res
	}
	res.FinalState = state
	res.Signal = engine.CurrentSignal()

	timing, err := engine.OptimalTiming(rec.FinalParams)
	if err != nil {
		res.Err = err
		return res
	}
	res.OptimalTiming = timing

	return res
}
