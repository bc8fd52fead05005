// Package main is a demo runner for the signal engine. It builds the operator
// at t = 1, evolves the state, reads the signal and the optimal timing, and
// optimizes the parameters. With more than one batch run it fans independent
// runs out over a worker pool instead.
//
// All settings come from the environment (or a .env file); see internal/config.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/hamilton/internal/config"
	"github.com/aristath/hamilton/internal/domain"
	"github.com/aristath/hamilton/internal/modules/optimization"
	"github.com/aristath/hamilton/internal/modules/quantum"
	"github.com/aristath/hamilton/internal/workers"
	"github.com/aristath/hamilton/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seeds := cfg.Seeds()
	if len(seeds) > 1 {
		if err := runBatch(ctx, cfg, seeds, log); err != nil {
			log.Fatal().Err(err).Msg("Batch run failed")
		}
		return
	}

	if err := runSingle(cfg, seeds[0], log); err != nil {
		log.Fatal().Err(err).Msg("Run failed")
	}
}

func runSingle(cfg *config.Config, seed uint64, log zerolog.Logger) error {
	var options []quantum.Option
	if seed != 0 {
		options = append(options, quantum.WithSeed(seed))
	}

	engine, err := quantum.NewEngine(cfg.Engine, log, options...)
	if err != nil {
		return err
	}

	params := domain.DefaultParameters(cfg.Channels)

	h, err := engine.BuildOperator(1.0, params)
	if err != nil {
		return err
	}
	log.Info().Float64("norm", quantum.FrobeniusNorm(h)).Msg("Operator at t=1")

	if _, err := engine.Evolve(params, cfg.TimeStep, 0); err != nil {
		return err
	}
	signalValue := engine.CurrentSignal()

	timing, err := engine.OptimalTiming(params)
	if err != nil {
		return err
	}

	opt, err := optimization.NewOptimizer(cfg.Optimizer, engine, log)
	if err != nil {
		return err
	}
	rec, err := opt.Optimize(params, cfg.RunOptions())
	if err != nil {
		return err
	}

	log.Info().
		Str("run_id", rec.RunID).
		Interface("parameters", rec.FinalParams.Values()).
		Float64("signal", signalValue).
		Float64("optimal_time", timing).
		Float64("final_loss", rec.FinalLoss).
		Int("epochs", rec.Epochs).
		Str("reason", string(rec.Reason)).
		Msg("Run complete")

	return nil
}

func runBatch(ctx context.Context, cfg *config.Config, seeds []uint64, log zerolog.Logger) error {
	pool, err := workers.NewWorkerPool(cfg.Workers, cfg.Engine, cfg.Optimizer, log)
	if err != nil {
		return err
	}

	jobs := make([]workers.Job, len(seeds))
	for i, seed := range seeds {
		jobs[i] = workers.Job{
			Seed:   seed,
			Params: domain.DefaultParameters(cfg.Channels),
			Run:    cfg.RunOptions(),
		}
	}

	results := pool.RunBatch(ctx, jobs, func(current, total int, message string) {
		log.Info().Int("current", current).Int("total", total).Msg(message)
	})

	failed := 0
	for i, r := range results {
		if r.Err != nil {
			failed++
			log.Error().Err(r.Err).Int("job", i).Uint64("seed", r.Seed).Msg("Job failed")
			continue
		}
		log.Info().
			Int("job", i).
			Uint64("seed", r.Seed).
			Str("run_id", r.Record.RunID).
			Float64("signal", r.Signal).
			Float64("optimal_time", r.OptimalTiming).
			Float64("best_loss", r.Record.BestLoss()).
			Str("reason", string(r.Record.Reason)).
			Msg("Job complete")
	}

	log.Info().Int("jobs", len(results)).Int("failed", failed).Msg("Batch complete")
	return ctx.Err()
}
