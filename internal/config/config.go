// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/aristath/hamilton/internal/domain"
	"github.com/aristath/hamilton/internal/modules/optimization"
	"github.com/aristath/hamilton/internal/modules/quantum"
	"github.com/aristath/hamilton/internal/utils"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	LogLevel  string
	LogPretty bool

	Engine    quantum.Options
	Channels  int
	TimeStep  float64
	Seed      uint64 // 0 selects a non-deterministic source
	Optimizer optimization.Config
	MaxEpochs int
	Patience  int

	Workers    int
	BatchRuns  int
	BatchSeeds []uint64 // explicit seeds, overrides BatchRuns when set
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	scheduler, err := optimization.ParseScheduler(getEnv("SCHEDULER", string(optimization.SchedulerCosine)))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", domain.ValidationError{Field: "SCHEDULER", Message: err.Error()})
	}

	seeds, err := utils.ParseSeeds(getEnv("BATCH_SEEDS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", domain.ValidationError{Field: "BATCH_SEEDS", Message: err.Error()})
	}

	defaults := optimization.DefaultConfig()
	cfg := &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),
		Engine: quantum.Options{
			QubitCount: getEnvAsInt("QUBIT_COUNT", 4),
			Steps:      getEnvAsInt("STEPS", 100),
		},
		Channels: getEnvAsInt("CHANNELS", 2),
		TimeStep: getEnvAsFloat("DT", quantum.DefaultTimeStep),
		Seed:     getEnvAsUint("SEED", 0),
		Optimizer: optimization.Config{
			LearningRate:  getEnvAsFloat("LEARNING_RATE", defaults.LearningRate),
			Beta1:         getEnvAsFloat("BETA1", defaults.Beta1),
			Beta2:         getEnvAsFloat("BETA2", defaults.Beta2),
			Epsilon:       getEnvAsFloat("EPSILON", defaults.Epsilon),
			UseAdam:       getEnvAsBool("USE_ADAM", defaults.UseAdam),
			ClipGradients: getEnvAsBool("CLIP_GRADIENTS", defaults.ClipGradients),
			Scheduler:     scheduler,
		},
		MaxEpochs:  getEnvAsInt("MAX_EPOCHS", 50),
		Patience:   getEnvAsInt("PATIENCE", 20),
		Workers:    getEnvAsInt("WORKERS", 1),
		BatchRuns:  getEnvAsInt("BATCH_RUNS", 1),
		BatchSeeds: seeds,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks ranges across every section.
func (c *Config) Validate() error {
	var errs domain.ValidationErrors

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, domain.ValidationError{Field: "LOG_LEVEL", Message: fmt.Sprintf("unknown level %q", c.LogLevel)})
	}

	errs = appendNested(errs, c.Engine.Validate())
	errs = appendNested(errs, c.Optimizer.Validate())

	if c.Channels < 1 {
		errs = append(errs, domain.ValidationError{Field: "CHANNELS", Message: "must be at least 1"})
	}
	if !(c.TimeStep > 0) {
		errs = append(errs, domain.ValidationError{Field: "DT", Message: "must be positive"})
	}
	if c.MaxEpochs < 1 {
		errs = append(errs, domain.ValidationError{Field: "MAX_EPOCHS", Message: "must be at least 1"})
	}
	if c.Patience < 1 {
		errs = append(errs, domain.ValidationError{Field: "PATIENCE", Message: "must be at least 1"})
	}
	if c.Workers < 1 {
		errs = append(errs, domain.ValidationError{Field: "WORKERS", Message: "must be at least 1"})
	}
	if c.BatchRuns < 1 {
		errs = append(errs, domain.ValidationError{Field: "BATCH_RUNS", Message: "must be at least 1"})
	}

	return errs.OrNil()
}

// Seeds returns the seed for every batch run. Explicit BatchSeeds win;
// otherwise BatchRuns seeds are derived from Seed (Seed, Seed+1, ...), or
// are all 0 (non-deterministic) when Seed is 0.
func (c *Config) Seeds() []uint64 {
	if len(c.BatchSeeds) > 0 {
		out := make([]uint64, len(c.BatchSeeds))
		copy(out, c.BatchSeeds)
		return out
	}

	out := make([]uint64, c.BatchRuns)
	if c.Seed == 0 {
		return out
	}
	for i := range out {
		out[i] = c.Seed + uint64(i)
	}
	return out
}

// RunOptions returns the per-run optimization options.
func (c *Config) RunOptions() optimization.RunOptions {
	return optimization.RunOptions{MaxEpochs: c.MaxEpochs, Patience: c.Patience}
}

func appendNested(errs domain.ValidationErrors, err error) domain.ValidationErrors {
	if err == nil {
		return errs
	}
	var nested domain.ValidationErrors
	if errors.As(err, &nested) {
		return append(errs, nested...)
	}
	var single domain.ValidationError
	if errors.As(err, &single) {
		return append(errs, single)
	}
	return append(errs, domain.ValidationError{Field: "config", Message: err.Error()})
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintVal, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
