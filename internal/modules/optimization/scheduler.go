package optimization

import (
	"fmt"
	"math"
)

// SchedulerType selects how the learning rate evolves across epochs.
type SchedulerType string

const (
	SchedulerCosine      SchedulerType = "cosine"
	SchedulerExponential SchedulerType = "exponential"
	SchedulerConstant    SchedulerType = "constant"
)

// Learning rate bounds used by the schedulers.
const (
	MinLearningRate   = 1e-6
	ExponentialDecay  = 0.95
	ExponentialPeriod = 100.0
)

// ParseScheduler converts a configuration string into a SchedulerType.
func ParseScheduler(s string) (SchedulerType, error) {
	switch st := SchedulerType(s); st {
	case SchedulerCosine, SchedulerExponential, SchedulerConstant:
		return st, nil
	}
	return "", fmt.Errorf("unknown scheduler %q", s)
}

// LearningRate returns the scheduled rate for epoch out of maxEpochs,
// starting from initial.
//
//	cosine:      min + ½(initial-min)(1 + cos(π·epoch/maxEpochs))
//	exponential: max(initial·0.95^(epoch/100), min)
//	constant:    initial
func (s SchedulerType) LearningRate(initial float64, epoch, maxEpochs int) float64 {
	switch s {
	case SchedulerCosine:
		if maxEpochs <= 0 {
			return initial
		}
		progress := float64(epoch) / float64(maxEpochs)
		return MinLearningRate + 0.5*(initial-MinLearningRate)*(1+math.Cos(math.Pi*progress))
	case SchedulerExponential:
		return math.Max(initial*math.Pow(ExponentialDecay, float64(epoch)/ExponentialPeriod), MinLearningRate)
	default:
		return initial
	}
}
