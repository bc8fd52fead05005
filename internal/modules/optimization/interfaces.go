package optimization

import (
	"github.com/aristath/hamilton/internal/domain"
	"gonum.org/v1/gonum/mat"
)

// OperatorBuilder assembles the operator H(t) for a parameter set.
// *quantum.Engine satisfies it.
type OperatorBuilder interface {
	BuildOperator(t float64, p domain.ParameterSet) (*mat.CDense, error)
}

// LossFunc maps a parameter set to a scalar loss.
type LossFunc func(p domain.ParameterSet) (float64, error)

// ConstantLoss returns a loss that ignores its input.
func ConstantLoss(value float64) LossFunc {
	return func(domain.ParameterSet) (float64, error) {
		return value, nil
	}
}
