package quantum

import "math"

// Softplus returns log(1 + e^x). Large |x| short-circuits to avoid overflow
// and loss of precision.
func Softplus(x float64) float64 {
	switch {
	case x > 20:
		return x
	case x < -20:
		return math.Exp(x)
	default:
		return math.Log(1 + math.Exp(x))
	}
}

// Sigmoid returns 1 / (1 + e^-x), evaluated on the side that cannot overflow.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
