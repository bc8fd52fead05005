package testing

import (
	"sync"

	"github.com/aristath/hamilton/internal/domain"
	"gonum.org/v1/gonum/mat"
)

// MockOperatorBuilder is a mock implementation of optimization.OperatorBuilder for testing
type MockOperatorBuilder struct {
	mu        sync.RWMutex
	build     func(t float64, p domain.ParameterSet) *mat.CDense
	err       error
	failAfter int
	calls     int
}

// NewMockOperatorBuilder creates a mock that returns a dim×dim diagonal
// operator holding the amplitude sum on every diagonal entry.
func NewMockOperatorBuilder(dim int) *MockOperatorBuilder {
	return &MockOperatorBuilder{
		build: func(_ float64, p domain.ParameterSet) *mat.CDense {
			sum := 0.0
			for _, a := range p.ChannelValues(domain.FieldAmplitude) {
				sum += a
			}
			h := mat.NewCDense(dim, dim, nil)
			for i := 0; i < dim; i++ {
				h.Set(i, i, complex(sum, 0))
			}
			return h
		},
		failAfter: -1,
	}
}

// SetBuild replaces the function used to produce operators
func (m *MockOperatorBuilder) SetBuild(build func(t float64, p domain.ParameterSet) *mat.CDense) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.build = build
}

// SetError sets the error to return from every call
func (m *MockOperatorBuilder) SetError(err error) {
	m.SetErrorAfter(0, err)
}

// SetErrorAfter lets the first n calls succeed and fails every later call with err
func (m *MockOperatorBuilder) SetErrorAfter(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	m.err = err
}

// CallCount returns the number of BuildOperator calls so far
func (m *MockOperatorBuilder) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// BuildOperator returns the configured operator or error
func (m *MockOperatorBuilder) BuildOperator(t float64, p domain.ParameterSet) (*mat.CDense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil && m.failAfter >= 0 && m.calls > m.failAfter {
		return nil, &domain.OperatorError{Time: t, Err: m.err}
	}
	return m.build(t, p), nil
}
