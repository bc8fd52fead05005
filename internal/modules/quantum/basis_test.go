package quantum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func diagonal(values ...float64) *mat.CDense {
	m := mat.NewCDense(len(values), len(values), nil)
	for i, v := range values {
		m.Set(i, i, complex(v, 0))
	}
	return m
}

func TestBasis_SingleSite(t *testing.T) {
	b := NewBasis(1)

	x := b.Operator(0, KindA)
	assert.True(t, mat.CEqual(x, mat.NewCDense(2, 2, []complex128{0, 1, 1, 0})))

	z := b.Operator(0, KindB)
	assert.True(t, mat.CEqual(z, diagonal(1, -1)))
}

func TestBasis_SiteOrdering(t *testing.T) {
	b := NewBasis(2)

	// Site 0 is the most significant tensor factor.
	assert.True(t, mat.CEqual(b.Operator(0, KindB), diagonal(1, 1, -1, -1)))
	assert.True(t, mat.CEqual(b.Operator(1, KindB), diagonal(1, -1, 1, -1)))

	x1 := b.Operator(1, KindA)
	assert.Equal(t, complex(1, 0), x1.At(0, 1))
	assert.Equal(t, complex(1, 0), x1.At(2, 3))
	assert.Equal(t, complex(0, 0), x1.At(0, 2))

	x0 := b.Operator(0, KindA)
	assert.Equal(t, complex(1, 0), x0.At(0, 2))
	assert.Equal(t, complex(1, 0), x0.At(1, 3))
	assert.Equal(t, complex(0, 0), x0.At(0, 1))
}

func TestBasis_Caches(t *testing.T) {
	b := NewBasis(3)

	assert.Same(t, b.Operator(2, KindA), b.Operator(2, KindA))
	assert.Same(t, b.SumA(), b.SumA())
	assert.Same(t, b.AdjacentA(), b.AdjacentA())
	assert.NotSame(t, b.Operator(2, KindA), b.Operator(2, KindB))
}

func TestBasis_Composites(t *testing.T) {
	b := NewBasis(2)

	assert.True(t, mat.CEqual(b.SumB(), diagonal(2, 0, 0, -2)))

	// A_0·A_1 flips both bits.
	adj := b.AdjacentA()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := complex(0, 0)
			if i+j == 3 {
				want = 1
			}
			assert.Equal(t, want, adj.At(i, j), "entry (%d,%d)", i, j)
		}
	}

	sumA := b.SumA()
	assert.True(t, IsHermitian(sumA, 0))
	assert.Equal(t, complex(1, 0), sumA.At(0, 1))
	assert.Equal(t, complex(1, 0), sumA.At(0, 2))
	assert.Equal(t, complex(0, 0), sumA.At(0, 3))
}

func TestBasis_AdjacentSingleSiteIsZero(t *testing.T) {
	b := NewBasis(1)
	assert.Equal(t, 0.0, FrobeniusNorm(b.AdjacentA()))
}

func TestBasis_Warm(t *testing.T) {
	b := NewBasis(3)
	b.Warm()
	for i := range b.slots {
		assert.NotNil(t, b.slots[i].m)
	}
	assert.NotNil(t, b.sumA.m)
	assert.NotNil(t, b.sumB.m)
	assert.NotNil(t, b.adjacent.m)
	assert.Equal(t, 9, OperatorCount(3))
}

func TestBasis_OutOfRangePanics(t *testing.T) {
	b := NewBasis(2)
	assert.Panics(t, func() { b.Operator(2, KindA) })
	assert.Panics(t, func() { b.Operator(0, Kind(5)) })
	assert.Panics(t, func() { NewBasis(0) })
}
