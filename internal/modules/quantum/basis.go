package quantum

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/mat"
)

// Kind selects the single-site generator of a basis operator.
type Kind int

const (
	// KindA places [[0,1],[1,0]] on the site.
	KindA Kind = iota
	// KindB places [[1,0],[0,-1]] on the site.
	KindB

	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindA:
		return "A"
	case KindB:
		return "B"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var generators = [kindCount]*mat.Dense{
	KindA: mat.NewDense(2, 2, []float64{0, 1, 1, 0}),
	KindB: mat.NewDense(2, 2, []float64{1, 0, 0, -1}),
}

type basisSlot struct {
	once sync.Once
	m    *mat.CDense
}

// Basis builds and caches the elementary operators of a qubits-site
// tensor-product space with dimension 2^qubits. Each operator is built on
// first use and never modified afterwards, so a Basis may be shared between
// goroutines. Returned matrices must be treated as read-only.
type Basis struct {
	qubits int
	dim    int

	// arena indexed by kind*qubits + site
	slots []basisSlot

	sumA     basisSlot
	sumB     basisSlot
	adjacent basisSlot
}

// NewBasis returns an empty cache for the given number of sites.
func NewBasis(qubits int) *Basis {
	if qubits < 1 {
		panic(fmt.Sprintf("quantum: basis needs at least one site, got %d", qubits))
	}
	return &Basis{
		qubits: qubits,
		dim:    1 << qubits,
		slots:  make([]basisSlot, int(kindCount)*qubits),
	}
}

// Qubits returns the number of sites.
func (b *Basis) Qubits() int { return b.qubits }

// Dim returns the operator dimension 2^qubits.
func (b *Basis) Dim() int { return b.dim }

// Operator returns I ⊗ ... ⊗ g ⊗ ... ⊗ I with the generator of kind at site.
func (b *Basis) Operator(site int, kind Kind) *mat.CDense {
	if site < 0 || site >= b.qubits {
		panic(fmt.Sprintf("quantum: site %d out of range [0, %d)", site, b.qubits))
	}
	if kind < 0 || kind >= kindCount {
		panic(fmt.Sprintf("quantum: unknown operator kind %d", int(kind)))
	}
	slot := &b.slots[int(kind)*b.qubits+site]
	slot.once.Do(func() {
		slot.m = b.tensor(site, kind)
	})
	return slot.m
}

// tensor builds the Kronecker product of the site generators. Site 0 is the
// most significant factor.
func (b *Basis) tensor(site int, kind Kind) *mat.CDense {
	eye := mat.NewDense(2, 2, []float64{1, 0, 0, 1})

	var acc mat.Matrix = mat.NewDense(1, 1, []float64{1})
	for i := 0; i < b.qubits; i++ {
		factor := eye
		if i == site {
			factor = generators[kind]
		}
		var next mat.Dense
		next.Kronecker(acc, factor)
		acc = &next
	}

	out := mat.NewCDense(b.dim, b.dim, nil)
	for i := 0; i < b.dim; i++ {
		for j := 0; j < b.dim; j++ {
			if v := acc.At(i, j); v != 0 {
				out.Set(i, j, complex(v, 0))
			}
		}
	}
	return out
}

// SumA returns the sum of the KindA operators over every site.
func (b *Basis) SumA() *mat.CDense {
	b.sumA.once.Do(func() {
		b.sumA.m = b.sum(KindA)
	})
	return b.sumA.m
}

// SumB returns the sum of the KindB operators over every site.
func (b *Basis) SumB() *mat.CDense {
	b.sumB.once.Do(func() {
		b.sumB.m = b.sum(KindB)
	})
	return b.sumB.m
}

func (b *Basis) sum(kind Kind) *mat.CDense {
	out := mat.NewCDense(b.dim, b.dim, nil)
	dst := out.RawCMatrix().Data
	for i := 0; i < b.qubits; i++ {
		cmplxs.Add(dst, b.Operator(i, kind).RawCMatrix().Data)
	}
	return out
}

// AdjacentA returns the sum over neighbouring sites of A_i·A_{i+1}. It is the
// zero matrix for a single site.
func (b *Basis) AdjacentA() *mat.CDense {
	b.adjacent.once.Do(func() {
		out := mat.NewCDense(b.dim, b.dim, nil)
		for i := 0; i+1 < b.qubits; i++ {
			cblas128.Gemm(blas.NoTrans, blas.NoTrans,
				1, b.Operator(i, KindA).RawCMatrix(), b.Operator(i+1, KindA).RawCMatrix(),
				1, out.RawCMatrix())
		}
		b.adjacent.m = out
	})
	return b.adjacent.m
}

// Warm builds every cached operator up front.
func (b *Basis) Warm() {
	for i := 0; i < b.qubits; i++ {
		for k := Kind(0); k < kindCount; k++ {
			b.Operator(i, k)
		}
	}
	b.SumA()
	b.SumB()
	b.AdjacentA()
}

// OperatorCount is the number of dense matrices a fully warmed Basis holds.
func OperatorCount(qubits int) int {
	return int(kindCount)*qubits + 3
}
