package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Vector is the vector facade used by the solvers. Norm2 and Dot are
// collective: when a Communicator is attached, each rank reduces its own
// partition and the partial results are combined in rank order.
type Vector struct {
	V    *mat.VecDense
	comm *Communicator
}

func NewVector(N int, dataO ...[]float64) (R Vector) {
	var v *mat.VecDense
	if len(dataO) != 0 {
		if len(dataO[0]) != N {
			err := fmt.Errorf("mismatch in allocation: NewVector N = %v, len(data[0]) = %v\n", N, len(dataO[0]))
			panic(err)
		}
		v = mat.NewVecDense(N, dataO[0])
	} else {
		v = mat.NewVecDense(N, make([]float64, N))
	}
	R = Vector{V: v}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (v Vector) Dims() (r, c int)         { return v.V.Dims() }
func (v Vector) At(i, j int) float64      { return v.V.At(i, j) }
func (v Vector) T() mat.Matrix            { return v.V.T() }
func (v Vector) AtVec(i int) float64      { return v.V.AtVec(i) }
func (v Vector) RawVector() blas64.Vector { return v.V.RawVector() }
func (v Vector) Len() int                 { return v.V.Len() }
func (v Vector) Data() []float64          { return v.V.RawVector().Data }
func (v Vector) Comm() *Communicator      { return v.comm }
func (v Vector) IsEmpty() bool            { return v.V == nil }

// WithComm returns a handle on the same storage with c attached.
func (v Vector) WithComm(c *Communicator) Vector {
	v.comm = c
	return v
}

// Duplicate allocates a zeroed vector with the same length and communicator.
func (v Vector) Duplicate() (R Vector) {
	R = NewVector(v.Len())
	R.comm = v.comm
	return
}

// Chainable methods, all of these change the receiver
func (v Vector) Set(val float64) Vector {
	var (
		data = v.Data()
	)
	for i := range data {
		data[i] = val
	}
	return v
}

func (v Vector) CopyFrom(src Vector) Vector {
	v.checkLen(src)
	copy(v.Data(), src.Data())
	return v
}

func (v Vector) Scale(a float64) Vector {
	floats.Scale(a, v.Data())
	return v
}

// AXPY computes v = v + alpha*x
func (v Vector) AXPY(alpha float64, x Vector) Vector {
	v.checkLen(x)
	floats.AddScaled(v.Data(), alpha, x.Data())
	return v
}

// WAXPY computes v = alpha*x + y
func (v Vector) WAXPY(alpha float64, x, y Vector) Vector {
	v.checkLen(x)
	v.checkLen(y)
	floats.AddScaledTo(v.Data(), y.Data(), alpha, x.Data())
	return v
}

// Collective reductions
func (v Vector) Dot(b Vector) float64 {
	v.checkLen(b)
	var (
		a, bd = v.Data(), b.Data()
	)
	if v.comm == nil {
		return floats.Dot(a, bd)
	}
	return v.comm.AllReduceSum(len(a), func(lo, hi int) float64 {
		return floats.Dot(a[lo:hi], bd[lo:hi])
	})
}

func (v Vector) Norm2() float64 {
	var (
		data = v.Data()
	)
	if v.comm == nil {
		return floats.Norm(data, 2)
	}
	return math.Sqrt(v.comm.AllReduceSum(len(data), func(lo, hi int) float64 {
		s := data[lo:hi]
		return floats.Dot(s, s)
	}))
}

func (v Vector) Min() float64 { return floats.Min(v.Data()) }
func (v Vector) Max() float64 { return floats.Max(v.Data()) }

func (v Vector) checkLen(b Vector) {
	if v.Len() != b.Len() {
		err := fmt.Errorf("dimension mismatch: len(v) = %v, len(b) = %v", v.Len(), b.Len())
		panic(err)
	}
}
