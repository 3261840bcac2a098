package utils

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

type Matrix struct {
	M        *mat.Dense
	readOnly bool
	name     string
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var m *mat.Dense
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v\n", nr, nc, len(dataO[0]))
			panic(err)
		}
		m = mat.NewDense(nr, nc, dataO[0])
	} else {
		m = mat.NewDense(nr, nc, make([]float64, nr*nc))
	}
	R = Matrix{
		m,
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)          { return m.M.Dims() }
func (m Matrix) At(i, j int) float64       { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix             { return m.M.T() }
func (m Matrix) RawMatrix() blas64.General { return m.M.RawMatrix() }
func (m Matrix) IsEmpty() bool             { return m.M == nil }

func (m *Matrix) SetReadOnly(name ...string) Matrix {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m *Matrix) SetWritable() Matrix {
	m.readOnly = false
	return *m
}

func (m Matrix) Set(i, j int, val float64) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Set(i, j, val)
	return m
}

func (m Matrix) Copy() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
		dataR  = make([]float64, nr*nc)
	)
	copy(dataR, m.M.RawMatrix().Data)
	R = NewMatrix(nr, nc, dataR)
	return
}

// MulVecTo computes dst = M * x, dst must not alias x
func (m Matrix) MulVecTo(dst, x []float64) {
	var (
		nr, nc = m.Dims()
	)
	if len(dst) != nr || len(x) != nc {
		err := fmt.Errorf("dimension mismatch: M is %dx%d, len(dst) = %d, len(x) = %d", nr, nc, len(dst), len(x))
		panic(err)
	}
	blas64.Gemv(blas.NoTrans, 1, m.RawMatrix(),
		blas64.Vector{N: nc, Data: x, Inc: 1},
		0, blas64.Vector{N: nr, Data: dst, Inc: 1})
}

func (m Matrix) ConditionNumber() float64 {
	var svd mat.SVD
	if !svd.Factorize(m.M, mat.SVDNone) {
		// If SVD fails, return a large number indicating poor conditioning
		return 1e16
	}
	values := svd.Values(nil)
	if len(values) == 0 {
		return 1e16
	}
	// Singular values are in descending order
	minVal, maxVal := values[len(values)-1], values[0]
	if minVal < 1e-16 {
		return 1e16
	}
	return maxVal / minVal
}

func (m Matrix) Print(msgI ...string) (o string) {
	var (
		name = ""
	)
	if len(msgI) != 0 {
		name = msgI[0]
	}
	formatString := "%s = \n%8.5f\n"
	o = fmt.Sprintf(formatString, name, mat.Formatted(m.M, mat.Squeeze()))
	return
}

func (m Matrix) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}
