// Package tensor provides the dense float64 arrays passed between units.
// Two-dimensional views are backed by gonum matrices so kernels can use
// gonum's BLAS-backed routines directly.
package tensor

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrShape is returned when data or arguments do not fit a tensor's shape.
var ErrShape = errors.New("tensor: incompatible shape")

// Tensor is a row-major N-dimensional array with a concrete shape.
type Tensor struct {
	shape Shape
	data  []float64
}

// New wraps data in a tensor of the given shape. The data is not copied.
func New(shape Shape, data []float64) (*Tensor, error) {
	if !shape.Known() {
		return nil, fmt.Errorf("%w: tensor shape %s must be concrete", ErrShape, shape)
	}
	if shape.Size() != len(data) {
		return nil, fmt.Errorf("%w: shape %s needs %d values, got %d", ErrShape, shape, shape.Size(), len(data))
	}
	return &Tensor{shape: shape.Clone(), data: data}, nil
}

// Full returns a tensor of the given shape filled with v. Unknown dimensions
// are treated as 1.
func Full(shape Shape, v float64) *Tensor {
	s := shape.Concrete()
	data := make([]float64, s.Size())
	if v != 0 {
		for i := range data {
			data[i] = v
		}
	}
	return &Tensor{shape: s, data: data}
}

// Zeros returns a zero-filled tensor.
func Zeros(shape Shape) *Tensor { return Full(shape, 0) }

// Ones returns a tensor filled with ones.
func Ones(shape Shape) *Tensor { return Full(shape, 1) }

// FromMatrix copies a gonum matrix into a rank-2 tensor.
func FromMatrix(m mat.Matrix) *Tensor {
	r, c := m.Dims()
	data := make([]float64, r*c)
	dst := mat.NewDense(r, c, data)
	dst.Copy(m)
	return &Tensor{shape: Shape{r, c}, data: data}
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() Shape { return t.shape.Clone() }

// Data returns the backing slice. Callers must not resize it.
func (t *Tensor) Data() []float64 { return t.data }

// Len returns the number of elements.
func (t *Tensor) Len() int { return len(t.data) }

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Tensor{shape: t.shape.Clone(), data: data}
}

// At returns the element at the given multi-index.
func (t *Tensor) At(idx ...int) float64 {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index rank %d does not match shape %s", len(idx), t.shape))
	}
	st := strides(t.shape)
	off := 0
	for i, v := range idx {
		off += v * st[i]
	}
	return t.data[off]
}

// Matrix returns a gonum view of a rank-2 tensor sharing its storage.
func (t *Tensor) Matrix() (*mat.Dense, error) {
	if len(t.shape) != 2 {
		return nil, fmt.Errorf("%w: matrix view needs rank 2, got %s", ErrShape, t.shape)
	}
	return mat.NewDense(t.shape[0], t.shape[1], t.data), nil
}

// Rows returns a view of the tensor as a matrix with one row per entry of
// the leading dimension.
func (t *Tensor) Rows() (*mat.Dense, error) {
	if len(t.shape) == 0 || t.shape[0] == 0 {
		return nil, fmt.Errorf("%w: cannot view %s as rows", ErrShape, t.shape)
	}
	return mat.NewDense(t.shape[0], len(t.data)/t.shape[0], t.data), nil
}

// Apply returns a new tensor with f applied to every element.
func (t *Tensor) Apply(f func(float64) float64) *Tensor {
	out := t.Clone()
	for i, v := range out.data {
		out.data[i] = f(v)
	}
	return out
}

// Scale returns a new tensor multiplied by c.
func (t *Tensor) Scale(c float64) *Tensor {
	out := t.Clone()
	floats.Scale(c, out.data)
	return out
}

// Sum returns the sum of all elements.
func (t *Tensor) Sum() float64 { return floats.Sum(t.data) }

// EqualApprox reports whether both tensors have the same shape and values
// within tol.
func (t *Tensor) EqualApprox(o *Tensor, tol float64) bool {
	return t.shape.Equal(o.shape) && floats.EqualApprox(t.data, o.data, tol)
}

// Reshape returns a tensor sharing storage with a new shape. One dimension
// may be Unknown and is inferred.
func (t *Tensor) Reshape(shape Shape) (*Tensor, error) {
	s, err := ResolveReshape(t.shape, shape)
	if err != nil {
		return nil, err
	}
	return &Tensor{shape: s, data: t.data}, nil
}

// Transpose returns a copy with dimensions permuted by perm.
func (t *Tensor) Transpose(perm []int) (*Tensor, error) {
	s, err := TransposeShape(t.shape, perm)
	if err != nil {
		return nil, err
	}
	inStrides := strides(t.shape)
	out := make([]float64, len(t.data))
	idx := make([]int, len(s))
	for off := range out {
		unravel(off, s, idx)
		src := 0
		for i, p := range perm {
			src += idx[i] * inStrides[p]
		}
		out[off] = t.data[src]
	}
	return &Tensor{shape: s, data: out}, nil
}

// ExpandDims returns a tensor sharing storage with a size-1 dimension
// inserted at axis.
func (t *Tensor) ExpandDims(axis int) (*Tensor, error) {
	s, err := ExpandShape(t.shape, axis)
	if err != nil {
		return nil, err
	}
	return &Tensor{shape: s, data: t.data}, nil
}

// Tile repeats the tensor multiples[i] times along dimension i.
func (t *Tensor) Tile(multiples []int) (*Tensor, error) {
	s, err := TileShape(t.shape, multiples)
	if err != nil {
		return nil, err
	}
	inStrides := strides(t.shape)
	out := make([]float64, s.Size())
	idx := make([]int, len(s))
	for off := range out {
		unravel(off, s, idx)
		src := 0
		for i, v := range idx {
			src += (v % t.shape[i]) * inStrides[i]
		}
		out[off] = t.data[src]
	}
	return &Tensor{shape: s, data: out}, nil
}

// Concat joins tensors along axis.
func Concat(axis int, ts ...*Tensor) (*Tensor, error) {
	shapes := make([]Shape, len(ts))
	for i, t := range ts {
		shapes[i] = t.shape
	}
	s, err := ConcatShape(axis, shapes...)
	if err != nil {
		return nil, err
	}
	ax, _ := Axis(axis, len(s))

	// outer: product of dims before axis; each input contributes a
	// contiguous block of shape[ax:] per outer index.
	outer := 1
	for _, d := range s[:ax] {
		outer *= d
	}
	out := make([]float64, 0, s.Size())
	for o := 0; o < outer; o++ {
		for _, t := range ts {
			block := len(t.data) / outer
			out = append(out, t.data[o*block:(o+1)*block]...)
		}
	}
	return &Tensor{shape: s, data: out}, nil
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%s)", t.shape)
}
