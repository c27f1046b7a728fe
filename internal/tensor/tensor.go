// Package tensor provides the dense float64 N-dimensional array the layers
// compute on.
//
// Tensors are stored row-major. They are value-like: every operation that
// changes shape or contents returns a new tensor unless its name ends in
// InPlace.
package tensor

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShape reports tensors whose shapes do not agree.
	ErrShape = errors.New("tensor: shape mismatch")
	// ErrLayout reports a tensor that does not follow the expected layout.
	ErrLayout = errors.New("tensor: layout mismatch")
	// ErrPadding reports an invalid padding request.
	ErrPadding = errors.New("tensor: invalid padding")
)

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that no dimension is negative.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("%w: dimension %d is %d", ErrShape, i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Strides calculates row-major strides: stride[i] is the product of all
// dimensions after i.
func (s Shape) Strides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}
	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// Tensor is a dense row-major array of float64.
type Tensor struct {
	shape   Shape
	strides []int
	data    []float64
}

// New creates a tensor of the given shape holding a copy of data.
func New(shape Shape, data []float64) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShape, len(data), shape)
	}
	t := Zeros(shape...)
	copy(t.data, data)
	return t, nil
}

// Zeros creates a zero-filled tensor. Dimensions must be non-negative.
func Zeros(shape ...int) *Tensor {
	s := Shape(shape).Clone()
	return &Tensor{
		shape:   s,
		strides: s.Strides(),
		data:    make([]float64, s.NumElements()),
	}
}

// Full creates a tensor with every element set to v.
func Full(v float64, shape ...int) *Tensor {
	t := Zeros(shape...)
	t.Fill(v)
	return t
}

// ZerosLike creates a zero tensor with the shape of t.
func ZerosLike(t *Tensor) *Tensor {
	return Zeros(t.shape...)
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() Shape { return t.shape.Clone() }

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int { return t.shape[i] }

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// Len returns the number of elements.
func (t *Tensor) Len() int { return len(t.data) }

// Data returns the backing slice. Writes through it modify the tensor.
func (t *Tensor) Data() []float64 { return t.data }

// Offset converts a multi-index into a flat position.
func (t *Tensor) Offset(idx ...int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank %d", len(idx), len(t.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range [0,%d) on axis %d", v, t.shape[i], i))
		}
		off += v * t.strides[i]
	}
	return off
}

// At returns the element at idx.
func (t *Tensor) At(idx ...int) float64 {
	return t.data[t.Offset(idx...)]
}

// Set stores v at idx.
func (t *Tensor) Set(v float64, idx ...int) {
	t.data[t.Offset(idx...)] = v
}

// Fill sets every element to v.
func (t *Tensor) Fill(v float64) {
	for i := range t.data {
		t.data[i] = v
	}
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := Zeros(t.shape...)
	copy(c.data, t.data)
	return c
}

// Reshape returns a copy of t with a new shape holding the same number of
// elements.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	s := Shape(shape)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.NumElements() != len(t.data) {
		return nil, fmt.Errorf("%w: cannot reshape %v into %v", ErrShape, t.shape, s)
	}
	return New(s, t.data)
}

// SameShape reports whether t and other have equal shapes.
func (t *Tensor) SameShape(other *Tensor) bool {
	return t.shape.Equal(other.shape)
}

// CopyFrom overwrites t's contents with src's. Shapes must match.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if !t.SameShape(src) {
		return fmt.Errorf("%w: copy %v into %v", ErrShape, src.shape, t.shape)
	}
	copy(t.data, src.data)
	return nil
}

// AddInPlace adds other elementwise into t.
func (t *Tensor) AddInPlace(other *Tensor) error {
	if !t.SameShape(other) {
		return fmt.Errorf("%w: add %v to %v", ErrShape, other.shape, t.shape)
	}
	floats.Add(t.data, other.data)
	return nil
}

// Scale returns c*t.
func (t *Tensor) Scale(c float64) *Tensor {
	out := t.Clone()
	floats.Scale(c, out.data)
	return out
}

// Sum returns the sum of all elements.
func (t *Tensor) Sum() float64 {
	return floats.Sum(t.data)
}

// Apply returns a new tensor with fn applied to every element.
func (t *Tensor) Apply(fn func(float64) float64) *Tensor {
	out := Zeros(t.shape...)
	for i, v := range t.data {
		out.data[i] = fn(v)
	}
	return out
}

// Mul returns the elementwise product of a and b.
func Mul(a, b *Tensor) (*Tensor, error) {
	if !a.SameShape(b) {
		return nil, fmt.Errorf("%w: multiply %v by %v", ErrShape, a.shape, b.shape)
	}
	out := Zeros(a.shape...)
	floats.MulTo(out.data, a.data, b.data)
	return out, nil
}

// Concat joins a and b along the first axis. All other dimensions must agree.
func Concat(a, b *Tensor) (*Tensor, error) {
	if a.Rank() == 0 || a.Rank() != b.Rank() || !a.shape[1:].Equal(b.shape[1:]) {
		return nil, fmt.Errorf("%w: concat %v and %v on axis 0", ErrShape, a.shape, b.shape)
	}
	shape := a.Shape()
	shape[0] += b.shape[0]
	out := Zeros(shape...)
	copy(out.data, a.data)
	copy(out.data[len(a.data):], b.data)
	return out, nil
}

// Split cuts t along the first axis into the first n rows and the rest.
func Split(t *Tensor, n int) (*Tensor, *Tensor, error) {
	if t.Rank() == 0 || n < 0 || n > t.shape[0] {
		return nil, nil, fmt.Errorf("%w: split %v at %d", ErrShape, t.shape, n)
	}
	rowSize := 1
	if len(t.data) > 0 {
		rowSize = len(t.data) / t.shape[0]
	}
	headShape := t.Shape()
	headShape[0] = n
	tailShape := t.Shape()
	tailShape[0] -= n

	head := Zeros(headShape...)
	tail := Zeros(tailShape...)
	copy(head.data, t.data[:n*rowSize])
	copy(tail.data, t.data[n*rowSize:])
	return head, tail, nil
}

// Dense returns a gonum matrix view of a rank-2 tensor. The matrix shares
// storage with t.
func (t *Tensor) Dense() (*mat.Dense, error) {
	if t.Rank() != 2 {
		return nil, fmt.Errorf("%w: matrix view of rank %d tensor", ErrShape, t.Rank())
	}
	if t.shape[0] == 0 || t.shape[1] == 0 {
		return nil, fmt.Errorf("%w: matrix view of empty tensor %v", ErrShape, t.shape)
	}
	return mat.NewDense(t.shape[0], t.shape[1], t.data), nil
}

// FromMatrix copies a gonum matrix into a new rank-2 tensor.
func FromMatrix(m mat.Matrix) *Tensor {
	r, c := m.Dims()
	out := Zeros(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.data[i*c+j] = m.At(i, j)
		}
	}
	return out
}

// String renders the shape and a short prefix of the data.
func (t *Tensor) String() string {
	const preview = 8
	if len(t.data) <= preview {
		return fmt.Sprintf("Tensor%v%v", []int(t.shape), t.data)
	}
	return fmt.Sprintf("Tensor%v%v...", []int(t.shape), t.data[:preview])
}
