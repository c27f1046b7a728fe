package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsWrongLength(t *testing.T) {
	_, err := New(Shape{2, 3}, []float64{1, 2, 3})
	require.ErrorIs(t, err, ErrShape)
}

func TestNewCopiesData(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	x, err := New(Shape{2, 2}, data)
	require.NoError(t, err)

	data[0] = 99
	assert.Equal(t, 1.0, x.At(0, 0))
}

func TestAtSetRowMajor(t *testing.T) {
	x := Zeros(2, 3, 4)
	x.Set(7, 1, 2, 3)

	assert.Equal(t, 7.0, x.Data()[1*12+2*4+3])
	assert.Equal(t, 7.0, x.At(1, 2, 3))
	assert.Equal(t, []int{12, 4, 1}, x.Shape().Strides())
}

func TestOffsetPanicsOutOfRange(t *testing.T) {
	x := Zeros(2, 2)
	assert.Panics(t, func() { x.At(2, 0) })
	assert.Panics(t, func() { x.At(0) })
}

func TestReshape(t *testing.T) {
	x, err := New(Shape{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	y, err := x.Reshape(3, 2)
	require.NoError(t, err)
	assert.Equal(t, 4.0, y.At(1, 1))

	_, err = x.Reshape(4, 2)
	assert.ErrorIs(t, err, ErrShape)
}

func TestConcatAndSplit(t *testing.T) {
	a, _ := New(Shape{2, 2}, []float64{1, 2, 3, 4})
	b, _ := New(Shape{1, 2}, []float64{5, 6})

	c, err := Concat(a, b)
	require.NoError(t, err)
	assert.Equal(t, Shape{3, 2}, c.Shape())
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, c.Data())

	head, tail, err := Split(c, 2)
	require.NoError(t, err)
	assert.Equal(t, a.Data(), head.Data())
	assert.Equal(t, b.Data(), tail.Data())

	_, err = Concat(a, Zeros(1, 3))
	assert.ErrorIs(t, err, ErrShape)
	_, _, err = Split(c, 4)
	assert.ErrorIs(t, err, ErrShape)
}

func TestArithmetic(t *testing.T) {
	a, _ := New(Shape{3}, []float64{1, 2, 3})
	b, _ := New(Shape{3}, []float64{4, 5, 6})

	require.NoError(t, a.AddInPlace(b))
	assert.Equal(t, []float64{5, 7, 9}, a.Data())
	assert.Equal(t, 21.0, a.Sum())
	assert.Equal(t, []float64{10, 14, 18}, a.Scale(2).Data())

	m, err := Mul(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 35, 54}, m.Data())

	assert.ErrorIs(t, a.AddInPlace(Zeros(2)), ErrShape)
}

func TestDenseSharesStorage(t *testing.T) {
	x, _ := New(Shape{2, 2}, []float64{1, 2, 3, 4})
	m, err := x.Dense()
	require.NoError(t, err)

	m.Set(0, 1, 9)
	assert.Equal(t, 9.0, x.At(0, 1))

	back := FromMatrix(m.T())
	assert.Equal(t, []float64{1, 3, 9, 4}, back.Data())

	_, err = Zeros(2, 2, 2).Dense()
	assert.ErrorIs(t, err, ErrShape)
}

func TestLayouts(t *testing.T) {
	img := Zeros(4, 5, 3, 2)
	d, err := Image(img)
	require.NoError(t, err)
	assert.Equal(t, ImageDims{Height: 4, Width: 5, Channels: 3, Batch: 2}, d)
	assert.Equal(t, img.Offset(2, 3, 1, 1), d.Index(2, 3, 1, 1))

	_, err = Image(Zeros(4, 4))
	assert.ErrorIs(t, err, ErrLayout)
	_, err = Features(img)
	assert.ErrorIs(t, err, ErrLayout)
}

func TestSequenceSteps(t *testing.T) {
	seq := Zeros(2, 3, 2)
	d, err := Sequence(seq)
	require.NoError(t, err)

	step, _ := New(Shape{2, 2}, []float64{1, 2, 3, 4})
	d.SetStep(seq, step, 1)

	assert.Equal(t, 1.0, seq.At(0, 1, 0))
	assert.Equal(t, 4.0, seq.At(1, 1, 1))
	assert.Equal(t, step.Data(), d.Step(seq, 1).Data())
	assert.Equal(t, 0.0, d.Step(seq, 0).Sum())
}

func TestSliceBatch(t *testing.T) {
	x, _ := New(Shape{2, 3}, []float64{1, 2, 3, 4, 5, 6})

	s, err := SliceBatch(x, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 2}, s.Shape())
	assert.Equal(t, []float64{2, 3, 5, 6}, s.Data())

	img := Zeros(2, 2, 1, 4)
	img.Set(7, 1, 0, 0, 2)
	s, err = SliceBatch(img, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 7.0, s.At(1, 0, 0, 0))

	_, err = SliceBatch(x, 2, 4)
	assert.ErrorIs(t, err, ErrShape)
}
