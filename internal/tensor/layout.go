package tensor

import "fmt"

// ImageDims describes a tensor in image layout: (height, width, channels,
// batch), channels and batch trailing.
type ImageDims struct {
	Height   int
	Width    int
	Channels int
	Batch    int
}

// Image decodes t as an image-layout tensor.
func Image(t *Tensor) (ImageDims, error) {
	if t == nil || t.Rank() != 4 {
		return ImageDims{}, fmt.Errorf("%w: image layout (height, width, channels, batch) needs rank 4, got %v", ErrLayout, shapeOf(t))
	}
	return ImageDims{Height: t.shape[0], Width: t.shape[1], Channels: t.shape[2], Batch: t.shape[3]}, nil
}

// Shape returns the tensor shape for d.
func (d ImageDims) Shape() Shape {
	return Shape{d.Height, d.Width, d.Channels, d.Batch}
}

// Index returns the flat offset of (h, w, c, n).
func (d ImageDims) Index(h, w, c, n int) int {
	return ((h*d.Width+w)*d.Channels+c)*d.Batch + n
}

// FeatureDims describes a tensor in feature layout: (features, batch).
type FeatureDims struct {
	Features int
	Batch    int
}

// Features decodes t as a feature-layout tensor.
func Features(t *Tensor) (FeatureDims, error) {
	if t == nil || t.Rank() != 2 {
		return FeatureDims{}, fmt.Errorf("%w: feature layout (features, batch) needs rank 2, got %v", ErrLayout, shapeOf(t))
	}
	return FeatureDims{Features: t.shape[0], Batch: t.shape[1]}, nil
}

// Shape returns the tensor shape for d.
func (d FeatureDims) Shape() Shape {
	return Shape{d.Features, d.Batch}
}

// SequenceDims describes a tensor in sequence layout: (features, steps, batch).
type SequenceDims struct {
	Features int
	Steps    int
	Batch    int
}

// Sequence decodes t as a sequence-layout tensor.
func Sequence(t *Tensor) (SequenceDims, error) {
	if t == nil || t.Rank() != 3 {
		return SequenceDims{}, fmt.Errorf("%w: sequence layout (features, steps, batch) needs rank 3, got %v", ErrLayout, shapeOf(t))
	}
	return SequenceDims{Features: t.shape[0], Steps: t.shape[1], Batch: t.shape[2]}, nil
}

// Shape returns the tensor shape for d.
func (d SequenceDims) Shape() Shape {
	return Shape{d.Features, d.Steps, d.Batch}
}

// Step extracts time step s of a sequence tensor as a (features, batch) tensor.
func (d SequenceDims) Step(t *Tensor, s int) *Tensor {
	out := Zeros(d.Features, d.Batch)
	for f := 0; f < d.Features; f++ {
		copy(out.data[f*d.Batch:(f+1)*d.Batch], t.data[(f*d.Steps+s)*d.Batch:(f*d.Steps+s+1)*d.Batch])
	}
	return out
}

// SetStep writes a (features, batch) tensor into time step s of t.
func (d SequenceDims) SetStep(t, step *Tensor, s int) {
	for f := 0; f < d.Features; f++ {
		copy(t.data[(f*d.Steps+s)*d.Batch:(f*d.Steps+s+1)*d.Batch], step.data[f*d.Batch:(f+1)*d.Batch])
	}
}

func shapeOf(t *Tensor) Shape {
	if t == nil {
		return nil
	}
	return t.shape
}

// SliceBatch returns samples [from, to) of t along its trailing batch axis.
func SliceBatch(t *Tensor, from, to int) (*Tensor, error) {
	if t == nil || t.Rank() == 0 {
		return nil, fmt.Errorf("%w: batch slice of %v", ErrShape, shapeOf(t))
	}
	last := t.Rank() - 1
	n := t.shape[last]
	if from < 0 || to > n || from > to {
		return nil, fmt.Errorf("%w: batch slice [%d, %d) of %v", ErrShape, from, to, t.shape)
	}

	shape := t.Shape()
	shape[last] = to - from
	out := Zeros(shape...)
	if n == 0 {
		return out, nil
	}
	width := to - from
	for r := 0; r < len(t.data)/n; r++ {
		copy(out.data[r*width:(r+1)*width], t.data[r*n+from:r*n+to])
	}
	return out, nil
}
