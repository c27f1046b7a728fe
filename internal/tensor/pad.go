package tensor

import "fmt"

// Padding is the number of elements added before and after each padded
// dimension.
type Padding struct {
	Before int
	After  int
}

// Uniform returns the same padding on both sides.
func Uniform(p int) Padding {
	return Padding{Before: p, After: p}
}

// Validate rejects negative amounts.
func (p Padding) Validate() error {
	if p.Before < 0 || p.After < 0 {
		return fmt.Errorf("%w: negative amount (%d, %d)", ErrPadding, p.Before, p.After)
	}
	return nil
}

// IsZero reports whether p adds nothing.
func (p Padding) IsZero() bool {
	return p.Before == 0 && p.After == 0
}

// Pad surrounds the leading rank-unpadded dimensions of t with constant.
// The trailing unpadded dimensions (channels and batch for image layout) are
// left as they are.
func Pad(t *Tensor, p Padding, unpadded int, constant float64) (*Tensor, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil tensor", ErrPadding)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if unpadded < 0 || t.Rank() < unpadded {
		return nil, fmt.Errorf("%w: rank %d tensor cannot keep %d trailing dimensions unpadded", ErrPadding, t.Rank(), unpadded)
	}
	if p.IsZero() || unpadded == t.Rank() {
		return t.Clone(), nil
	}

	padded := t.Rank() - unpadded
	shape := t.Shape()
	for i := 0; i < padded; i++ {
		shape[i] += p.Before + p.After
	}
	out := Full(constant, shape...)
	copyRegion(out, t, padded, p.Before, true)
	return out, nil
}

// Unpad strips the border Pad added with the same arguments.
func Unpad(t *Tensor, p Padding, unpadded int) (*Tensor, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil tensor", ErrPadding)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if unpadded < 0 || t.Rank() < unpadded {
		return nil, fmt.Errorf("%w: rank %d tensor cannot keep %d trailing dimensions unpadded", ErrPadding, t.Rank(), unpadded)
	}
	if p.IsZero() || unpadded == t.Rank() {
		return t.Clone(), nil
	}

	padded := t.Rank() - unpadded
	shape := t.Shape()
	for i := 0; i < padded; i++ {
		shape[i] -= p.Before + p.After
		if shape[i] < 0 {
			return nil, fmt.Errorf("%w: dimension %d of %v is smaller than the border", ErrPadding, i, t.shape)
		}
	}
	out := Zeros(shape...)
	copyRegion(out, t, padded, p.Before, false)
	return out, nil
}

// copyRegion walks every element of the smaller tensor and copies it to or
// from the larger one, offsetting the first `padded` axes by `before`.
func copyRegion(dst, src *Tensor, padded, before int, intoLarger bool) {
	small := src
	large := dst
	if !intoLarger {
		small, large = dst, src
	}
	if small.Len() == 0 {
		return
	}

	idx := make([]int, small.Rank())
	for i := 0; i < small.Len(); i++ {
		rem := i
		off := 0
		for axis := range idx {
			idx[axis] = rem / small.strides[axis]
			rem %= small.strides[axis]
			pos := idx[axis]
			if axis < padded {
				pos += before
			}
			off += pos * large.strides[axis]
		}
		if intoLarger {
			large.data[off] = small.data[i]
		} else {
			small.data[i] = large.data[off]
		}
	}
}
