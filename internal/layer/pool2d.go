package layer

import (
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/DNet/internal/opt"
	"github.com/FlavioCFOliveira/DNet/internal/tensor"
)

// MaxPooling2D takes the maximum of every window, per channel and sample.
// Padding is filled with -Inf so it never wins.
type MaxPooling2D struct {
	window Window
}

type maxPoolContext struct {
	layer *MaxPooling2D
	geo   geometry
	// argmax holds, per output element, the flat padded-input offset of the
	// selected maximum.
	argmax []int
}

func (c *maxPoolContext) owner() any {
	if c == nil {
		return nil
	}
	return c.layer
}

// NewMaxPooling2D creates a max pooling layer.
func NewMaxPooling2D(kernelSize [2]int, stride, padding int) (*MaxPooling2D, error) {
	window, err := NewWindow(kernelSize[0], kernelSize[1], stride, tensor.Uniform(padding))
	if err != nil {
		return nil, err
	}
	return &MaxPooling2D{window: window}, nil
}

func (m *MaxPooling2D) Kind() Kind { return KindPooling }

// Window returns the layer's window geometry.
func (m *MaxPooling2D) Window() Window { return m.window }

func (m *MaxPooling2D) Parameters() []*Parameter { return nil }

func (m *MaxPooling2D) Optimize(opt.Optimizer) error { return nil }

// Forward scans each window in row-major order; on ties the first maximum
// is selected.
func (m *MaxPooling2D) Forward(x *tensor.Tensor) (*tensor.Tensor, Context, error) {
	geo, err := m.window.geometry(x, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("maxpool2d: %w", err)
	}

	padded, err := m.window.pad(x, math.Inf(-1))
	if err != nil {
		return nil, nil, err
	}
	p := padded.Data()

	out := tensor.Zeros(geo.out.Shape()...)
	z := out.Data()
	argmax := make([]int, len(z))
	kH, kW := m.window.KernelH, m.window.KernelW

	for i := 0; i < geo.out.Height; i++ {
		for j := 0; j < geo.out.Width; j++ {
			row, col := m.window.Origin(i, j)
			for ch := 0; ch < geo.in.Channels; ch++ {
				for n := 0; n < geo.in.Batch; n++ {
					best := geo.padded.Index(row, col, ch, n)
					for u := 0; u < kH; u++ {
						for v := 0; v < kW; v++ {
							idx := geo.padded.Index(row+u, col+v, ch, n)
							if p[idx] > p[best] {
								best = idx
							}
						}
					}
					k := geo.out.Index(i, j, ch, n)
					z[k] = p[best]
					argmax[k] = best
				}
			}
		}
	}

	return out, &maxPoolContext{layer: m, geo: geo, argmax: argmax}, nil
}

// Backward routes each output gradient to its window's maximum,
// accumulating where windows overlap.
func (m *MaxPooling2D) Backward(ctx Context, grad *tensor.Tensor) (*tensor.Tensor, error) {
	c, err := contextOf[*maxPoolContext](m, ctx)
	if err != nil {
		return nil, err
	}
	if err := checkGrad("maxpool2d", grad, c.geo.out.Shape()); err != nil {
		return nil, err
	}

	dPadded := tensor.Zeros(c.geo.padded.Shape()...)
	dp := dPadded.Data()
	for k, g := range grad.Data() {
		dp[c.argmax[k]] += g
	}
	return m.window.unpad(dPadded)
}

// AveragePooling2D takes the mean of every window, per channel and sample.
// Padding is zero-filled and counts toward the divisor.
type AveragePooling2D struct {
	window Window
}

type avgPoolContext struct {
	layer *AveragePooling2D
	geo   geometry
}

func (c *avgPoolContext) owner() any {
	if c == nil {
		return nil
	}
	return c.layer
}

// NewAveragePooling2D creates an average pooling layer.
func NewAveragePooling2D(kernelSize [2]int, stride, padding int) (*AveragePooling2D, error) {
	window, err := NewWindow(kernelSize[0], kernelSize[1], stride, tensor.Uniform(padding))
	if err != nil {
		return nil, err
	}
	return &AveragePooling2D{window: window}, nil
}

func (a *AveragePooling2D) Kind() Kind { return KindPooling }

// Window returns the layer's window geometry.
func (a *AveragePooling2D) Window() Window { return a.window }

func (a *AveragePooling2D) Parameters() []*Parameter { return nil }

func (a *AveragePooling2D) Optimize(opt.Optimizer) error { return nil }

// Forward averages each window over kH*kW positions.
func (a *AveragePooling2D) Forward(x *tensor.Tensor) (*tensor.Tensor, Context, error) {
	geo, err := a.window.geometry(x, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("avgpool2d: %w", err)
	}

	padded, err := a.window.pad(x, 0)
	if err != nil {
		return nil, nil, err
	}
	p := padded.Data()

	out := tensor.Zeros(geo.out.Shape()...)
	z := out.Data()
	area := float64(a.window.Area())

	a.each(geo, func(k, idx int) {
		z[k] += p[idx]
	})
	for k := range z {
		z[k] /= area
	}

	return out, &avgPoolContext{layer: a, geo: geo}, nil
}

// Backward spreads dZ/(kH*kW) over every position of each window.
func (a *AveragePooling2D) Backward(ctx Context, grad *tensor.Tensor) (*tensor.Tensor, error) {
	c, err := contextOf[*avgPoolContext](a, ctx)
	if err != nil {
		return nil, err
	}
	if err := checkGrad("avgpool2d", grad, c.geo.out.Shape()); err != nil {
		return nil, err
	}

	dPadded := tensor.Zeros(c.geo.padded.Shape()...)
	dp := dPadded.Data()
	dz := grad.Data()
	area := float64(a.window.Area())

	a.each(c.geo, func(k, idx int) {
		dp[idx] += dz[k] / area
	})
	return a.window.unpad(dPadded)
}

// each calls fn(outputOffset, paddedOffset) for every window position.
func (a *AveragePooling2D) each(geo geometry, fn func(k, idx int)) {
	kH, kW := a.window.KernelH, a.window.KernelW
	for i := 0; i < geo.out.Height; i++ {
		for j := 0; j < geo.out.Width; j++ {
			row, col := a.window.Origin(i, j)
			for ch := 0; ch < geo.in.Channels; ch++ {
				for n := 0; n < geo.in.Batch; n++ {
					k := geo.out.Index(i, j, ch, n)
					for u := 0; u < kH; u++ {
						for v := 0; v < kW; v++ {
							fn(k, geo.padded.Index(row+u, col+v, ch, n))
						}
					}
				}
			}
		}
	}
}
