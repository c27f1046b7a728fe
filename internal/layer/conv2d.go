package layer

import (
	"fmt"
	"sync"

	"github.com/FlavioCFOliveira/DNet/internal/opt"
	"github.com/FlavioCFOliveira/DNet/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// Conv2D implements a 2D convolutional layer (cross-correlation, no kernel
// flip) over image-layout tensors.
type Conv2D struct {
	inChannels  int
	outChannels int
	window      Window
	workers     int

	// weights: [outChannels, inChannels, kernelH, kernelW]
	weights *Parameter
	// bias: [outChannels, 1]
	bias *Parameter
}

type conv2DContext struct {
	layer  *Conv2D
	padded *tensor.Tensor
	geo    geometry
}

func (c *conv2DContext) owner() any {
	if c == nil {
		return nil
	}
	return c.layer
}

// NewConv2D creates a new 2D convolutional layer.
// inChannels: number of input channels
// outChannels: number of output feature maps
// kernelSize: kernel height and width
// stride: stride for convolution
// padding: zero padding on each spatial side
func NewConv2D(inChannels, outChannels int, kernelSize [2]int, stride, padding int, opts ...Option) (*Conv2D, error) {
	if inChannels < 1 || outChannels < 1 {
		return nil, fmt.Errorf("%w: conv2d channels %d -> %d", ErrConfig, inChannels, outChannels)
	}
	window, err := NewWindow(kernelSize[0], kernelSize[1], stride, tensor.Uniform(padding))
	if err != nil {
		return nil, err
	}
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	// He initialization (better for ReLU)
	w := tensor.Zeros(outChannels, inChannels, kernelSize[0], kernelSize[1])
	uniform(w, o.rng(), heScale(inChannels*window.Area()))

	return &Conv2D{
		inChannels:  inChannels,
		outChannels: outChannels,
		window:      window,
		workers:     o.workers,
		weights:     NewParameter("conv2d.weights", w),
		bias:        NewParameter("conv2d.bias", tensor.Zeros(outChannels, 1)),
	}, nil
}

func (c *Conv2D) Kind() Kind { return KindConvolutional }

// Window returns the layer's window geometry.
func (c *Conv2D) Window() Window { return c.window }

// Weights returns the (out, in, kH, kW) kernel parameter.
func (c *Conv2D) Weights() *Parameter { return c.weights }

// Bias returns the (out, 1) bias parameter.
func (c *Conv2D) Bias() *Parameter { return c.bias }

func (c *Conv2D) Parameters() []*Parameter {
	return []*Parameter{c.weights, c.bias}
}

// Forward zero-pads x and correlates every kernel with it.
func (c *Conv2D) Forward(x *tensor.Tensor) (*tensor.Tensor, Context, error) {
	geo, err := c.window.geometry(x, c.outChannels)
	if err != nil {
		return nil, nil, fmt.Errorf("conv2d: %w", err)
	}
	if geo.in.Channels != c.inChannels {
		return nil, nil, fmt.Errorf("%w: conv2d expects %d input channels, got %d", ErrConfig, c.inChannels, geo.in.Channels)
	}
	padded, err := c.window.pad(x, 0)
	if err != nil {
		return nil, nil, err
	}

	out := tensor.Zeros(geo.out.Shape()...)
	z := out.Data()
	p := padded.Data()
	w := c.weights.Value.Data()
	b := c.bias.Value.Data()
	kH, kW := c.window.KernelH, c.window.KernelW

	c.parallel(geo.in.Batch, func(n int) {
		for o := 0; o < c.outChannels; o++ {
			for i := 0; i < geo.out.Height; i++ {
				for j := 0; j < geo.out.Width; j++ {
					row, col := c.window.Origin(i, j)
					sum := b[o]
					for ch := 0; ch < c.inChannels; ch++ {
						wBase := (o*c.inChannels + ch) * kH * kW
						for u := 0; u < kH; u++ {
							for v := 0; v < kW; v++ {
								sum += w[wBase+u*kW+v] * p[geo.padded.Index(row+u, col+v, ch, n)]
							}
						}
					}
					z[geo.out.Index(i, j, o, n)] = sum
				}
			}
		}
	})

	return out, &conv2DContext{layer: c, padded: padded, geo: geo}, nil
}

// Backward scatters W·dZ into the padded input gradient and stores dW and
// db. Samples are processed independently and their partial gradients are
// summed in sample order, so the result does not depend on the worker count.
func (c *Conv2D) Backward(ctx Context, grad *tensor.Tensor) (*tensor.Tensor, error) {
	cc, err := contextOf[*conv2DContext](c, ctx)
	if err != nil {
		return nil, err
	}
	geo := cc.geo
	if err := checkGrad("conv2d", grad, geo.out.Shape()); err != nil {
		return nil, err
	}

	dPadded := tensor.Zeros(geo.padded.Shape()...)
	dp := dPadded.Data()
	p := cc.padded.Data()
	dz := grad.Data()
	w := c.weights.Value.Data()
	kH, kW := c.window.KernelH, c.window.KernelW

	batch := geo.in.Batch
	partialW := make([][]float64, batch)
	partialB := make([][]float64, batch)

	c.parallel(batch, func(n int) {
		dw := make([]float64, len(w))
		db := make([]float64, c.outChannels)
		for o := 0; o < c.outChannels; o++ {
			for i := 0; i < geo.out.Height; i++ {
				for j := 0; j < geo.out.Width; j++ {
					g := dz[geo.out.Index(i, j, o, n)]
					db[o] += g
					row, col := c.window.Origin(i, j)
					for ch := 0; ch < c.inChannels; ch++ {
						wBase := (o*c.inChannels + ch) * kH * kW
						for u := 0; u < kH; u++ {
							for v := 0; v < kW; v++ {
								idx := geo.padded.Index(row+u, col+v, ch, n)
								dp[idx] += w[wBase+u*kW+v] * g
								dw[wBase+u*kW+v] += p[idx] * g
							}
						}
					}
				}
			}
		}
		partialW[n] = dw
		partialB[n] = db
	})

	c.weights.ZeroGrad()
	c.bias.ZeroGrad()
	for n := 0; n < batch; n++ {
		floats.Add(c.weights.Grad.Data(), partialW[n])
		floats.Add(c.bias.Grad.Data(), partialB[n])
	}

	return c.window.unpad(dPadded)
}

func (c *Conv2D) Optimize(o opt.Optimizer) error {
	return optimize(o, c.weights, c.bias)
}

// parallel runs fn for every sample in [0, batch), splitting the range into
// contiguous chunks over at most c.workers goroutines.
func (c *Conv2D) parallel(batch int, fn func(n int)) {
	numWorkers := min(batch, c.workers)
	if numWorkers <= 1 {
		for n := 0; n < batch; n++ {
			fn(n)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := (batch + numWorkers - 1) / numWorkers
	for start := 0; start < batch; start += chunkSize {
		end := min(start+chunkSize, batch)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for n := start; n < end; n++ {
				fn(n)
			}
		}(start, end)
	}
	wg.Wait()
}
