package layer

import (
	"fmt"

	"github.com/FlavioCFOliveira/DNet/internal/tensor"
)

// Window is the sliding-window geometry shared by convolution and pooling.
type Window struct {
	KernelH int
	KernelW int
	Stride  int
	Padding tensor.Padding
}

// NewWindow validates and builds a window.
func NewWindow(kH, kW, stride int, padding tensor.Padding) (Window, error) {
	if kH < 1 || kW < 1 {
		return Window{}, fmt.Errorf("%w: kernel %dx%d", ErrConfig, kH, kW)
	}
	if stride < 1 {
		return Window{}, fmt.Errorf("%w: stride %d", ErrConfig, stride)
	}
	if err := padding.Validate(); err != nil {
		return Window{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return Window{KernelH: kH, KernelW: kW, Stride: stride, Padding: padding}, nil
}

// OutputSize returns the output height and width for an h x w input:
// floor((in + before + after - k) / stride) + 1 per axis.
func (w Window) OutputSize(h, wd int) (int, int, error) {
	border := w.Padding.Before + w.Padding.After
	outH := w.outDim(h+border, w.KernelH)
	outW := w.outDim(wd+border, w.KernelW)
	if outH < 1 || outW < 1 {
		return 0, 0, fmt.Errorf("%w: %dx%d window with stride %d leaves no output for %dx%d input",
			ErrConfig, w.KernelH, w.KernelW, w.Stride, h, wd)
	}
	return outH, outW, nil
}

func (w Window) outDim(padded, k int) int {
	if padded < k {
		return 0
	}
	return (padded-k)/w.Stride + 1
}

// Origin returns the top-left padded-input coordinate of output (i, j).
func (w Window) Origin(i, j int) (int, int) {
	return i * w.Stride, j * w.Stride
}

// Area is the number of positions in one window.
func (w Window) Area() int {
	return w.KernelH * w.KernelW
}

// geometry resolves the padded input and output dims for an image input.
type geometry struct {
	in     tensor.ImageDims
	padded tensor.ImageDims
	out    tensor.ImageDims
}

// geometry decodes x; an outChannels of 0 keeps the input channel count.
func (w Window) geometry(x *tensor.Tensor, outChannels int) (geometry, error) {
	in, err := tensor.Image(x)
	if err != nil {
		return geometry{}, err
	}
	if outChannels == 0 {
		outChannels = in.Channels
	}
	outH, outW, err := w.OutputSize(in.Height, in.Width)
	if err != nil {
		return geometry{}, err
	}
	border := w.Padding.Before + w.Padding.After
	return geometry{
		in:     in,
		padded: tensor.ImageDims{Height: in.Height + border, Width: in.Width + border, Channels: in.Channels, Batch: in.Batch},
		out:    tensor.ImageDims{Height: outH, Width: outW, Channels: outChannels, Batch: in.Batch},
	}, nil
}

// pad surrounds the spatial axes of an image tensor with constant.
func (w Window) pad(x *tensor.Tensor, constant float64) (*tensor.Tensor, error) {
	return tensor.Pad(x, w.Padding, 2, constant)
}

func (w Window) unpad(x *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.Unpad(x, w.Padding, 2)
}
