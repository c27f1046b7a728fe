package layer

import (
	"fmt"

	"github.com/FlavioCFOliveira/DNet/internal/activations"
	"github.com/FlavioCFOliveira/DNet/internal/opt"
	"github.com/FlavioCFOliveira/DNet/internal/tensor"
)

// Activation applies a scalar activation function elementwise.
type Activation struct {
	fn activations.Activation
}

type activationContext struct {
	layer *Activation
	pre   *tensor.Tensor
}

func (c *activationContext) owner() any {
	if c == nil {
		return nil
	}
	return c.layer
}

// NewActivation wraps fn as a layer.
func NewActivation(fn activations.Activation) *Activation {
	return &Activation{fn: fn}
}

func (a *Activation) Kind() Kind { return KindActivation }

// Func returns the wrapped activation.
func (a *Activation) Func() activations.Activation { return a.fn }

func (a *Activation) Parameters() []*Parameter { return nil }

func (a *Activation) Optimize(opt.Optimizer) error { return nil }

func (a *Activation) Forward(x *tensor.Tensor) (*tensor.Tensor, Context, error) {
	if x == nil {
		return nil, nil, fmt.Errorf("%s: %w: nil input", a.fn.Name(), tensor.ErrShape)
	}
	return x.Apply(a.fn.Activate), &activationContext{layer: a, pre: x.Clone()}, nil
}

func (a *Activation) Backward(ctx Context, grad *tensor.Tensor) (*tensor.Tensor, error) {
	c, err := contextOf[*activationContext](a, ctx)
	if err != nil {
		return nil, err
	}
	if err := checkGrad(a.fn.Name(), grad, c.pre.Shape()); err != nil {
		return nil, err
	}
	return tensor.Mul(grad, c.pre.Apply(a.fn.Derivative))
}

// Softmax normalizes each column of a (features, batch) tensor.
type Softmax struct {
	name string
}

type softmaxContext struct {
	layer *Softmax
	out   *tensor.Tensor
}

func (c *softmaxContext) owner() any {
	if c == nil {
		return nil
	}
	return c.layer
}

// NewSoftmax creates a softmax layer.
func NewSoftmax() *Softmax { return &Softmax{name: "softmax"} }

func (s *Softmax) Kind() Kind { return KindActivation }

func (s *Softmax) Parameters() []*Parameter { return nil }

func (s *Softmax) Optimize(opt.Optimizer) error { return nil }

func (s *Softmax) Forward(x *tensor.Tensor) (*tensor.Tensor, Context, error) {
	d, err := tensor.Features(x)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", s.name, err)
	}
	out := tensor.ZerosLike(x)
	activations.SoftmaxColumns(out.Data(), x.Data(), d.Features, d.Batch)
	return out, &softmaxContext{layer: s, out: out.Clone()}, nil
}

func (s *Softmax) Backward(ctx Context, grad *tensor.Tensor) (*tensor.Tensor, error) {
	c, err := contextOf[*softmaxContext](s, ctx)
	if err != nil {
		return nil, err
	}
	if err := checkGrad(s.name, grad, c.out.Shape()); err != nil {
		return nil, err
	}
	dx := tensor.ZerosLike(grad)
	activations.SoftmaxColumnsGrad(dx.Data(), c.out.Data(), grad.Data(), c.out.Dim(0), c.out.Dim(1))
	return dx, nil
}

// Flatten turns an image-layout tensor (H, W, C, N) into features
// (H*W*C, N).
type Flatten struct {
	name string
}

type flattenContext struct {
	layer *Flatten
	shape tensor.Shape
}

func (c *flattenContext) owner() any {
	if c == nil {
		return nil
	}
	return c.layer
}

// NewFlatten creates a flatten layer.
func NewFlatten() *Flatten { return &Flatten{name: "flatten"} }

func (f *Flatten) Kind() Kind { return KindReshape }

func (f *Flatten) Parameters() []*Parameter { return nil }

func (f *Flatten) Optimize(opt.Optimizer) error { return nil }

func (f *Flatten) Forward(x *tensor.Tensor) (*tensor.Tensor, Context, error) {
	d, err := tensor.Image(x)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", f.name, err)
	}
	out, err := x.Reshape(d.Height*d.Width*d.Channels, d.Batch)
	if err != nil {
		return nil, nil, err
	}
	return out, &flattenContext{layer: f, shape: x.Shape()}, nil
}

func (f *Flatten) Backward(ctx Context, grad *tensor.Tensor) (*tensor.Tensor, error) {
	c, err := contextOf[*flattenContext](f, ctx)
	if err != nil {
		return nil, err
	}
	want := tensor.Shape{c.shape[0] * c.shape[1] * c.shape[2], c.shape[3]}
	if err := checkGrad(f.name, grad, want); err != nil {
		return nil, err
	}
	return grad.Reshape(c.shape...)
}
