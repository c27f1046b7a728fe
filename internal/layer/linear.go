package layer

import (
	"fmt"

	"github.com/FlavioCFOliveira/DNet/internal/opt"
	"github.com/FlavioCFOliveira/DNet/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// Linear is a fully connected layer: Z = W·A + b over (features, batch).
// W is (out, in) and b is (out, 1).
type Linear struct {
	in      int
	out     int
	weights *Parameter
	bias    *Parameter
}

type linearContext struct {
	layer *Linear
	input *tensor.Tensor
}

func (c *linearContext) owner() any {
	if c == nil {
		return nil
	}
	return c.layer
}

// NewLinear creates a linear layer with Xavier-initialized weights and zero
// bias.
func NewLinear(in, out int, opts ...Option) (*Linear, error) {
	if in < 1 || out < 1 {
		return nil, fmt.Errorf("%w: linear %d -> %d", ErrConfig, in, out)
	}
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	w := tensor.Zeros(out, in)
	uniform(w, o.rng(), xavierScale(in, out))

	return &Linear{
		in:      in,
		out:     out,
		weights: NewParameter("linear.weights", w),
		bias:    NewParameter("linear.bias", tensor.Zeros(out, 1)),
	}, nil
}

func (l *Linear) Kind() Kind { return KindLinear }

// InSize returns the number of input features.
func (l *Linear) InSize() int { return l.in }

// OutSize returns the number of output features.
func (l *Linear) OutSize() int { return l.out }

// Weights returns the (out, in) weight parameter.
func (l *Linear) Weights() *Parameter { return l.weights }

// Bias returns the (out, 1) bias parameter.
func (l *Linear) Bias() *Parameter { return l.bias }

func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.weights, l.bias}
}

// Forward computes W·x + b.
func (l *Linear) Forward(x *tensor.Tensor) (*tensor.Tensor, Context, error) {
	d, err := tensor.Features(x)
	if err != nil {
		return nil, nil, fmt.Errorf("linear: %w", err)
	}
	if d.Features != l.in {
		return nil, nil, fmt.Errorf("%w: linear expects %d features, got %d", ErrConfig, l.in, d.Features)
	}

	w, err := l.weights.Value.Dense()
	if err != nil {
		return nil, nil, err
	}
	a, err := x.Dense()
	if err != nil {
		return nil, nil, fmt.Errorf("linear: %w", err)
	}

	var z mat.Dense
	z.Mul(w, a)
	b := l.bias.Value.Data()
	for i := 0; i < l.out; i++ {
		for j := 0; j < d.Batch; j++ {
			z.Set(i, j, z.At(i, j)+b[i])
		}
	}
	return tensor.FromMatrix(&z), &linearContext{layer: l, input: x.Clone()}, nil
}

// Backward computes dW = dZ·Aᵀ, db = Σ_batch dZ and returns dA = Wᵀ·dZ.
func (l *Linear) Backward(ctx Context, grad *tensor.Tensor) (*tensor.Tensor, error) {
	return l.backward(ctx, grad, false)
}

// backward adds to the stored gradients instead of replacing them when
// accumulate is set, for weights shared across time steps.
func (l *Linear) backward(ctx Context, grad *tensor.Tensor, accumulate bool) (*tensor.Tensor, error) {
	c, err := contextOf[*linearContext](l, ctx)
	if err != nil {
		return nil, err
	}
	batch := c.input.Dim(1)
	if err := checkGrad("linear", grad, tensor.Shape{l.out, batch}); err != nil {
		return nil, err
	}

	dz, err := grad.Dense()
	if err != nil {
		return nil, err
	}
	a, err := c.input.Dense()
	if err != nil {
		return nil, err
	}
	w, err := l.weights.Value.Dense()
	if err != nil {
		return nil, err
	}

	var dw, da mat.Dense
	dw.Mul(dz, a.T())
	da.Mul(w.T(), dz)

	db := tensor.Zeros(l.out, 1)
	for i := 0; i < l.out; i++ {
		db.Data()[i] = mat.Sum(dz.RowView(i))
	}

	if accumulate {
		if err := l.weights.Grad.AddInPlace(tensor.FromMatrix(&dw)); err != nil {
			return nil, err
		}
		if err := l.bias.Grad.AddInPlace(db); err != nil {
			return nil, err
		}
	} else {
		if err := l.weights.Grad.CopyFrom(tensor.FromMatrix(&dw)); err != nil {
			return nil, err
		}
		if err := l.bias.Grad.CopyFrom(db); err != nil {
			return nil, err
		}
	}
	return tensor.FromMatrix(&da), nil
}

func (l *Linear) Optimize(o opt.Optimizer) error {
	return optimize(o, l.weights, l.bias)
}
