package layer

import (
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/DNet/internal/activations"
	"github.com/FlavioCFOliveira/DNet/internal/opt"
	"github.com/FlavioCFOliveira/DNet/internal/tensor"
)

// RNNCell is a vanilla recurrent cell:
//
//	h' = tanh(W·[x; h] + b)
//
// over (features, batch) tensors. W is (hidden, input+hidden).
type RNNCell struct {
	inputDim  int
	hiddenDim int
	linear    *Linear
}

// RNNContext is the state of one RNNCell.Forward call.
type RNNContext struct {
	cell   *RNNCell
	hidden *tensor.Tensor
	linear Context
}

func (c *RNNContext) owner() any {
	if c == nil {
		return nil
	}
	return c.cell
}

// Hidden returns the new hidden state computed by the forward call.
func (c *RNNContext) Hidden() *tensor.Tensor { return c.hidden }

// NewRNNCell creates a recurrent cell.
func NewRNNCell(inputDim, hiddenDim int, opts ...Option) (*RNNCell, error) {
	if inputDim < 1 || hiddenDim < 1 {
		return nil, fmt.Errorf("%w: rnn cell input %d, hidden %d", ErrConfig, inputDim, hiddenDim)
	}
	lin, err := NewLinear(inputDim+hiddenDim, hiddenDim, opts...)
	if err != nil {
		return nil, err
	}
	lin.weights.Name = "rnn.weights"
	lin.bias.Name = "rnn.bias"
	return &RNNCell{inputDim: inputDim, hiddenDim: hiddenDim, linear: lin}, nil
}

func (r *RNNCell) Kind() Kind { return KindRecurrent }

func (r *RNNCell) InputDim() int  { return r.inputDim }
func (r *RNNCell) HiddenDim() int { return r.hiddenDim }

// Weights returns the (hidden, input+hidden) weight parameter.
func (r *RNNCell) Weights() *Parameter { return r.linear.weights }

// Bias returns the (hidden, 1) bias parameter.
func (r *RNNCell) Bias() *Parameter { return r.linear.bias }

func (r *RNNCell) Parameters() []*Parameter { return r.linear.Parameters() }

// Forward computes the next hidden state from input (inputDim, batch) and
// hidden (hiddenDim, batch).
func (r *RNNCell) Forward(input, hidden *tensor.Tensor) (*tensor.Tensor, *RNNContext, error) {
	in, err := tensor.Features(input)
	if err != nil {
		return nil, nil, fmt.Errorf("rnn input: %w", err)
	}
	hd, err := tensor.Features(hidden)
	if err != nil {
		return nil, nil, fmt.Errorf("rnn hidden: %w", err)
	}
	if in.Features != r.inputDim || hd.Features != r.hiddenDim {
		return nil, nil, fmt.Errorf("%w: rnn cell expects input %d and hidden %d features, got %d and %d",
			ErrConfig, r.inputDim, r.hiddenDim, in.Features, hd.Features)
	}
	if in.Batch != hd.Batch {
		return nil, nil, fmt.Errorf("%w: input batch %d, hidden batch %d", tensor.ErrShape, in.Batch, hd.Batch)
	}

	combined, err := tensor.Concat(input, hidden)
	if err != nil {
		return nil, nil, err
	}
	pre, lctx, err := r.linear.Forward(combined)
	if err != nil {
		return nil, nil, err
	}
	h := pre.Apply(math.Tanh)

	return h, &RNNContext{cell: r, hidden: h, linear: lctx}, nil
}

// Backward takes the gradient w.r.t. the new hidden state and returns the
// gradient w.r.t. the combined [input; hidden] vector.
func (r *RNNCell) Backward(ctx Context, grad *tensor.Tensor) (*tensor.Tensor, error) {
	return r.backward(ctx, grad, false)
}

func (r *RNNCell) backward(ctx Context, grad *tensor.Tensor, accumulate bool) (*tensor.Tensor, error) {
	c, err := contextOf[*RNNContext](r, ctx)
	if err != nil {
		return nil, err
	}
	if err := checkGrad("rnn", grad, c.hidden.Shape()); err != nil {
		return nil, err
	}

	dPre, err := tensor.Mul(grad, c.hidden.Apply(activations.TanhGrad))
	if err != nil {
		return nil, err
	}
	return r.linear.backward(c.linear, dPre, accumulate)
}

// SplitCombined splits a combined gradient into its input and hidden parts.
func (r *RNNCell) SplitCombined(dCombined *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	if dCombined == nil || dCombined.Rank() != 2 || dCombined.Dim(0) != r.inputDim+r.hiddenDim {
		return nil, nil, fmt.Errorf("%w: combined gradient must have %d rows", tensor.ErrShape, r.inputDim+r.hiddenDim)
	}
	return tensor.Split(dCombined, r.inputDim)
}

func (r *RNNCell) Optimize(o opt.Optimizer) error {
	return r.linear.Optimize(o)
}

// RNN runs an RNNCell over a (inputDim, steps, batch) sequence from a zero
// hidden state and outputs the last hidden state (hiddenDim, batch).
type RNN struct {
	cell *RNNCell
}

type rnnContext struct {
	layer      *RNN
	inputShape tensor.Shape
	steps      []*RNNContext
}

func (c *rnnContext) owner() any {
	if c == nil {
		return nil
	}
	return c.layer
}

// NewRNN creates a sequence layer around a new cell.
func NewRNN(inputDim, hiddenDim int, opts ...Option) (*RNN, error) {
	cell, err := NewRNNCell(inputDim, hiddenDim, opts...)
	if err != nil {
		return nil, err
	}
	return &RNN{cell: cell}, nil
}

func (r *RNN) Kind() Kind { return KindRecurrent }

// Cell returns the shared cell.
func (r *RNN) Cell() *RNNCell { return r.cell }

func (r *RNN) Parameters() []*Parameter { return r.cell.Parameters() }

func (r *RNN) Forward(x *tensor.Tensor) (*tensor.Tensor, Context, error) {
	d, err := tensor.Sequence(x)
	if err != nil {
		return nil, nil, fmt.Errorf("rnn: %w", err)
	}
	if d.Steps == 0 {
		return nil, nil, fmt.Errorf("%w: empty sequence", ErrConfig)
	}

	h := tensor.Zeros(r.cell.hiddenDim, d.Batch)
	steps := make([]*RNNContext, d.Steps)
	for s := 0; s < d.Steps; s++ {
		h, steps[s], err = r.cell.Forward(d.Step(x, s), h)
		if err != nil {
			return nil, nil, fmt.Errorf("rnn step %d: %w", s, err)
		}
	}
	return h, &rnnContext{layer: r, inputShape: x.Shape(), steps: steps}, nil
}

// Backward propagates through time, summing the cell's parameter gradients
// over all steps.
func (r *RNN) Backward(ctx Context, grad *tensor.Tensor) (*tensor.Tensor, error) {
	c, err := contextOf[*rnnContext](r, ctx)
	if err != nil {
		return nil, err
	}
	dx := tensor.Zeros(c.inputShape...)
	d, err := tensor.Sequence(dx)
	if err != nil {
		return nil, err
	}

	dh := grad
	last := len(c.steps) - 1
	for s := last; s >= 0; s-- {
		dCombined, err := r.cell.backward(c.steps[s], dh, s != last)
		if err != nil {
			return nil, fmt.Errorf("rnn step %d: %w", s, err)
		}
		dIn, dHidden, err := r.cell.SplitCombined(dCombined)
		if err != nil {
			return nil, err
		}
		d.SetStep(dx, dIn, s)
		dh = dHidden
	}
	return dx, nil
}

func (r *RNN) Optimize(o opt.Optimizer) error {
	return r.cell.Optimize(o)
}
