// Package layer provides neural network layer implementations.
//
// Layers compute on tensors in one of three layouts: image (height, width,
// channels, batch), features (features, batch) or sequence (features, steps,
// batch). Forward returns a Context holding what Backward needs; the caller
// threads it back, so a layer keeps no per-call state besides its
// parameters.
package layer

import (
	"errors"
	"fmt"

	"github.com/FlavioCFOliveira/DNet/internal/opt"
	"github.com/FlavioCFOliveira/DNet/internal/tensor"
)

var (
	// ErrConfig reports an invalid layer configuration or an input that does
	// not fit it.
	ErrConfig = errors.New("layer: invalid configuration")
	// ErrContext reports a Backward call without a context from the same
	// layer's Forward.
	ErrContext = errors.New("layer: missing or foreign forward context")
)

// Kind tags a layer family. It is informational only.
type Kind int

const (
	KindLinear Kind = iota
	KindConvolutional
	KindRecurrent
	KindPooling
	KindActivation
	KindReshape
)

func (k Kind) String() string {
	switch k {
	case KindLinear:
		return "Linear"
	case KindConvolutional:
		return "Convolutional"
	case KindRecurrent:
		return "Recurrent"
	case KindPooling:
		return "Pooling"
	case KindActivation:
		return "Activation"
	case KindReshape:
		return "Reshape"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Context is the forward-pass state of one Forward call.
type Context interface {
	owner() any
}

// Layer is a neural network layer.
type Layer interface {
	Kind() Kind

	// Forward computes the layer output and the context Backward needs.
	Forward(x *tensor.Tensor) (*tensor.Tensor, Context, error)

	// Backward takes the gradient w.r.t. the output of the Forward call that
	// produced ctx, stores parameter gradients and returns the gradient
	// w.r.t. its input.
	Backward(ctx Context, grad *tensor.Tensor) (*tensor.Tensor, error)

	// Optimize applies o to every parameter using its stored gradient.
	Optimize(o opt.Optimizer) error

	Parameters() []*Parameter
}

// Trainable reports whether l has parameters.
func Trainable(l Layer) bool {
	return len(l.Parameters()) > 0
}

// contextOf checks that ctx is a C produced by owner.
func contextOf[C Context](owner any, ctx Context) (C, error) {
	c, ok := ctx.(C)
	if !ok || c.owner() != owner {
		var zero C
		return zero, fmt.Errorf("%w: got %T", ErrContext, ctx)
	}
	return c, nil
}

func checkGrad(name string, grad *tensor.Tensor, want tensor.Shape) error {
	if grad == nil {
		return fmt.Errorf("%s: %w: nil gradient", name, tensor.ErrShape)
	}
	if !want.Equal(grad.Shape()) {
		return fmt.Errorf("%s: %w: gradient %v, output %v", name, tensor.ErrShape, grad.Shape(), want)
	}
	return nil
}
