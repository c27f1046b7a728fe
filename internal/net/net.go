// Package net provides core neural network types.
package net

import (
	"errors"
	"fmt"

	"github.com/FlavioCFOliveira/DNet/internal/layer"
	"github.com/FlavioCFOliveira/DNet/internal/loss"
	"github.com/FlavioCFOliveira/DNet/internal/opt"
	"github.com/FlavioCFOliveira/DNet/internal/tensor"
)

var (
	// ErrNotCompiled reports training without a loss or optimizer.
	ErrNotCompiled = errors.New("net: model has no loss or optimizer")
	// ErrNoForward reports Backward without a preceding Forward.
	ErrNoForward = errors.New("net: backward without forward")
	// ErrConfig reports invalid training arguments.
	ErrConfig = errors.New("net: invalid training configuration")
)

// Network is a collection of layers that can be forwarded and backwarded.
type Network struct {
	layers []layer.Layer
	loss   loss.Loss
	opt    opt.Optimizer

	// contexts of the last Forward, consumed by Backward
	contexts []layer.Context
	stop     bool
}

// New creates a new neural network with the given layers.
func New(layers []layer.Layer, lossFn loss.Loss, optimizer opt.Optimizer) *Network {
	return &Network{
		layers: layers,
		loss:   lossFn,
		opt:    optimizer,
	}
}

// Layers returns the layers of the network.
func (n *Network) Layers() []layer.Layer {
	return n.layers
}

// Optimizer returns the configured optimizer, or nil.
func (n *Network) Optimizer() opt.Optimizer { return n.opt }

// Loss returns the configured loss, or nil.
func (n *Network) Loss() loss.Loss { return n.loss }

// Forward performs a forward pass through all layers and keeps the contexts
// for the next Backward.
// A failed Forward leaves nothing for Backward.
func (n *Network) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	n.contexts = nil
	out, contexts, err := n.forward(x)
	if err != nil {
		return nil, err
	}
	n.contexts = contexts
	return out, nil
}

// Predict performs a forward pass without keeping any backward state.
func (n *Network) Predict(x *tensor.Tensor) (*tensor.Tensor, error) {
	out, _, err := n.forward(x)
	return out, err
}

func (n *Network) forward(x *tensor.Tensor) (*tensor.Tensor, []layer.Context, error) {
	contexts := make([]layer.Context, len(n.layers))
	curr := x
	for i, l := range n.layers {
		out, ctx, err := l.Forward(curr)
		if err != nil {
			return nil, nil, fmt.Errorf("layer %d (%s): %w", i, l.Kind(), err)
		}
		curr = out
		contexts[i] = ctx
	}
	return curr, contexts, nil
}

// Backward performs a backward pass through all layers in reverse order and
// returns the gradient w.r.t. the network input.
func (n *Network) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	if n.contexts == nil {
		return nil, ErrNoForward
	}
	contexts := n.contexts
	n.contexts = nil
	if len(contexts) != len(n.layers) {
		return nil, fmt.Errorf("%w: forward ran through %d layers, model has %d", ErrNoForward, len(contexts), len(n.layers))
	}

	curr := grad
	for i := len(n.layers) - 1; i >= 0; i-- {
		g, err := n.layers[i].Backward(contexts[i], curr)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, n.layers[i].Kind(), err)
		}
		curr = g
	}
	return curr, nil
}

// Step performs one optimization step using the stored optimizer. Every
// layer is asked to optimize; parameter-free layers do nothing.
func (n *Network) Step() error {
	if n.opt == nil {
		return ErrNotCompiled
	}
	for i, l := range n.layers {
		if err := l.Optimize(n.opt); err != nil {
			return fmt.Errorf("layer %d (%s): %w", i, l.Kind(), err)
		}
	}
	return nil
}

// TrainBatch runs forward, loss, backward and one optimizer step on a batch
// and returns the loss before the update.
func (n *Network) TrainBatch(x, y *tensor.Tensor) (float64, error) {
	if n.loss == nil || n.opt == nil {
		return 0, ErrNotCompiled
	}
	pred, err := n.Forward(x)
	if err != nil {
		return 0, err
	}
	l, err := n.loss.Forward(pred, y)
	if err != nil {
		return 0, err
	}
	grad, err := n.loss.Backward(pred, y)
	if err != nil {
		return 0, err
	}
	if _, err := n.Backward(grad); err != nil {
		return 0, err
	}
	if err := n.Step(); err != nil {
		return 0, err
	}
	return l, nil
}

// Evaluate returns the loss on a batch without training.
func (n *Network) Evaluate(x, y *tensor.Tensor) (float64, error) {
	if n.loss == nil {
		return 0, ErrNotCompiled
	}
	pred, err := n.Predict(x)
	if err != nil {
		return 0, err
	}
	return n.loss.Forward(pred, y)
}

// Fit trains on x and y for the given number of epochs in mini-batches taken
// along the trailing batch axis, in order. It returns the mean loss of each
// completed epoch. A batchSize below 1 uses the whole set as one batch.
func (n *Network) Fit(x, y *tensor.Tensor, epochs, batchSize int, callbacks ...Callback) ([]float64, error) {
	if n.loss == nil || n.opt == nil {
		return nil, ErrNotCompiled
	}
	if epochs < 0 {
		return nil, fmt.Errorf("%w: %d epochs", ErrConfig, epochs)
	}
	if x == nil || y == nil || x.Rank() == 0 || y.Rank() == 0 {
		return nil, fmt.Errorf("%w: missing training data", tensor.ErrShape)
	}
	samples := x.Dim(x.Rank() - 1)
	if y.Dim(y.Rank()-1) != samples {
		return nil, fmt.Errorf("%w: %d inputs, %d targets", tensor.ErrShape, samples, y.Dim(y.Rank()-1))
	}
	if samples == 0 {
		return nil, fmt.Errorf("%w: empty training set", tensor.ErrShape)
	}
	if batchSize < 1 || batchSize > samples {
		batchSize = samples
	}

	n.stop = false
	for _, c := range callbacks {
		c.OnTrainBegin(n)
	}

	history := make([]float64, 0, epochs)
	for epoch := 0; epoch < epochs && !n.stop; epoch++ {
		for _, c := range callbacks {
			c.OnEpochBegin(epoch, n)
		}

		total := 0.0
		for b, start := 0, 0; start < samples; b, start = b+1, start+batchSize {
			end := min(start+batchSize, samples)
			xb, err := tensor.SliceBatch(x, start, end)
			if err != nil {
				return history, err
			}
			yb, err := tensor.SliceBatch(y, start, end)
			if err != nil {
				return history, err
			}

			for _, c := range callbacks {
				c.OnBatchBegin(b, n)
			}
			l, err := n.TrainBatch(xb, yb)
			if err != nil {
				return history, fmt.Errorf("epoch %d batch %d: %w", epoch, b, err)
			}
			total += l * float64(end-start)
			for _, c := range callbacks {
				c.OnBatchEnd(b, l, n)
			}
		}

		epochLoss := total / float64(samples)
		history = append(history, epochLoss)
		for _, c := range callbacks {
			c.OnEpochEnd(epoch, epochLoss, n)
		}
	}

	for _, c := range callbacks {
		c.OnTrainEnd(n)
	}
	return history, nil
}

// StopTraining makes Fit return after the current epoch.
func (n *Network) StopTraining() {
	n.stop = true
}

// NumParams returns the total number of trainable values.
func (n *Network) NumParams() int {
	total := 0
	for _, l := range n.layers {
		for _, p := range l.Parameters() {
			total += p.Value.Len()
		}
	}
	return total
}
