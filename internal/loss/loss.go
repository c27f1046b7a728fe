// Package loss provides loss functions.
//
// Losses take the prediction and the target explicitly in both passes; no
// prediction is cached between Forward and Backward.
package loss

import (
	"errors"
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/DNet/internal/tensor"
)

// ErrMismatch reports a prediction and target of different shapes.
var ErrMismatch = errors.New("loss: prediction and target shapes differ")

// eps clips probabilities away from 0 and 1 before taking logs.
const eps = 1e-15

// Loss is a loss function with derivative.
type Loss interface {
	// Forward computes the loss between predicted and true values.
	Forward(yPred, yTrue *tensor.Tensor) (float64, error)

	// Backward computes the gradient of the loss w.r.t. prediction.
	Backward(yPred, yTrue *tensor.Tensor) (*tensor.Tensor, error)
}

func check(yPred, yTrue *tensor.Tensor) error {
	if yPred == nil || yTrue == nil {
		return fmt.Errorf("%w: nil tensor", ErrMismatch)
	}
	if !yPred.SameShape(yTrue) {
		return fmt.Errorf("%w: %v vs %v", ErrMismatch, yPred.Shape(), yTrue.Shape())
	}
	if yPred.Len() == 0 {
		return fmt.Errorf("%w: empty prediction", ErrMismatch)
	}
	return nil
}

// batchSize is the trailing dimension of a (features, batch) tensor.
func batchSize(t *tensor.Tensor) int {
	if t.Rank() < 2 {
		return 1
	}
	return t.Dim(t.Rank() - 1)
}

// MSE (Mean Squared Error) loss.
type MSE struct{}

// Forward computes mean squared error: (1/n) * sum((y_pred - y_true)^2)
func (m MSE) Forward(yPred, yTrue *tensor.Tensor) (float64, error) {
	if err := check(yPred, yTrue); err != nil {
		return 0, err
	}
	p, y := yPred.Data(), yTrue.Data()
	var sum float64
	for i := range p {
		diff := p[i] - y[i]
		sum += diff * diff
	}
	return sum / float64(len(p)), nil
}

// Backward computes gradient: dL/dy_pred = (2/n) * (y_pred - y_true)
func (m MSE) Backward(yPred, yTrue *tensor.Tensor) (*tensor.Tensor, error) {
	if err := check(yPred, yTrue); err != nil {
		return nil, err
	}
	p, y := yPred.Data(), yTrue.Data()
	grad := tensor.ZerosLike(yPred)
	g := grad.Data()
	factor := 2.0 / float64(len(p))
	for i := range p {
		g[i] = factor * (p[i] - y[i])
	}
	return grad, nil
}

// MAE (Mean Absolute Error) loss.
type MAE struct{}

// Forward computes mean absolute error: (1/n) * sum(|y_pred - y_true|)
func (l MAE) Forward(yPred, yTrue *tensor.Tensor) (float64, error) {
	if err := check(yPred, yTrue); err != nil {
		return 0, err
	}
	p, y := yPred.Data(), yTrue.Data()
	var sum float64
	for i := range p {
		sum += math.Abs(p[i] - y[i])
	}
	return sum / float64(len(p)), nil
}

// Backward computes sign(y_pred - y_true) / n, with 0 where they are equal.
func (l MAE) Backward(yPred, yTrue *tensor.Tensor) (*tensor.Tensor, error) {
	if err := check(yPred, yTrue); err != nil {
		return nil, err
	}
	p, y := yPred.Data(), yTrue.Data()
	grad := tensor.ZerosLike(yPred)
	g := grad.Data()
	n := float64(len(p))
	for i := range p {
		switch {
		case p[i] > y[i]:
			g[i] = 1 / n
		case p[i] < y[i]:
			g[i] = -1 / n
		}
	}
	return grad, nil
}

// Huber loss for robust regression.
type Huber struct {
	Delta float64 // Threshold for quadratic/linear transition
}

// NewHuber creates a Huber loss with the given delta.
func NewHuber(delta float64) *Huber {
	return &Huber{Delta: delta}
}

// Forward computes Huber loss.
func (h Huber) Forward(yPred, yTrue *tensor.Tensor) (float64, error) {
	if err := check(yPred, yTrue); err != nil {
		return 0, err
	}
	p, y := yPred.Data(), yTrue.Data()
	var sum float64
	for i := range p {
		diff := math.Abs(p[i] - y[i])
		if diff <= h.Delta {
			sum += 0.5 * diff * diff
		} else {
			sum += h.Delta * (diff - 0.5*h.Delta)
		}
	}
	return sum / float64(len(p)), nil
}

// Backward computes gradient for Huber loss.
func (h Huber) Backward(yPred, yTrue *tensor.Tensor) (*tensor.Tensor, error) {
	if err := check(yPred, yTrue); err != nil {
		return nil, err
	}
	p, y := yPred.Data(), yTrue.Data()
	grad := tensor.ZerosLike(yPred)
	g := grad.Data()
	n := float64(len(p))
	for i := range p {
		diff := p[i] - y[i]
		if math.Abs(diff) <= h.Delta {
			g[i] = diff / n
		} else {
			g[i] = h.Delta * math.Copysign(1, diff) / n
		}
	}
	return grad, nil
}

// BinaryCrossEntropy expects probabilities in (0, 1), typically from a
// Sigmoid layer.
type BinaryCrossEntropy struct{}

// Forward computes -(1/n) * sum(y*log(p) + (1-y)*log(1-p))
func (b BinaryCrossEntropy) Forward(yPred, yTrue *tensor.Tensor) (float64, error) {
	if err := check(yPred, yTrue); err != nil {
		return 0, err
	}
	p, y := yPred.Data(), yTrue.Data()
	var sum float64
	for i := range p {
		pi := clip(p[i])
		sum -= y[i]*math.Log(pi) + (1-y[i])*math.Log(1-pi)
	}
	return sum / float64(len(p)), nil
}

// Backward computes (p - y) / (p * (1 - p) * n)
func (b BinaryCrossEntropy) Backward(yPred, yTrue *tensor.Tensor) (*tensor.Tensor, error) {
	if err := check(yPred, yTrue); err != nil {
		return nil, err
	}
	p, y := yPred.Data(), yTrue.Data()
	grad := tensor.ZerosLike(yPred)
	g := grad.Data()
	n := float64(len(p))
	for i := range p {
		pi := clip(p[i])
		g[i] = (pi - y[i]) / (pi * (1 - pi) * n)
	}
	return grad, nil
}

// CrossEntropy for one-hot targets over (classes, batch) probabilities,
// typically from a Softmax layer.
type CrossEntropy struct{}

// Forward computes -(1/batch) * sum(y_true * log(y_pred))
func (c CrossEntropy) Forward(yPred, yTrue *tensor.Tensor) (float64, error) {
	if err := check(yPred, yTrue); err != nil {
		return 0, err
	}
	p, y := yPred.Data(), yTrue.Data()
	var sum float64
	for i := range p {
		if y[i] != 0 {
			sum -= y[i] * math.Log(clip(p[i]))
		}
	}
	return sum / float64(batchSize(yPred)), nil
}

// Backward computes -y_true / (y_pred * batch)
func (c CrossEntropy) Backward(yPred, yTrue *tensor.Tensor) (*tensor.Tensor, error) {
	if err := check(yPred, yTrue); err != nil {
		return nil, err
	}
	p, y := yPred.Data(), yTrue.Data()
	grad := tensor.ZerosLike(yPred)
	g := grad.Data()
	m := float64(batchSize(yPred))
	for i := range p {
		g[i] = -y[i] / (clip(p[i]) * m)
	}
	return grad, nil
}

func clip(p float64) float64 {
	return math.Min(math.Max(p, eps), 1-eps)
}
