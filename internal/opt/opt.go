// Package opt provides optimization algorithms.
//
// An optimizer receives one parameter tensor and its gradient at a time and
// returns the updated value. Optimizers that keep per-parameter state
// (RMSprop, Adam) key it by the parameter tensor's identity, so layers must
// keep updating the same tensor in place across steps.
package opt

import (
	"errors"
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/DNet/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// ErrMismatch reports a gradient whose shape differs from its parameter.
var ErrMismatch = errors.New("opt: parameter and gradient shapes differ")

// Optimizer updates network parameters based on gradients.
type Optimizer interface {
	// Step returns the updated value of param given its gradient.
	Step(param, grad *tensor.Tensor) (*tensor.Tensor, error)

	// LearningRate returns the current learning rate.
	LearningRate() float64

	// SetLearningRate changes the learning rate, used by schedulers.
	SetLearningRate(lr float64)
}

func checkShapes(param, grad *tensor.Tensor) error {
	if param == nil || grad == nil {
		return fmt.Errorf("%w: nil tensor", ErrMismatch)
	}
	if !param.SameShape(grad) {
		return fmt.Errorf("%w: %v vs %v", ErrMismatch, param.Shape(), grad.Shape())
	}
	return nil
}

// SGD (Stochastic Gradient Descent) optimizer.
type SGD struct {
	LR float64
}

// NewSGD creates an SGD optimizer.
func NewSGD(lr float64) *SGD {
	return &SGD{LR: lr}
}

// Step computes params - lr * gradients.
func (s *SGD) Step(param, grad *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkShapes(param, grad); err != nil {
		return nil, err
	}
	out := param.Clone()
	floats.AddScaled(out.Data(), -s.LR, grad.Data())
	return out, nil
}

func (s *SGD) LearningRate() float64      { return s.LR }
func (s *SGD) SetLearningRate(lr float64) { s.LR = lr }

// RMSpropConfig holds configuration for the RMSprop optimizer.
type RMSpropConfig struct {
	LR    float64 // Learning rate (default: 0.001)
	Decay float64 // Moving average coefficient (default: 0.9)
	Eps   float64 // Term for numerical stability (default: 1e-8)
}

// RMSprop scales each step by a running average of squared gradients:
//
//	s = decay * s + (1 - decay) * g²
//	param = param - lr * g / (sqrt(s) + eps)
type RMSprop struct {
	lr    float64
	decay float64
	eps   float64
	sq    map[*tensor.Tensor][]float64
}

// NewRMSprop creates an RMSprop optimizer, filling zero config fields with
// defaults.
func NewRMSprop(config RMSpropConfig) *RMSprop {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Decay == 0 {
		config.Decay = 0.9
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &RMSprop{
		lr:    config.LR,
		decay: config.Decay,
		eps:   config.Eps,
		sq:    make(map[*tensor.Tensor][]float64),
	}
}

// Step applies one RMSprop update.
func (r *RMSprop) Step(param, grad *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkShapes(param, grad); err != nil {
		return nil, err
	}
	sq, ok := r.sq[param]
	if !ok {
		sq = make([]float64, param.Len())
		r.sq[param] = sq
	}

	out := param.Clone()
	p := out.Data()
	for i, g := range grad.Data() {
		sq[i] = r.decay*sq[i] + (1-r.decay)*g*g
		p[i] -= r.lr * g / (math.Sqrt(sq[i]) + r.eps)
	}
	return out, nil
}

func (r *RMSprop) LearningRate() float64      { return r.lr }
func (r *RMSprop) SetLearningRate(lr float64) { r.lr = lr }

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float64 // Learning rate (default: 0.001)
	Beta1 float64 // First moment decay (default: 0.9)
	Beta2 float64 // Second moment decay (default: 0.999)
	Eps   float64 // Term for numerical stability (default: 1e-8)
}

type adamState struct {
	t int
	m []float64
	v []float64
}

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²
//	m_hat = m_t / (1 - beta1^t)
//	v_hat = v_t / (1 - beta2^t)
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)
//
// The timestep t is counted per parameter.
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	state map[*tensor.Tensor]*adamState
}

// NewAdam creates a new Adam optimizer, filling zero config fields with
// defaults.
func NewAdam(config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Beta1 == 0 {
		config.Beta1 = 0.9
	}
	if config.Beta2 == 0 {
		config.Beta2 = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam{
		lr:    config.LR,
		beta1: config.Beta1,
		beta2: config.Beta2,
		eps:   config.Eps,
		state: make(map[*tensor.Tensor]*adamState),
	}
}

// Step applies one Adam update.
func (a *Adam) Step(param, grad *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkShapes(param, grad); err != nil {
		return nil, err
	}
	st, ok := a.state[param]
	if !ok {
		st = &adamState{m: make([]float64, param.Len()), v: make([]float64, param.Len())}
		a.state[param] = st
	}
	st.t++

	biasCorrection1 := 1 - math.Pow(a.beta1, float64(st.t))
	biasCorrection2 := 1 - math.Pow(a.beta2, float64(st.t))

	out := param.Clone()
	p := out.Data()
	for i, g := range grad.Data() {
		st.m[i] = a.beta1*st.m[i] + (1-a.beta1)*g
		st.v[i] = a.beta2*st.v[i] + (1-a.beta2)*g*g
		mHat := st.m[i] / biasCorrection1
		vHat := st.v[i] / biasCorrection2
		p[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
	}
	return out, nil
}

func (a *Adam) LearningRate() float64      { return a.lr }
func (a *Adam) SetLearningRate(lr float64) { a.lr = lr }
