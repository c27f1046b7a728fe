// Package activations provides the elementwise activation functions used by
// the activation layers.
package activations

import "math"

// Activation is an activation function with derivative.
type Activation interface {
	// Name identifies the function in model summaries.
	Name() string

	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x) at the pre-activation x
	Derivative(x float64) float64
}

// ReLU activation function.
type ReLU struct{}

func (r ReLU) Name() string { return "ReLU" }

// Activate computes max(0, x)
func (r ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative returns 1 if x > 0, else 0
func (r ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

// Sigmoid activation function.
type Sigmoid struct{}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func (s Sigmoid) Name() string { return "Sigmoid" }

// Activate computes sigmoid(x)
func (s Sigmoid) Activate(x float64) float64 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (s Sigmoid) Derivative(x float64) float64 {
	sigma := sigmoid(x)
	return sigma * (1 - sigma)
}

// DefaultLeakySlope is the slope LeakyReLU uses when none is given.
const DefaultLeakySlope = 0.01

// LeakyReLU activation function to prevent dying neurons.
type LeakyReLU struct {
	Alpha float64 // Slope for x <= 0
}

// NewLeakyReLU creates a LeakyReLU with the given alpha value.
func NewLeakyReLU(alpha float64) *LeakyReLU {
	return &LeakyReLU{Alpha: alpha}
}

func (l *LeakyReLU) Name() string { return "LeakyReLU" }

// Activate computes x if x > 0, else alpha*x
func (l *LeakyReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return l.Alpha * x
}

// Derivative returns 1 if x > 0, else alpha
func (l *LeakyReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return l.Alpha
}

// Tanh activation function.
type Tanh struct{}

func (t Tanh) Name() string { return "Tanh" }

// Activate computes tanh(x)
func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

// Derivative computes 1 - tanh(x)^2
func (t Tanh) Derivative(x float64) float64 {
	tanhX := math.Tanh(x)
	return 1 - tanhX*tanhX
}

// TanhGrad returns 1 - y^2 for an already activated y = tanh(x).
func TanhGrad(y float64) float64 {
	return 1 - y*y
}

// Linear is the identity activation.
type Linear struct{}

func (l Linear) Name() string                 { return "Linear" }
func (l Linear) Activate(x float64) float64   { return x }
func (l Linear) Derivative(x float64) float64 { return 1 }

// SoftmaxColumns applies softmax to each column of a row-major rows x cols
// matrix, writing the result into dst. Each column is shifted by its maximum
// for numerical stability.
func SoftmaxColumns(dst, x []float64, rows, cols int) {
	for j := 0; j < cols; j++ {
		maxVal := math.Inf(-1)
		for i := 0; i < rows; i++ {
			if v := x[i*cols+j]; v > maxVal {
				maxVal = v
			}
		}

		sum := 0.0
		for i := 0; i < rows; i++ {
			e := math.Exp(x[i*cols+j] - maxVal)
			dst[i*cols+j] = e
			sum += e
		}

		for i := 0; i < rows; i++ {
			dst[i*cols+j] /= sum
		}
	}
}

// SoftmaxColumnsGrad backpropagates grad through a column softmax whose
// output is y, using the full Jacobian diag(y) - y*y^T per column.
func SoftmaxColumnsGrad(dst, y, grad []float64, rows, cols int) {
	for j := 0; j < cols; j++ {
		dot := 0.0
		for k := 0; k < rows; k++ {
			dot += y[k*cols+j] * grad[k*cols+j]
		}
		for i := 0; i < rows; i++ {
			dst[i*cols+j] = y[i*cols+j] * (grad[i*cols+j] - dot)
		}
	}
}
