package activations

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReLU(t *testing.T) {
	relu := ReLU{}

	tests := []struct {
		input, value, deriv float64
	}{
		{-1.0, 0.0, 0.0},
		{0.0, 0.0, 0.0}, // derivative at zero is 0 (x must be > 0)
		{1.0, 1.0, 1.0},
		{2.5, 2.5, 1.0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.value, relu.Activate(tt.input), 1e-12, "ReLU(%v)", tt.input)
		assert.InDelta(t, tt.deriv, relu.Derivative(tt.input), 1e-12, "ReLU'(%v)", tt.input)
	}
}

func TestSigmoid(t *testing.T) {
	s := Sigmoid{}

	assert.InDelta(t, 0.5, s.Activate(0), 1e-12)
	assert.InDelta(t, 0.25, s.Derivative(0), 1e-12)
	assert.InDelta(t, 1/(1+math.Exp(-2)), s.Activate(2), 1e-12)
}

func TestLeakyReLU(t *testing.T) {
	l := NewLeakyReLU(DefaultLeakySlope)

	assert.InDelta(t, -0.02, l.Activate(-2), 1e-12)
	assert.InDelta(t, 3.0, l.Activate(3), 1e-12)
	assert.InDelta(t, 0.01, l.Derivative(-2), 1e-12)
	assert.InDelta(t, 1.0, l.Derivative(3), 1e-12)
}

func TestTanh(t *testing.T) {
	th := Tanh{}

	assert.Equal(t, 0.0, th.Activate(0))
	assert.InDelta(t, 1.0, th.Derivative(0), 1e-12)

	y := th.Activate(0.7)
	assert.InDelta(t, th.Derivative(0.7), TanhGrad(y), 1e-12)
}

func TestDerivativesMatchFiniteDifferences(t *testing.T) {
	const h = 1e-6
	for _, act := range []Activation{Sigmoid{}, Tanh{}, Linear{}, NewLeakyReLU(0.2), ReLU{}} {
		for _, x := range []float64{-1.3, -0.4, 0.6, 2.1} {
			numeric := (act.Activate(x+h) - act.Activate(x-h)) / (2 * h)
			assert.InDelta(t, numeric, act.Derivative(x), 1e-6, "%s'(%v)", act.Name(), x)
		}
	}
}

func TestSoftmaxColumns(t *testing.T) {
	// two columns: (1, 2, 3) and (0, 0, 0)
	x := []float64{
		1, 0,
		2, 0,
		3, 0,
	}
	y := make([]float64, len(x))
	SoftmaxColumns(y, x, 3, 2)

	denom := math.Exp(1) + math.Exp(2) + math.Exp(3)
	assert.InDelta(t, math.Exp(1)/denom, y[0], 1e-12)
	assert.InDelta(t, math.Exp(3)/denom, y[4], 1e-12)
	assert.InDelta(t, 1.0/3, y[1], 1e-12)
	assert.InDelta(t, 1.0, y[0]+y[2]+y[4], 1e-12)
}

func TestSoftmaxColumnsGrad(t *testing.T) {
	x := []float64{0.2, -1.0, 0.5}
	grad := []float64{1.5, -0.3, 0.7}
	y := make([]float64, 3)
	SoftmaxColumns(y, x, 3, 1)

	dx := make([]float64, 3)
	SoftmaxColumnsGrad(dx, y, grad, 3, 1)

	const h = 1e-6
	for i := range x {
		plus := append([]float64(nil), x...)
		minus := append([]float64(nil), x...)
		plus[i] += h
		minus[i] -= h
		yp := make([]float64, 3)
		ym := make([]float64, 3)
		SoftmaxColumns(yp, plus, 3, 1)
		SoftmaxColumns(ym, minus, 3, 1)

		numeric := 0.0
		for k := range grad {
			numeric += grad[k] * (yp[k] - ym[k]) / (2 * h)
		}
		assert.InDelta(t, numeric, dx[i], 1e-6)
	}
}
