package opt

import (
	"math"
	"testing"

	"github.com/FlavioCFOliveira/DNet/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(t *testing.T, values ...float64) *tensor.Tensor {
	t.Helper()
	x, err := tensor.New(tensor.Shape{len(values)}, values)
	require.NoError(t, err)
	return x
}

func TestSGDStep(t *testing.T) {
	sgd := NewSGD(0.1)

	params := vec(t, 1.0, 2.0, 3.0)
	grads := vec(t, 0.1, 0.2, 0.3)

	updated, err := sgd.Step(params, grads)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0.99, 1.98, 2.97}, updated.Data(), 1e-12)
	// the input is left alone
	assert.Equal(t, []float64{1, 2, 3}, params.Data())
}

func TestStepRejectsMismatchedShapes(t *testing.T) {
	for _, o := range []Optimizer{NewSGD(0.1), NewRMSprop(RMSpropConfig{}), NewAdam(AdamConfig{})} {
		_, err := o.Step(vec(t, 1, 2), vec(t, 1))
		assert.ErrorIs(t, err, ErrMismatch)
		_, err = o.Step(nil, vec(t, 1))
		assert.ErrorIs(t, err, ErrMismatch)
	}
}

func TestRMSpropStep(t *testing.T) {
	r := NewRMSprop(RMSpropConfig{LR: 0.01})

	param := vec(t, 1.0)
	grad := vec(t, 0.5)

	updated, err := r.Step(param, grad)
	require.NoError(t, err)

	s := 0.1 * 0.25
	want := 1.0 - 0.01*0.5/(math.Sqrt(s)+1e-8)
	assert.InDelta(t, want, updated.At(0), 1e-12)

	// second step sees the accumulated average
	updated, err = r.Step(param, grad)
	require.NoError(t, err)
	s = 0.9*s + 0.1*0.25
	want = 1.0 - 0.01*0.5/(math.Sqrt(s)+1e-8)
	assert.InDelta(t, want, updated.At(0), 1e-12)
}

func TestAdamFirstStepMovesByLearningRate(t *testing.T) {
	a := NewAdam(AdamConfig{LR: 0.01})

	updated, err := a.Step(vec(t, 1.0, -2.0), vec(t, 3.0, -0.5))
	require.NoError(t, err)

	// with bias correction the first update is lr * sign(g)
	assert.InDelta(t, 0.99, updated.At(0), 1e-6)
	assert.InDelta(t, -1.99, updated.At(1), 1e-6)
}

func TestAdamKeepsStatePerParameter(t *testing.T) {
	a := NewAdam(AdamConfig{LR: 0.1})
	p1 := vec(t, 0.0)
	p2 := vec(t, 0.0)

	for i := 0; i < 3; i++ {
		_, err := a.Step(p1, vec(t, 1.0))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, a.state[p1].t)

	_, err := a.Step(p2, vec(t, 1.0))
	require.NoError(t, err)
	assert.Equal(t, 1, a.state[p2].t)
}

func TestAdamDefaults(t *testing.T) {
	a := NewAdam(AdamConfig{})
	assert.Equal(t, 0.001, a.LearningRate())
	assert.Equal(t, 0.9, a.beta1)
	assert.Equal(t, 0.999, a.beta2)

	a.SetLearningRate(0.5)
	assert.Equal(t, 0.5, a.LearningRate())
}

func TestMinimizesQuadratic(t *testing.T) {
	optimizers := map[string]Optimizer{
		"sgd":     NewSGD(0.1),
		"rmsprop": NewRMSprop(RMSpropConfig{LR: 0.01}),
		"adam":    NewAdam(AdamConfig{LR: 0.1}),
	}

	for name, o := range optimizers {
		t.Run(name, func(t *testing.T) {
			// f(x) = (x - 3)^2
			x := vec(t, 0.0)
			for i := 0; i < 1000; i++ {
				g := vec(t, 2*(x.At(0)-3))
				next, err := o.Step(x, g)
				require.NoError(t, err)
				require.NoError(t, x.CopyFrom(next))
			}
			assert.InDelta(t, 3.0, x.At(0), 0.05)
		})
	}
}
