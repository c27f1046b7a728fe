package layer

import (
	"math/rand"
	"testing"

	"github.com/FlavioCFOliveira/DNet/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxPooling2DFixture(t *testing.T) {
	pool, err := NewMaxPooling2D([2]int{3, 3}, 1, 0)
	require.NoError(t, err)

	z, ctx, err := pool.Forward(fixtureImage(t))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2, 1, 1}, z.Shape())
	assert.Equal(t, []float64{4, 4, 4, 4}, z.Data())

	// Ties go to the first maximum in row-major window order.
	dx, err := pool.Backward(ctx, z)
	require.NoError(t, err)
	assert.Equal(t, []float64{
		0, 8, 0, 0,
		0, 0, 0, 0,
		4, 4, 0, 0,
		0, 0, 0, 0,
	}, dx.Data())
}

func TestAveragePooling2DFixture(t *testing.T) {
	pool, err := NewAveragePooling2D([2]int{3, 3}, 2, 0)
	require.NoError(t, err)

	z, ctx, err := pool.Forward(fixtureImage(t))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 1, 1, 1}, z.Shape())
	assert.InDelta(t, 19.0/9, z.Data()[0], 1e-12)

	dx, err := pool.Backward(ctx, z)
	require.NoError(t, err)
	g := 19.0 / 81
	assert.InDeltaSlice(t, []float64{
		g, g, g, 0,
		g, g, g, 0,
		g, g, g, 0,
		0, 0, 0, 0,
	}, dx.Data(), 1e-12)
}

func TestMaxPooling2DPaddingNeverWins(t *testing.T) {
	pool, err := NewMaxPooling2D([2]int{2, 2}, 2, 1)
	require.NoError(t, err)

	x := tensor.Full(-5, 2, 2, 1, 1)
	z, _, err := pool.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []float64{-5, -5, -5, -5}, z.Data())
}

func TestMaxPooling2DGradientProperties(t *testing.T) {
	pool, err := NewMaxPooling2D([2]int{2, 2}, 2, 0)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(5))
	x := randomTensor(rng, 6, 4, 3, 2)
	z, ctx, err := pool.Forward(x)
	require.NoError(t, err)

	dz := randomTensor(rng, z.Shape()...)
	dx, err := pool.Backward(ctx, dz)
	require.NoError(t, err)
	assert.InDelta(t, dz.Sum(), dx.Sum(), 1e-12)

	// Non-overlapping windows: exactly one non-zero per window, holding that
	// window's gradient at the position of its maximum.
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			for c := 0; c < 3; c++ {
				for n := 0; n < 2; n++ {
					nonZero := 0
					for u := 0; u < 2; u++ {
						for v := 0; v < 2; v++ {
							if g := dx.At(2*i+u, 2*j+v, c, n); g != 0 {
								nonZero++
								assert.Equal(t, dz.At(i, j, c, n), g)
								assert.Equal(t, z.At(i, j, c, n), x.At(2*i+u, 2*j+v, c, n))
							}
						}
					}
					assert.Equal(t, 1, nonZero)
				}
			}
		}
	}
}

func TestMaxPooling2DGradients(t *testing.T) {
	pool, err := NewMaxPooling2D([2]int{2, 3}, 1, 1)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(11))
	checkGradients(t, pool, randomTensor(rng, 4, 5, 2, 2), 11)
}

func TestAveragePooling2DGradientMatchesBruteForce(t *testing.T) {
	const kH, kW, s, p = 3, 2, 2, 1
	pool, err := NewAveragePooling2D([2]int{kH, kW}, s, p)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(6))
	x := randomTensor(rng, 5, 6, 2, 3)
	z, ctx, err := pool.Forward(x)
	require.NoError(t, err)
	dz := randomTensor(rng, z.Shape()...)
	dx, err := pool.Backward(ctx, dz)
	require.NoError(t, err)

	for h := 0; h < 5; h++ {
		for w := 0; w < 6; w++ {
			for c := 0; c < 2; c++ {
				for n := 0; n < 3; n++ {
					want := 0.0
					for i := 0; i < z.Dim(0); i++ {
						for j := 0; j < z.Dim(1); j++ {
							row, col := i*s-p, j*s-p
							if h >= row && h < row+kH && w >= col && w < col+kW {
								want += dz.At(i, j, c, n) / (kH * kW)
							}
						}
					}
					assert.InDelta(t, want, dx.At(h, w, c, n), 1e-12)
				}
			}
		}
	}
}

func TestAveragePooling2DGradients(t *testing.T) {
	pool, err := NewAveragePooling2D([2]int{3, 3}, 2, 1)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(12))
	checkGradients(t, pool, randomTensor(rng, 5, 5, 2, 2), 12)
}

func TestPoolingRejectsTooSmallInput(t *testing.T) {
	maxPool, err := NewMaxPooling2D([2]int{3, 3}, 1, 0)
	require.NoError(t, err)
	_, _, err = maxPool.Forward(tensor.Zeros(2, 2, 1, 1))
	assert.ErrorIs(t, err, ErrConfig)

	avgPool, err := NewAveragePooling2D([2]int{3, 3}, 1, 0)
	require.NoError(t, err)
	_, _, err = avgPool.Forward(tensor.Zeros(3, 3, 1))
	assert.ErrorIs(t, err, tensor.ErrLayout)
}
