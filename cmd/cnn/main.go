package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/FlavioCFOliveira/DNet/internal/activations"
	"github.com/FlavioCFOliveira/DNet/internal/layer"
	"github.com/FlavioCFOliveira/DNet/internal/loss"
	"github.com/FlavioCFOliveira/DNet/internal/net"
	"github.com/FlavioCFOliveira/DNet/internal/opt"
	"github.com/FlavioCFOliveira/DNet/internal/tensor"
)

const size = 8

// Binary classification of synthetic images: a horizontal bar (label 0) or
// a vertical bar (label 1) on a noisy background.
func main() {
	samples := flag.Int("samples", 256, "Number of training images")
	epochs := flag.Int("epochs", 30, "Number of training epochs")
	batchSize := flag.Int("batch", 16, "Batch size for training")
	lr := flag.Float64("lr", 0.01, "Learning rate for Adam optimizer")
	workers := flag.Int("workers", 4, "Goroutines per convolution batch")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	xTrain, yTrain := bars(rng, *samples)
	xTest, yTest := bars(rng, 64)

	conv, err := layer.NewConv2D(1, 4, [2]int{3, 3}, 1, 1, layer.WithSeed(*seed), layer.WithWorkers(*workers))
	if err != nil {
		log.Fatalf("conv2d: %v", err)
	}
	pool, err := layer.NewMaxPooling2D([2]int{2, 2}, 2, 0)
	if err != nil {
		log.Fatalf("maxpool2d: %v", err)
	}
	dense, err := layer.NewLinear(4*4*4, 1, layer.WithSeed(*seed+1))
	if err != nil {
		log.Fatalf("linear: %v", err)
	}

	model := net.NewSequential(
		conv,
		layer.NewActivation(activations.ReLU{}),
		pool,
		layer.NewFlatten(),
		dense,
		layer.NewActivation(activations.Sigmoid{}),
	)
	model.Compile(opt.NewAdam(opt.AdamConfig{LR: *lr}), loss.BinaryCrossEntropy{})
	model.Summary(log.Writer())

	stopper := net.NewEarlyStopping(5, 1e-4)
	if _, err := model.Fit(xTrain, yTrain, *epochs, *batchSize, net.Logger{Interval: 5}, stopper); err != nil {
		log.Fatalf("train: %v", err)
	}

	pred, err := model.Predict(xTest)
	if err != nil {
		log.Fatalf("predict: %v", err)
	}
	correct := 0
	for i, p := range pred.Data() {
		if (p >= 0.5) == (yTest.Data()[i] == 1) {
			correct++
		}
	}
	fmt.Printf("Test accuracy: %.2f%%\n", 100*float64(correct)/float64(pred.Len()))
}

// bars returns n images in (8, 8, 1, n) layout and their (1, n) labels.
func bars(rng *rand.Rand, n int) (*tensor.Tensor, *tensor.Tensor) {
	x := tensor.Zeros(size, size, 1, n)
	y := tensor.Zeros(1, n)
	for s := 0; s < n; s++ {
		vertical := rng.Intn(2) == 1
		pos := rng.Intn(size)
		for h := 0; h < size; h++ {
			for w := 0; w < size; w++ {
				v := rng.Float64() * 0.2
				if (vertical && w == pos) || (!vertical && h == pos) {
					v = 1
				}
				x.Set(v, h, w, 0, s)
			}
		}
		if vertical {
			y.Set(1, 0, s)
		}
	}
	return x, y
}
