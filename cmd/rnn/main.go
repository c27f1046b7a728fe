package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/FlavioCFOliveira/DNet/internal/layer"
	"github.com/FlavioCFOliveira/DNet/internal/loss"
	"github.com/FlavioCFOliveira/DNet/internal/net"
	"github.com/FlavioCFOliveira/DNet/internal/opt"
	"github.com/FlavioCFOliveira/DNet/internal/tensor"
)

// Next-value prediction on noisy sine windows with a recurrent layer
// followed by a linear read-out.
func main() {
	samples := flag.Int("samples", 400, "Number of training windows")
	steps := flag.Int("steps", 12, "Time steps per window")
	hidden := flag.Int("hidden", 16, "Hidden state size")
	epochs := flag.Int("epochs", 200, "Number of training epochs")
	batchSize := flag.Int("batch", 32, "Batch size for training")
	lr := flag.Float64("lr", 0.005, "Learning rate for Adam optimizer")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	xTrain, yTrain := windows(rng, *samples, *steps)
	xTest, yTest := windows(rng, 100, *steps)

	rnn, err := layer.NewRNN(1, *hidden, layer.WithSeed(*seed))
	if err != nil {
		log.Fatalf("rnn: %v", err)
	}
	readout, err := layer.NewLinear(*hidden, 1, layer.WithSeed(*seed+1))
	if err != nil {
		log.Fatalf("linear: %v", err)
	}

	model := net.NewSequential(rnn, readout)
	adam := opt.NewAdam(opt.AdamConfig{LR: *lr})
	model.Compile(adam, loss.MSE{})

	callbacks := []net.Callback{
		net.Logger{Interval: 20},
		net.NewSchedulerCallback(opt.NewStepLR(adam, 50, 0.5)),
	}
	if _, err := model.Fit(xTrain, yTrain, *epochs, *batchSize, callbacks...); err != nil {
		log.Fatalf("train: %v", err)
	}

	testLoss, err := model.Evaluate(xTest, yTest)
	if err != nil {
		log.Fatalf("evaluate: %v", err)
	}
	fmt.Printf("Test MSE: %.6f\n", testLoss)
}

// windows samples n sine windows of the given length in (1, steps, n)
// layout, each labelled with the next value of its curve.
func windows(rng *rand.Rand, n, steps int) (*tensor.Tensor, *tensor.Tensor) {
	x := tensor.Zeros(1, steps, n)
	y := tensor.Zeros(1, n)
	const dt = 0.3
	for s := 0; s < n; s++ {
		phase := rng.Float64() * 2 * math.Pi
		for t := 0; t < steps; t++ {
			x.Set(math.Sin(phase+float64(t)*dt)+rng.NormFloat64()*0.05, 0, t, s)
		}
		y.Set(math.Sin(phase+float64(steps)*dt), 0, s)
	}
	return x, y
}
