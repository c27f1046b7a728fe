package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/FlavioCFOliveira/DNet/internal/activations"
	"github.com/FlavioCFOliveira/DNet/internal/layer"
	"github.com/FlavioCFOliveira/DNet/internal/loss"
	"github.com/FlavioCFOliveira/DNet/internal/net"
	"github.com/FlavioCFOliveira/DNet/internal/opt"
	"github.com/FlavioCFOliveira/DNet/internal/tensor"
)

// Regression on a CSV file or on a synthetic non-linear function, with a
// Linear/LeakyReLU stack trained by Adam on MSE.
func main() {
	dataFile := flag.String("data", "", "CSV file to train on (synthetic data if empty)")
	labelCol := flag.Int("label", -1, "Label column index (default: last column)")
	header := flag.Bool("header", true, "CSV file has a header row")
	epochs := flag.Int("epochs", 2000, "Number of training epochs")
	batchSize := flag.Int("batch", 0, "Batch size (0 = full batch)")
	lr := flag.Float64("lr", 0.001, "Learning rate for Adam optimizer")
	logEvery := flag.Int("log", 100, "Log the loss every n epochs")
	csvLog := flag.String("csvlog", "", "Write per-epoch loss to this CSV file")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	dataset, err := loadData(*dataFile, *labelCol, *header, *seed)
	if err != nil {
		log.Fatalf("load data: %v", err)
	}
	dataset.Normalize()
	train, test, err := dataset.Split(0.6)
	if err != nil {
		log.Fatalf("split: %v", err)
	}

	xTrain, yTrain, err := train.Tensors()
	if err != nil {
		log.Fatalf("training set: %v", err)
	}
	xTest, yTest, err := test.Tensors()
	if err != nil {
		log.Fatalf("test set: %v", err)
	}
	fmt.Printf("Train: %d samples, Test: %d samples, %d features\n",
		xTrain.Dim(1), xTest.Dim(1), xTrain.Dim(0))

	model, err := buildModel(xTrain.Dim(0), *seed)
	if err != nil {
		log.Fatalf("build model: %v", err)
	}
	model.Compile(opt.NewAdam(opt.AdamConfig{LR: *lr}), loss.MSE{})
	model.Summary(log.Writer())

	callbacks := []net.Callback{net.Logger{Interval: *logEvery}}
	if *csvLog != "" {
		callbacks = append(callbacks, net.NewCSVLogger(*csvLog, false))
	}

	if _, err := model.Fit(xTrain, yTrain, *epochs, *batchSize, callbacks...); err != nil {
		log.Fatalf("train: %v", err)
	}
	for _, c := range callbacks {
		if l, ok := c.(*net.CSVLogger); ok && l.Err() != nil {
			log.Printf("csv log: %v", l.Err())
		}
	}

	testLoss, err := model.Evaluate(xTest, yTest)
	if err != nil {
		log.Fatalf("evaluate: %v", err)
	}
	fmt.Printf("Test MSE: %.6f\n", testLoss)
}

func buildModel(features int, seed int64) (*net.Sequential, error) {
	sizes := []int{features, 20, 7, 5, 1}
	model := net.NewSequential()
	for i := 0; i+1 < len(sizes); i++ {
		l, err := layer.NewLinear(sizes[i], sizes[i+1], layer.WithSeed(seed+int64(i)))
		if err != nil {
			return nil, err
		}
		model.Add(l)
		if i+2 < len(sizes) {
			model.Add(layer.NewActivation(activations.NewLeakyReLU(activations.DefaultLeakySlope)))
		}
	}
	return model, nil
}

func loadData(filename string, labelCol int, header bool, seed int64) (*net.Dataset, error) {
	if filename == "" {
		return syntheticData(500, seed)
	}
	if labelCol < 0 {
		probe, err := net.LoadCSV(filename, nil, header)
		if err != nil {
			return nil, err
		}
		labelCol = probe.Features.Dim(0) - 1
	}
	return net.LoadCSV(filename, []int{labelCol}, header)
}

// syntheticData samples y = sin(x1) + x2² - 0.5*x3 with a little noise.
func syntheticData(n int, seed int64) (*net.Dataset, error) {
	rng := rand.New(rand.NewSource(seed))
	x := tensor.Zeros(3, n)
	y := tensor.Zeros(1, n)
	for i := 0; i < n; i++ {
		x1 := rng.Float64()*6 - 3
		x2 := rng.Float64()*2 - 1
		x3 := rng.Float64()*4 - 2
		x.Set(x1, 0, i)
		x.Set(x2, 1, i)
		x.Set(x3, 2, i)
		y.Set(math.Sin(x1)+x2*x2-0.5*x3+rng.NormFloat64()*0.05, 0, i)
	}
	return net.NewDataset(x, y)
}
