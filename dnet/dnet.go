// Package dnet re-exports the model, layer, loss and optimizer types for
// programs outside this module's internal tree.
package dnet

import (
	"github.com/FlavioCFOliveira/DNet/internal/activations"
	"github.com/FlavioCFOliveira/DNet/internal/layer"
	"github.com/FlavioCFOliveira/DNet/internal/loss"
	"github.com/FlavioCFOliveira/DNet/internal/net"
	"github.com/FlavioCFOliveira/DNet/internal/opt"
	"github.com/FlavioCFOliveira/DNet/internal/tensor"
)

// Re-export common types and functions for easier access
type (
	Model     = net.Sequential
	Layer     = layer.Layer
	Optimizer = opt.Optimizer
	Loss      = loss.Loss
	Tensor    = tensor.Tensor
	Shape     = tensor.Shape
	Option    = layer.Option
	Callback  = net.Callback
	Dataset   = net.Dataset
)

// Model creation
func NewSequential(layers ...Layer) *Model {
	return net.NewSequential(layers...)
}

// Tensors
func NewTensor(shape Shape, data []float64) (*Tensor, error) {
	return tensor.New(shape, data)
}

func Zeros(shape ...int) *Tensor {
	return tensor.Zeros(shape...)
}

// Activations
var (
	ReLU    = activations.ReLU{}
	Sigmoid = activations.Sigmoid{}
	Tanh    = activations.Tanh{}
	Linear  = activations.Linear{}
)

func LeakyReLU(alpha float64) activations.Activation {
	return activations.NewLeakyReLU(alpha)
}

// Layers
func Dense(in, out int, opts ...Option) (Layer, error) {
	l, err := layer.NewLinear(in, out, opts...)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func Conv2D(inChannels, outChannels int, kernelSize [2]int, stride, padding int, opts ...Option) (Layer, error) {
	l, err := layer.NewConv2D(inChannels, outChannels, kernelSize, stride, padding, opts...)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func MaxPool2D(kernelSize [2]int, stride, padding int) (Layer, error) {
	l, err := layer.NewMaxPooling2D(kernelSize, stride, padding)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func AvgPool2D(kernelSize [2]int, stride, padding int) (Layer, error) {
	l, err := layer.NewAveragePooling2D(kernelSize, stride, padding)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func RNN(inputDim, hiddenDim int, opts ...Option) (Layer, error) {
	l, err := layer.NewRNN(inputDim, hiddenDim, opts...)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// RNNCell returns a single recurrent cell for callers that unroll time
// steps themselves.
func RNNCell(inputDim, hiddenDim int, opts ...Option) (*layer.RNNCell, error) {
	return layer.NewRNNCell(inputDim, hiddenDim, opts...)
}

func Activation(fn activations.Activation) Layer {
	return layer.NewActivation(fn)
}

func Softmax() Layer { return layer.NewSoftmax() }

func Flatten() Layer { return layer.NewFlatten() }

var (
	WithSeed    = layer.WithSeed
	WithWorkers = layer.WithWorkers
)

// Optimizers
func SGD(lr float64) Optimizer {
	return opt.NewSGD(lr)
}

func RMSprop(lr float64) Optimizer {
	return opt.NewRMSprop(opt.RMSpropConfig{LR: lr})
}

func Adam(lr float64) Optimizer {
	return opt.NewAdam(opt.AdamConfig{LR: lr})
}

func ReduceLROnPlateau(optimizer Optimizer, factor float64, patience int, threshold, minLR float64) *opt.ReduceLROnPlateau {
	return opt.NewReduceLROnPlateau(optimizer, factor, patience, threshold, minLR)
}

// Callbacks
func Logger(interval int) net.Logger {
	return net.Logger{Interval: interval}
}

func EarlyStopping(patience int, minDelta float64) *net.EarlyStopping {
	return net.NewEarlyStopping(patience, minDelta)
}

func CSVLogger(filename string, append bool) *net.CSVLogger {
	return net.NewCSVLogger(filename, append)
}

func SchedulerCallback(scheduler opt.Scheduler) net.Callback {
	return net.NewSchedulerCallback(scheduler)
}

// Losses
var (
	MSE                = loss.MSE{}
	MAE                = loss.MAE{}
	CrossEntropy       = loss.CrossEntropy{}
	BinaryCrossEntropy = loss.BinaryCrossEntropy{}
)

func Huber(delta float64) Loss {
	return loss.NewHuber(delta)
}

// Data
func LoadCSV(filename string, labelCols []int, hasHeader bool) (*Dataset, error) {
	return net.LoadCSV(filename, labelCols, hasHeader)
}

func NewDataset(features, labels *Tensor) (*Dataset, error) {
	return net.NewDataset(features, labels)
}
