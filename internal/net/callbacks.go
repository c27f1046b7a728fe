package net

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/FlavioCFOliveira/DNet/internal/opt"
)

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(n *Network)
	OnTrainEnd(n *Network)
	OnEpochBegin(epoch int, n *Network)
	OnEpochEnd(epoch int, loss float64, n *Network)
	OnBatchBegin(batch int, n *Network)
	OnBatchEnd(batch int, loss float64, n *Network)
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (c BaseCallback) OnTrainBegin(n *Network)                        {}
func (c BaseCallback) OnTrainEnd(n *Network)                          {}
func (c BaseCallback) OnEpochBegin(epoch int, n *Network)             {}
func (c BaseCallback) OnEpochEnd(epoch int, loss float64, n *Network) {}
func (c BaseCallback) OnBatchBegin(batch int, n *Network)             {}
func (c BaseCallback) OnBatchEnd(batch int, loss float64, n *Network) {}

// SchedulerCallback is a callback that wraps a learning rate scheduler.
type SchedulerCallback struct {
	BaseCallback
	scheduler opt.Scheduler
}

func NewSchedulerCallback(scheduler opt.Scheduler) *SchedulerCallback {
	return &SchedulerCallback{scheduler: scheduler}
}

func (c *SchedulerCallback) OnEpochEnd(epoch int, loss float64, n *Network) {
	c.scheduler.Step()
	c.scheduler.StepWithLoss(loss)
}

// EarlyStopping stops training when the epoch loss has stopped improving.
type EarlyStopping struct {
	BaseCallback
	Patience  int
	Threshold float64
	Out       io.Writer // defaults to os.Stdout

	bestLoss     float64
	numBadEpochs int
	Stopped      bool
}

func NewEarlyStopping(patience int, threshold float64) *EarlyStopping {
	return &EarlyStopping{
		Patience:  patience,
		Threshold: threshold,
		bestLoss:  math.MaxFloat64,
	}
}

func (c *EarlyStopping) OnTrainBegin(n *Network) {
	c.bestLoss = math.MaxFloat64
	c.numBadEpochs = 0
	c.Stopped = false
}

func (c *EarlyStopping) OnEpochEnd(epoch int, loss float64, n *Network) {
	if loss < c.bestLoss-c.Threshold {
		c.bestLoss = loss
		c.numBadEpochs = 0
	} else {
		c.numBadEpochs++
	}

	if c.numBadEpochs >= c.Patience {
		fmt.Fprintf(writer(c.Out), "\nEarly stopping at epoch %d: loss %.6f did not improve for %d epochs\n", epoch, loss, c.Patience)
		c.Stopped = true
		n.StopTraining()
	}
}

// Logger logs training progress.
type Logger struct {
	BaseCallback
	Interval int
	Out      io.Writer // defaults to os.Stdout
}

func (c Logger) OnEpochEnd(epoch int, loss float64, n *Network) {
	if c.Interval > 0 && epoch%c.Interval == 0 {
		fmt.Fprintf(writer(c.Out), "Epoch %d: loss = %.6f\n", epoch, loss)
	}
}

func writer(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
