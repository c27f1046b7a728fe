package net

import (
	"fmt"
	"io"
	"strings"

	"github.com/FlavioCFOliveira/DNet/internal/layer"
	"github.com/FlavioCFOliveira/DNet/internal/loss"
	"github.com/FlavioCFOliveira/DNet/internal/opt"
)

// Sequential is a high-level wrapper around Network to provide a Keras-like API.
type Sequential struct {
	*Network
}

// NewSequential creates a new Sequential model.
func NewSequential(layers ...layer.Layer) *Sequential {
	return &Sequential{
		Network: &Network{
			layers: layers,
		},
	}
}

// Add appends a layer to the model.
// A pending Forward is discarded.
func (s *Sequential) Add(l layer.Layer) {
	s.layers = append(s.layers, l)
	s.contexts = nil
}

// Compile configures the model for training.
func (s *Sequential) Compile(optimizer opt.Optimizer, lossFn loss.Loss) {
	s.opt = optimizer
	s.loss = lossFn
}

// Summary writes a summary of the network architecture to w.
func (s *Sequential) Summary(w io.Writer) {
	rule := strings.Repeat("_", 65)
	fmt.Fprintln(w, "Model: Sequential")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-25s %-20s %-10s\n", "Layer (type)", "Kind", "Param #")
	fmt.Fprintln(w, strings.Repeat("=", 65))

	for i, l := range s.layers {
		lType := fmt.Sprintf("%T", l)
		// Extract simple type name
		if j := strings.LastIndex(lType, "."); j >= 0 {
			lType = lType[j+1:]
		}

		params := 0
		for _, p := range l.Parameters() {
			params += p.Value.Len()
		}
		fmt.Fprintf(w, "%-25s %-20s %-10d\n", fmt.Sprintf("%s_%d", lType, i), l.Kind(), params)
	}
	fmt.Fprintln(w, strings.Repeat("=", 65))
	fmt.Fprintf(w, "Total params: %d\n", s.NumParams())
	fmt.Fprintln(w, rule)
}
