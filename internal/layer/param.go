package layer

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"github.com/FlavioCFOliveira/DNet/internal/opt"
	"github.com/FlavioCFOliveira/DNet/internal/tensor"
)

// Parameter is a trainable tensor with its gradient. Value keeps its
// identity for the life of the layer; updates are copied into it.
type Parameter struct {
	Name  string
	Value *tensor.Tensor
	Grad  *tensor.Tensor
}

// NewParameter wraps value with a zero gradient of the same shape.
func NewParameter(name string, value *tensor.Tensor) *Parameter {
	return &Parameter{Name: name, Value: value, Grad: tensor.ZerosLike(value)}
}

// ZeroGrad clears the gradient.
func (p *Parameter) ZeroGrad() {
	p.Grad.Fill(0)
}

func (p *Parameter) step(o opt.Optimizer) error {
	next, err := o.Step(p.Value, p.Grad)
	if err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	return p.Value.CopyFrom(next)
}

func optimize(o opt.Optimizer, params ...*Parameter) error {
	for _, p := range params {
		if err := p.step(o); err != nil {
			return err
		}
	}
	return nil
}

// Option configures layer construction.
type Option func(*options)

type options struct {
	seed    int64
	seeded  bool
	workers int
}

// WithSeed makes weight initialization deterministic.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithWorkers bounds the goroutines a layer may use per batch. Layers
// without a parallel path ignore it.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

func newOptions(opts []Option) (options, error) {
	o := options{workers: runtime.NumCPU()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.workers < 1 {
		return o, fmt.Errorf("%w: %d workers", ErrConfig, o.workers)
	}
	return o, nil
}

func (o options) rng() *rand.Rand {
	if o.seeded {
		return rand.New(rand.NewSource(o.seed))
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// uniform fills t with values drawn from [-scale, scale).
func uniform(t *tensor.Tensor, rng *rand.Rand, scale float64) {
	data := t.Data()
	for i := range data {
		data[i] = rng.Float64()*2*scale - scale
	}
}

// heScale is the He initialization bound for fanIn inputs.
func heScale(fanIn int) float64 {
	return math.Sqrt(2.0 / float64(fanIn))
}

// xavierScale is the Glorot initialization bound.
func xavierScale(fanIn, fanOut int) float64 {
	return math.Sqrt(2.0 / float64(fanIn+fanOut))
}
