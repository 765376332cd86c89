package layers

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vk/unitgrid/internal/tensor"
	"github.com/vk/unitgrid/internal/unit"
)

// Dropout keeps each element with probability Keep during training and
// rescales kept elements by 1/Keep. Inference passes the input through.
type Dropout struct {
	Keep float64
	Seed uint64

	mu   sync.Mutex
	mask distuv.Bernoulli
}

// NewDropout returns an unbuilt dropout unit.
func NewDropout(keep float64, seed uint64, opts ...unit.Option) (*unit.Unit, error) {
	k, err := newDropout(keep, seed)
	if err != nil {
		return nil, err
	}
	return unit.New(k, opts...), nil
}

func newDropout(keep float64, seed uint64) (*Dropout, error) {
	if keep <= 0 || keep > 1 {
		return nil, fmt.Errorf("dropout keep must be in (0, 1], got %g", keep)
	}
	return &Dropout{
		Keep: keep,
		Seed: seed,
		mask: distuv.Bernoulli{P: keep, Src: rand.NewSource(seed)},
	}, nil
}

func (k *Dropout) Kind() string { return "dropout" }

func (k *Dropout) Build(in []tensor.Shape) (tensor.Shape, []*unit.Param, error) {
	if len(in) != 1 {
		return nil, nil, fmt.Errorf("dropout takes one input, got %d", len(in))
	}
	return in[0].Clone(), nil, nil
}

func (k *Dropout) Forward(_ context.Context, in []*tensor.Tensor, training bool) (*tensor.Tensor, error) {
	if !training || k.Keep == 1 {
		return in[0], nil
	}
	out := in[0].Clone()
	data := out.Data()
	scale := 1 / k.Keep

	k.mu.Lock()
	defer k.mu.Unlock()
	for i := range data {
		data[i] *= k.mask.Rand() * scale
	}
	return out, nil
}

func (k *Dropout) String() string {
	return fmt.Sprintf("dropout(keep=%g)", k.Keep)
}
