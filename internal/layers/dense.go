package layers

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/vk/unitgrid/internal/tensor"
	"github.com/vk/unitgrid/internal/unit"
)

// Dense is a fully connected layer computing act(x·W + b) with W of shape
// [in, units].
type Dense struct {
	Units int
	Act   Activation
	Seed  uint64

	// Ternary forward uses alpha * ternary(W) instead of W.
	Ternary bool

	in      int
	weights *unit.Param
	biases  *unit.Param
}

// NewDense returns an unbuilt dense unit.
func NewDense(units int, act Activation, opts ...unit.Option) (*unit.Unit, error) {
	if units <= 0 {
		return nil, fmt.Errorf("dense units must be positive, got %d", units)
	}
	if act == nil {
		act = Identity{}
	}
	return unit.New(&Dense{Units: units, Act: act}, opts...), nil
}

// NewTernaryDense returns an unbuilt dense unit with ternarized weights.
func NewTernaryDense(units int, act Activation, opts ...unit.Option) (*unit.Unit, error) {
	if units <= 0 {
		return nil, fmt.Errorf("ternary dense units must be positive, got %d", units)
	}
	if act == nil {
		act = Identity{}
	}
	return unit.New(&Dense{Units: units, Act: act, Ternary: true}, opts...), nil
}

func (k *Dense) Kind() string {
	if k.Ternary {
		return "ternary_dense"
	}
	return "dense"
}

func (k *Dense) Build(in []tensor.Shape) (tensor.Shape, []*unit.Param, error) {
	if len(in) != 1 {
		return nil, nil, fmt.Errorf("%s takes one input, got %d", k.Kind(), len(in))
	}
	s := in[0]
	if s.Rank() != 2 {
		return nil, nil, fmt.Errorf("%w: %s expects rank 2 input, got %s", tensor.ErrShape, k.Kind(), s)
	}
	if s.Last() == tensor.Unknown {
		return nil, nil, fmt.Errorf("%w: %s needs a known feature dimension, got %s", tensor.ErrShape, k.Kind(), s)
	}
	k.in = s.Last()
	k.weights = unit.NewParam("weights", glorotUniform(tensor.Shape{k.in, k.Units}, k.in, k.Units, resolveSeed(k.Seed)))
	k.biases = unit.NewParam("biases", tensor.Zeros(tensor.Shape{k.Units}))
	return tensor.Shape{s[0], k.Units}, []*unit.Param{k.weights, k.biases}, nil
}

func (k *Dense) Forward(_ context.Context, in []*tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	w := k.weights.Value
	if k.Ternary {
		w = TernaryWeights(w)
	}
	return affine(in[0], w, k.biases.Value, k.in, k.Act)
}

// affine computes act(x·w + b) row by row.
func affine(x, w, b *tensor.Tensor, in int, act Activation) (*tensor.Tensor, error) {
	if s := x.Shape(); s.Rank() != 2 || s[1] != in {
		return nil, fmt.Errorf("%w: expected [?, %d], got %s", unit.ErrShapeMismatch, in, s)
	}
	xm, err := x.Matrix()
	if err != nil {
		return nil, err
	}
	wm, err := w.Matrix()
	if err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Mul(xm, wm)
	r, _ := out.Dims()
	bias := b.Data()
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		floats.Add(row, bias)
		for j, v := range row {
			row[j] = act.Activate(v)
		}
	}
	return tensor.FromMatrix(&out), nil
}

func (k *Dense) String() string {
	return fmt.Sprintf("%s(units=%d, act=%s)", k.Kind(), k.Units, k.Act.Name())
}
