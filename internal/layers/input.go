package layers

import (
	"context"
	"fmt"

	"github.com/vk/unitgrid/internal/tensor"
	"github.com/vk/unitgrid/internal/unit"
)

// ErrShapeMismatch is returned when a runtime tensor does not fit an Input's
// declared shape.
var ErrShapeMismatch = unit.ErrShapeMismatch

// Input is the source kernel of a graph. It owns no parameters and checks
// that runtime tensors fit its declared shape.
type Input struct {
	Shape tensor.Shape
}

// NewInput returns a built source unit for the given shape. Use
// tensor.Unknown for the batch dimension.
func NewInput(shape tensor.Shape, opts ...unit.Option) (*unit.Unit, error) {
	if err := checkInputShape(shape); err != nil {
		return nil, err
	}
	u := unit.New(&Input{Shape: shape.Clone()}, opts...)
	if err := u.Build(); err != nil {
		return nil, err
	}
	return u, nil
}

func checkInputShape(shape tensor.Shape) error {
	if len(shape) == 0 {
		return fmt.Errorf("input shape must not be empty")
	}
	for _, d := range shape {
		if d == 0 || d < tensor.Unknown {
			return fmt.Errorf("input shape %s has an invalid dimension", shape)
		}
	}
	return nil
}

func (k *Input) Kind() string { return "input" }

func (k *Input) Build(in []tensor.Shape) (tensor.Shape, []*unit.Param, error) {
	if len(in) != 0 {
		return nil, nil, fmt.Errorf("input takes no upstream, got %d", len(in))
	}
	return k.Shape.Clone(), nil, nil
}

func (k *Input) Forward(_ context.Context, in []*tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("%w: input expects one tensor, got %d", ErrShapeMismatch, len(in))
	}
	if got := in[0].Shape(); !k.Shape.Compatible(got) {
		return nil, fmt.Errorf("%w: declared %s, got %s", ErrShapeMismatch, k.Shape, got)
	}
	return in[0], nil
}
