package layers

import (
	"context"
	"fmt"

	"github.com/vk/unitgrid/internal/tensor"
	"github.com/vk/unitgrid/internal/unit"
)

func oneInput(kind string, in []tensor.Shape) (tensor.Shape, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("%s takes one input, got %d", kind, len(in))
	}
	return in[0], nil
}

// Flatten reshapes [batch, d1, ..., dn] to [batch, d1*...*dn].
type Flatten struct{}

// NewFlatten returns an unbuilt flatten unit.
func NewFlatten(opts ...unit.Option) *unit.Unit { return unit.New(Flatten{}, opts...) }

func (Flatten) Kind() string { return "flatten" }

func (Flatten) Build(in []tensor.Shape) (tensor.Shape, []*unit.Param, error) {
	s, err := oneInput("flatten", in)
	if err != nil {
		return nil, nil, err
	}
	if s.Rank() < 1 {
		return nil, nil, fmt.Errorf("%w: cannot flatten a scalar", tensor.ErrShape)
	}
	return tensor.Shape{s[0], tensor.Shape(s[1:]).Size()}, nil, nil
}

func (Flatten) Forward(_ context.Context, in []*tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	s := in[0].Shape()
	return in[0].Reshape(tensor.Shape{s[0], tensor.Unknown})
}

// Reshape reshapes to a target shape that includes the batch dimension; one
// dimension may be tensor.Unknown.
type Reshape struct {
	Shape tensor.Shape
}

// NewReshape returns an unbuilt reshape unit.
func NewReshape(shape tensor.Shape, opts ...unit.Option) *unit.Unit {
	return unit.New(&Reshape{Shape: shape.Clone()}, opts...)
}

func (k *Reshape) Kind() string { return "reshape" }

func (k *Reshape) Build(in []tensor.Shape) (tensor.Shape, []*unit.Param, error) {
	s, err := oneInput("reshape", in)
	if err != nil {
		return nil, nil, err
	}
	out, err := tensor.ResolveReshape(s, k.Shape)
	return out, nil, err
}

func (k *Reshape) Forward(_ context.Context, in []*tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	return in[0].Reshape(k.Shape)
}

// Transpose permutes dimensions, including the batch dimension.
type Transpose struct {
	Perm []int
}

// NewTranspose returns an unbuilt transpose unit.
func NewTranspose(perm []int, opts ...unit.Option) *unit.Unit {
	return unit.New(&Transpose{Perm: append([]int(nil), perm...)}, opts...)
}

func (k *Transpose) Kind() string { return "transpose" }

func (k *Transpose) Build(in []tensor.Shape) (tensor.Shape, []*unit.Param, error) {
	s, err := oneInput("transpose", in)
	if err != nil {
		return nil, nil, err
	}
	out, err := tensor.TransposeShape(s, k.Perm)
	return out, nil, err
}

func (k *Transpose) Forward(_ context.Context, in []*tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	return in[0].Transpose(k.Perm)
}

// ExpandDims inserts a size-1 dimension at Axis.
type ExpandDims struct {
	Axis int
}

// NewExpandDims returns an unbuilt expand_dims unit.
func NewExpandDims(axis int, opts ...unit.Option) *unit.Unit {
	return unit.New(&ExpandDims{Axis: axis}, opts...)
}

func (k *ExpandDims) Kind() string { return "expand_dims" }

func (k *ExpandDims) Build(in []tensor.Shape) (tensor.Shape, []*unit.Param, error) {
	s, err := oneInput("expand_dims", in)
	if err != nil {
		return nil, nil, err
	}
	out, err := tensor.ExpandShape(s, k.Axis)
	return out, nil, err
}

func (k *ExpandDims) Forward(_ context.Context, in []*tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	return in[0].ExpandDims(k.Axis)
}

// Tile repeats the input Multiples[i] times along dimension i.
type Tile struct {
	Multiples []int
}

// NewTile returns an unbuilt tile unit.
func NewTile(multiples []int, opts ...unit.Option) *unit.Unit {
	return unit.New(&Tile{Multiples: append([]int(nil), multiples...)}, opts...)
}

func (k *Tile) Kind() string { return "tile" }

func (k *Tile) Build(in []tensor.Shape) (tensor.Shape, []*unit.Param, error) {
	s, err := oneInput("tile", in)
	if err != nil {
		return nil, nil, err
	}
	out, err := tensor.TileShape(s, k.Multiples)
	return out, nil, err
}

func (k *Tile) Forward(_ context.Context, in []*tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	return in[0].Tile(k.Multiples)
}

// Concat joins all of its inputs along Axis.
type Concat struct {
	Axis int
}

// NewConcat returns an unbuilt concat unit. Connect it with ConnectAll.
func NewConcat(axis int, opts ...unit.Option) *unit.Unit {
	return unit.New(&Concat{Axis: axis}, opts...)
}

func (k *Concat) Kind() string { return "concat" }

func (k *Concat) Build(in []tensor.Shape) (tensor.Shape, []*unit.Param, error) {
	out, err := tensor.ConcatShape(k.Axis, in...)
	return out, nil, err
}

func (k *Concat) Forward(_ context.Context, in []*tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	return tensor.Concat(k.Axis, in...)
}
