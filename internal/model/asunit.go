package model

import (
	"context"
	"fmt"

	"github.com/vk/unitgrid/internal/executor"
	"github.com/vk/unitgrid/internal/tensor"
	"github.com/vk/unitgrid/internal/unit"
)

// AsUnit wraps a declarative model with a single output into a unit that
// runs the whole graph as its kernel. The unit's parameters are the model's
// weights and its mode is pushed into the model's units. The same unit is
// returned on every call; opts only apply to the first.
func (m *Model) AsUnit(opts ...unit.Option) (*unit.Unit, error) {
	if m.imperative {
		return nil, constructionf("model %q: imperative models cannot be used as a unit", m.name)
	}
	if m.outputs.IsList() {
		return nil, constructionf("model %q: only single-output models can be used as a unit", m.name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.asUnit == nil {
		m.asUnit = unit.New(&Kernel{model: m}, append([]unit.Option{unit.WithName(m.name)}, opts...)...)
	}
	return m.asUnit, nil
}

// Kernel runs a declarative model as a unit kernel.
type Kernel struct {
	model *Model
}

// Model returns the wrapped model.
func (k *Kernel) Model() *Model { return k.model }

func (k *Kernel) Kind() string { return "model" }

// Build checks the upstream shapes against the model's inputs and returns
// the output unit's shape. The wrapped model owns all parameters.
func (k *Kernel) Build(in []tensor.Shape) (tensor.Shape, []*unit.Param, error) {
	inputs := k.model.inputs.Units()
	if len(in) != len(inputs) {
		return nil, nil, fmt.Errorf("%w: model %q takes %d inputs, got %d", unit.ErrShapeMismatch, k.model.name, len(inputs), len(in))
	}
	for i, u := range inputs {
		if want := u.OutShape(); !want.Compatible(in[i]) {
			return nil, nil, fmt.Errorf("%w: model %q input %q declared %s, got %s", unit.ErrShapeMismatch, k.model.name, u.Name(), want, in[i])
		}
	}
	return k.model.outputs.First().OutShape(), nil, nil
}

// Forward executes the wrapped graph. The model-level mode check is skipped;
// the units already carry the mode pushed through SetMode.
func (k *Kernel) Forward(ctx context.Context, in []*tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	v := unit.Single(in[0])
	if k.model.inputs.IsList() {
		v = unit.List(in...)
	}
	out, err := executor.Execute(ctx, k.model.plan(), v)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", k.model.name, err)
	}
	return out.Tensor(), nil
}

// Params returns the wrapped model's weights.
func (k *Kernel) Params() ([]*unit.Param, error) { return k.model.Weights() }

// SetMode pushes mode into the wrapped model's units.
func (k *Kernel) SetMode(mode unit.Mode) { k.model.propagate(mode) }
