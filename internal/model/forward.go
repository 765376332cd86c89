package model

import (
	"context"
	"fmt"

	"github.com/vk/unitgrid/internal/ctxlog"
	"github.com/vk/unitgrid/internal/executor"
	"github.com/vk/unitgrid/internal/unit"
)

// CallOption configures a single Forward call.
type CallOption func(*callOptions)

type callOptions struct {
	training *bool
	workers  int
}

// WithTraining sets the mode for this call.
func WithTraining(training bool) CallOption {
	return func(o *callOptions) { o.training = &training }
}

// WithWorkers evaluates up to n units of one tier concurrently.
func WithWorkers(n int) CallOption {
	return func(o *callOptions) { o.workers = n }
}

// Forward runs the model on in. The mode must be known, either from the
// model or from WithTraining; see checkMode for how the two interact.
func (m *Model) Forward(ctx context.Context, in unit.Value, opts ...CallOption) (unit.Value, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := m.checkMode(ctx, o.training); err != nil {
		return unit.Value{}, err
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("model: forward.", "model", m.name, "imperative", m.imperative, "inputs", in.Len())
	if m.imperative {
		out, err := m.forward(ctx, in)
		if err != nil {
			return unit.Value{}, fmt.Errorf("model %q: %w", m.name, err)
		}
		return out, nil
	}

	out, err := executor.Execute(ctx, m.plan(), in, executor.WithWorkers(o.workers))
	if err != nil {
		return unit.Value{}, fmt.Errorf("model %q: %w", m.name, err)
	}
	return out, nil
}

func (m *Model) plan() executor.Plan {
	return executor.Plan{
		Tiers:   m.tiers,
		Edges:   m.edges,
		Inputs:  m.inputs,
		Outputs: m.outputs,
	}
}
