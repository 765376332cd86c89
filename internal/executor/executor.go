// Package executor evaluates a layered unit graph for one set of input
// tensors. Units run tier by tier, each exactly once per call, and their
// outputs are held in a per-call memory.Store until their last consumer has
// read them.
package executor

import (
	"context"
	"fmt"

	"github.com/vk/unitgrid/internal/ctxlog"
	"github.com/vk/unitgrid/internal/memory"
	"github.com/vk/unitgrid/internal/scheduler"
	"github.com/vk/unitgrid/internal/tensor"
	"github.com/vk/unitgrid/internal/unit"
)

// ErrShapeMismatch is returned when the runtime value does not match the
// declared input ports.
var ErrShapeMismatch = unit.ErrShapeMismatch

// Plan is everything needed to run a graph.
type Plan struct {
	Tiers   scheduler.Tiers[*unit.Unit]
	Edges   map[string][]string
	Inputs  unit.Ports
	Outputs unit.Ports
}

// Execute runs plan on in and returns the declared outputs.
func Execute(ctx context.Context, plan Plan, in unit.Value, opts ...Option) (unit.Value, error) {
	o := newOptions(opts)
	logger := ctxlog.FromContext(ctx)
	if plan.Tiers.Len() == 0 {
		return unit.Value{}, fmt.Errorf("executor: plan has no tiers")
	}

	mem := memory.New()
	for _, out := range plan.Outputs.Units() {
		mem.Pin(out.Name())
	}

	logger.Debug("executor: starting.", "tiers", plan.Tiers.Len(), "units", plan.Tiers.Count(), "workers", o.workers)
	if err := seed(ctx, plan, mem, in); err != nil {
		return unit.Value{}, err
	}
	for depth := 1; depth < plan.Tiers.Len(); depth++ {
		if err := ctx.Err(); err != nil {
			return unit.Value{}, err
		}
		tier := plan.Tiers[depth]
		logger.Debug("executor: running tier.", "depth", depth, "units", len(tier))
		if err := runTier(ctx, plan, mem, tier, o.workers); err != nil {
			return unit.Value{}, fmt.Errorf("tier %d: %w", depth, err)
		}
	}

	out, err := collect(plan.Outputs, mem)
	if err != nil {
		return unit.Value{}, err
	}
	logger.Debug("executor: finished.", "held", mem.Len(), "released", mem.Released())
	return out, nil
}

// seed feeds the runtime value positionally into tier 0.
func seed(ctx context.Context, plan Plan, mem *memory.Store, in unit.Value) error {
	sources := plan.Tiers[0]
	if plan.Inputs.IsList() {
		if !in.IsList() || in.Len() != len(sources) {
			return fmt.Errorf("%w: graph takes a list of %d inputs, got %s", ErrShapeMismatch, len(sources), describe(in))
		}
	} else if in.IsList() || in.Len() != 1 || len(sources) != 1 {
		return fmt.Errorf("%w: graph takes a single input, got %s", ErrShapeMismatch, describe(in))
	}

	for i, t := range in.Tensors() {
		u := sources[i]
		out, err := u.Call(ctx, t)
		if err != nil {
			return err
		}
		ctxlog.FromContext(ctx).Debug("executor: unit done.", "unit", u.Name(), "out_shape", out.Shape().String())
		if err := mem.Put(u.Name(), out, len(plan.Edges[u.Name()])); err != nil {
			return err
		}
	}
	return nil
}

func describe(v unit.Value) string {
	if v.IsList() {
		return fmt.Sprintf("a list of %d", v.Len())
	}
	return "a single value"
}

// runUnit reads the unit's upstream outputs, calls it and stores the result.
func runUnit(ctx context.Context, plan Plan, mem *memory.Store, u *unit.Unit) error {
	upstream := u.Upstream()
	in := make([]*tensor.Tensor, len(upstream))
	for i, up := range upstream {
		t, err := mem.Consume(up.Name())
		if err != nil {
			return fmt.Errorf("unit %q: %w", u.Name(), err)
		}
		in[i] = t
	}
	out, err := u.Call(ctx, in...)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("executor: unit done.", "unit", u.Name(), "out_shape", out.Shape().String())
	return mem.Put(u.Name(), out, len(plan.Edges[u.Name()]))
}

func collect(outputs unit.Ports, mem *memory.Store) (unit.Value, error) {
	units := outputs.Units()
	ts := make([]*tensor.Tensor, len(units))
	for i, u := range units {
		t, err := mem.Get(u.Name())
		if err != nil {
			return unit.Value{}, err
		}
		ts[i] = t
	}
	if outputs.IsList() {
		return unit.List(ts...), nil
	}
	return unit.Single(ts[0]), nil
}
