// Package model turns a set of connected units into a runnable graph.
//
// A declarative model is described by its input and output units; its graph
// is discovered, layered and cached once at construction. An imperative model
// holds explicitly registered child units and runs a user-supplied forward
// function. Both expose the same parameter collection and train/inference
// mode handling, and a declarative model can be wrapped into a unit so it can
// be nested in a larger graph.
package model

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vk/unitgrid/internal/ctxlog"
	"github.com/vk/unitgrid/internal/dag"
	"github.com/vk/unitgrid/internal/scheduler"
	"github.com/vk/unitgrid/internal/unit"
)

// Model is a declarative or imperative graph of units.
type Model struct {
	name       string
	imperative bool

	inputs   unit.Ports
	outputs  unit.Ports
	registry map[string]*unit.Unit
	edges    map[string][]string
	tiers    scheduler.Tiers[*unit.Unit]

	forward  ForwardFunc
	children []*unit.Unit

	// mu guards the fields below.
	mu          sync.Mutex
	mode        unit.Mode
	weights     []*unit.Param
	weightsDone bool
	asUnit      *unit.Unit
}

var modelNames = struct {
	sync.Mutex
	n int
}{}

func autoName() string {
	modelNames.Lock()
	defer modelNames.Unlock()
	modelNames.n++
	return fmt.Sprintf("model_%d", modelNames.n)
}

// New builds a declarative model from its input and output ports. The graph
// is discovered backwards from the outputs and every input must be reached.
// All failures wrap ErrConstruction.
func New(ctx context.Context, name string, inputs, outputs unit.Ports) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	if name == "" {
		name = autoName()
	}
	if err := checkPorts("inputs", inputs); err != nil {
		return nil, err
	}
	if err := checkPorts("outputs", outputs); err != nil {
		return nil, err
	}

	topo, err := dag.Build(ctx, outputs.Units()...)
	if err != nil {
		return nil, fmt.Errorf("%w: model %q: %w", ErrConstruction, name, err)
	}
	for _, in := range inputs.Units() {
		if got, ok := topo.Node(in.Name()); !ok || got != in {
			return nil, constructionf("model %q: input %q is not reachable from the outputs", name, in.Name())
		}
	}
	tiers, err := scheduler.Layer(topo, inputs.Units()...)
	if err != nil {
		return nil, fmt.Errorf("%w: model %q: %w", ErrConstruction, name, err)
	}

	m := &Model{
		name:     name,
		inputs:   inputs,
		outputs:  outputs,
		registry: topo.Registry,
		edges:    topo.Edges,
		tiers:    tiers,
	}
	logger.Debug("model: constructed.", "model", name, "units", topo.Len(), "tiers", tiers.Len())
	return m, nil
}

func checkPorts(side string, p unit.Ports) error {
	if p.Len() == 0 {
		return constructionf("%s must not be empty", side)
	}
	for i, u := range p.Units() {
		if u == nil {
			return constructionf("%s[%d] is nil", side, i)
		}
	}
	return nil
}

// Name returns the model's name.
func (m *Model) Name() string { return m.name }

// IsImperative reports whether the model runs a forward function.
func (m *Model) IsImperative() bool { return m.imperative }

// Inputs returns the declared input ports.
func (m *Model) Inputs() unit.Ports { return m.inputs }

// Outputs returns the declared output ports.
func (m *Model) Outputs() unit.Ports { return m.outputs }

// Unit looks up a unit of the graph, or a registered child, by name.
func (m *Model) Unit(name string) (*unit.Unit, bool) {
	if m.imperative {
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, c := range m.children {
			if c.Name() == name {
				return c, true
			}
		}
		return nil, false
	}
	u, ok := m.registry[name]
	return u, ok
}

// Units returns the graph's units in tier order, or the registered children
// in registration order.
func (m *Model) Units() []*unit.Unit {
	if m.imperative {
		m.mu.Lock()
		defer m.mu.Unlock()
		return append([]*unit.Unit(nil), m.children...)
	}
	return m.tiers.Flatten()
}

// Edges returns a copy of the downstream edge lists.
func (m *Model) Edges() map[string][]string {
	out := make(map[string][]string, len(m.edges))
	for k, v := range m.edges {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Tiers returns a copy of the execution tiers.
func (m *Model) Tiers() scheduler.Tiers[*unit.Unit] { return m.tiers.Clone() }

func (m *Model) String() string {
	var b strings.Builder
	if m.imperative {
		fmt.Fprintf(&b, "Model %q (imperative)\n", m.name)
		for _, c := range m.Units() {
			fmt.Fprintf(&b, "  %s\n", c)
		}
		return b.String()
	}
	fmt.Fprintf(&b, "Model %q (inputs=%v, outputs=%v)\n", m.name, m.inputs.Names(), m.outputs.Names())
	for i, tier := range m.tiers {
		parts := make([]string, len(tier))
		for j, u := range tier {
			parts[j] = u.String()
		}
		fmt.Fprintf(&b, "  tier %d: %s\n", i, strings.Join(parts, ", "))
	}
	return b.String()
}
