package builder

import (
	"context"
	"fmt"

	"github.com/vk/unitgrid/internal/config"
	"github.com/vk/unitgrid/internal/ctxlog"
	"github.com/vk/unitgrid/internal/dag"
	"github.com/vk/unitgrid/internal/model"
	"github.com/vk/unitgrid/internal/registry"
	"github.com/vk/unitgrid/internal/scheduler"
	"github.com/vk/unitgrid/internal/unit"
)

// Build materializes def using the kinds known to r.
func Build(ctx context.Context, def *config.Definition, r *registry.Registry) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "units", len(def.Units), "models", len(def.Models))

	// First pass: one node per declaration, then link references.
	decls, err := link(def)
	if err != nil {
		return nil, err
	}

	// Second pass: order declarations so every reference exists before use.
	topo, err := dag.Build(ctx, decls...)
	if err != nil {
		return nil, fmt.Errorf("error validating definition graph: %w", err)
	}
	tiers, err := scheduler.Layer(topo)
	if err != nil {
		return nil, fmt.Errorf("error validating definition graph: %w", err)
	}
	logger.Debug("Build: Declarations ordered.", "tiers", tiers.Len())

	// Third pass: materialize in order.
	g := &Graph{
		units:   make(map[string]*unit.Unit, len(def.Units)),
		models:  make(map[string]*model.Model, len(def.Models)),
		wrapped: make(map[string]string),
	}
	for _, d := range tiers.Flatten() {
		switch d.kind {
		case declUnit:
			spec, _ := def.Unit(d.name)
			if spec.Kind == config.KindModel {
				if prev, ok := g.wrapped[spec.Model]; ok {
					return nil, fmt.Errorf("%s: unit %q: model %q is already wrapped by unit %q", spec.Source, spec.Name, spec.Model, prev)
				}
				g.wrapped[spec.Model] = spec.Name
			}
			u, err := g.newUnit(ctx, spec, r)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", spec.Source, err)
			}
			g.units[spec.Name] = u
			g.order = append(g.order, spec.Name)
		case declModel:
			spec, _ := def.Model(d.name)
			m, err := g.newModel(ctx, spec)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", spec.Source, err)
			}
			g.models[spec.Name] = m
		}
	}

	logger.Info("Build: Graph construction successful.", "units", len(g.units), "models", len(g.models))
	return g, nil
}

// link creates the declaration nodes and resolves every reference.
func link(def *config.Definition) ([]*decl, error) {
	units := make(map[string]*decl, len(def.Units))
	models := make(map[string]*decl, len(def.Models))
	all := make([]*decl, 0, len(def.Units)+len(def.Models))
	for _, u := range def.Units {
		d := &decl{kind: declUnit, name: u.Name}
		units[u.Name] = d
		all = append(all, d)
	}
	for _, m := range def.Models {
		d := &decl{kind: declModel, name: m.Name}
		models[m.Name] = d
		all = append(all, d)
	}

	unitRef := func(owner, name string) (*decl, error) {
		d, ok := units[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s references undeclared unit %q", ErrUnknownReference, owner, name)
		}
		return d, nil
	}

	for _, u := range def.Units {
		d := units[u.Name]
		owner := fmt.Sprintf("unit %q", u.Name)
		for _, in := range u.Inputs {
			up, err := unitRef(owner, in)
			if err != nil {
				return nil, err
			}
			d.deps = append(d.deps, up)
		}
		if u.Kind == config.KindModel {
			m, ok := models[u.Model]
			if !ok {
				return nil, fmt.Errorf("%w: %s references undeclared model %q", ErrUnknownReference, owner, u.Model)
			}
			d.deps = append(d.deps, m)
		}
	}
	for _, m := range def.Models {
		d := models[m.Name]
		owner := fmt.Sprintf("model %q", m.Name)
		for _, name := range append(append([]string(nil), m.Inputs...), m.Outputs...) {
			up, err := unitRef(owner, name)
			if err != nil {
				return nil, err
			}
			d.deps = append(d.deps, up)
		}
	}
	return all, nil
}

func (g *Graph) newUnit(ctx context.Context, spec *config.UnitSpec, r *registry.Registry) (*unit.Unit, error) {
	logger := ctxlog.FromContext(ctx).With("unit_kind", spec.Kind, "unit_name", spec.Name)

	var u *unit.Unit
	if spec.Kind == config.KindModel {
		if len(spec.Args) > 0 {
			return nil, fmt.Errorf("unit %q: units of kind %q take no arguments", spec.Name, config.KindModel)
		}
		wrapped, err := g.models[spec.Model].AsUnit(unit.WithName(spec.Name))
		if err != nil {
			return nil, fmt.Errorf("unit %q: %w", spec.Name, err)
		}
		u = wrapped
	} else {
		k, err := r.NewKernel(ctx, spec.Kind, spec.Args)
		if err != nil {
			return nil, fmt.Errorf("unit %q: %w", spec.Name, err)
		}
		u = unit.New(k, unit.WithName(spec.Name))
	}

	upstream := make([]*unit.Unit, len(spec.Inputs))
	for i, name := range spec.Inputs {
		upstream[i] = g.units[name]
	}
	var err error
	switch {
	case spec.Multi:
		err = u.ConnectAll(upstream...)
	case len(upstream) == 1:
		err = u.Connect(upstream[0])
	default:
		err = u.Build()
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("Build: Unit created.", "out_shape", u.OutShape().String(), "inputs", spec.Inputs)
	return u, nil
}

func (g *Graph) newModel(ctx context.Context, spec *config.ModelSpec) (*model.Model, error) {
	ports := func(names []string, list bool) unit.Ports {
		us := make([]*unit.Unit, len(names))
		for i, name := range names {
			us[i] = g.units[name]
		}
		if list {
			return unit.Many(us...)
		}
		return unit.One(us[0])
	}
	if !spec.InputsList && len(spec.Inputs) != 1 || !spec.OutputsList && len(spec.Outputs) != 1 {
		return nil, fmt.Errorf("model %q: single ports must name exactly one unit", spec.Name)
	}
	m, err := model.New(ctx, spec.Name, ports(spec.Inputs, spec.InputsList), ports(spec.Outputs, spec.OutputsList))
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Build: Model created.", "model_name", spec.Name, "tiers", m.Tiers().Len())
	return m, nil
}
