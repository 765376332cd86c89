package builder

import (
	"errors"
	"sort"

	"github.com/vk/unitgrid/internal/model"
	"github.com/vk/unitgrid/internal/unit"
)

// ErrUnknownReference is returned when a declaration names a unit or model
// that is not declared anywhere.
var ErrUnknownReference = errors.New("unknown reference")

// Graph holds everything materialized from a definition.
type Graph struct {
	units  map[string]*unit.Unit
	models map[string]*model.Model
	// order is the unit creation order.
	order []string
	// wrapped maps a model name to the unit running it.
	wrapped map[string]string
}

// Unit returns the unit declared under name.
func (g *Graph) Unit(name string) (*unit.Unit, bool) {
	u, ok := g.units[name]
	return u, ok
}

// Model returns the model declared under name.
func (g *Graph) Model(name string) (*model.Model, bool) {
	m, ok := g.models[name]
	return m, ok
}

// Units returns all units in creation order.
func (g *Graph) Units() []*unit.Unit {
	out := make([]*unit.Unit, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.units[name])
	}
	return out
}

// ModelNames returns the declared model names, sorted.
func (g *Graph) ModelNames() []string {
	names := make([]string, 0, len(g.models))
	for name := range g.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TopModels returns the sorted names of models that no unit wraps.
func (g *Graph) TopModels() []string {
	var names []string
	for _, name := range g.ModelNames() {
		if _, ok := g.wrapped[name]; !ok {
			names = append(names, name)
		}
	}
	return names
}

// declKind tells unit and model declarations apart in the dependency graph.
type declKind int

const (
	declUnit declKind = iota
	declModel
)

// decl is one declaration as a dag node. Names carry a "unit." or "model."
// prefix so a unit and a model may share a name.
type decl struct {
	kind declKind
	name string
	deps []*decl
}

func (d *decl) Name() string {
	if d.kind == declModel {
		return "model." + d.name
	}
	return "unit." + d.name
}

func (d *decl) Upstream() []*decl { return d.deps }
