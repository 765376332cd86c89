package config

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// KindModel is the unit kind that wraps a declared model.
const KindModel = "model"

// Definition is the unified content of all loaded definition files.
type Definition struct {
	Units  []*UnitSpec
	Models []*ModelSpec
}

// UnitSpec is the format-agnostic representation of a `unit` block.
type UnitSpec struct {
	Kind string
	Name string
	// Inputs holds the names of upstream units in order.
	Inputs []string
	// Multi is set when the upstream was declared as a list.
	Multi bool
	// Model names the wrapped model for units of KindModel.
	Model string
	// Args holds the remaining attributes, passed to the kind's registry
	// entry.
	Args map[string]cty.Value
	// Source is the file the block was declared in.
	Source string
}

// ModelSpec is the format-agnostic representation of a `model` block.
type ModelSpec struct {
	Name        string
	Inputs      []string
	InputsList  bool
	Outputs     []string
	OutputsList bool
	Source      string
}

// Unit returns the unit declared under name.
func (d *Definition) Unit(name string) (*UnitSpec, bool) {
	for _, u := range d.Units {
		if u.Name == name {
			return u, true
		}
	}
	return nil, false
}

// Model returns the model declared under name.
func (d *Definition) Model(name string) (*ModelSpec, bool) {
	for _, m := range d.Models {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Merge appends other into d, rejecting duplicate unit or model names.
func (d *Definition) Merge(other *Definition) error {
	for _, u := range other.Units {
		if prev, ok := d.Unit(u.Name); ok {
			return fmt.Errorf("unit %q declared twice (%s and %s)", u.Name, prev.Source, u.Source)
		}
		d.Units = append(d.Units, u)
	}
	for _, m := range other.Models {
		if prev, ok := d.Model(m.Name); ok {
			return fmt.Errorf("model %q declared twice (%s and %s)", m.Name, prev.Source, m.Source)
		}
		d.Models = append(d.Models, m)
	}
	return nil
}
