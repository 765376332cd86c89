package unit

import "github.com/vk/unitgrid/internal/tensor"

// Ports is the declared input or output side of a graph: either exactly one
// unit or an ordered list of units.
type Ports struct {
	units []*Unit
	list  bool
}

// One declares a single port.
func One(u *Unit) Ports { return Ports{units: []*Unit{u}} }

// Many declares an ordered list of ports. The list form is kept even for a
// single unit.
func Many(us ...*Unit) Ports {
	return Ports{units: append([]*Unit(nil), us...), list: true}
}

// Units returns the declared units in order.
func (p Ports) Units() []*Unit { return append([]*Unit(nil), p.units...) }

// IsList reports whether the ports were declared as a list.
func (p Ports) IsList() bool { return p.list }

// Len returns the number of declared units.
func (p Ports) Len() int { return len(p.units) }

// First returns the first declared unit or nil.
func (p Ports) First() *Unit {
	if len(p.units) == 0 {
		return nil
	}
	return p.units[0]
}

// Names returns the unit names in order.
func (p Ports) Names() []string {
	out := make([]string, len(p.units))
	for i, u := range p.units {
		if u != nil {
			out[i] = u.Name()
		}
	}
	return out
}

// Value is the runtime counterpart of Ports: one tensor or an ordered list.
type Value struct {
	tensors []*tensor.Tensor
	list    bool
}

// Single wraps one tensor.
func Single(t *tensor.Tensor) Value { return Value{tensors: []*tensor.Tensor{t}} }

// List wraps an ordered list of tensors.
func List(ts ...*tensor.Tensor) Value {
	return Value{tensors: append([]*tensor.Tensor(nil), ts...), list: true}
}

// IsList reports whether the value is a list.
func (v Value) IsList() bool { return v.list }

// Len returns the number of tensors.
func (v Value) Len() int { return len(v.tensors) }

// Tensor returns the single tensor, or the first element of a list.
func (v Value) Tensor() *tensor.Tensor {
	if len(v.tensors) == 0 {
		return nil
	}
	return v.tensors[0]
}

// Tensors returns all tensors in order.
func (v Value) Tensors() []*tensor.Tensor { return append([]*tensor.Tensor(nil), v.tensors...) }
