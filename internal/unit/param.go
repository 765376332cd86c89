package unit

import "github.com/vk/unitgrid/internal/tensor"

// Param is a named, trainable tensor owned by a unit. Kernels return params
// with a local name such as "weights"; the owning unit prefixes it with its
// own name on build.
type Param struct {
	Name  string
	Value *tensor.Tensor
}

// NewParam returns a parameter with a local name.
func NewParam(name string, v *tensor.Tensor) *Param {
	return &Param{Name: name, Value: v}
}

// Shape returns the parameter's shape.
func (p *Param) Shape() tensor.Shape {
	if p.Value == nil {
		return nil
	}
	return p.Value.Shape()
}

// Size returns the number of scalars in the parameter.
func (p *Param) Size() int {
	if p.Value == nil {
		return 0
	}
	return p.Value.Len()
}
