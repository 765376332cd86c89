package layers

import (
	"fmt"

	"github.com/vk/unitgrid/internal/registry"
	"github.com/vk/unitgrid/internal/tensor"
	"github.com/vk/unitgrid/internal/unit"
)

// Module registers the reference kernels with a registry.
type Module struct{}

type inputArgs struct {
	Shape []int `arg:"shape,required"`
}

type denseArgs struct {
	Units int    `arg:"units,required"`
	Act   string `arg:"act"`
	Seed  uint64 `arg:"seed"`
}

type conv2dArgs struct {
	Filters int    `arg:"filters,required"`
	Kernel  []int  `arg:"kernel"`
	Strides []int  `arg:"strides"`
	Padding string `arg:"padding"`
	Act     string `arg:"act"`
	Seed    uint64 `arg:"seed"`
}

type dropoutArgs struct {
	Keep float64 `arg:"keep"`
	Seed uint64  `arg:"seed"`
}

type shapeArgs struct {
	Shape []int `arg:"shape,required"`
}

type permArgs struct {
	Perm []int `arg:"perm,required"`
}

type axisArgs struct {
	Axis int `arg:"axis"`
}

type tileArgs struct {
	Multiples []int `arg:"multiples,required"`
}

type noArgs struct{}

func pair(name string, v []int) ([2]int, error) {
	if len(v) != 2 {
		return [2]int{}, fmt.Errorf("%s must have two values, got %v", name, v)
	}
	return [2]int{v[0], v[1]}, nil
}

func newDenseKernel(a *denseArgs, ternary bool) (unit.Kernel, error) {
	if a.Units <= 0 {
		return nil, fmt.Errorf("units must be positive, got %d", a.Units)
	}
	act, err := ActivationByName(a.Act)
	if err != nil {
		return nil, err
	}
	return &Dense{Units: a.Units, Act: act, Seed: a.Seed, Ternary: ternary}, nil
}

// Register implements registry.Module.
func (Module) Register(r *registry.Registry) {
	r.RegisterKind("input", &registry.RegisteredKind{
		NewArgs: func() any { return &inputArgs{} },
		Build: func(a any) (unit.Kernel, error) {
			shape := tensor.Shape(a.(*inputArgs).Shape)
			if err := checkInputShape(shape); err != nil {
				return nil, err
			}
			return &Input{Shape: shape}, nil
		},
	})
	r.RegisterKind("dense", &registry.RegisteredKind{
		NewArgs: func() any { return &denseArgs{} },
		Build:   func(a any) (unit.Kernel, error) { return newDenseKernel(a.(*denseArgs), false) },
	})
	r.RegisterKind("ternary_dense", &registry.RegisteredKind{
		NewArgs: func() any { return &denseArgs{} },
		Build:   func(a any) (unit.Kernel, error) { return newDenseKernel(a.(*denseArgs), true) },
	})
	r.RegisterKind("ternary_conv2d", &registry.RegisteredKind{
		NewArgs: func() any {
			return &conv2dArgs{Kernel: []int{3, 3}, Strides: []int{1, 1}, Padding: PaddingSame}
		},
		Build: func(a any) (unit.Kernel, error) {
			args := a.(*conv2dArgs)
			kernel, err := pair("kernel", args.Kernel)
			if err != nil {
				return nil, err
			}
			strides, err := pair("strides", args.Strides)
			if err != nil {
				return nil, err
			}
			act, err := ActivationByName(args.Act)
			if err != nil {
				return nil, err
			}
			k, err := newTernaryConv2d(args.Filters, kernel, strides, args.Padding, act)
			if err != nil {
				return nil, err
			}
			k.Seed = args.Seed
			return k, nil
		},
	})
	r.RegisterKind("dropout", &registry.RegisteredKind{
		NewArgs: func() any { return &dropoutArgs{Keep: 0.5} },
		Build: func(a any) (unit.Kernel, error) {
			args := a.(*dropoutArgs)
			return newDropout(args.Keep, args.Seed)
		},
	})
	r.RegisterKind("flatten", &registry.RegisteredKind{
		NewArgs: func() any { return &noArgs{} },
		Build:   func(any) (unit.Kernel, error) { return Flatten{}, nil },
	})
	r.RegisterKind("reshape", &registry.RegisteredKind{
		NewArgs: func() any { return &shapeArgs{} },
		Build: func(a any) (unit.Kernel, error) {
			return &Reshape{Shape: tensor.Shape(a.(*shapeArgs).Shape)}, nil
		},
	})
	r.RegisterKind("transpose", &registry.RegisteredKind{
		NewArgs: func() any { return &permArgs{} },
		Build:   func(a any) (unit.Kernel, error) { return &Transpose{Perm: a.(*permArgs).Perm}, nil },
	})
	r.RegisterKind("expand_dims", &registry.RegisteredKind{
		NewArgs: func() any { return &axisArgs{} },
		Build:   func(a any) (unit.Kernel, error) { return &ExpandDims{Axis: a.(*axisArgs).Axis}, nil },
	})
	r.RegisterKind("tile", &registry.RegisteredKind{
		NewArgs: func() any { return &tileArgs{} },
		Build:   func(a any) (unit.Kernel, error) { return &Tile{Multiples: a.(*tileArgs).Multiples}, nil },
	})
	r.RegisterKind("concat", &registry.RegisteredKind{
		NewArgs: func() any { return &axisArgs{Axis: -1} },
		Build:   func(a any) (unit.Kernel, error) { return &Concat{Axis: a.(*axisArgs).Axis}, nil },
	})
}
