// Package unit defines the atomic computation node of a graph. A Unit wraps
// an opaque Kernel, records where its inputs come from, owns the parameters
// its kernel allocates on build and carries a train/inference mode.
package unit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vk/unitgrid/internal/tensor"
)

var (
	// ErrAlreadyBuilt is returned by an explicit Build on a built unit.
	ErrAlreadyBuilt = errors.New("unit already built")
	// ErrAlreadyConnected is returned when a unit's upstream is set twice.
	ErrAlreadyConnected = errors.New("unit already connected")
	// ErrNotBuilt is returned when a built unit is required but absent.
	ErrNotBuilt = errors.New("unit not built")
	// ErrShapeMismatch is returned when runtime inputs do not match what a
	// unit or graph was declared with.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// Kernel is the computation a unit performs. The engine never looks inside a
// kernel; it only asks it to allocate parameters for the observed input
// shapes and to transform input tensors.
type Kernel interface {
	// Kind is a short lower-case identifier such as "dense", used for naming.
	Kind() string
	// Build allocates parameters for the given input shapes and returns the
	// output shape. It is called at most once per unit.
	Build(in []tensor.Shape) (tensor.Shape, []*Param, error)
	// Forward computes the output. in has one entry per upstream unit.
	Forward(ctx context.Context, in []*tensor.Tensor, training bool) (*tensor.Tensor, error)
}

// ParamSource is implemented by kernels whose parameters live outside of
// Build, such as a kernel running a whole sub-graph.
type ParamSource interface {
	Params() ([]*Param, error)
}

// ModeSetter is implemented by composite kernels that propagate the mode to
// units of their own.
type ModeSetter interface {
	SetMode(m Mode)
}

// Unit is a node of a computation graph.
type Unit struct {
	name   string
	kernel Kernel

	upstream  []*Unit
	multi     bool
	connected bool

	// mu guards the Unbuilt -> Built transition.
	mu       sync.Mutex
	built    bool
	inShapes []tensor.Shape
	outShape tensor.Shape
	params   []*Param

	mode atomic.Int32
}

// Option configures a Unit.
type Option func(*Unit)

// WithName sets an explicit unit name instead of an auto-assigned one.
func WithName(name string) Option {
	return func(u *Unit) {
		if name != "" {
			u.name = name
		}
	}
}

// New creates an unbuilt, unconnected unit around k.
func New(k Kernel, opts ...Option) *Unit {
	u := &Unit{kernel: k}
	for _, opt := range opts {
		opt(u)
	}
	if u.name == "" {
		u.name = nextName(k.Kind())
	}
	return u
}

// Name returns the unit's name.
func (u *Unit) Name() string { return u.name }

// Kind returns the kernel kind.
func (u *Unit) Kind() string { return u.kernel.Kind() }

// Kernel returns the wrapped kernel.
func (u *Unit) Kernel() Kernel { return u.kernel }

// Upstream returns the units this unit reads from, in order.
func (u *Unit) Upstream() []*Unit {
	if len(u.upstream) == 0 {
		return nil
	}
	out := make([]*Unit, len(u.upstream))
	copy(out, u.upstream)
	return out
}

// IsMulti reports whether the upstream was declared as a list.
func (u *Unit) IsMulti() bool { return u.multi }

// Connect records prev as the single upstream unit and builds u from prev's
// output shape.
func (u *Unit) Connect(prev *Unit) error {
	return u.connect(false, prev)
}

// ConnectAll records prev as an ordered upstream list, even for a single
// element, and builds u from their output shapes.
func (u *Unit) ConnectAll(prev ...*Unit) error {
	if len(prev) == 0 {
		return fmt.Errorf("unit %q: upstream list must not be empty", u.name)
	}
	return u.connect(true, prev...)
}

func (u *Unit) connect(multi bool, prev ...*Unit) error {
	if u.connected {
		return fmt.Errorf("unit %q: %w", u.name, ErrAlreadyConnected)
	}
	shapes := make([]tensor.Shape, len(prev))
	for i, p := range prev {
		if p == nil {
			return fmt.Errorf("unit %q: upstream %d is nil", u.name, i)
		}
		if p == u {
			return fmt.Errorf("unit %q: cannot consume its own output", u.name)
		}
		if !p.Built() {
			return fmt.Errorf("unit %q: upstream %q: %w", u.name, p.name, ErrNotBuilt)
		}
		shapes[i] = p.OutShape()
	}
	if err := u.ensureBuilt(shapes); err != nil {
		return err
	}
	u.upstream = append([]*Unit(nil), prev...)
	u.multi = multi
	u.connected = true
	return nil
}

// Build explicitly builds the unit for the given input shapes. Building a
// built unit fails with ErrAlreadyBuilt.
func (u *Unit) Build(in ...tensor.Shape) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.built {
		return fmt.Errorf("unit %q: %w", u.name, ErrAlreadyBuilt)
	}
	return u.buildLocked(in)
}

// ensureBuilt builds the unit once; later calls check shape compatibility.
func (u *Unit) ensureBuilt(in []tensor.Shape) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.built {
		return u.buildLocked(in)
	}
	// Source units were built without inputs and check runtime tensors in
	// their kernel.
	if len(u.inShapes) == 0 {
		return nil
	}
	if len(in) != len(u.inShapes) {
		return fmt.Errorf("unit %q: built for %d inputs, got %d: %w", u.name, len(u.inShapes), len(in), tensor.ErrShape)
	}
	for i := range in {
		if !u.inShapes[i].Compatible(in[i]) {
			return fmt.Errorf("unit %q: built for input %s, got %s: %w", u.name, u.inShapes[i], in[i], tensor.ErrShape)
		}
	}
	return nil
}

func (u *Unit) buildLocked(in []tensor.Shape) error {
	out, params, err := u.kernel.Build(in)
	if err != nil {
		return fmt.Errorf("building unit %q: %w", u.name, err)
	}
	for _, p := range params {
		p.Name = u.name + "/" + p.Name
	}
	u.inShapes = make([]tensor.Shape, len(in))
	for i, s := range in {
		u.inShapes[i] = s.Clone()
	}
	u.outShape = out
	u.params = params
	u.built = true
	return nil
}

// Built reports whether the unit's build step has run.
func (u *Unit) Built() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.built
}

// OutShape returns the output shape inferred at build, or nil if unbuilt.
func (u *Unit) OutShape() tensor.Shape {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.outShape.Clone()
}

// Params returns the unit's parameters in the kernel's order. Unbuilt units
// have none.
func (u *Unit) Params() ([]*Param, error) {
	if src, ok := u.kernel.(ParamSource); ok {
		return src.Params()
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.params) == 0 {
		return nil, nil
	}
	out := make([]*Param, len(u.params))
	copy(out, u.params)
	return out, nil
}

// Call builds the unit on first use and runs its kernel. Shapes observed on
// the first call become the unit's input shapes with the leading dimension
// left unknown.
func (u *Unit) Call(ctx context.Context, in ...*tensor.Tensor) (*tensor.Tensor, error) {
	shapes := make([]tensor.Shape, len(in))
	for i, t := range in {
		if t == nil {
			return nil, fmt.Errorf("unit %q: input %d is nil", u.name, i)
		}
		s := t.Shape()
		if len(s) > 0 {
			s[0] = tensor.Unknown
		}
		shapes[i] = s
	}
	if err := u.ensureBuilt(shapes); err != nil {
		return nil, err
	}
	out, err := u.kernel.Forward(ctx, in, u.Training())
	if err != nil {
		return nil, fmt.Errorf("unit %q: %w", u.name, err)
	}
	return out, nil
}

// SetMode sets the unit's mode and forwards it to composite kernels.
func (u *Unit) SetMode(m Mode) {
	u.mode.Store(int32(m))
	if ms, ok := u.kernel.(ModeSetter); ok {
		ms.SetMode(m)
	}
}

// Mode returns the unit's current mode.
func (u *Unit) Mode() Mode { return Mode(u.mode.Load()) }

// Training reports whether the unit is in training mode.
func (u *Unit) Training() bool { return u.Mode() == ModeTrain }

func (u *Unit) String() string {
	return fmt.Sprintf("%s(name=%q)", u.Kind(), u.name)
}
