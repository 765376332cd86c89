package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/unitgrid/internal/ctxlog"
	"github.com/vk/unitgrid/internal/unit"
)

// ErrUnknownKind is returned when a definition names an unregistered kind.
var ErrUnknownKind = errors.New("unknown unit kind")

// Module is the interface that every kernel package implements to register
// its kinds.
type Module interface {
	Register(r *Registry)
}

// RegisteredKind holds the Go parts of one unit kind.
type RegisteredKind struct {
	// NewArgs returns a pointer to an argument struct holding defaults.
	NewArgs func() any
	// Build creates a kernel from the decoded argument struct.
	Build func(args any) (unit.Kernel, error)
}

// Registry holds the registered kinds for a single application instance.
type Registry struct {
	kinds map[string]*RegisteredKind
}

// New creates and initializes a new Registry instance.
func New(modules ...Module) *Registry {
	r := &Registry{kinds: make(map[string]*RegisteredKind)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// RegisterKind registers a kind. Registering a kind twice panics.
func (r *Registry) RegisterKind(kind string, k *RegisteredKind) {
	if _, exists := r.kinds[kind]; exists {
		panic(fmt.Sprintf("unit kind '%s' already registered", kind))
	}
	if k == nil || k.NewArgs == nil || k.Build == nil {
		panic(fmt.Sprintf("unit kind '%s' registered without constructors", kind))
	}
	r.kinds[kind] = k
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind string) bool {
	_, ok := r.kinds[kind]
	return ok
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewKernel decodes args for kind and builds its kernel.
func (r *Registry) NewKernel(ctx context.Context, kind string, args map[string]cty.Value) (unit.Kernel, error) {
	k, ok := r.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	target := k.NewArgs()
	if err := DecodeArgs(args, target); err != nil {
		return nil, fmt.Errorf("kind %q: %w", kind, err)
	}
	ctxlog.FromContext(ctx).Debug("registry: building kernel.", "kind", kind, "args", len(args))
	kernel, err := k.Build(target)
	if err != nil {
		return nil, fmt.Errorf("kind %q: %w", kind, err)
	}
	return kernel, nil
}
