package testutil

import "github.com/vk/unitgrid/internal/registry"

// SimpleModule is a test helper for easily creating a mock module that
// registers a single unit kind.
type SimpleModule struct {
	Kind       string
	Registered *registry.RegisteredKind
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.Kind != "" && m.Registered != nil {
		r.RegisterKind(m.Kind, m.Registered)
	}
}
