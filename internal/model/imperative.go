package model

import (
	"context"

	"github.com/vk/unitgrid/internal/ctxlog"
	"github.com/vk/unitgrid/internal/unit"
)

// ForwardFunc is the forward computation of an imperative model. It calls
// the model's registered children directly.
type ForwardFunc func(ctx context.Context, in unit.Value) (unit.Value, error)

// NewImperative creates a model that runs fn. Child units must be added with
// Register so that parameters and modes reach them.
func NewImperative(ctx context.Context, name string, fn ForwardFunc) (*Model, error) {
	if name == "" {
		name = autoName()
	}
	if fn == nil {
		return nil, constructionf("model %q: forward function is nil", name)
	}
	ctxlog.FromContext(ctx).Debug("model: constructed imperative model.", "model", name)
	return &Model{name: name, imperative: true, forward: fn}, nil
}

// Register appends children in order. Registering after the first Weights
// call has no effect on the cached parameters.
func (m *Model) Register(children ...*unit.Unit) error {
	if !m.imperative {
		return constructionf("model %q: only imperative models register children", m.name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range children {
		if c == nil {
			return constructionf("model %q: child %d is nil", m.name, i)
		}
		for _, have := range m.children {
			if have == c {
				return constructionf("model %q: unit %q registered twice", m.name, c.Name())
			}
			if have.Name() == c.Name() {
				return constructionf("model %q: duplicate unit name %q", m.name, c.Name())
			}
		}
		m.children = append(m.children, c)
		if m.mode.IsSet() {
			c.SetMode(m.mode)
		}
	}
	return nil
}
