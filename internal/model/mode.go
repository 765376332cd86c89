package model

import (
	"context"

	"github.com/vk/unitgrid/internal/ctxlog"
	"github.com/vk/unitgrid/internal/unit"
)

// Mode returns the model-level mode. It is ModeUnset until Train, Eval or
// SetMode is called.
func (m *Model) Mode() unit.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// SetMode sets the model mode and pushes it to every unit, if it changed.
func (m *Model) SetMode(training bool) {
	mode := unit.ModeOf(training)
	m.mu.Lock()
	if m.mode == mode {
		m.mu.Unlock()
		return
	}
	m.mode = mode
	m.mu.Unlock()
	m.propagate(mode)
}

// Train puts the model in training mode.
func (m *Model) Train() { m.SetMode(true) }

// Eval puts the model in inference mode.
func (m *Model) Eval() { m.SetMode(false) }

// Test is an alias of Eval.
func (m *Model) Test() { m.Eval() }

// Infer is an alias of Eval.
func (m *Model) Infer() { m.Eval() }

// propagate sets mode on every unit without touching the model-level flag.
// Units wrapping a model forward it into that model's units.
func (m *Model) propagate(mode unit.Mode) {
	for _, u := range m.Units() {
		u.SetMode(mode)
	}
}

// checkMode reconciles the mode requested by a call with the model mode.
func (m *Model) checkMode(ctx context.Context, explicit *bool) error {
	graph := m.Mode()
	switch {
	case explicit == nil && !graph.IsSet():
		return ErrModeUndefined
	case explicit == nil:
		return nil
	case !graph.IsSet():
		m.propagate(unit.ModeOf(*explicit))
		return nil
	case graph == unit.ModeOf(*explicit):
		ctxlog.FromContext(ctx).Warn("Training / inference mode redefined redundantly; set it on the model or pass it to the call, not both.",
			"model", m.name, "mode", graph.String())
		return nil
	default:
		return &ModeConflictError{Model: m.name, Graph: graph, Call: unit.ModeOf(*explicit)}
	}
}
