package model

import (
	"github.com/vk/unitgrid/internal/unit"
)

// Weights returns every parameter of the model, in tier order for
// declarative models and registration order for imperative ones. Each
// parameter appears once even when shared. The result is computed on the
// first call on which every unit is built and the same slice is returned
// afterwards.
//
// Unbuilt units of a declarative model contribute nothing and keep the
// result out of the cache. An unbuilt child of an imperative model is a
// *BuildIncompleteError.
func (m *Model) Weights() ([]*unit.Param, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.weightsDone {
		return m.weights, nil
	}

	units, complete, err := m.paramUnits()
	if err != nil {
		return nil, err
	}
	seen := make(map[*unit.Param]struct{})
	var out []*unit.Param
	for _, u := range units {
		params, err := u.Params()
		if err != nil {
			return nil, err
		}
		for _, p := range params {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	if !complete {
		return out, nil
	}
	m.weights = out
	m.weightsDone = true
	return m.weights, nil
}

// WeightsByUnit returns the parameters of each built unit keyed by unit name.
// It is not cached.
func (m *Model) WeightsByUnit() (map[string][]*unit.Param, error) {
	m.mu.Lock()
	units, _, err := m.paramUnits()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]*unit.Param, len(units))
	for _, u := range units {
		params, err := u.Params()
		if err != nil {
			return nil, err
		}
		if len(params) > 0 {
			out[u.Name()] = params
		}
	}
	return out, nil
}

// CountWeights returns the total number of scalars across Weights.
func (m *Model) CountWeights() (int, error) {
	ws, err := m.Weights()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range ws {
		n += p.Size()
	}
	return n, nil
}

// paramUnits lists the units that contribute parameters and reports whether
// every unit of the model is built. m.mu must be held.
func (m *Model) paramUnits() ([]*unit.Unit, bool, error) {
	if m.imperative {
		for _, c := range m.children {
			if !c.Built() {
				return nil, false, &BuildIncompleteError{Model: m.name, Unit: c.Name()}
			}
		}
		return append([]*unit.Unit(nil), m.children...), true, nil
	}
	var out []*unit.Unit
	complete := true
	for _, u := range m.tiers.Flatten() {
		if !u.Built() {
			complete = false
			continue
		}
		out = append(out, u)
	}
	return out, complete, nil
}
