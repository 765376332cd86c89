package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/unitgrid/internal/dag"
)

var (
	// ErrCycleDetected matches every *CycleError.
	ErrCycleDetected = errors.New("cycle detected")
	// ErrSourceMismatch is returned when the supplied sources are not exactly
	// the zero-indegree nodes of the topology.
	ErrSourceMismatch = errors.New("sources do not match the graph's source nodes")
)

// CycleError reports the nodes that could not be placed in any tier.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: nodes never became ready: %s", ErrCycleDetected, strings.Join(e.Remaining, ", "))
}

// Is makes errors.Is(err, ErrCycleDetected) true for a *CycleError.
func (e *CycleError) Is(target error) bool { return target == ErrCycleDetected }

// Tiers is an ordered partition of a topology's nodes.
type Tiers[N dag.Node[N]] [][]N

// Len returns the number of tiers.
func (t Tiers[N]) Len() int { return len(t) }

// Count returns the number of nodes across all tiers.
func (t Tiers[N]) Count() int {
	n := 0
	for _, tier := range t {
		n += len(tier)
	}
	return n
}

// Depth returns the tier index of the named node, or -1.
func (t Tiers[N]) Depth(name string) int {
	for i, tier := range t {
		for _, n := range tier {
			if n.Name() == name {
				return i
			}
		}
	}
	return -1
}

// Flatten returns all nodes in tier order.
func (t Tiers[N]) Flatten() []N {
	out := make([]N, 0, t.Count())
	for _, tier := range t {
		out = append(out, tier...)
	}
	return out
}

// Clone returns a copy whose tier slices can be modified freely.
func (t Tiers[N]) Clone() Tiers[N] {
	out := make(Tiers[N], len(t))
	for i, tier := range t {
		out[i] = append([]N(nil), tier...)
	}
	return out
}

// Layer partitions topo into tiers. When sources are given, tier 0 is
// exactly those nodes in that order and they must be the same set as the
// topology's zero-indegree nodes.
func Layer[N dag.Node[N]](topo *dag.Topology[N], sources ...N) (Tiers[N], error) {
	var roots []N
	for _, name := range topo.Order {
		if topo.Indegrees[name] == 0 {
			roots = append(roots, topo.Registry[name])
		}
	}

	first := roots
	if len(sources) > 0 {
		if err := sameSet(roots, sources); err != nil {
			return nil, err
		}
		first = sources
	}

	remaining := make(map[string]int, len(topo.Indegrees))
	for name, d := range topo.Indegrees {
		remaining[name] = d
	}

	var tiers Tiers[N]
	placed := 0
	current := append([]N(nil), first...)
	for len(current) > 0 {
		tiers = append(tiers, current)
		placed += len(current)

		var next []N
		for _, n := range current {
			for _, down := range topo.Edges[n.Name()] {
				remaining[down]--
				if remaining[down] == 0 {
					next = append(next, topo.Registry[down])
				}
			}
		}
		current = next
	}

	if placed != topo.Len() {
		seen := make(map[string]struct{}, placed)
		for _, tier := range tiers {
			for _, n := range tier {
				seen[n.Name()] = struct{}{}
			}
		}
		var left []string
		for _, name := range topo.Order {
			if _, ok := seen[name]; !ok {
				left = append(left, name)
			}
		}
		sort.Strings(left)
		return nil, &CycleError{Remaining: left}
	}
	return tiers, nil
}

func sameSet[N dag.Node[N]](roots, sources []N) error {
	want := make(map[N]struct{}, len(roots))
	for _, r := range roots {
		want[r] = struct{}{}
	}
	got := make(map[N]struct{}, len(sources))
	for _, s := range sources {
		if _, ok := want[s]; !ok {
			return fmt.Errorf("%w: %q is not a source node", ErrSourceMismatch, s.Name())
		}
		if _, dup := got[s]; dup {
			return fmt.Errorf("%w: %q listed twice", ErrSourceMismatch, s.Name())
		}
		got[s] = struct{}{}
	}
	if len(got) != len(want) {
		var missing []string
		for _, r := range roots {
			if _, ok := got[r]; !ok {
				missing = append(missing, r.Name())
			}
		}
		return fmt.Errorf("%w: source nodes not listed: %s", ErrSourceMismatch, strings.Join(missing, ", "))
	}
	return nil
}
