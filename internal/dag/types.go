package dag

import "errors"

var (
	// ErrNoOutputs is returned when Build is called without output nodes.
	ErrNoOutputs = errors.New("at least one output node is required")
	// ErrDuplicateName is returned when two distinct nodes share a name.
	ErrDuplicateName = errors.New("duplicate node name")
	// ErrNilNode is returned when an output or upstream node is nil.
	ErrNilNode = errors.New("nil node")
)

// Node is a vertex that knows its name and the nodes it reads from.
type Node[N any] interface {
	comparable
	Name() string
	Upstream() []N
}

// Topology is the graph discovered from a set of outputs.
type Topology[N Node[N]] struct {
	// Registry maps every discovered name to its node.
	Registry map[string]N
	// Edges maps a node name to the ordered names of nodes consuming it. A
	// consumer appears once per time it lists the node as upstream.
	Edges map[string][]string
	// Indegrees maps a node name to the number of its upstream entries.
	Indegrees map[string]int
	// Order lists names in discovery order.
	Order []string
}

// Len returns the number of discovered nodes.
func (t *Topology[N]) Len() int { return len(t.Order) }

// Node looks up a node by name.
func (t *Topology[N]) Node(name string) (N, bool) {
	n, ok := t.Registry[name]
	return n, ok
}

// Has reports whether a node with the given name was discovered.
func (t *Topology[N]) Has(name string) bool {
	_, ok := t.Registry[name]
	return ok
}

// Consumers returns how many times name is read by downstream nodes.
func (t *Topology[N]) Consumers(name string) int { return len(t.Edges[name]) }

// Nodes returns all nodes in discovery order.
func (t *Topology[N]) Nodes() []N {
	out := make([]N, len(t.Order))
	for i, name := range t.Order {
		out[i] = t.Registry[name]
	}
	return out
}
