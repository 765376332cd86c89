package dag

import (
	"context"
	"fmt"

	"github.com/vk/unitgrid/internal/ctxlog"
)

// Build walks upstream references breadth-first from outputs and records
// every reachable node. Nodes are visited once even when reachable through
// several paths. Cycles are not detected here.
func Build[N Node[N]](ctx context.Context, outputs ...N) (*Topology[N], error) {
	logger := ctxlog.FromContext(ctx)
	if len(outputs) == 0 {
		return nil, ErrNoOutputs
	}
	var zero N

	topo := &Topology[N]{
		Registry:  make(map[string]N),
		Edges:     make(map[string][]string),
		Indegrees: make(map[string]int),
	}
	queued := make(map[N]struct{}, len(outputs))
	queue := make([]N, 0, len(outputs))
	for i, out := range outputs {
		if out == zero {
			return nil, fmt.Errorf("output %d: %w", i, ErrNilNode)
		}
		if _, ok := queued[out]; !ok {
			queued[out] = struct{}{}
			queue = append(queue, out)
		}
	}
	logger.Debug("dag.Build: starting traversal.", "outputs", len(queue))

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		name := cur.Name()

		if prev, ok := topo.Registry[name]; ok {
			if prev == cur {
				continue
			}
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
		topo.Registry[name] = cur
		topo.Order = append(topo.Order, name)

		upstream := cur.Upstream()
		topo.Indegrees[name] = len(upstream)
		for i, up := range upstream {
			if up == zero {
				return nil, fmt.Errorf("node %q upstream %d: %w", name, i, ErrNilNode)
			}
			upName := up.Name()
			topo.Edges[upName] = append(topo.Edges[upName], name)
			if _, ok := queued[up]; !ok {
				queued[up] = struct{}{}
				queue = append(queue, up)
			}
		}
	}

	logger.Debug("dag.Build: traversal complete.", "nodes", topo.Len())
	return topo, nil
}
