// Package scheduler layers a dag.Topology into ordered tiers of nodes that can
// be evaluated one tier after another.
//
// # How It Works
//
// Layer performs a Kahn-style traversal over a working copy of the topology's
// indegrees:
//  1. Tier 0 holds the source nodes: every node with indegree 0 in discovery
//     order, or exactly the caller-supplied sources in the given order.
//  2. For each node of the current tier, every downstream edge decrements the
//     consumer's remaining indegree. Consumers reaching exactly 0 join the next
//     tier in the order they were reached.
//  3. The walk stops when a tier comes out empty.
//
// A node's tier is therefore one more than the deepest tier among its
// upstream nodes. Nodes on a cycle never reach indegree 0; if any registered
// node is missing from the tiers, Layer fails with a *CycleError listing them.
//
// # Relationship with Other Components
//
//   - **dag:** produces the Topology consumed here.
//   - **executor:** walks the tiers, evaluating each node once.
//   - **model:** uses the tiers for parameter collection and mode propagation.
package scheduler
