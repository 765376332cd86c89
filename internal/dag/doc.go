// Package dag reconstructs a dependency graph by walking backwards from a set
// of output nodes. It is generic over the node type so the same traversal
// serves live units and declared unit specs.
//
// The result is a Topology: a name registry, the downstream edge lists, the
// indegree of every node and the order in which nodes were discovered. Cycle
// detection is left to the scheduler, which layers a Topology into tiers.
package dag
