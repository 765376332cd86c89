package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/unitgrid/internal/dag"
)

type testNode struct {
	name string
	up   []*testNode
}

func (n *testNode) Name() string           { return n.name }
func (n *testNode) Upstream() []*testNode { return n.up }

func node(name string, up ...*testNode) *testNode { return &testNode{name: name, up: up} }

func names(t Tiers[*testNode]) [][]string {
	out := make([][]string, len(t))
	for i, tier := range t {
		for _, n := range tier {
			out[i] = append(out[i], n.Name())
		}
	}
	return out
}

func build(t *testing.T, outputs ...*testNode) *dag.Topology[*testNode] {
	t.Helper()
	topo, err := dag.Build(context.Background(), outputs...)
	require.NoError(t, err)
	return topo
}

func TestLayer(t *testing.T) {
	t.Run("depth is one more than the deepest upstream", func(t *testing.T) {
		in := node("in")
		a := node("a", in)
		b := node("b", a)
		skip := node("skip", in, b)

		tiers, err := Layer(build(t, skip))
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"in"}, {"a"}, {"b"}, {"skip"}}, names(tiers))
		assert.Equal(t, 3, tiers.Depth("skip"))
		assert.Equal(t, -1, tiers.Depth("nope"))
		assert.Equal(t, 4, tiers.Count())
	})

	t.Run("diamond", func(t *testing.T) {
		in := node("in")
		l := node("l", in)
		r := node("r", in)
		out := node("out", l, r)

		tiers, err := Layer(build(t, out))
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"in"}, {"l", "r"}, {"out"}}, names(tiers))
	})

	t.Run("sources fix tier zero order", func(t *testing.T) {
		x := node("x")
		y := node("y")
		sum := node("sum", y, x)

		tiers, err := Layer(build(t, sum))
		require.NoError(t, err)
		assert.Equal(t, []string{"y", "x"}, names(tiers)[0])

		tiers, err = Layer(build(t, sum), x, y)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"x", "y"}, {"sum"}}, names(tiers))
	})

	t.Run("source mismatch", func(t *testing.T) {
		x := node("x")
		y := node("y")
		sum := node("sum", x, y)
		topo := build(t, sum)

		_, err := Layer(topo, x)
		assert.ErrorIs(t, err, ErrSourceMismatch)
		assert.ErrorContains(t, err, "y")

		_, err = Layer(topo, x, sum)
		assert.ErrorIs(t, err, ErrSourceMismatch)

		_, err = Layer(topo, x, x)
		assert.ErrorIs(t, err, ErrSourceMismatch)
	})

	t.Run("cycle is reported", func(t *testing.T) {
		in := node("in")
		a := node("a", in)
		b := node("b", a)
		a.up = append(a.up, b)
		out := node("out", b)

		_, err := Layer(build(t, out))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCycleDetected)

		var cycleErr *CycleError
		require.ErrorAs(t, err, &cycleErr)
		assert.Equal(t, []string{"a", "b", "out"}, cycleErr.Remaining)
	})

	t.Run("clone is independent", func(t *testing.T) {
		in := node("in")
		tiers, err := Layer(build(t, node("a", in)))
		require.NoError(t, err)

		c := tiers.Clone()
		c[0][0] = node("other")
		assert.Equal(t, "in", tiers[0][0].Name())
		assert.Len(t, tiers.Flatten(), 2)
	})
}
