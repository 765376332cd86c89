package dag

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNode struct {
	name string
	up   []*testNode
}

func (n *testNode) Name() string           { return n.name }
func (n *testNode) Upstream() []*testNode { return n.up }

func node(name string, up ...*testNode) *testNode { return &testNode{name: name, up: up} }

func TestBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("chain", func(t *testing.T) {
		a := node("a")
		b := node("b", a)
		c := node("c", b)

		topo, err := Build(ctx, c)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b", "a"}, topo.Order)
		assert.Equal(t, map[string]int{"a": 0, "b": 1, "c": 1}, topo.Indegrees)
		if diff := cmp.Diff(map[string][]string{"a": {"b"}, "b": {"c"}}, topo.Edges); diff != "" {
			t.Errorf("edges mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("diamond is visited once per node", func(t *testing.T) {
		a := node("a")
		b := node("b", a)
		c := node("c", a)
		d := node("d", b, c)

		topo, err := Build(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, 4, topo.Len())
		assert.Equal(t, 2, topo.Indegrees["d"])
		assert.Equal(t, []string{"b", "c"}, topo.Edges["a"])
		assert.Equal(t, 2, topo.Consumers("a"))
		assert.Equal(t, 0, topo.Consumers("d"))
	})

	t.Run("multiple outputs sharing ancestors", func(t *testing.T) {
		a := node("a")
		b := node("b", a)
		c := node("c", a)

		topo, err := Build(ctx, b, c, b)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "a"}, topo.Order)
		assert.True(t, topo.Has("a"))
		got, ok := topo.Node("a")
		require.True(t, ok)
		assert.Same(t, a, got)
	})

	t.Run("output that is also an upstream", func(t *testing.T) {
		a := node("a")
		b := node("b", a)

		topo, err := Build(ctx, a, b)
		require.NoError(t, err)
		assert.Equal(t, 2, topo.Len())
		assert.Equal(t, []string{"b"}, topo.Edges["a"])
	})

	t.Run("repeated upstream counts twice", func(t *testing.T) {
		a := node("a")
		b := node("b", a, a)

		topo, err := Build(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, 2, topo.Indegrees["b"])
		assert.Equal(t, []string{"b", "b"}, topo.Edges["a"])
	})

	t.Run("cycles terminate", func(t *testing.T) {
		a := node("a")
		b := node("b", a)
		a.up = []*testNode{b}

		topo, err := Build(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, 2, topo.Len())
	})

	t.Run("error cases", func(t *testing.T) {
		_, err := Build[*testNode](ctx)
		assert.ErrorIs(t, err, ErrNoOutputs)

		_, err = Build[*testNode](ctx, node("a"), nil)
		assert.ErrorIs(t, err, ErrNilNode)

		_, err = Build(ctx, node("b", nil))
		assert.ErrorIs(t, err, ErrNilNode)

		x1 := node("x")
		x2 := node("x")
		_, err = Build(ctx, node("c", x1, x2))
		assert.ErrorIs(t, err, ErrDuplicateName)
		assert.ErrorContains(t, err, `"x"`)
	})
}
