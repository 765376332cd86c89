package model

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/unitgrid/internal/ctxlog"
	"github.com/vk/unitgrid/internal/dag"
	"github.com/vk/unitgrid/internal/layers"
	"github.com/vk/unitgrid/internal/scheduler"
	"github.com/vk/unitgrid/internal/tensor"
	"github.com/vk/unitgrid/internal/unit"
)

// passKernel forwards its first input and accepts any number of inputs.
type passKernel struct{}

func (passKernel) Kind() string { return "pass" }
func (passKernel) Build(in []tensor.Shape) (tensor.Shape, []*unit.Param, error) {
	return in[0].Clone(), nil, nil
}
func (passKernel) Forward(_ context.Context, in []*tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	return in[0], nil
}

func mustInput(t *testing.T, shape tensor.Shape, name string) *unit.Unit {
	t.Helper()
	u, err := layers.NewInput(shape, unit.WithName(name))
	require.NoError(t, err)
	return u
}

func mustDense(t *testing.T, units int, name string, prev *unit.Unit) *unit.Unit {
	t.Helper()
	u, err := layers.NewDense(units, layers.ReLU{}, unit.WithName(name))
	require.NoError(t, err)
	require.NoError(t, u.Connect(prev))
	return u
}

func mustDropout(t *testing.T, prev *unit.Unit) *unit.Unit {
	t.Helper()
	u, err := layers.NewDropout(0.8, 7)
	require.NoError(t, err)
	require.NoError(t, u.Connect(prev))
	return u
}

func paramNames(ps []*unit.Param) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

// nested builds M1 (x -> dropout -> fc1 -> dropout -> fc2) and M2, which
// feeds x through M1 as a unit and then dropout -> fc3.
func nested(t *testing.T) (m1, m2 *Model) {
	t.Helper()
	ctx := context.Background()

	x := mustInput(t, tensor.Shape{tensor.Unknown, 784}, "x")
	fc1 := mustDense(t, 800, "fc1", mustDropout(t, x))
	fc2 := mustDense(t, 800, "fc2", mustDropout(t, fc1))

	m1, err := New(ctx, "M1", unit.One(x), unit.One(fc2))
	require.NoError(t, err)

	hidden, err := m1.AsUnit()
	require.NoError(t, err)
	require.NoError(t, hidden.Connect(x))
	fc3 := mustDense(t, 10, "fc3", mustDropout(t, hidden))

	m2, err = New(ctx, "M2", unit.One(x), unit.One(fc3))
	require.NoError(t, err)
	return m1, m2
}

func TestNestedModelWeights(t *testing.T) {
	_, m2 := nested(t)

	ws, err := m2.Weights()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"fc1/weights", "fc1/biases",
		"fc2/weights", "fc2/biases",
		"fc3/weights", "fc3/biases",
	}, paramNames(ws))

	again, err := m2.Weights()
	require.NoError(t, err)
	require.Len(t, again, len(ws))
	assert.True(t, &ws[0] == &again[0], "weights must be served from the cache")

	n, err := m2.CountWeights()
	require.NoError(t, err)
	assert.Equal(t, 784*800+800+800*800+800+800*10+10, n)

	byUnit, err := m2.WeightsByUnit()
	require.NoError(t, err)
	assert.Len(t, byUnit["M1"], 4)
	assert.Len(t, byUnit["fc3"], 2)
}

func TestWeightsBeforeBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("lazily built unit is picked up after forward", func(t *testing.T) {
		fc, err := layers.NewDense(3, layers.ReLU{}, unit.WithName("fc"))
		require.NoError(t, err)
		m, err := New(ctx, "lazy", unit.One(fc), unit.One(fc))
		require.NoError(t, err)

		before, err := m.Weights()
		require.NoError(t, err)
		assert.Empty(t, before)

		_, err = m.Forward(ctx, unit.Single(tensor.Ones(tensor.Shape{2, 4})), WithTraining(false))
		require.NoError(t, err)

		after, err := m.Weights()
		require.NoError(t, err)
		assert.Equal(t, []string{"fc/weights", "fc/biases"}, paramNames(after))

		n, err := m.CountWeights()
		require.NoError(t, err)
		assert.Equal(t, 4*3+3, n)
	})

	t.Run("partially built model is recomputed until complete", func(t *testing.T) {
		a, err := layers.NewDense(3, layers.ReLU{}, unit.WithName("a"))
		require.NoError(t, err)
		b, err := layers.NewDense(2, layers.ReLU{}, unit.WithName("b"))
		require.NoError(t, err)
		_, err = a.Call(ctx, tensor.Ones(tensor.Shape{1, 4}))
		require.NoError(t, err)

		m, err := New(ctx, "partial", unit.Many(a, b), unit.Many(a, b))
		require.NoError(t, err)

		partial, err := m.Weights()
		require.NoError(t, err)
		assert.Equal(t, []string{"a/weights", "a/biases"}, paramNames(partial))
		assert.False(t, m.weightsDone)

		ones := tensor.Ones(tensor.Shape{2, 4})
		_, err = m.Forward(ctx, unit.List(ones, ones), WithTraining(false))
		require.NoError(t, err)

		full, err := m.Weights()
		require.NoError(t, err)
		assert.Equal(t, []string{"a/weights", "a/biases", "b/weights", "b/biases"}, paramNames(full))
		assert.False(t, &partial[0] == &full[0], "partial weights must not be served from the cache")
		assert.True(t, m.weightsDone)

		again, err := m.Weights()
		require.NoError(t, err)
		assert.True(t, &full[0] == &again[0], "weights must be served from the cache once every unit is built")
	})
}

func TestNestedModelForward(t *testing.T) {
	ctx := context.Background()
	m1, m2 := nested(t)
	x := tensor.Ones(tensor.Shape{2, 784})

	m2.Train()
	assert.Equal(t, unit.ModeTrain, m2.Mode())
	for _, u := range m1.Units() {
		assert.Equal(t, unit.ModeTrain, u.Mode(), "mode must reach %s inside the nested model", u.Name())
	}
	out, err := m2.Forward(ctx, unit.Single(x))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 10}, out.Tensor().Shape())

	m2.Eval()
	a, err := m2.Forward(ctx, unit.Single(x))
	require.NoError(t, err)
	b, err := m2.Forward(ctx, unit.Single(x), WithWorkers(4))
	require.NoError(t, err)
	assert.True(t, a.Tensor().EqualApprox(b.Tensor(), 1e-12), "inference must be deterministic")
}

func TestTiers(t *testing.T) {
	in := mustInput(t, tensor.Shape{tensor.Unknown, 4}, "in")
	a := mustDense(t, 4, "a", in)
	b := mustDense(t, 4, "b", a)
	cat := layers.NewConcat(-1, unit.WithName("cat"))
	require.NoError(t, cat.ConnectAll(in, b))

	m, err := New(context.Background(), "skip", unit.One(in), unit.One(cat))
	require.NoError(t, err)

	tiers := m.Tiers()
	assert.Equal(t, 4, tiers.Len())
	assert.Equal(t, 0, tiers.Depth("in"))
	assert.Equal(t, 3, tiers.Depth("cat"))
	assert.Equal(t, []string{"cat", "a"}, m.Edges()["in"])
	assert.Contains(t, m.String(), "tier 3: concat(name=\"cat\")")

	u, ok := m.Unit("b")
	require.True(t, ok)
	assert.Same(t, b, u)
}

func TestListPorts(t *testing.T) {
	ctx := context.Background()
	a := mustInput(t, tensor.Shape{tensor.Unknown, 2}, "a")
	b := mustInput(t, tensor.Shape{tensor.Unknown, 3}, "b")
	cat := layers.NewConcat(-1, unit.WithName("cat"))
	require.NoError(t, cat.ConnectAll(a, b))
	fc := mustDense(t, 2, "fc", cat)

	m, err := New(ctx, "multi", unit.Many(a, b), unit.Many(fc, cat))
	require.NoError(t, err)

	out, err := m.Forward(ctx, unit.List(tensor.Ones(tensor.Shape{1, 2}), tensor.Ones(tensor.Shape{1, 3})), WithTraining(false))
	require.NoError(t, err)
	require.True(t, out.IsList())
	assert.Equal(t, tensor.Shape{1, 2}, out.Tensors()[0].Shape())
	assert.Equal(t, tensor.Shape{1, 5}, out.Tensors()[1].Shape())

	_, err = m.Forward(ctx, unit.Single(tensor.Ones(tensor.Shape{1, 2})), WithTraining(false))
	assert.ErrorIs(t, err, unit.ErrShapeMismatch)
}

func TestModeChecks(t *testing.T) {
	ctx := context.Background()
	newModel := func(t *testing.T) (*Model, *unit.Unit) {
		in := mustInput(t, tensor.Shape{tensor.Unknown, 2}, "in")
		drop := mustDropout(t, in)
		m, err := New(ctx, "", unit.One(in), unit.One(drop))
		require.NoError(t, err)
		return m, drop
	}
	x := tensor.Ones(tensor.Shape{1, 2})

	t.Run("undefined", func(t *testing.T) {
		m, _ := newModel(t)
		_, err := m.Forward(ctx, unit.Single(x))
		assert.ErrorIs(t, err, ErrModeUndefined)
	})

	t.Run("explicit mode on unset model reaches units only", func(t *testing.T) {
		m, drop := newModel(t)
		_, err := m.Forward(ctx, unit.Single(x), WithTraining(true))
		require.NoError(t, err)
		assert.Equal(t, unit.ModeTrain, drop.Mode())
		assert.Equal(t, unit.ModeUnset, m.Mode())

		_, err = m.Forward(ctx, unit.Single(x))
		assert.ErrorIs(t, err, ErrModeUndefined)
	})

	t.Run("conflict", func(t *testing.T) {
		m, _ := newModel(t)
		m.Train()
		_, err := m.Forward(ctx, unit.Single(x), WithTraining(false))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrModeConflict)

		var conflict *ModeConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, unit.ModeTrain, conflict.Graph)
		assert.Equal(t, unit.ModeInfer, conflict.Call)
	})

	t.Run("redundant mode logs a warning", func(t *testing.T) {
		m, drop := newModel(t)
		var buf bytes.Buffer
		logCtx := ctxlog.WithLogger(ctx, slog.New(slog.NewTextHandler(&buf, nil)))

		m.Eval()
		assert.Equal(t, unit.ModeInfer, drop.Mode())
		out, err := m.Forward(logCtx, unit.Single(x), WithTraining(false))
		require.NoError(t, err)
		assert.Equal(t, x.Data(), out.Tensor().Data())
		assert.Contains(t, buf.String(), "level=WARN")
		assert.Contains(t, buf.String(), "redundantly")
	})

	t.Run("aliases", func(t *testing.T) {
		m, _ := newModel(t)
		m.Test()
		assert.Equal(t, unit.ModeInfer, m.Mode())
		m.Train()
		m.Infer()
		assert.Equal(t, unit.ModeInfer, m.Mode())
	})
}

func TestConstructionErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty and nil ports", func(t *testing.T) {
		in := mustInput(t, tensor.Shape{tensor.Unknown, 2}, "in")
		_, err := New(ctx, "m", unit.Many(), unit.One(in))
		assert.ErrorIs(t, err, ErrConstruction)

		_, err = New(ctx, "m", unit.One(in), unit.Many(in, nil))
		assert.ErrorIs(t, err, ErrConstruction)
	})

	t.Run("unreachable input", func(t *testing.T) {
		in := mustInput(t, tensor.Shape{tensor.Unknown, 2}, "in")
		other := mustInput(t, tensor.Shape{tensor.Unknown, 2}, "other")
		fc := mustDense(t, 2, "fc", in)

		_, err := New(ctx, "m", unit.One(other), unit.One(fc))
		assert.ErrorIs(t, err, ErrConstruction)
		assert.ErrorContains(t, err, `"other"`)
	})

	t.Run("undeclared source", func(t *testing.T) {
		a := mustInput(t, tensor.Shape{tensor.Unknown, 2}, "a")
		b := mustInput(t, tensor.Shape{tensor.Unknown, 2}, "b")
		cat := layers.NewConcat(-1)
		require.NoError(t, cat.ConnectAll(a, b))

		_, err := New(ctx, "m", unit.One(a), unit.One(cat))
		assert.ErrorIs(t, err, ErrConstruction)
		assert.ErrorIs(t, err, scheduler.ErrSourceMismatch)
	})

	t.Run("duplicate names", func(t *testing.T) {
		in := mustInput(t, tensor.Shape{tensor.Unknown, 2}, "in")
		l := mustDense(t, 2, "same", in)
		r := mustDense(t, 2, "same", in)
		cat := layers.NewConcat(-1)
		require.NoError(t, cat.ConnectAll(l, r))

		_, err := New(ctx, "m", unit.One(in), unit.One(cat))
		assert.ErrorIs(t, err, ErrConstruction)
		assert.ErrorIs(t, err, dag.ErrDuplicateName)
	})

	t.Run("cycle", func(t *testing.T) {
		in := mustInput(t, tensor.Shape{tensor.Unknown, 2}, "in")
		p1 := unit.New(passKernel{}, unit.WithName("p1"))
		require.NoError(t, p1.Build(tensor.Shape{tensor.Unknown, 2}, tensor.Shape{tensor.Unknown, 2}))
		p2 := unit.New(passKernel{}, unit.WithName("p2"))
		require.NoError(t, p2.Connect(p1))
		require.NoError(t, p1.ConnectAll(in, p2))

		_, err := New(ctx, "m", unit.One(in), unit.One(p2))
		assert.ErrorIs(t, err, ErrConstruction)
		assert.ErrorIs(t, err, scheduler.ErrCycleDetected)

		var cycle *scheduler.CycleError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"p1", "p2"}, cycle.Remaining)
	})
}

func TestAsUnit(t *testing.T) {
	ctx := context.Background()
	in := mustInput(t, tensor.Shape{tensor.Unknown, 2}, "in")
	fc := mustDense(t, 3, "fc", in)

	m, err := New(ctx, "inner", unit.One(in), unit.One(fc))
	require.NoError(t, err)
	u1, err := m.AsUnit()
	require.NoError(t, err)
	u2, err := m.AsUnit()
	require.NoError(t, err)
	assert.Same(t, u1, u2)
	assert.Equal(t, "inner", u1.Name())
	assert.Equal(t, "model", u1.Kind())

	wrong := mustInput(t, tensor.Shape{tensor.Unknown, 5}, "wrong")
	assert.ErrorIs(t, u1.Connect(wrong), unit.ErrShapeMismatch)

	multi, err := New(ctx, "multi", unit.One(in), unit.Many(fc))
	require.NoError(t, err)
	_, err = multi.AsUnit()
	assert.ErrorIs(t, err, ErrConstruction)

	imp, err := NewImperative(ctx, "imp", func(context.Context, unit.Value) (unit.Value, error) {
		return unit.Value{}, nil
	})
	require.NoError(t, err)
	_, err = imp.AsUnit()
	assert.ErrorIs(t, err, ErrConstruction)
}

func TestImperative(t *testing.T) {
	ctx := context.Background()
	fc, err := layers.NewDense(3, nil, unit.WithName("imp_fc"))
	require.NoError(t, err)
	drop, err := layers.NewDropout(0.5, 1, unit.WithName("imp_drop"))
	require.NoError(t, err)

	m, err := NewImperative(ctx, "imp", func(ctx context.Context, in unit.Value) (unit.Value, error) {
		h, err := drop.Call(ctx, in.Tensor())
		if err != nil {
			return unit.Value{}, err
		}
		out, err := fc.Call(ctx, h)
		return unit.Single(out), err
	})
	require.NoError(t, err)
	require.NoError(t, m.Register(drop, fc))
	assert.True(t, m.IsImperative())

	_, err = m.Weights()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuildIncomplete)
	var incomplete *BuildIncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, "imp_drop", incomplete.Unit)

	m.Eval()
	assert.Equal(t, unit.ModeInfer, fc.Mode())
	out, err := m.Forward(ctx, unit.Single(tensor.Ones(tensor.Shape{2, 4})))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, out.Tensor().Shape())

	ws, err := m.Weights()
	require.NoError(t, err)
	assert.Equal(t, []string{"imp_fc/weights", "imp_fc/biases"}, paramNames(ws))

	t.Run("register errors", func(t *testing.T) {
		assert.ErrorIs(t, m.Register(nil), ErrConstruction)
		assert.ErrorIs(t, m.Register(fc), ErrConstruction)

		in := mustInput(t, tensor.Shape{tensor.Unknown, 2}, "in")
		decl, err := New(ctx, "decl", unit.One(in), unit.One(in))
		require.NoError(t, err)
		assert.ErrorIs(t, decl.Register(fc), ErrConstruction)
	})

	_, err = NewImperative(ctx, "nil", nil)
	assert.ErrorIs(t, err, ErrConstruction)
}
