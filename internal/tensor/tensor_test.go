package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func TestNew(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		x, err := New(Shape{2, 3}, seq(6))
		require.NoError(t, err)
		assert.Equal(t, Shape{2, 3}, x.Shape())
		assert.Equal(t, 5.0, x.At(1, 2))
	})

	t.Run("error cases", func(t *testing.T) {
		_, err := New(Shape{2, 3}, seq(5))
		assert.ErrorIs(t, err, ErrShape)

		_, err = New(Shape{Unknown, 3}, seq(3))
		assert.ErrorIs(t, err, ErrShape)
	})
}

func TestOnesTreatsUnknownAsOne(t *testing.T) {
	x := Ones(Shape{Unknown, 4})
	assert.Equal(t, Shape{1, 4}, x.Shape())
	assert.Equal(t, 4.0, x.Sum())
}

func TestShapeHelpers(t *testing.T) {
	s := Shape{Unknown, 28, 28}
	assert.Equal(t, 3, s.Rank())
	assert.Equal(t, Unknown, s.Size())
	assert.False(t, s.Known())
	assert.True(t, s.Compatible(Shape{5, 28, 28}))
	assert.False(t, s.Compatible(Shape{5, 28, 27}))
	assert.False(t, s.Compatible(Shape{5, 28}))
	assert.Equal(t, "[?, 28, 28]", s.String())
	assert.Equal(t, 28, s.Last())
}

func TestResolveReshape(t *testing.T) {
	out, err := ResolveReshape(Shape{2, 3, 4}, Shape{2, Unknown})
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 12}, out)

	out, err = ResolveReshape(Shape{Unknown, 3, 4}, Shape{Unknown, 12})
	require.NoError(t, err)
	assert.Equal(t, Shape{Unknown, 12}, out)

	_, err = ResolveReshape(Shape{2, 3}, Shape{4, 2})
	assert.ErrorIs(t, err, ErrShape)

	_, err = ResolveReshape(Shape{2, 3}, Shape{Unknown, Unknown})
	assert.ErrorIs(t, err, ErrShape)
}

func TestMatrixView(t *testing.T) {
	x, err := New(Shape{2, 2}, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	m, err := x.Matrix()
	require.NoError(t, err)
	m.Set(0, 0, 9)
	assert.Equal(t, 9.0, x.At(0, 0), "matrix view must share storage")

	y := FromMatrix(m.T())
	assert.Equal(t, []float64{9, 3, 2, 4}, y.Data())

	_, err = Ones(Shape{2}).Matrix()
	assert.ErrorIs(t, err, ErrShape)
}

func TestTranspose(t *testing.T) {
	x, err := New(Shape{2, 3}, seq(6))
	require.NoError(t, err)

	y, err := x.Transpose([]int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, Shape{3, 2}, y.Shape())
	assert.Equal(t, []float64{0, 3, 1, 4, 2, 5}, y.Data())

	_, err = x.Transpose([]int{0, 0})
	assert.ErrorIs(t, err, ErrShape)
}

func TestExpandDimsAndTile(t *testing.T) {
	x, err := New(Shape{2}, []float64{1, 2})
	require.NoError(t, err)

	e, err := x.ExpandDims(0)
	require.NoError(t, err)
	assert.Equal(t, Shape{1, 2}, e.Shape())

	e, err = x.ExpandDims(-1)
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 1}, e.Shape())

	tiled, err := e.Tile([]int{1, 3})
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 3}, tiled.Shape())
	assert.Equal(t, []float64{1, 1, 1, 2, 2, 2}, tiled.Data())
}

func TestConcat(t *testing.T) {
	a, _ := New(Shape{2, 2}, []float64{1, 2, 3, 4})
	b, _ := New(Shape{2, 1}, []float64{5, 6})

	c, err := Concat(-1, a, b)
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 3}, c.Shape())
	assert.Equal(t, []float64{1, 2, 5, 3, 4, 6}, c.Data())

	_, err = Concat(0, a, b)
	assert.ErrorIs(t, err, ErrShape)
}

func TestScaleAndApply(t *testing.T) {
	x, _ := New(Shape{3}, []float64{-1, 0, 2})
	assert.Equal(t, []float64{-2, 0, 4}, x.Scale(2).Data())
	assert.Equal(t, []float64{1, 0, 2}, x.Apply(func(v float64) float64 {
		if v < 0 {
			return -v
		}
		return v
	}).Data())
	assert.Equal(t, []float64{-1, 0, 2}, x.Data(), "source must be untouched")
	assert.True(t, x.EqualApprox(x.Clone(), 1e-12))
}
