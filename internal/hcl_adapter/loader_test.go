package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func writeHCL(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const nestedHCL = `
unit "input" "x" {
  shape = [-1, 4]
}

unit "dense" "fc1" {
  units = 3
  act   = "relu"
  input = unit.x
}

model "m1" {
  inputs  = unit.x
  outputs = unit.fc1
}

unit "input" "y" {
  shape = [-1, 4]
}

unit "model" "m1_unit" {
  model = model.m1
  input = unit.y
}

unit "concat" "cat" {
  inputs = [unit.m1_unit, unit.y]
  axis   = -1
}

model "m2" {
  inputs  = [unit.y]
  outputs = unit.cat
}
`

func TestLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeHCL(t, dir, "graph.hcl", nestedHCL)

	def, err := NewLoader().Load(ctx, dir)
	require.NoError(t, err)
	require.Len(t, def.Units, 6)
	require.Len(t, def.Models, 2)

	fc1, ok := def.Unit("fc1")
	require.True(t, ok)
	require.Equal(t, "dense", fc1.Kind)
	require.Equal(t, []string{"x"}, fc1.Inputs)
	require.False(t, fc1.Multi)
	require.True(t, fc1.Args["units"].Equals(cty.NumberIntVal(3)).True())
	require.True(t, fc1.Args["act"].Equals(cty.StringVal("relu")).True())
	require.NotContains(t, fc1.Args, "input")

	x, _ := def.Unit("x")
	require.Empty(t, x.Inputs)
	require.Contains(t, x.Args, "shape")

	wrapped, _ := def.Unit("m1_unit")
	require.Equal(t, "m1", wrapped.Model)
	require.Empty(t, wrapped.Args)

	cat, _ := def.Unit("cat")
	require.Equal(t, []string{"m1_unit", "y"}, cat.Inputs)
	require.True(t, cat.Multi)

	m1, _ := def.Model("m1")
	require.Equal(t, []string{"x"}, m1.Inputs)
	require.False(t, m1.InputsList)
	require.Equal(t, []string{"fc1"}, m1.Outputs)

	m2, _ := def.Model("m2")
	require.True(t, m2.InputsList)
	require.False(t, m2.OutputsList)
	require.Equal(t, filepath.Join(dir, "graph.hcl"), m2.Source)
}

func TestLoadMultipleFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := writeHCL(t, dir, "a.hcl", `unit "input" "x" { shape = [-1, 2] }`)
	writeHCL(t, dir, "b.hcl", `
unit "flatten" "f" { input = unit.x }
model "m" {
  inputs  = unit.x
  outputs = unit.f
}
`)

	def, err := NewLoader().Load(ctx, a, dir)
	require.NoError(t, err)
	require.Len(t, def.Units, 2)
	require.Equal(t, "x", def.Units[0].Name)
	require.Equal(t, "f", def.Units[1].Name)
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "input and inputs together",
			content: `unit "concat" "c" {` + "\n" + `input = unit.a` + "\n" + `inputs = [unit.b]` + "\n}",
			errMsg:  "mutually exclusive",
		},
		{
			name:    "reference with wrong root",
			content: `unit "dense" "d" {` + "\n" + `input = model.a` + "\n}",
			errMsg:  "expected a reference like unit.<name>",
		},
		{
			name:    "model unit without model",
			content: `unit "model" "m" {` + "\n" + `input = unit.a` + "\n}",
			errMsg:  "need a `model` reference",
		},
		{
			name:    "model attribute on plain unit",
			content: `unit "dense" "d" {` + "\n" + `model = model.a` + "\n}",
			errMsg:  "only valid for units of kind",
		},
		{
			name:    "non-literal argument",
			content: `unit "dense" "d" {` + "\n" + `units = unit.a` + "\n}",
			errMsg:  "must be a literal",
		},
		{
			name:    "empty reference list",
			content: `unit "concat" "c" {` + "\n" + `inputs = []` + "\n}",
			errMsg:  "must not be empty",
		},
		{
			name:    "top-level attribute",
			content: `version = 2`,
			errMsg:  "unexpected top-level attribute",
		},
		{
			name:    "syntax error",
			content: `unit "dense" {`,
			errMsg:  "failed to parse HCL file",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeHCL(t, dir, "bad.hcl", tc.content)
			_, err := NewLoader().Load(ctx, dir)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.errMsg)
		})
	}

	t.Run("duplicate unit across files", func(t *testing.T) {
		dir := t.TempDir()
		writeHCL(t, dir, "a.hcl", `unit "input" "x" { shape = [1] }`)
		writeHCL(t, dir, "b.hcl", `unit "input" "x" { shape = [2] }`)
		_, err := NewLoader().Load(ctx, dir)
		require.ErrorContains(t, err, `unit "x" declared twice`)
	})

	t.Run("no files", func(t *testing.T) {
		_, err := NewLoader().Load(ctx, t.TempDir())
		require.ErrorContains(t, err, "no .hcl files found")
	})
}
