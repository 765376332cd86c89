package integration_tests

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/unitgrid/internal/app"
	"github.com/vk/unitgrid/internal/registry"
	"github.com/vk/unitgrid/internal/tensor"
	"github.com/vk/unitgrid/internal/testutil"
	"github.com/vk/unitgrid/internal/unit"
)

var errBoom = errors.New("boom")

type failingKernel struct{}

func (failingKernel) Kind() string { return "failing" }
func (failingKernel) Build(in []tensor.Shape) (tensor.Shape, []*unit.Param, error) {
	return in[0].Clone(), nil, nil
}
func (failingKernel) Forward(context.Context, []*tensor.Tensor, bool) (*tensor.Tensor, error) {
	return nil, errBoom
}

// Test for: a failing unit fails the run and its dependents never run.
func TestErrorHandling_UnitFailureSkipsDependents(t *testing.T) {
	// --- Arrange ---
	graphHCL := `
		unit "input" "x" {
			shape = [-1, 2]
		}
		unit "failing" "bad" {
			input = unit.x
		}
		unit "flatten" "after" {
			input = unit.bad
		}
		model "m" {
			inputs  = unit.x
			outputs = unit.after
		}
	`
	failing := &testutil.SimpleModule{
		Kind: "failing",
		Registered: &registry.RegisteredKind{
			NewArgs: func() any { return new(struct{}) },
			Build:   func(any) (unit.Kernel, error) { return failingKernel{}, nil },
		},
	}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": graphHCL}, app.Config{WorkerCount: 2}, failing)

	// --- Assert ---
	require.ErrorIs(t, result.Err, errBoom)
	require.ErrorContains(t, result.Err, "execution failed")
	testutil.AssertUnitRan(t, result, "x", 1)
	testutil.AssertUnitNotRan(t, result, "after")
}
