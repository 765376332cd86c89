package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/unitgrid/internal/registry"
	"github.com/vk/unitgrid/internal/tensor"
	"github.com/vk/unitgrid/internal/unit"
)

// MockSleeperModule is a shared, self-contained module for concurrency tests.
// Its "sleeper" kind forwards its first input after sleeping and records the
// execution time of each call under the unit's id argument.
type MockSleeperModule struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(completionChan chan<- string, sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Record returns the execution record of id, if any.
func (m *MockSleeperModule) Record(id string) (*ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ExecutionTimes[id]
	return r, ok
}

// Register registers the "sleeper" unit kind.
func (m *MockSleeperModule) Register(r *registry.Registry) {
	type sleeperArgs struct {
		ID string `arg:"id,required"`
	}

	r.RegisterKind("sleeper", &registry.RegisteredKind{
		NewArgs: func() any { return new(sleeperArgs) },
		Build: func(a any) (unit.Kernel, error) {
			return &sleeperKernel{module: m, id: a.(*sleeperArgs).ID}, nil
		},
	})
}

type sleeperKernel struct {
	module *MockSleeperModule
	id     string
}

func (k *sleeperKernel) Kind() string { return "sleeper" }

func (k *sleeperKernel) Build(in []tensor.Shape) (tensor.Shape, []*unit.Param, error) {
	if len(in) == 0 {
		return nil, nil, fmt.Errorf("sleeper %q needs at least one input", k.id)
	}
	return in[0].Clone(), nil, nil
}

func (k *sleeperKernel) Forward(ctx context.Context, in []*tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	m := k.module
	startTime := time.Now()
	select {
	case <-time.After(m.sleepDuration):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	endTime := time.Now()

	m.mu.Lock()
	m.ExecutionTimes[k.id] = &ExecutionRecord{Start: startTime, End: endTime}
	m.mu.Unlock()

	if m.completionChan != nil {
		m.completionChan <- k.id
	}
	return in[0], nil
}
