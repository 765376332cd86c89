package app

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GraphPath string // hcl file or directory
	ModelName string // model to run; empty selects the only top-level model
	InputPath string // JSON tensors; empty feeds ones
	Batch     int    // batch size of generated inputs
	Train     bool
	Weights   bool // print the parameter listing instead of running

	LogFormat   string
	LogLevel    string
	WorkerCount int
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GraphPath == "" {
		return nil, errors.New("GraphPath is a required configuration field and cannot be empty")
	}
	if cfg.Batch == 0 {
		cfg.Batch = 1
	}
	if cfg.Batch < 0 {
		return nil, fmt.Errorf("batch must be positive, got %d", cfg.Batch)
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = DefaultWorkers()
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.WorkerCount)
	}
	return &cfg, nil
}

// DefaultWorkers is the number of logical cores, as reported by cpuid, or by
// the Go runtime when cpuid cannot detect it.
func DefaultWorkers() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}
