package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/unitgrid/internal/builder"
	"github.com/vk/unitgrid/internal/model"
	"github.com/vk/unitgrid/internal/unit"
)

// Run loads the graph definitions, builds every model and either prints the
// selected model's weights or runs it once and prints its outputs.
func (a *App) Run(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	a.logger.Debug("App.Run method started.")

	def, err := a.loader.Load(ctx, a.config.GraphPath)
	if err != nil {
		return fmt.Errorf("failed to load graph definitions: %w", err)
	}
	a.logger.Debug("Graph definitions loaded.", "units", len(def.Units), "models", len(def.Models))

	g, err := builder.Build(ctx, def, a.registry)
	if err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}

	m, err := a.selectModel(g)
	if err != nil {
		return err
	}
	a.logger.Info("Model selected.", "model", m.Name(), "tiers", m.Tiers().Len())
	a.logger.Debug("Model schedule.", "tiers", m.String())

	if a.config.Weights {
		return a.printWeights(m)
	}

	value, err := a.input(m)
	if err != nil {
		return err
	}

	a.logger.Info("🚀 Starting execution...", "train", a.config.Train, "workers", a.config.WorkerCount)
	out, err := m.Forward(ctx, value,
		model.WithTraining(a.config.Train),
		model.WithWorkers(a.config.WorkerCount),
	)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("🏁 Execution finished.")

	return writeOutputs(a.outW, m.Outputs(), out)
}

func (a *App) selectModel(g *builder.Graph) (*model.Model, error) {
	name := a.config.ModelName
	if name == "" {
		top := g.TopModels()
		if len(top) != 1 {
			return nil, fmt.Errorf("-model is required when the definitions declare %d top-level models (%s)", len(top), strings.Join(top, ", "))
		}
		name = top[0]
	}
	m, ok := g.Model(name)
	if !ok {
		return nil, fmt.Errorf("model %q is not declared (have: %s)", name, strings.Join(g.ModelNames(), ", "))
	}
	return m, nil
}

func (a *App) input(m *model.Model) (unit.Value, error) {
	ports := m.Inputs()
	if a.config.InputPath == "" {
		return asValue(ports, onesFor(ports, a.config.Batch)), nil
	}
	ts, err := readInputs(a.config.InputPath)
	if err != nil {
		return unit.Value{}, err
	}
	return asValue(ports, ts), nil
}

func (a *App) printWeights(m *model.Model) error {
	ws, err := m.Weights()
	if err != nil {
		return fmt.Errorf("failed to collect weights: %w", err)
	}
	byUnit, err := m.WeightsByUnit()
	if err != nil {
		return fmt.Errorf("failed to collect weights: %w", err)
	}
	units := make([]string, 0, len(byUnit))
	for name := range byUnit {
		units = append(units, name)
	}
	sort.Strings(units)

	total := 0
	for _, w := range ws {
		fmt.Fprintf(a.outW, "%-32s %s\n", w.Name, w.Shape())
		total += w.Size()
	}
	fmt.Fprintf(a.outW, "units with weights: %s\n", strings.Join(units, ", "))
	fmt.Fprintf(a.outW, "total parameters: %d\n", total)
	return nil
}
