// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/unitgrid/internal/config"
	"github.com/vk/unitgrid/internal/ctxlog"
)

// translateUnit converts the HCL-specific unit schema into the agnostic model.
func (l *Loader) translateUnit(ctx context.Context, b *UnitBlock, file string) (*config.UnitSpec, error) {
	logger := ctxlog.FromContext(ctx).With("unit_kind", b.Kind, "unit_name", b.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating HCL unit to internal config model.")

	spec := &config.UnitSpec{Kind: b.Kind, Name: b.Name, Source: file}

	hasInput := isExprDefined(ctx, b.Input, "input")
	hasInputs := isExprDefined(ctx, b.Inputs, "inputs")
	switch {
	case hasInput && hasInputs:
		return nil, fmt.Errorf("unit %q: `input` and `inputs` are mutually exclusive", b.Name)
	case hasInput:
		name, err := refName(b.Input, "unit")
		if err != nil {
			return nil, fmt.Errorf("unit %q: input: %w", b.Name, err)
		}
		spec.Inputs = []string{name}
	case hasInputs:
		names, _, err := refNames(b.Inputs, "unit")
		if err != nil {
			return nil, fmt.Errorf("unit %q: inputs: %w", b.Name, err)
		}
		spec.Inputs = names
		spec.Multi = true
	}

	if isExprDefined(ctx, b.Model, "model") {
		if b.Kind != config.KindModel {
			return nil, fmt.Errorf("unit %q: `model` is only valid for units of kind %q", b.Name, config.KindModel)
		}
		name, err := refName(b.Model, "model")
		if err != nil {
			return nil, fmt.Errorf("unit %q: model: %w", b.Name, err)
		}
		spec.Model = name
	} else if b.Kind == config.KindModel {
		return nil, fmt.Errorf("unit %q: units of kind %q need a `model` reference", b.Name, config.KindModel)
	}

	args, err := l.extractArgs(b)
	if err != nil {
		return nil, err
	}
	spec.Args = args
	logger.Debug("Translated HCL unit.", "inputs", spec.Inputs, "multi", spec.Multi, "args", len(args))
	return spec, nil
}

// extractArgs evaluates the remaining attributes of a unit block as literals.
func (l *Loader) extractArgs(b *UnitBlock) (map[string]cty.Value, error) {
	if b.Remain == nil {
		return nil, nil
	}
	attrs, diags := b.Remain.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("unit %q: %w", b.Name, diags)
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make(map[string]cty.Value, len(attrs))
	for _, name := range names {
		v, diags := attrs[name].Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("unit %q: argument %q must be a literal: %w", b.Name, name, diags)
		}
		args[name] = v
	}
	return args, nil
}

// translateModel converts the HCL-specific model schema into the agnostic model.
func (l *Loader) translateModel(ctx context.Context, b *ModelBlock, file string) (*config.ModelSpec, error) {
	ctxlog.FromContext(ctx).Debug("Translating HCL model to internal config model.", "model_name", b.Name)

	inputs, inList, err := refNames(b.Inputs, "unit")
	if err != nil {
		return nil, fmt.Errorf("model %q: inputs: %w", b.Name, err)
	}
	outputs, outList, err := refNames(b.Outputs, "unit")
	if err != nil {
		return nil, fmt.Errorf("model %q: outputs: %w", b.Name, err)
	}
	return &config.ModelSpec{
		Name:        b.Name,
		Inputs:      inputs,
		InputsList:  inList,
		Outputs:     outputs,
		OutputsList: outList,
		Source:      file,
	}, nil
}
