package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/unitgrid/internal/config"
	"github.com/vk/unitgrid/internal/ctxlog"
	"github.com/vk/unitgrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under paths and merges their blocks.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Definition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.Collect(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	def := &config.Definition{}
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		if err := checkRemain(root.Remain); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}

		part := &config.Definition{}
		for _, b := range root.Units {
			spec, err := l.translateUnit(ctx, b, file)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			part.Units = append(part.Units, spec)
		}
		for _, b := range root.Models {
			spec, err := l.translateModel(ctx, b, file)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			part.Models = append(part.Models, spec)
		}
		if err := def.Merge(part); err != nil {
			return nil, err
		}
	}

	logger.Debug("HCL loading complete.", "units", len(def.Units), "models", len(def.Models))
	return def, nil
}
