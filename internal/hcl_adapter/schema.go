package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Units  []*UnitBlock  `hcl:"unit,block"`
	Models []*ModelBlock `hcl:"model,block"`
	Remain hcl.Body      `hcl:",remain"`
}

// UnitBlock is the HCL schema of a `unit` block.
type UnitBlock struct {
	Kind   string         `hcl:"kind,label"`
	Name   string         `hcl:"name,label"`
	Input  hcl.Expression `hcl:"input,optional"`
	Inputs hcl.Expression `hcl:"inputs,optional"`
	Model  hcl.Expression `hcl:"model,optional"`
	Remain hcl.Body       `hcl:",remain"`
}

// ModelBlock is the HCL schema of a `model` block.
type ModelBlock struct {
	Name    string         `hcl:"name,label"`
	Inputs  hcl.Expression `hcl:"inputs"`
	Outputs hcl.Expression `hcl:"outputs"`
}
