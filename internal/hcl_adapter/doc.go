// Package hcl_adapter loads graph definition files written in HCL and
// translates them into the format-agnostic config.Definition.
//
// A file may declare any number of `unit` and `model` blocks:
//
//	unit "input" "x" {
//	  shape = [-1, 784]
//	}
//	unit "dense" "fc1" {
//	  units = 800
//	  act   = "relu"
//	  input = unit.x
//	}
//	model "classifier" {
//	  inputs  = unit.x
//	  outputs = unit.fc1
//	}
//
// `input` references one upstream unit and `inputs` an ordered list; they are
// mutually exclusive. Units of kind "model" reference a model block with
// `model = model.<name>`. Every other attribute must be a literal and is
// passed to the unit kind as an argument.
package hcl_adapter
