// Package config defines the format-agnostic representation of graph
// definition files, along with the Loader interface that format-specific
// packages implement.
//
// A Definition lists declared units and models by name. References between
// them are plain names; the builder package resolves them into live units
// and models. Concrete loaders, such as for HCL, are provided in separate
// packages.
package config
