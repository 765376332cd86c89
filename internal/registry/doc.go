// Package registry maps the unit kinds named in graph definition files
// (e.g., "dense") to the Go code that builds their kernels.
//
// Every kind registers a constructor for its argument struct and a build
// function. Argument structs declare the attributes they accept with `arg`
// struct tags; attribute values arrive as cty values from the definition
// loader and are converted into the tagged fields before the build function
// runs, so unknown, missing or mistyped attributes are reported up front.
package registry
