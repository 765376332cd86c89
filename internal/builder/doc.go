/*
Package builder turns a format-agnostic config.Definition into live units and
models. It is the bridge between the loaders (such as hcl_adapter) and the
model package.

# How It Works

Every unit and model declaration becomes a node of a small dependency graph:

  - a unit depends on the units it reads from,
  - a unit of kind "model" also depends on the model it wraps,
  - a model depends on its declared input and output units.

The graph is ordered with the same dag and scheduler packages that order a
model's units, so a reference cycle between declarations is reported as
scheduler.ErrCycleDetected. Declarations are then materialized tier by tier:
kernels come from the registry, units are built or connected as soon as
their upstream exists, and models are constructed once their units are.
*/
package builder
