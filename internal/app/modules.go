package app

import (
	"github.com/vk/unitgrid/internal/layers"
	"github.com/vk/unitgrid/internal/registry"
)

// coreModules is the definitive list of all unit kind modules that are
// compiled into the unitgrid binary.
var coreModules = []registry.Module{
	layers.Module{},
}
