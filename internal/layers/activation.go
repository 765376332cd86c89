package layers

import (
	"fmt"
	"math"
)

// Activation is an element-wise non-linearity applied after a layer's affine
// transform.
type Activation interface {
	Activate(x float64) float64
	Name() string
}

// Identity passes values through.
type Identity struct{}

func (Identity) Activate(x float64) float64 { return x }
func (Identity) Name() string               { return "identity" }

// ReLU computes max(0, x).
type ReLU struct{}

func (ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}
func (ReLU) Name() string { return "relu" }

// Sigmoid computes 1 / (1 + e^-x).
type Sigmoid struct{}

func (Sigmoid) Activate(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
func (Sigmoid) Name() string               { return "sigmoid" }

// Tanh computes the hyperbolic tangent.
type Tanh struct{}

func (Tanh) Activate(x float64) float64 { return math.Tanh(x) }
func (Tanh) Name() string               { return "tanh" }

// Sign maps negative values to -1 and everything else to 1.
type Sign struct{}

func (Sign) Activate(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
func (Sign) Name() string { return "sign" }

// ActivationByName looks up an activation. The empty name is Identity.
func ActivationByName(name string) (Activation, error) {
	switch name {
	case "", "identity", "linear":
		return Identity{}, nil
	case "relu":
		return ReLU{}, nil
	case "sigmoid":
		return Sigmoid{}, nil
	case "tanh":
		return Tanh{}, nil
	case "sign":
		return Sign{}, nil
	default:
		return nil, fmt.Errorf("unknown activation %q", name)
	}
}
