package model

import (
	"errors"
	"fmt"

	"github.com/vk/unitgrid/internal/unit"
)

var (
	// ErrConstruction wraps every failure to construct a model.
	ErrConstruction = errors.New("model construction failed")
	// ErrModeUndefined is returned by Forward when neither the call nor the
	// model sets a train/inference mode.
	ErrModeUndefined = errors.New("training / inference mode not defined; pass WithTraining or call Train/Eval before forward")
	// ErrModeConflict matches every *ModeConflictError.
	ErrModeConflict = errors.New("training / inference mode mismatch")
	// ErrBuildIncomplete matches every *BuildIncompleteError.
	ErrBuildIncomplete = errors.New("build incomplete")
)

// ModeConflictError is returned when a forward call asks for a mode other
// than the one set on the model.
type ModeConflictError struct {
	Model string
	Graph unit.Mode
	Call  unit.Mode
}

func (e *ModeConflictError) Error() string {
	return fmt.Sprintf("%s: model %q is in %s mode but the call requested %s; call Train or Eval first",
		ErrModeConflict, e.Model, e.Graph, e.Call)
}

func (e *ModeConflictError) Is(target error) bool { return target == ErrModeConflict }

// BuildIncompleteError is returned when weights are requested from an
// imperative model whose child unit has not been built yet.
type BuildIncompleteError struct {
	Model string
	Unit  string
}

func (e *BuildIncompleteError) Error() string {
	return fmt.Sprintf("%s: unit %q of model %q has not been built; call the model or build its units first",
		ErrBuildIncomplete, e.Unit, e.Model)
}

func (e *BuildIncompleteError) Is(target error) bool { return target == ErrBuildIncomplete }

func constructionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConstruction, fmt.Sprintf(format, args...))
}
