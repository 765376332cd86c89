package unit

// Mode is the train/inference flag of a unit or a graph.
type Mode int32

const (
	ModeUnset Mode = iota
	ModeTrain
	ModeInfer
)

// ModeOf maps a training flag to a Mode.
func ModeOf(training bool) Mode {
	if training {
		return ModeTrain
	}
	return ModeInfer
}

// IsSet reports whether the mode is Train or Infer.
func (m Mode) IsSet() bool { return m == ModeTrain || m == ModeInfer }

func (m Mode) String() string {
	switch m {
	case ModeTrain:
		return "train"
	case ModeInfer:
		return "infer"
	default:
		return "unset"
	}
}
