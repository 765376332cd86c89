package tensor

import (
	"fmt"
	"strings"
)

// Unknown marks a dimension whose size is only known at run time, usually the
// batch dimension of an input.
const Unknown = -1

// Shape is the dimension list of a tensor. Declared shapes may contain Unknown.
type Shape []int

// Rank returns the number of dimensions.
func (s Shape) Rank() int { return len(s) }

// Size returns the number of elements. It is -1 if any dimension is Unknown.
func (s Shape) Size() int {
	n := 1
	for _, d := range s {
		if d == Unknown {
			return Unknown
		}
		n *= d
	}
	return n
}

// Known reports whether every dimension has a concrete size.
func (s Shape) Known() bool {
	for _, d := range s {
		if d == Unknown {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// Equal reports whether both shapes have the same dimensions.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Compatible reports whether o can stand for s, treating Unknown on either
// side as a wildcard.
func (s Shape) Compatible(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != Unknown && o[i] != Unknown && s[i] != o[i] {
			return false
		}
	}
	return true
}

// Concrete replaces every Unknown dimension with 1.
func (s Shape) Concrete() Shape {
	out := s.Clone()
	for i, d := range out {
		if d == Unknown {
			out[i] = 1
		}
	}
	return out
}

// Last returns the size of the innermost dimension.
func (s Shape) Last() int {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		if d == Unknown {
			parts[i] = "?"
			continue
		}
		parts[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Axis normalizes a possibly negative axis against a rank.
func Axis(axis, rank int) (int, error) {
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return 0, fmt.Errorf("%w: axis %d out of range for rank %d", ErrShape, axis, rank)
	}
	return axis, nil
}

// ResolveReshape returns the shape produced by reshaping in to target. At most
// one target dimension may be Unknown; it is inferred when in is fully known.
func ResolveReshape(in, target Shape) (Shape, error) {
	if len(target) == 0 {
		return nil, fmt.Errorf("%w: reshape target must not be empty", ErrShape)
	}
	free := -1
	known := 1
	for i, d := range target {
		switch {
		case d == Unknown:
			if free >= 0 {
				return nil, fmt.Errorf("%w: reshape target %s has more than one unknown dimension", ErrShape, target)
			}
			free = i
		case d <= 0:
			return nil, fmt.Errorf("%w: reshape target %s has a non-positive dimension", ErrShape, target)
		default:
			known *= d
		}
	}
	out := target.Clone()
	if !in.Known() {
		return out, nil
	}
	size := in.Size()
	if free < 0 {
		if known != size {
			return nil, fmt.Errorf("%w: cannot reshape %s into %s", ErrShape, in, target)
		}
		return out, nil
	}
	if size%known != 0 {
		return nil, fmt.Errorf("%w: cannot reshape %s into %s", ErrShape, in, target)
	}
	out[free] = size / known
	return out, nil
}

// TransposeShape permutes the dimensions of s.
func TransposeShape(s Shape, perm []int) (Shape, error) {
	if len(perm) != len(s) {
		return nil, fmt.Errorf("%w: permutation %v does not match rank %d", ErrShape, perm, len(s))
	}
	seen := make([]bool, len(perm))
	out := make(Shape, len(s))
	for i, p := range perm {
		if p < 0 || p >= len(s) || seen[p] {
			return nil, fmt.Errorf("%w: invalid permutation %v", ErrShape, perm)
		}
		seen[p] = true
		out[i] = s[p]
	}
	return out, nil
}

// ExpandShape inserts a dimension of size 1 at axis. Negative axes count from
// the end of the result, so -1 appends.
func ExpandShape(s Shape, axis int) (Shape, error) {
	ax, err := Axis(axis, len(s)+1)
	if err != nil {
		return nil, err
	}
	out := make(Shape, 0, len(s)+1)
	out = append(out, s[:ax]...)
	out = append(out, 1)
	out = append(out, s[ax:]...)
	return out, nil
}

// TileShape multiplies every dimension by its multiple. Unknown stays Unknown.
func TileShape(s Shape, multiples []int) (Shape, error) {
	if len(multiples) != len(s) {
		return nil, fmt.Errorf("%w: multiples %v do not match rank %d", ErrShape, multiples, len(s))
	}
	out := make(Shape, len(s))
	for i, d := range s {
		if multiples[i] <= 0 {
			return nil, fmt.Errorf("%w: multiples must be positive, got %v", ErrShape, multiples)
		}
		if d == Unknown {
			out[i] = Unknown
			continue
		}
		out[i] = d * multiples[i]
	}
	return out, nil
}

// ConcatShape returns the shape of concatenating shapes along axis.
func ConcatShape(axis int, shapes ...Shape) (Shape, error) {
	if len(shapes) == 0 {
		return nil, fmt.Errorf("%w: nothing to concatenate", ErrShape)
	}
	rank := len(shapes[0])
	ax, err := Axis(axis, rank)
	if err != nil {
		return nil, err
	}
	out := shapes[0].Clone()
	for _, s := range shapes[1:] {
		if len(s) != rank {
			return nil, fmt.Errorf("%w: cannot concatenate %s and %s", ErrShape, shapes[0], s)
		}
		for i := range s {
			if i == ax {
				continue
			}
			if s[i] != Unknown && out[i] != Unknown && s[i] != out[i] {
				return nil, fmt.Errorf("%w: cannot concatenate %s and %s on axis %d", ErrShape, shapes[0], s, axis)
			}
		}
		if out[ax] == Unknown || s[ax] == Unknown {
			out[ax] = Unknown
		} else {
			out[ax] += s[ax]
		}
	}
	return out, nil
}

// strides returns row-major strides for a concrete shape.
func strides(s Shape) []int {
	st := make([]int, len(s))
	acc := 1
	for i := len(s) - 1; i >= 0; i-- {
		st[i] = acc
		acc *= s[i]
	}
	return st
}

// unravel writes the multi-index of flat offset off into idx.
func unravel(off int, s Shape, idx []int) {
	for i := len(s) - 1; i >= 0; i-- {
		idx[i] = off % s[i]
		off /= s[i]
	}
}
