package layers

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/vk/unitgrid/internal/tensor"
)

// ternaryScale is the share of the mean absolute weight used as threshold.
const ternaryScale = 0.7

// Threshold returns 0.7 * mean(|w|).
func Threshold(w []float64) float64 {
	if len(w) == 0 {
		return 0
	}
	return ternaryScale * floats.Norm(w, 1) / float64(len(w))
}

// Ternarize maps every weight to -1, 0 or 1 depending on which side of
// +/-th it falls.
func Ternarize(w []float64, th float64) []float64 {
	out := make([]float64, len(w))
	for i, v := range w {
		switch {
		case v > th:
			out[i] = 1
		case v < -th:
			out[i] = -1
		}
	}
	return out
}

// Alpha returns the mean magnitude of the weights above the threshold, or 0
// if there are none.
func Alpha(w []float64, th float64) float64 {
	var sum float64
	var n int
	for _, v := range w {
		if a := math.Abs(v); a > th {
			sum += a
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// TernaryWeights returns alpha * ternary(w) with the same shape as w.
func TernaryWeights(w *tensor.Tensor) *tensor.Tensor {
	data := w.Data()
	th := Threshold(data)
	out := Ternarize(data, th)
	floats.Scale(Alpha(data, th), out)
	t, _ := tensor.New(w.Shape(), out)
	return t
}
