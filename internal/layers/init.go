package layers

import (
	"math"
	"sync/atomic"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vk/unitgrid/internal/tensor"
)

var seeds atomic.Uint64

// resolveSeed returns seed, or the next value of a process-wide sequence
// when seed is zero so that unseeded layers of the same shape differ.
func resolveSeed(seed uint64) uint64 {
	if seed != 0 {
		return seed
	}
	return seeds.Add(1)
}

// glorotUniform fills a tensor from U(-l, l) with l = sqrt(6 / (fanIn + fanOut)).
func glorotUniform(shape tensor.Shape, fanIn, fanOut int, seed uint64) *tensor.Tensor {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	dist := distuv.Uniform{Min: -limit, Max: limit, Src: rand.NewSource(seed)}
	t := tensor.Zeros(shape)
	data := t.Data()
	for i := range data {
		data[i] = dist.Rand()
	}
	return t
}
