package layers

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/unitgrid/internal/tensor"
	"github.com/vk/unitgrid/internal/unit"
)

// Padding modes for 2-D convolution.
const (
	PaddingSame  = "SAME"
	PaddingValid = "VALID"
)

// TernaryConv2d is an NHWC convolution whose filters are ternarized to
// alpha * ternary(W) on every forward.
type TernaryConv2d struct {
	Filters int
	Kernel  [2]int
	Strides [2]int
	Padding string
	Act     Activation
	Seed    uint64

	channels int
	weights  *unit.Param
	biases   *unit.Param
}

// NewTernaryConv2d returns an unbuilt ternary convolution unit.
func NewTernaryConv2d(filters int, kernel, strides [2]int, padding string, act Activation, opts ...unit.Option) (*unit.Unit, error) {
	k, err := newTernaryConv2d(filters, kernel, strides, padding, act)
	if err != nil {
		return nil, err
	}
	return unit.New(k, opts...), nil
}

func newTernaryConv2d(filters int, kernel, strides [2]int, padding string, act Activation) (*TernaryConv2d, error) {
	if filters <= 0 {
		return nil, fmt.Errorf("conv filters must be positive, got %d", filters)
	}
	if kernel[0] <= 0 || kernel[1] <= 0 || strides[0] <= 0 || strides[1] <= 0 {
		return nil, fmt.Errorf("conv kernel %v and strides %v must be positive", kernel, strides)
	}
	padding = strings.ToUpper(padding)
	if padding == "" {
		padding = PaddingSame
	}
	if padding != PaddingSame && padding != PaddingValid {
		return nil, fmt.Errorf("unknown padding %q", padding)
	}
	if act == nil {
		act = Identity{}
	}
	return &TernaryConv2d{Filters: filters, Kernel: kernel, Strides: strides, Padding: padding, Act: act}, nil
}

func (k *TernaryConv2d) Kind() string { return "ternary_conv2d" }

// outDim returns the output size and leading pad of one spatial dimension.
func (k *TernaryConv2d) outDim(size, kernel, stride int) (int, int) {
	if size == tensor.Unknown {
		return tensor.Unknown, 0
	}
	if k.Padding == PaddingValid {
		if size < kernel {
			return 0, 0
		}
		return (size-kernel)/stride + 1, 0
	}
	out := (size + stride - 1) / stride
	pad := (out-1)*stride + kernel - size
	if pad < 0 {
		pad = 0
	}
	return out, pad / 2
}

func (k *TernaryConv2d) Build(in []tensor.Shape) (tensor.Shape, []*unit.Param, error) {
	if len(in) != 1 {
		return nil, nil, fmt.Errorf("ternary_conv2d takes one input, got %d", len(in))
	}
	s := in[0]
	if s.Rank() != 4 || s[3] == tensor.Unknown {
		return nil, nil, fmt.Errorf("%w: ternary_conv2d expects [batch, h, w, c] with known c, got %s", tensor.ErrShape, s)
	}
	k.channels = s[3]
	oh, _ := k.outDim(s[1], k.Kernel[0], k.Strides[0])
	ow, _ := k.outDim(s[2], k.Kernel[1], k.Strides[1])
	if oh == 0 || ow == 0 {
		return nil, nil, fmt.Errorf("%w: kernel %v larger than input %s", tensor.ErrShape, k.Kernel, s)
	}
	wShape := tensor.Shape{k.Kernel[0], k.Kernel[1], k.channels, k.Filters}
	fanIn := k.Kernel[0] * k.Kernel[1] * k.channels
	fanOut := k.Kernel[0] * k.Kernel[1] * k.Filters
	k.weights = unit.NewParam("weights", glorotUniform(wShape, fanIn, fanOut, resolveSeed(k.Seed)))
	k.biases = unit.NewParam("biases", tensor.Zeros(tensor.Shape{k.Filters}))
	return tensor.Shape{s[0], oh, ow, k.Filters}, []*unit.Param{k.weights, k.biases}, nil
}

func (k *TernaryConv2d) Forward(_ context.Context, in []*tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	x := in[0]
	s := x.Shape()
	if s.Rank() != 4 || s[3] != k.channels {
		return nil, fmt.Errorf("%w: expected [?, ?, ?, %d], got %s", unit.ErrShapeMismatch, k.channels, s)
	}
	n, h, w, c := s[0], s[1], s[2], s[3]
	kh, kw := k.Kernel[0], k.Kernel[1]
	sh, sw := k.Strides[0], k.Strides[1]
	oh, padT := k.outDim(h, kh, sh)
	ow, padL := k.outDim(w, kw, sw)
	if oh <= 0 || ow <= 0 {
		return nil, fmt.Errorf("%w: kernel %v larger than input %s", unit.ErrShapeMismatch, k.Kernel, s)
	}

	filt := TernaryWeights(k.weights.Value).Data()
	bias := k.biases.Value.Data()
	src := x.Data()
	f := k.Filters
	out := tensor.Zeros(tensor.Shape{n, oh, ow, f})
	dst := out.Data()

	for b := 0; b < n; b++ {
		for oy := 0; oy < oh; oy++ {
			for ox := 0; ox < ow; ox++ {
				acc := dst[((b*oh+oy)*ow+ox)*f : ((b*oh+oy)*ow+ox+1)*f]
				copy(acc, bias)
				for ky := 0; ky < kh; ky++ {
					iy := oy*sh + ky - padT
					if iy < 0 || iy >= h {
						continue
					}
					for kx := 0; kx < kw; kx++ {
						ix := ox*sw + kx - padL
						if ix < 0 || ix >= w {
							continue
						}
						px := src[((b*h+iy)*w+ix)*c : ((b*h+iy)*w+ix+1)*c]
						for ci, v := range px {
							if v == 0 {
								continue
							}
							row := filt[((ky*kw+kx)*c+ci)*f : ((ky*kw+kx)*c+ci+1)*f]
							for fi, wv := range row {
								acc[fi] += v * wv
							}
						}
					}
				}
				for fi, v := range acc {
					acc[fi] = k.Act.Activate(v)
				}
			}
		}
	}
	return out, nil
}

func (k *TernaryConv2d) String() string {
	return fmt.Sprintf("ternary_conv2d(filters=%d, kernel=%v, strides=%v, padding=%s, act=%s)",
		k.Filters, k.Kernel, k.Strides, k.Padding, k.Act.Name())
}
