package cpu

import (
	"fmt"
	"math"

	"github.com/warp-ml/warp/internal/tensor"
)

// sampleGeom holds the iteration geometry shared by the grid sampling
// forward and backward kernels.
type sampleGeom struct {
	n       int   // batch size
	c       int   // channels
	dim     int   // spatial rank D
	size    []int // input spatial dims, outermost first
	strides []int // input spatial strides (elements)
	out     []int // output spatial dims, outermost first
	volIn   int   // product of input spatial dims
	volOut  int   // product of output spatial dims
}

func gridSampleGeom(input, coords *tensor.RawTensor) sampleGeom {
	is, cs := input.Shape(), coords.Shape()
	if len(is) < 3 {
		panic(fmt.Sprintf("gridsample: input must be (N, C, ...X), got %v", is))
	}
	dim := len(is) - 2
	if len(cs) < 2 || cs[len(cs)-1] != dim {
		panic(fmt.Sprintf("gridsample: coords must be (N, ...S, %d), got %v", dim, cs))
	}
	if cs[0] != is[0] && cs[0] != 1 && is[0] != 1 {
		panic(fmt.Sprintf("gridsample: batch mismatch: input %v, coords %v", is, cs))
	}
	g := sampleGeom{
		n:    is[0],
		c:    is[1],
		dim:  dim,
		size: is[2:],
		out:  cs[1 : len(cs)-1],
	}
	if cs[0] > g.n {
		g.n = cs[0]
	}
	g.strides = make([]int, dim)
	stride := 1
	for i := dim - 1; i >= 0; i-- {
		g.strides[i] = stride
		stride *= g.size[i]
	}
	g.volIn = stride
	g.volOut = spatialSize(g.out)
	return g
}

// unnormalize maps a coordinate from [-1, 1] to voxel units.
func unnormalize(c float64, size int, alignCorners bool) float64 {
	if alignCorners {
		return (c + 1) / 2 * float64(size-1)
	}
	return ((c+1)*float64(size) - 1) / 2
}

// corner computes base index, interpolation weight and saturation flag for
// one spatial dimension.
func corner(c float64, size int, padding tensor.PaddingMode, alignCorners bool) (base int, frac float64, saturated bool) {
	v := unnormalize(c, size, alignCorners)
	if padding == tensor.PadBorder {
		if v <= 0 {
			return 0, 0, true
		}
		if v >= float64(size-1) {
			return size - 2, 1, true
		}
		if size == 1 {
			return 0, 0, true
		}
	}
	f := math.Floor(v)
	return int(f), v - f, false
}

// GridSample evaluates input (N, C, ...X) with linear interpolation at the
// normalized coordinates coords (N, ...S, D). Coordinate components are
// ordered (x, y, ...): component 0 indexes the innermost spatial dimension.
func (cpu *CPUBackend) GridSample(input, coords *tensor.RawTensor, padding tensor.PaddingMode, alignCorners bool) *tensor.RawTensor {
	g := gridSampleGeom(input, coords)
	outShape := append(tensor.Shape{g.n, g.c}, g.out...)
	result := newRaw(outShape, cpu.device)

	in, cd, rd := input.Data(), coords.Data(), result.Data()
	base := make([]int, g.dim)
	frac := make([]float64, g.dim)
	corners := 1 << g.dim
	for n := 0; n < g.n; n++ {
		co := n * g.volOut * g.dim
		if coords.Shape()[0] == 1 {
			co = 0
		}
		io := n * g.c * g.volIn
		if input.Shape()[0] == 1 {
			io = 0
		}
		for s := 0; s < g.volOut; s++ {
			// Component j addresses spatial dim D-1-j.
			for j := 0; j < g.dim; j++ {
				d := g.dim - 1 - j
				base[d], frac[d], _ = corner(cd[co+s*g.dim+j], g.size[d], padding, alignCorners)
			}
			for ch := 0; ch < g.c; ch++ {
				acc := 0.0
				for k := 0; k < corners; k++ {
					w := 1.0
					offset := 0
					valid := true
					for d := 0; d < g.dim; d++ {
						bit := (k >> d) & 1
						idx := base[d] + bit
						if bit == 1 {
							w *= frac[d]
						} else {
							w *= 1 - frac[d]
						}
						if idx < 0 || idx >= g.size[d] {
							if padding == tensor.PadZeros {
								valid = false
								break
							}
							if idx < 0 {
								idx = 0
							} else {
								idx = g.size[d] - 1
							}
						}
						offset += idx * g.strides[d]
					}
					if valid && w != 0 {
						acc += w * in[io+ch*g.volIn+offset]
					}
				}
				rd[(n*g.c+ch)*g.volOut+s] = acc
			}
		}
	}
	return result
}

// GridResize linearly resizes the spatial dimensions of input (N, C, ...X)
// to the given size.
func (cpu *CPUBackend) GridResize(input *tensor.RawTensor, size []int, alignCorners bool) *tensor.RawTensor {
	is := input.Shape()
	if len(is) < 3 {
		panic(fmt.Sprintf("gridresize: input must be (N, C, ...X), got %v", is))
	}
	dim := len(is) - 2
	if len(size) != dim {
		panic(fmt.Sprintf("gridresize: expected %d output dims, got %d", dim, len(size)))
	}
	outShape := append(tensor.Shape{is[0], is[1]}, size...)
	result := newRaw(outShape, cpu.device)
	resizeApply(input, result, alignCorners, false)
	return result
}

// resizeApply implements forward (scatter=false) and backward
// (scatter=true) linear resizing between src and dst. In backward mode src
// holds the output gradient and dst accumulates the input gradient.
func resizeApply(src, dst *tensor.RawTensor, alignCorners, scatter bool) {
	var inShape, outShape tensor.Shape
	if scatter {
		inShape, outShape = dst.Shape(), src.Shape()
	} else {
		inShape, outShape = src.Shape(), dst.Shape()
	}
	dim := len(inShape) - 2
	n, c := inShape[0], inShape[1]
	in := inShape[2:]
	out := outShape[2:]
	volIn, volOut := spatialSize(in), spatialSize(out)
	inStrides := make([]int, dim)
	stride := 1
	for i := dim - 1; i >= 0; i-- {
		inStrides[i] = stride
		stride *= in[i]
	}
	sd, dd := src.Data(), dst.Data()
	idx := make([]int, dim)
	base := make([]int, dim)
	frac := make([]float64, dim)
	corners := 1 << dim
	for s := 0; s < volOut; s++ {
		for d := 0; d < dim; d++ {
			var v float64
			if alignCorners && out[d] > 1 {
				v = float64(idx[d]) * float64(in[d]-1) / float64(out[d]-1)
			} else {
				v = (float64(idx[d])+0.5)*float64(in[d])/float64(out[d]) - 0.5
			}
			if v <= 0 {
				base[d], frac[d] = 0, 0
			} else if v >= float64(in[d]-1) {
				base[d], frac[d] = in[d]-1, 0
			} else {
				f := math.Floor(v)
				base[d], frac[d] = int(f), v-f
			}
		}
		for batch := 0; batch < n; batch++ {
			for ch := 0; ch < c; ch++ {
				outIdx := (batch*c+ch)*volOut + s
				inBase := (batch*c + ch) * volIn
				if scatter {
					gv := sd[outIdx]
					for k := 0; k < corners; k++ {
						w := 1.0
						offset := 0
						valid := true
						for d := 0; d < dim; d++ {
							bit := (k >> d) & 1
							i := base[d] + bit
							if bit == 1 {
								w *= frac[d]
							} else {
								w *= 1 - frac[d]
							}
							if i >= in[d] {
								valid = false
								break
							}
							offset += i * inStrides[d]
						}
						if valid && w != 0 {
							dd[inBase+offset] += w * gv
						}
					}
				} else {
					acc := 0.0
					for k := 0; k < corners; k++ {
						w := 1.0
						offset := 0
						valid := true
						for d := 0; d < dim; d++ {
							bit := (k >> d) & 1
							i := base[d] + bit
							if bit == 1 {
								w *= frac[d]
							} else {
								w *= 1 - frac[d]
							}
							if i >= in[d] {
								valid = false
								break
							}
							offset += i * inStrides[d]
						}
						if valid && w != 0 {
							acc += w * sd[inBase+offset]
						}
					}
					dd[outIdx] = acc
				}
			}
		}
		for d := dim - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < out[d] {
				break
			}
			idx[d] = 0
		}
	}
}

// bsplineWeights computes the four cubic B-spline basis weights for a
// fractional offset f in [0, 1).
func bsplineWeights(f float64, w *[4]float64) {
	f2 := f * f
	f3 := f2 * f
	w[0] = (1 - 3*f + 3*f2 - f3) / 6
	w[1] = (3*f3 - 6*f2 + 4) / 6
	w[2] = (-3*f3 + 3*f2 + 3*f + 1) / 6
	w[3] = f3 / 6
}

// CubicBSpline evaluates a dense field from cubic B-spline coefficients
// (N, C, ...K) with integer control point stride per spatial dimension.
func (cpu *CPUBackend) CubicBSpline(input *tensor.RawTensor, stride, size []int) *tensor.RawTensor {
	is := input.Shape()
	dim := len(is) - 2
	if len(stride) != dim || len(size) != dim {
		panic(fmt.Sprintf("bspline: expected %d stride and size entries, got %d and %d", dim, len(stride), len(size)))
	}
	outShape := append(tensor.Shape{is[0], is[1]}, size...)
	result := newRaw(outShape, cpu.device)
	bsplineApply(input, result, stride, false)
	return result
}

// bsplineApply implements forward (scatter=false) and backward
// (scatter=true) separable cubic B-spline evaluation.
func bsplineApply(coeff, dense *tensor.RawTensor, stride []int, scatter bool) {
	cs, ds := coeff.Shape(), dense.Shape()
	dim := len(cs) - 2
	n, c := cs[0], cs[1]
	kdims := cs[2:]
	size := ds[2:]
	volK, volS := spatialSize(kdims), spatialSize(size)
	kStrides := make([]int, dim)
	s := 1
	for i := dim - 1; i >= 0; i-- {
		kStrides[i] = s
		s *= kdims[i]
	}
	cd, dd := coeff.Data(), dense.Data()
	idx := make([]int, dim)
	base := make([]int, dim)
	weights := make([][4]float64, dim)
	support := 1
	for i := 0; i < dim; i++ {
		support *= 4
	}
	for sp := 0; sp < volS; sp++ {
		for d := 0; d < dim; d++ {
			p := float64(idx[d]) / float64(stride[d])
			f := math.Floor(p)
			base[d] = int(f) - 1
			bsplineWeights(p-f, &weights[d])
		}
		for batch := 0; batch < n; batch++ {
			for ch := 0; ch < c; ch++ {
				denseIdx := (batch*c+ch)*volS + sp
				coeffBase := (batch*c + ch) * volK
				if scatter {
					gv := dd[denseIdx]
					if gv != 0 {
						for k := 0; k < support; k++ {
							w := 1.0
							offset := 0
							rem := k
							for d := 0; d < dim; d++ {
								tap := rem & 3
								rem >>= 2
								w *= weights[d][tap]
								i := base[d] + tap
								if i < 0 {
									i = 0
								} else if i >= kdims[d] {
									i = kdims[d] - 1
								}
								offset += i * kStrides[d]
							}
							if w != 0 {
								cd[coeffBase+offset] += w * gv
							}
						}
					}
				} else {
					acc := 0.0
					for k := 0; k < support; k++ {
						w := 1.0
						offset := 0
						rem := k
						for d := 0; d < dim; d++ {
							tap := rem & 3
							rem >>= 2
							w *= weights[d][tap]
							i := base[d] + tap
							if i < 0 {
								i = 0
							} else if i >= kdims[d] {
								i = kdims[d] - 1
							}
							offset += i * kStrides[d]
						}
						if w != 0 {
							acc += w * cd[coeffBase+offset]
						}
					}
					dd[denseIdx] = acc
				}
			}
		}
		for d := dim - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < size[d] {
				break
			}
			idx[d] = 0
		}
	}
}

// ControlPoints returns the number of cubic B-spline control points needed
// to cover a spatial extent of the given size with the given stride.
func ControlPoints(size, stride int) int {
	return (size+stride-1)/stride + 3
}
