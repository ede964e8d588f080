package cpu

import (
	"github.com/warp-ml/warp/internal/tensor"
)

// GridSampleInputBackward scatters the output gradient back to the input
// values through the interpolation weights.
func (cpu *CPUBackend) GridSampleInputBackward(input, coords, grad *tensor.RawTensor, padding tensor.PaddingMode, alignCorners bool) *tensor.RawTensor {
	g := gridSampleGeom(input, coords)
	result := newRaw(input.Shape(), cpu.device)

	cd, gd, rd := coords.Data(), grad.Data(), result.Data()
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
			for j := 0; j < g.dim; j++ {
				d := g.dim - 1 - j
				base[d], frac[d], _ = corner(cd[co+s*g.dim+j], g.size[d], padding, alignCorners)
			}
			for ch := 0; ch < g.c; ch++ {
				gv := gd[(n*g.c+ch)*g.volOut+s]
				if gv == 0 {
					continue
				}
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
						rd[io+ch*g.volIn+offset] += w * gv
					}
				}
			}
		}
	}
	return result
}

// GridSampleCoordsBackward computes the gradient with respect to the
// sampling coordinates. Dimensions saturated by border clamping contribute
// a zero derivative.
func (cpu *CPUBackend) GridSampleCoordsBackward(input, coords, grad *tensor.RawTensor, padding tensor.PaddingMode, alignCorners bool) *tensor.RawTensor {
	g := gridSampleGeom(input, coords)
	result := newRaw(coords.Shape(), cpu.device)

	in, cd, gd, rd := input.Data(), coords.Data(), grad.Data(), result.Data()
	base := make([]int, g.dim)
	frac := make([]float64, g.dim)
	sat := make([]bool, g.dim)
	scale := make([]float64, g.dim)
	for d := 0; d < g.dim; d++ {
		// d(unnormalized)/d(normalized) per dimension.
		if alignCorners {
			scale[d] = float64(g.size[d]-1) / 2
		} else {
			scale[d] = float64(g.size[d]) / 2
		}
	}
	corners := 1 << g.dim
	coordsBatchOne := coords.Shape()[0] == 1
	for n := 0; n < g.n; n++ {
		co := n * g.volOut * g.dim
		if coordsBatchOne {
			co = 0
		}
		io := n * g.c * g.volIn
		if input.Shape()[0] == 1 {
			io = 0
		}
		for s := 0; s < g.volOut; s++ {
			for j := 0; j < g.dim; j++ {
				d := g.dim - 1 - j
				base[d], frac[d], sat[d] = corner(cd[co+s*g.dim+j], g.size[d], padding, alignCorners)
			}
			for ch := 0; ch < g.c; ch++ {
				gv := gd[(n*g.c+ch)*g.volOut+s]
				if gv == 0 {
					continue
				}
				for k := 0; k < corners; k++ {
					offset := 0
					valid := true
					for d := 0; d < g.dim; d++ {
						idx := base[d] + (k>>d)&1
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
					if !valid {
						continue
					}
					v := in[io+ch*g.volIn+offset]
					if v == 0 {
						continue
					}
					// Partial derivative of the weight product with
					// respect to each coordinate component.
					for j := 0; j < g.dim; j++ {
						d := g.dim - 1 - j
						if sat[d] {
							continue
						}
						dw := 1.0
						for e := 0; e < g.dim; e++ {
							bit := (k >> e) & 1
							if e == d {
								if bit == 0 {
									dw = -dw
								}
								continue
							}
							if bit == 1 {
								dw *= frac[e]
							} else {
								dw *= 1 - frac[e]
							}
						}
						rd[co+s*g.dim+j] += gv * v * dw * scale[d]
					}
				}
			}
		}
	}
	return result
}

// GridResizeBackward scatters the output gradient of a linear resize back
// to the input resolution.
func (cpu *CPUBackend) GridResizeBackward(input, grad *tensor.RawTensor, alignCorners bool) *tensor.RawTensor {
	result := newRaw(input.Shape(), cpu.device)
	resizeApply(grad, result, alignCorners, true)
	return result
}

// CubicBSplineBackward scatters the dense field gradient back to the
// control point coefficients.
func (cpu *CPUBackend) CubicBSplineBackward(input, grad *tensor.RawTensor, stride []int) *tensor.RawTensor {
	result := newRaw(input.Shape(), cpu.device)
	bsplineApply(result, grad, stride, true)
	return result
}
