package cpu

import (
	"fmt"

	"github.com/warp-ml/warp/internal/tensor"
)

// Sum reduces all elements to a tensor of shape {1}.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := newRaw(tensor.Shape{1}, cpu.device)
	total := 0.0
	for _, v := range x.Data() {
		total += v
	}
	result.Data()[0] = total
	return result
}

// Mean reduces all elements to their mean, shape {1}.
func (cpu *CPUBackend) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.Sum(x)
	result.Data()[0] /= float64(x.NumElements())
	return result
}

// SumDim sums along a dimension.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("sumdim: dimension %d out of range for shape %v", dim, shape))
	}
	outShape := make(tensor.Shape, 0, len(shape))
	for i, s := range shape {
		if i == dim {
			if keepDim {
				outShape = append(outShape, 1)
			}
			continue
		}
		outShape = append(outShape, s)
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}
	result := newRaw(outShape, cpu.device)

	outer := spatialSize(shape[:dim])
	n := shape[dim]
	inner := spatialSize(shape[dim+1:])
	xd, rd := x.Data(), result.Data()
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			total := 0.0
			base := o*n*inner + i
			for k := 0; k < n; k++ {
				total += xd[base+k*inner]
			}
			rd[o*inner+i] = total
		}
	}
	return result
}

// MeanDim averages along a dimension.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := cpu.SumDim(x, dim, keepDim)
	scale := 1.0 / float64(x.Shape()[dim])
	rd := result.Data()
	for i := range rd {
		rd[i] *= scale
	}
	return result
}
