package cpu

import (
	"fmt"

	"github.com/warp-ml/warp/internal/tensor"
)

// Reshape returns a tensor with the same data and a new shape.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	if shape.NumElements() != x.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v into %v", x.Shape(), shape))
	}
	result := newRaw(shape, cpu.device)
	copy(result.Data(), x.Data())
	return result
}

// Transpose permutes the tensor's axes. Without arguments all axes are
// reversed.
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: expected %d axes, got %d", ndim, len(axes)))
	}
	outShape := make(tensor.Shape, ndim)
	for i, a := range axes {
		outShape[i] = shape[a]
	}
	result := newRaw(outShape, cpu.device)
	inStrides := shape.ComputeStrides()
	xd, rd := x.Data(), result.Data()
	idx := make([]int, ndim)
	for i := range rd {
		offset := 0
		for d := range idx {
			offset += idx[d] * inStrides[axes[d]]
		}
		rd[i] = xd[offset]
		for d := ndim - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < outShape[d] {
				break
			}
			idx[d] = 0
		}
	}
	return result
}

// Flip reverses the tensor along the given dimensions.
func (cpu *CPUBackend) Flip(x *tensor.RawTensor, dims ...int) *tensor.RawTensor {
	shape := x.Shape()
	flip := make([]bool, len(shape))
	for _, d := range dims {
		if d < 0 || d >= len(shape) {
			panic(fmt.Sprintf("flip: dimension %d out of range for shape %v", d, shape))
		}
		flip[d] = true
	}
	result := newRaw(shape, cpu.device)
	strides := shape.ComputeStrides()
	xd, rd := x.Data(), result.Data()
	idx := make([]int, len(shape))
	for i := range rd {
		offset := 0
		for d := range idx {
			j := idx[d]
			if flip[d] {
				j = shape[d] - 1 - j
			}
			offset += j * strides[d]
		}
		rd[i] = xd[offset]
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
	}
	return result
}

// Narrow returns the slice [start, start+length) along a dimension.
func (cpu *CPUBackend) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("narrow: dimension %d out of range for shape %v", dim, shape))
	}
	if start < 0 || length < 1 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: slice [%d, %d) out of range for size %d", start, start+length, shape[dim]))
	}
	outShape := shape.Clone()
	outShape[dim] = length
	result := newRaw(outShape, cpu.device)
	outer := spatialSize(shape[:dim])
	inner := spatialSize(shape[dim+1:])
	xd, rd := x.Data(), result.Data()
	rowIn := shape[dim] * inner
	rowOut := length * inner
	for o := 0; o < outer; o++ {
		copy(rd[o*rowOut:(o+1)*rowOut], xd[o*rowIn+start*inner:o*rowIn+start*inner+rowOut])
	}
	return result
}

// Cat concatenates tensors along a dimension.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: empty tensor list")
	}
	first := tensors[0].Shape()
	if dim < 0 || dim >= len(first) {
		panic(fmt.Sprintf("cat: dimension %d out of range for shape %v", dim, first))
	}
	outShape := first.Clone()
	outShape[dim] = 0
	for _, t := range tensors {
		s := t.Shape()
		if len(s) != len(first) {
			panic(fmt.Sprintf("cat: rank mismatch: %v vs %v", first, s))
		}
		for d := range s {
			if d != dim && s[d] != first[d] {
				panic(fmt.Sprintf("cat: shape mismatch along dim %d: %v vs %v", d, first, s))
			}
		}
		outShape[dim] += s[dim]
	}
	result := newRaw(outShape, cpu.device)
	outer := spatialSize(first[:dim])
	inner := spatialSize(first[dim+1:])
	rd := result.Data()
	rowOut := outShape[dim] * inner
	offset := 0
	for _, t := range tensors {
		td := t.Data()
		rows := t.Shape()[dim] * inner
		for o := 0; o < outer; o++ {
			copy(rd[o*rowOut+offset:o*rowOut+offset+rows], td[o*rows:(o+1)*rows])
		}
		offset += rows
	}
	return result
}
