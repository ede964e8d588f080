package ops

import (
	"github.com/warp-ml/warp/internal/tensor"
)

// ReshapeOp records a shape change. The backward pass reshapes the gradient
// back to the input shape.
type ReshapeOp struct {
	x, output *tensor.RawTensor
}

// NewReshapeOp creates a reshape operation record.
func NewReshapeOp(x, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{x: x, output: output}
}

func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(outputGrad, op.x.Shape())}
}

func (op *ReshapeOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.x} }
func (op *ReshapeOp) Output() *tensor.RawTensor   { return op.output }

// TransposeOp records an axes permutation. The backward pass applies the
// inverse permutation to the gradient.
type TransposeOp struct {
	x, output *tensor.RawTensor
	axes      []int
}

// NewTransposeOp creates a transpose operation record.
func NewTransposeOp(x, output *tensor.RawTensor, axes []int) *TransposeOp {
	return &TransposeOp{x: x, output: output, axes: axes}
}

func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for i, a := range op.axes {
		inverse[a] = i
	}
	return []*tensor.RawTensor{backend.Transpose(outputGrad, inverse...)}
}

func (op *TransposeOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.x} }
func (op *TransposeOp) Output() *tensor.RawTensor   { return op.output }

// FlipOp records a reversal along dimensions. Flipping is an involution, so
// the backward pass flips the gradient along the same dimensions.
type FlipOp struct {
	x, output *tensor.RawTensor
	dims      []int
}

// NewFlipOp creates a flip operation record.
func NewFlipOp(x, output *tensor.RawTensor, dims []int) *FlipOp {
	return &FlipOp{x: x, output: output, dims: dims}
}

func (op *FlipOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Flip(outputGrad, op.dims...)}
}

func (op *FlipOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.x} }
func (op *FlipOp) Output() *tensor.RawTensor   { return op.output }

// NarrowOp records a slice along a dimension. The backward pass scatters
// the gradient into a zero tensor of the input shape.
type NarrowOp struct {
	x, output  *tensor.RawTensor
	dim, start int
}

// NewNarrowOp creates a narrow operation record.
func NewNarrowOp(x, output *tensor.RawTensor, dim, start int) *NarrowOp {
	return &NarrowOp{x: x, output: output, dim: dim, start: start}
}

func (op *NarrowOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	shape := op.x.Shape()
	grad := mustRaw(shape, backend.Device())
	outer := 1
	for _, s := range shape[:op.dim] {
		outer *= s
	}
	inner := 1
	for _, s := range shape[op.dim+1:] {
		inner *= s
	}
	length := op.output.Shape()[op.dim]
	od, gd := outputGrad.Data(), grad.Data()
	rowIn := shape[op.dim] * inner
	rowOut := length * inner
	for o := 0; o < outer; o++ {
		copy(gd[o*rowIn+op.start*inner:o*rowIn+op.start*inner+rowOut], od[o*rowOut:(o+1)*rowOut])
	}
	return []*tensor.RawTensor{grad}
}

func (op *NarrowOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.x} }
func (op *NarrowOp) Output() *tensor.RawTensor   { return op.output }

// CatOp records a concatenation along a dimension. The backward pass splits
// the gradient back into per-input slices.
type CatOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	dim    int
}

// NewCatOp creates a concatenation operation record.
func NewCatOp(inputs []*tensor.RawTensor, output *tensor.RawTensor, dim int) *CatOp {
	return &CatOp{inputs: inputs, output: output, dim: dim}
}

func (op *CatOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	outShape := op.output.Shape()
	outer := 1
	for _, s := range outShape[:op.dim] {
		outer *= s
	}
	inner := 1
	for _, s := range outShape[op.dim+1:] {
		inner *= s
	}
	rowOut := outShape[op.dim] * inner
	od := outputGrad.Data()

	grads := make([]*tensor.RawTensor, len(op.inputs))
	offset := 0
	for i, in := range op.inputs {
		grad := mustRaw(in.Shape(), backend.Device())
		gd := grad.Data()
		rows := in.Shape()[op.dim] * inner
		for o := 0; o < outer; o++ {
			copy(gd[o*rows:(o+1)*rows], od[o*rowOut+offset:o*rowOut+offset+rows])
		}
		offset += rows
		grads[i] = grad
	}
	return grads
}

func (op *CatOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *CatOp) Output() *tensor.RawTensor   { return op.output }
