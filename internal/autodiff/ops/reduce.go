package ops

import (
	"github.com/warp-ml/warp/internal/tensor"
)

// SumOp records a full reduction to a single element.
type SumOp struct {
	x, output *tensor.RawTensor
	mean      bool
}

// NewSumOp creates a sum reduction record. With mean set the gradient is
// divided by the element count.
func NewSumOp(x, output *tensor.RawTensor, mean bool) *SumOp {
	return &SumOp{x: x, output: output, mean: mean}
}

func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := mustRaw(op.x.Shape(), backend.Device())
	g := outputGrad.Data()[0]
	if op.mean {
		g /= float64(op.x.NumElements())
	}
	gd := grad.Data()
	for i := range gd {
		gd[i] = g
	}
	return []*tensor.RawTensor{grad}
}

func (op *SumOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.x} }
func (op *SumOp) Output() *tensor.RawTensor   { return op.output }

// SumDimOp records a reduction along a single dimension.
type SumDimOp struct {
	x, output *tensor.RawTensor
	dim       int
	mean      bool
}

// NewSumDimOp creates a per-dimension reduction record. With mean set the
// gradient is divided by the reduced dimension size.
func NewSumDimOp(x, output *tensor.RawTensor, dim int, mean bool) *SumDimOp {
	return &SumDimOp{x: x, output: output, dim: dim, mean: mean}
}

func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	shape := op.x.Shape()
	grad := mustRaw(shape, backend.Device())
	outer := 1
	for _, s := range shape[:op.dim] {
		outer *= s
	}
	n := shape[op.dim]
	inner := 1
	for _, s := range shape[op.dim+1:] {
		inner *= s
	}
	scale := 1.0
	if op.mean {
		scale = 1.0 / float64(n)
	}
	od, gd := outputGrad.Data(), grad.Data()
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			g := od[o*inner+i] * scale
			base := o*n*inner + i
			for k := 0; k < n; k++ {
				gd[base+k*inner] = g
			}
		}
	}
	return []*tensor.RawTensor{grad}
}

func (op *SumDimOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.x} }
func (op *SumDimOp) Output() *tensor.RawTensor   { return op.output }
