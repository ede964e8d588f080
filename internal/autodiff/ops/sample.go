package ops

import (
	"github.com/warp-ml/warp/internal/tensor"
)

// GridSampleOp records a linear interpolation of an input tensor at
// normalized coordinates. Both the input values and the coordinates receive
// gradients, so optimization can flow through resampling chains.
type GridSampleOp struct {
	input, coords, output *tensor.RawTensor
	padding               tensor.PaddingMode
	alignCorners          bool
}

// NewGridSampleOp creates a grid sampling operation record.
func NewGridSampleOp(input, coords, output *tensor.RawTensor, padding tensor.PaddingMode, alignCorners bool) *GridSampleOp {
	return &GridSampleOp{
		input:        input,
		coords:       coords,
		output:       output,
		padding:      padding,
		alignCorners: alignCorners,
	}
}

func (op *GridSampleOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		backend.GridSampleInputBackward(op.input, op.coords, outputGrad, op.padding, op.alignCorners),
		backend.GridSampleCoordsBackward(op.input, op.coords, outputGrad, op.padding, op.alignCorners),
	}
}

func (op *GridSampleOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input, op.coords}
}
func (op *GridSampleOp) Output() *tensor.RawTensor { return op.output }

// GridResizeOp records a linear resize of the spatial dimensions.
type GridResizeOp struct {
	input, output *tensor.RawTensor
	alignCorners  bool
}

// NewGridResizeOp creates a resize operation record.
func NewGridResizeOp(input, output *tensor.RawTensor, alignCorners bool) *GridResizeOp {
	return &GridResizeOp{input: input, output: output, alignCorners: alignCorners}
}

func (op *GridResizeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.GridResizeBackward(op.input, outputGrad, op.alignCorners)}
}

func (op *GridResizeOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *GridResizeOp) Output() *tensor.RawTensor   { return op.output }

// CubicBSplineOp records a dense field evaluation from B-spline control
// point coefficients.
type CubicBSplineOp struct {
	input, output *tensor.RawTensor
	stride        []int
}

// NewCubicBSplineOp creates a B-spline evaluation record.
func NewCubicBSplineOp(input, output *tensor.RawTensor, stride []int) *CubicBSplineOp {
	return &CubicBSplineOp{input: input, output: output, stride: stride}
}

func (op *CubicBSplineOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.CubicBSplineBackward(op.input, outputGrad, op.stride)}
}

func (op *CubicBSplineOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *CubicBSplineOp) Output() *tensor.RawTensor   { return op.output }
