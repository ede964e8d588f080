package ops

import (
	"github.com/warp-ml/warp/internal/tensor"
)

// AddOp records element-wise addition with broadcasting.
type AddOp struct {
	a, b, output *tensor.RawTensor
}

// NewAddOp creates an addition operation record.
func NewAddOp(a, b, output *tensor.RawTensor) *AddOp {
	return &AddOp{a: a, b: b, output: output}
}

func (op *AddOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		reduceBroadcast(outputGrad, op.a.Shape(), backend),
		reduceBroadcast(outputGrad, op.b.Shape(), backend),
	}
}

func (op *AddOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }
func (op *AddOp) Output() *tensor.RawTensor   { return op.output }

// SubOp records element-wise subtraction with broadcasting.
type SubOp struct {
	a, b, output *tensor.RawTensor
}

// NewSubOp creates a subtraction operation record.
func NewSubOp(a, b, output *tensor.RawTensor) *SubOp {
	return &SubOp{a: a, b: b, output: output}
}

func (op *SubOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		reduceBroadcast(outputGrad, op.a.Shape(), backend),
		reduceBroadcast(backend.MulScalar(outputGrad, -1), op.b.Shape(), backend),
	}
}

func (op *SubOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }
func (op *SubOp) Output() *tensor.RawTensor   { return op.output }

// MulOp records element-wise multiplication with broadcasting.
type MulOp struct {
	a, b, output *tensor.RawTensor
}

// NewMulOp creates a multiplication operation record.
func NewMulOp(a, b, output *tensor.RawTensor) *MulOp {
	return &MulOp{a: a, b: b, output: output}
}

func (op *MulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		reduceBroadcast(backend.Mul(outputGrad, op.b), op.a.Shape(), backend),
		reduceBroadcast(backend.Mul(outputGrad, op.a), op.b.Shape(), backend),
	}
}

func (op *MulOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }
func (op *MulOp) Output() *tensor.RawTensor   { return op.output }

// DivOp records element-wise division with broadcasting.
type DivOp struct {
	a, b, output *tensor.RawTensor
}

// NewDivOp creates a division operation record.
func NewDivOp(a, b, output *tensor.RawTensor) *DivOp {
	return &DivOp{a: a, b: b, output: output}
}

func (op *DivOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	// d(a/b)/da = 1/b, d(a/b)/db = -a/b² = -(a/b)/b
	gradA := backend.Div(outputGrad, op.b)
	gradB := backend.MulScalar(backend.Div(backend.Mul(outputGrad, op.output), op.b), -1)
	return []*tensor.RawTensor{
		reduceBroadcast(gradA, op.a.Shape(), backend),
		reduceBroadcast(gradB, op.b.Shape(), backend),
	}
}

func (op *DivOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }
func (op *DivOp) Output() *tensor.RawTensor   { return op.output }

// AddScalarOp records addition of a scalar constant.
type AddScalarOp struct {
	x, output *tensor.RawTensor
}

// NewAddScalarOp creates a scalar addition operation record.
func NewAddScalarOp(x, output *tensor.RawTensor) *AddScalarOp {
	return &AddScalarOp{x: x, output: output}
}

func (op *AddScalarOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{outputGrad}
}

func (op *AddScalarOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.x} }
func (op *AddScalarOp) Output() *tensor.RawTensor   { return op.output }

// MulScalarOp records multiplication by a scalar constant.
type MulScalarOp struct {
	x, output *tensor.RawTensor
	scalar    float64
}

// NewMulScalarOp creates a scalar multiplication operation record.
func NewMulScalarOp(x, output *tensor.RawTensor, scalar float64) *MulScalarOp {
	return &MulScalarOp{x: x, output: output, scalar: scalar}
}

func (op *MulScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.scalar)}
}

func (op *MulScalarOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.x} }
func (op *MulScalarOp) Output() *tensor.RawTensor   { return op.output }

// ExpOp records the element-wise exponential.
type ExpOp struct {
	x, output *tensor.RawTensor
}

// NewExpOp creates an exponential operation record.
func NewExpOp(x, output *tensor.RawTensor) *ExpOp {
	return &ExpOp{x: x, output: output}
}

func (op *ExpOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	// d(exp x)/dx = exp x
	return []*tensor.RawTensor{backend.Mul(outputGrad, op.output)}
}

func (op *ExpOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.x} }
func (op *ExpOp) Output() *tensor.RawTensor   { return op.output }

// SqrtOp records the element-wise square root.
type SqrtOp struct {
	x, output *tensor.RawTensor
}

// NewSqrtOp creates a square root operation record.
func NewSqrtOp(x, output *tensor.RawTensor) *SqrtOp {
	return &SqrtOp{x: x, output: output}
}

func (op *SqrtOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	// d(sqrt x)/dx = 1 / (2 sqrt x)
	return []*tensor.RawTensor{backend.MulScalar(backend.Div(outputGrad, op.output), 0.5)}
}

func (op *SqrtOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.x} }
func (op *SqrtOp) Output() *tensor.RawTensor   { return op.output }

// SinOp records the element-wise sine.
type SinOp struct {
	x, output *tensor.RawTensor
}

// NewSinOp creates a sine operation record.
func NewSinOp(x, output *tensor.RawTensor) *SinOp {
	return &SinOp{x: x, output: output}
}

func (op *SinOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Mul(outputGrad, backend.Cos(op.x))}
}

func (op *SinOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.x} }
func (op *SinOp) Output() *tensor.RawTensor   { return op.output }

// CosOp records the element-wise cosine.
type CosOp struct {
	x, output *tensor.RawTensor
}

// NewCosOp creates a cosine operation record.
func NewCosOp(x, output *tensor.RawTensor) *CosOp {
	return &CosOp{x: x, output: output}
}

func (op *CosOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Mul(outputGrad, backend.MulScalar(backend.Sin(op.x), -1))}
}

func (op *CosOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.x} }
func (op *CosOp) Output() *tensor.RawTensor   { return op.output }

// AbsOp records the element-wise absolute value.
type AbsOp struct {
	x, output *tensor.RawTensor
}

// NewAbsOp creates an absolute value operation record.
func NewAbsOp(x, output *tensor.RawTensor) *AbsOp {
	return &AbsOp{x: x, output: output}
}

func (op *AbsOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	sign := mustRaw(op.x.Shape(), backend.Device())
	xd, sd := op.x.Data(), sign.Data()
	for i, v := range xd {
		switch {
		case v > 0:
			sd[i] = 1
		case v < 0:
			sd[i] = -1
		}
	}
	return []*tensor.RawTensor{backend.Mul(outputGrad, sign)}
}

func (op *AbsOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.x} }
func (op *AbsOp) Output() *tensor.RawTensor   { return op.output }
