// Package autodiff implements reverse-mode automatic differentiation using
// the decorator pattern.
//
// Backend wraps any tensor.Backend and records every differentiable
// operation on a GradientTape during the forward pass. Walking the tape in
// reverse yields gradients for all recorded inputs.
//
// Usage:
//
//	ad := autodiff.New(cpu.New())
//	ad.Tape().StartRecording()
//	// ... forward pass through ad ...
//	grads := ad.Backward(loss)
package autodiff

import (
	"github.com/warp-ml/warp/internal/autodiff/ops"
	"github.com/warp-ml/warp/internal/tensor"
)

// Backend wraps a compute backend and adds gradient tracking. It implements
// tensor.Backend, so tensors built on it transparently record their
// operations.
type Backend struct {
	inner tensor.Backend
	tape  *GradientTape
}

// New creates an autodiff decorator around the given backend.
func New(inner tensor.Backend) *Backend {
	return &Backend{
		inner: inner,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control of recording.
func (b *Backend) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend.
func (b *Backend) Inner() tensor.Backend {
	return b.inner
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device of the wrapped backend.
func (b *Backend) Device() tensor.Device {
	return b.inner.Device()
}

// Backward seeds the given output tensor with a gradient of ones and walks
// the tape in reverse. Gradients are computed on the inner backend so the
// backward pass is not itself recorded.
func (b *Backend) Backward(output *tensor.RawTensor) map[*tensor.RawTensor]*tensor.RawTensor {
	seed, err := tensor.NewRaw(output.Shape(), b.Device())
	if err != nil {
		panic(err)
	}
	data := seed.Data()
	for i := range data {
		data[i] = 1
	}
	return b.tape.Backward(output, seed, b.inner)
}

// Add performs element-wise addition and records the operation.
//
// Inputs are pinned with ForceNonUnique so the inner backend cannot reuse
// their buffers inplace, which would corrupt the recorded graph.
func (b *Backend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()
	result := b.inner.Add(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddOp(x, y, result))
	}
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *Backend) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()
	result := b.inner.Sub(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSubOp(x, y, result))
	}
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *Backend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()
	result := b.inner.Mul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulOp(x, y, result))
	}
	return result
}

// Div performs element-wise division and records the operation.
func (b *Backend) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()
	result := b.inner.Div(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewDivOp(x, y, result))
	}
	return result
}

// AddScalar adds a scalar constant and records the operation.
func (b *Backend) AddScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	result := b.inner.AddScalar(x, s)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddScalarOp(x, result))
	}
	return result
}

// MulScalar multiplies by a scalar constant and records the operation.
func (b *Backend) MulScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	result := b.inner.MulScalar(x, s)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulScalarOp(x, result, s))
	}
	return result
}

// Exp applies the element-wise exponential and records the operation.
func (b *Backend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	result := b.inner.Exp(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewExpOp(x, result))
	}
	return result
}

// Sqrt applies the element-wise square root and records the operation.
func (b *Backend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	result := b.inner.Sqrt(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSqrtOp(x, result))
	}
	return result
}

// Sin applies the element-wise sine and records the operation.
func (b *Backend) Sin(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	result := b.inner.Sin(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSinOp(x, result))
	}
	return result
}

// Cos applies the element-wise cosine and records the operation.
func (b *Backend) Cos(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	result := b.inner.Cos(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewCosOp(x, result))
	}
	return result
}

// Abs applies the element-wise absolute value and records the operation.
func (b *Backend) Abs(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	result := b.inner.Abs(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAbsOp(x, result))
	}
	return result
}

// Sum reduces all elements and records the operation.
func (b *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	result := b.inner.Sum(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSumOp(x, result, false))
	}
	return result
}

// Mean averages all elements and records the operation.
func (b *Backend) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	result := b.inner.Mean(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSumOp(x, result, true))
	}
	return result
}

// SumDim sums along a dimension and records the operation.
func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	result := b.inner.SumDim(x, dim, keepDim)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSumDimOp(x, result, dim, false))
	}
	return result
}

// MeanDim averages along a dimension and records the operation.
func (b *Backend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	result := b.inner.MeanDim(x, dim, keepDim)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSumDimOp(x, result, dim, true))
	}
	return result
}

// BatchMatMul performs a batched matrix product and records the operation.
func (b *Backend) BatchMatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	defer y.ForceNonUnique()()
	result := b.inner.BatchMatMul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewBatchMatMulOp(x, y, result))
	}
	return result
}

// Reshape changes the tensor shape and records the operation. Even view-like
// operations must be recorded so that gradients flow back to the original
// tensor rather than the reshaped copy.
func (b *Backend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	result := b.inner.Reshape(x, shape)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReshapeOp(x, result))
	}
	return result
}

// Transpose permutes axes and records the operation.
func (b *Backend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	ndim := len(x.Shape())
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	result := b.inner.Transpose(x, axes...)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewTransposeOp(x, result, axes))
	}
	return result
}

// Flip reverses dimensions and records the operation.
func (b *Backend) Flip(x *tensor.RawTensor, dims ...int) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	result := b.inner.Flip(x, dims...)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewFlipOp(x, result, dims))
	}
	return result
}

// Narrow slices along a dimension and records the operation.
func (b *Backend) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	defer x.ForceNonUnique()()
	result := b.inner.Narrow(x, dim, start, length)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewNarrowOp(x, result, dim, start))
	}
	return result
}

// Cat concatenates tensors and records the operation.
func (b *Backend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	for _, t := range tensors {
		defer t.ForceNonUnique()()
	}
	result := b.inner.Cat(tensors, dim)
	if b.tape.IsRecording() {
		inputs := append([]*tensor.RawTensor(nil), tensors...)
		b.tape.Record(ops.NewCatOp(inputs, result, dim))
	}
	return result
}

// GridSample interpolates input values at normalized coordinates and
// records the operation. Gradients flow to both the input values and the
// coordinates.
func (b *Backend) GridSample(input, coords *tensor.RawTensor, padding tensor.PaddingMode, alignCorners bool) *tensor.RawTensor {
	defer input.ForceNonUnique()()
	defer coords.ForceNonUnique()()
	result := b.inner.GridSample(input, coords, padding, alignCorners)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewGridSampleOp(input, coords, result, padding, alignCorners))
	}
	return result
}

// GridResize resizes the spatial dimensions and records the operation.
func (b *Backend) GridResize(input *tensor.RawTensor, size []int, alignCorners bool) *tensor.RawTensor {
	defer input.ForceNonUnique()()
	result := b.inner.GridResize(input, size, alignCorners)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewGridResizeOp(input, result, alignCorners))
	}
	return result
}

// CubicBSpline evaluates a dense field from control point coefficients and
// records the operation.
func (b *Backend) CubicBSpline(input *tensor.RawTensor, stride, size []int) *tensor.RawTensor {
	defer input.ForceNonUnique()()
	result := b.inner.CubicBSpline(input, stride, size)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewCubicBSplineOp(input, result, stride))
	}
	return result
}

// GridSampleInputBackward delegates to the inner backend. Backward kernels
// are not differentiated further.
func (b *Backend) GridSampleInputBackward(input, coords, grad *tensor.RawTensor, padding tensor.PaddingMode, alignCorners bool) *tensor.RawTensor {
	return b.inner.GridSampleInputBackward(input, coords, grad, padding, alignCorners)
}

// GridSampleCoordsBackward delegates to the inner backend.
func (b *Backend) GridSampleCoordsBackward(input, coords, grad *tensor.RawTensor, padding tensor.PaddingMode, alignCorners bool) *tensor.RawTensor {
	return b.inner.GridSampleCoordsBackward(input, coords, grad, padding, alignCorners)
}

// GridResizeBackward delegates to the inner backend.
func (b *Backend) GridResizeBackward(input, grad *tensor.RawTensor, alignCorners bool) *tensor.RawTensor {
	return b.inner.GridResizeBackward(input, grad, alignCorners)
}

// CubicBSplineBackward delegates to the inner backend.
func (b *Backend) CubicBSplineBackward(input, grad *tensor.RawTensor, stride []int) *tensor.RawTensor {
	return b.inner.CubicBSplineBackward(input, grad, stride)
}
