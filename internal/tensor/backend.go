package tensor

// PaddingMode controls how sampling operations extrapolate values outside
// the input domain.
type PaddingMode int

// Supported padding modes.
const (
	PadZeros PaddingMode = iota
	PadBorder
)

// String returns a human-readable padding mode name.
func (m PaddingMode) String() string {
	switch m {
	case PadZeros:
		return "zeros"
	case PadBorder:
		return "border"
	default:
		return "unknown"
	}
}

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// The op surface is the one required by differentiable spatial transforms:
// elementwise arithmetic, reductions, batched matrix products, axis
// manipulation, and the grid sampling primitives used to evaluate and
// resample dense vector fields.
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Element-wise operations with a scalar operand.
	AddScalar(x *RawTensor, s float64) *RawTensor
	MulScalar(x *RawTensor, s float64) *RawTensor

	// Element-wise unary math.
	Exp(x *RawTensor) *RawTensor
	Sqrt(x *RawTensor) *RawTensor
	Abs(x *RawTensor) *RawTensor
	Sin(x *RawTensor) *RawTensor
	Cos(x *RawTensor) *RawTensor

	// Reductions. Sum and Mean reduce to a tensor of shape {1}.
	Sum(x *RawTensor) *RawTensor
	Mean(x *RawTensor) *RawTensor
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// BatchMatMul performs batched matrix multiplication for 3D tensors:
	// [N, M, K] @ [N, K, P] -> [N, M, P].
	BatchMatMul(a, b *RawTensor) *RawTensor

	// Shape operations.
	Reshape(x *RawTensor, shape Shape) *RawTensor
	Transpose(x *RawTensor, axes ...int) *RawTensor
	Flip(x *RawTensor, dims ...int) *RawTensor
	Cat(tensors []*RawTensor, dim int) *RawTensor

	// Narrow returns the slice [start, start+length) along a dimension.
	Narrow(x *RawTensor, dim, start, length int) *RawTensor

	// GridSample evaluates input (N, C, ...X) with linear interpolation at
	// the normalized coordinates coords (N, ...S, D), D = spatial rank of
	// input. Coordinate components are ordered (x, y, ...), i.e. the first
	// component indexes the innermost (fastest varying) spatial dimension.
	// The result has shape (N, C, ...S).
	GridSample(input, coords *RawTensor, padding PaddingMode, alignCorners bool) *RawTensor

	// GridResize linearly resizes the spatial dimensions of input
	// (N, C, ...X) to the given size (outermost spatial dimension first).
	GridResize(input *RawTensor, size []int, alignCorners bool) *RawTensor

	// CubicBSpline evaluates a dense field from cubic B-spline
	// coefficients (N, C, ...K) with the given integer control point
	// stride per spatial dimension (outermost first). The result has
	// spatial shape size.
	CubicBSpline(input *RawTensor, stride, size []int) *RawTensor

	// Backward kernels for the sampling operations, used by the autodiff
	// tape. Each takes the forward inputs plus the output gradient and
	// returns the gradient with respect to the named input.
	GridSampleInputBackward(input, coords, grad *RawTensor, padding PaddingMode, alignCorners bool) *RawTensor
	GridSampleCoordsBackward(input, coords, grad *RawTensor, padding PaddingMode, alignCorners bool) *RawTensor
	GridResizeBackward(input, grad *RawTensor, alignCorners bool) *RawTensor
	CubicBSplineBackward(input, grad *RawTensor, stride []int) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
