package tensor

import "fmt"

// Tensor is a multi-dimensional float64 array bound to a compute backend.
// Operations dispatch to the backend, which may be a plain CPU backend or
// an autodiff decorator recording the computation for a later backward
// pass.
type Tensor struct {
	raw          *RawTensor
	backend      Backend
	requiresGrad bool
}

// New creates a Tensor from a RawTensor and backend.
func New(raw *RawTensor, b Backend) *Tensor {
	return &Tensor{raw: raw, backend: b}
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape, b Backend) *Tensor {
	raw, err := NewRaw(shape, b.Device())
	if err != nil {
		panic(fmt.Sprintf("zeros: %v", err))
	}
	return New(raw, b)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape, b Backend) *Tensor {
	return Full(shape, 1, b)
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, value float64, b Backend) *Tensor {
	t := Zeros(shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// FromSlice creates a tensor from a Go slice. The slice is copied.
func FromSlice(data []float64, shape Shape, b Backend) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t := Zeros(shape, b)
	copy(t.Data(), data)
	return t, nil
}

// Eye creates a batch of n×n identity matrices with shape (groups, n, n).
func Eye(groups, n int, b Backend) *Tensor {
	t := Zeros(Shape{groups, n, n}, b)
	data := t.Data()
	for g := 0; g < groups; g++ {
		for i := 0; i < n; i++ {
			data[g*n*n+i*n+i] = 1
		}
	}
	return t
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.raw.Shape()
}

// Device returns the tensor's compute device.
func (t *Tensor) Device() Device {
	return t.raw.Device()
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.raw.NumElements()
}

// Raw returns the underlying RawTensor.
// Used by backend implementations and the autodiff tape.
func (t *Tensor) Raw() *RawTensor {
	return t.raw
}

// Backend returns the computation backend.
func (t *Tensor) Backend() Backend {
	return t.backend
}

// Data returns the element slice backing this tensor (zero-copy).
// WARNING: Modifications to the returned slice modify the tensor.
func (t *Tensor) Data() []float64 {
	return t.raw.Data()
}

// Item returns the scalar value of a single-element tensor.
// Panics if the tensor has more than one element.
func (t *Tensor) Item() float64 {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("Item() only works for scalar tensors, got shape %v", t.Shape()))
	}
	return t.Data()[0]
}

// At returns the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor) At(indices ...int) float64 {
	return t.Data()[t.flatIndex(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor) Set(value float64, indices ...int) {
	t.Data()[t.flatIndex(indices)] = value
}

func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != len(t.Shape()) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(t.Shape()), len(indices)))
	}
	offset := 0
	strides := t.raw.Strides()
	for i, idx := range indices {
		if idx < 0 || idx >= t.Shape()[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, t.Shape()[i]))
		}
		offset += idx * strides[i]
	}
	return offset
}

// Clone creates a copy sharing the buffer copy-on-write.
// The clone does not track gradients.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{raw: t.raw.Clone(), backend: t.backend}
}

// Copy creates a deep copy with an independent buffer.
func (t *Tensor) Copy() *Tensor {
	return &Tensor{raw: t.raw.Copy(), backend: t.backend}
}

// Detach returns a tensor sharing the same data without gradient tracking.
func (t *Tensor) Detach() *Tensor {
	return &Tensor{raw: t.raw, backend: t.backend}
}

// RequireGrad marks this tensor for gradient computation and returns it.
func (t *Tensor) RequireGrad() *Tensor {
	t.requiresGrad = true
	return t
}

// RequiresGrad returns true if this tensor requires gradient computation.
func (t *Tensor) RequiresGrad() bool {
	return t.requiresGrad
}

// String returns a human-readable representation of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v on %s", t.raw.Shape(), t.raw.Device())
}

// wrap binds a backend result to a new Tensor.
func (t *Tensor) wrap(raw *RawTensor) *Tensor {
	return &Tensor{raw: raw, backend: t.backend}
}

// Add performs element-wise addition with broadcasting.
func (t *Tensor) Add(other *Tensor) *Tensor {
	return t.wrap(t.backend.Add(t.raw, other.raw))
}

// Sub performs element-wise subtraction with broadcasting.
func (t *Tensor) Sub(other *Tensor) *Tensor {
	return t.wrap(t.backend.Sub(t.raw, other.raw))
}

// Mul performs element-wise multiplication with broadcasting.
func (t *Tensor) Mul(other *Tensor) *Tensor {
	return t.wrap(t.backend.Mul(t.raw, other.raw))
}

// Div performs element-wise division with broadcasting.
func (t *Tensor) Div(other *Tensor) *Tensor {
	return t.wrap(t.backend.Div(t.raw, other.raw))
}

// AddScalar adds a scalar to every element.
func (t *Tensor) AddScalar(s float64) *Tensor {
	return t.wrap(t.backend.AddScalar(t.raw, s))
}

// MulScalar multiplies every element by a scalar.
func (t *Tensor) MulScalar(s float64) *Tensor {
	return t.wrap(t.backend.MulScalar(t.raw, s))
}

// Neg negates every element.
func (t *Tensor) Neg() *Tensor {
	return t.MulScalar(-1)
}

// Exp computes the element-wise exponential.
func (t *Tensor) Exp() *Tensor {
	return t.wrap(t.backend.Exp(t.raw))
}

// Sqrt computes the element-wise square root.
func (t *Tensor) Sqrt() *Tensor {
	return t.wrap(t.backend.Sqrt(t.raw))
}

// Abs computes the element-wise absolute value.
func (t *Tensor) Abs() *Tensor {
	return t.wrap(t.backend.Abs(t.raw))
}

// Sin computes the element-wise sine.
func (t *Tensor) Sin() *Tensor {
	return t.wrap(t.backend.Sin(t.raw))
}

// Cos computes the element-wise cosine.
func (t *Tensor) Cos() *Tensor {
	return t.wrap(t.backend.Cos(t.raw))
}

// Sum reduces all elements to a tensor of shape {1}.
func (t *Tensor) Sum() *Tensor {
	return t.wrap(t.backend.Sum(t.raw))
}

// Mean reduces all elements to their mean, shape {1}.
func (t *Tensor) Mean() *Tensor {
	return t.wrap(t.backend.Mean(t.raw))
}

// SumDim sums along a dimension.
func (t *Tensor) SumDim(dim int, keepDim bool) *Tensor {
	return t.wrap(t.backend.SumDim(t.raw, dim, keepDim))
}

// MeanDim averages along a dimension.
func (t *Tensor) MeanDim(dim int, keepDim bool) *Tensor {
	return t.wrap(t.backend.MeanDim(t.raw, dim, keepDim))
}

// BatchMatMul performs batched matrix multiplication [N,M,K]@[N,K,P].
func (t *Tensor) BatchMatMul(other *Tensor) *Tensor {
	return t.wrap(t.backend.BatchMatMul(t.raw, other.raw))
}

// Reshape returns a tensor with the same data and a new shape.
func (t *Tensor) Reshape(shape Shape) *Tensor {
	return t.wrap(t.backend.Reshape(t.raw, shape))
}

// Transpose permutes the tensor's axes. Without arguments all axes are
// reversed.
func (t *Tensor) Transpose(axes ...int) *Tensor {
	return t.wrap(t.backend.Transpose(t.raw, axes...))
}

// Flip reverses the tensor along the given dimensions.
func (t *Tensor) Flip(dims ...int) *Tensor {
	return t.wrap(t.backend.Flip(t.raw, dims...))
}

// Narrow returns the slice [start, start+length) along a dimension.
func (t *Tensor) Narrow(dim, start, length int) *Tensor {
	return t.wrap(t.backend.Narrow(t.raw, dim, start, length))
}

// Cat concatenates tensors along a dimension.
func Cat(tensors []*Tensor, dim int) *Tensor {
	if len(tensors) == 0 {
		panic("cat: empty tensor list")
	}
	raws := make([]*RawTensor, len(tensors))
	for i, t := range tensors {
		raws[i] = t.raw
	}
	first := tensors[0]
	return first.wrap(first.backend.Cat(raws, dim))
}

// GridSample evaluates this tensor (N, C, ...X) at normalized coordinates
// (N, ...S, D) with linear interpolation.
func (t *Tensor) GridSample(coords *Tensor, padding PaddingMode, alignCorners bool) *Tensor {
	return t.wrap(t.backend.GridSample(t.raw, coords.raw, padding, alignCorners))
}

// GridResize linearly resizes the spatial dimensions of this tensor
// (N, C, ...X) to the given size.
func (t *Tensor) GridResize(size []int, alignCorners bool) *Tensor {
	return t.wrap(t.backend.GridResize(t.raw, size, alignCorners))
}

// CubicBSpline evaluates a dense field from cubic B-spline coefficients.
func (t *Tensor) CubicBSpline(stride, size []int) *Tensor {
	return t.wrap(t.backend.CubicBSpline(t.raw, stride, size))
}
