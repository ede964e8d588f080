// Package tensor implements the differentiable tensor substrate used by
// the Warp spatial transformation toolkit.
//
// The package provides:
//   - Shape: tensor dimensions and broadcasting rules
//   - RawTensor: low-level float64 buffer with copy-on-write semantics
//   - Backend: interface for compute implementations (see backend/cpu)
//   - Tensor: high-level handle binding a RawTensor to a Backend
//
// Gradient tracking is layered on top by the autodiff package, which wraps
// any Backend in a recording decorator. Tensors themselves are
// device-agnostic; all numeric work happens in the backend.
package tensor
