// Package losses implements similarity terms and deformation regularizers
// for registration. All losses reduce to a scalar tensor of shape {1} and
// are differentiable through the autodiff tape.
package losses

import (
	"github.com/warp-ml/warp/internal/tensor"
)

// MSE is the mean squared error between two tensors.
func MSE(a, b *tensor.Tensor) *tensor.Tensor {
	diff := a.Sub(b)
	return diff.Mul(diff).Mean()
}

// SSD is the sum of squared differences between two tensors.
func SSD(a, b *tensor.Tensor) *tensor.Tensor {
	diff := a.Sub(b)
	return diff.Mul(diff).Sum()
}

// NCC is the negated normalized cross correlation loss between two image
// batches (N, C, ..., X), computed over all non-batch dimensions. Perfectly
// correlated inputs give a loss of zero, uncorrelated inputs a loss of one.
func NCC(a, b *tensor.Tensor) *tensor.Tensor {
	n := a.Shape()[0]
	m := a.NumElements() / n
	fa := a.Reshape(tensor.Shape{n, m})
	fb := b.Reshape(tensor.Shape{n, m})

	ca := fa.Sub(fa.MeanDim(1, true))
	cb := fb.Sub(fb.MeanDim(1, true))
	num := ca.Mul(cb).SumDim(1, false)
	den := ca.Mul(ca).SumDim(1, false).Sqrt().Mul(cb.Mul(cb).SumDim(1, false).Sqrt())
	ncc := num.Div(den.AddScalar(1e-12)).Mean()
	return ncc.Neg().AddScalar(1)
}

// forwardDiff returns the forward difference of x along dim.
func forwardDiff(x *tensor.Tensor, dim int) *tensor.Tensor {
	n := x.Shape()[dim]
	return x.Narrow(dim, 1, n-1).Sub(x.Narrow(dim, 0, n-1))
}

// secondDiff returns the central second difference of x along dim.
func secondDiff(x *tensor.Tensor, dim int) *tensor.Tensor {
	n := x.Shape()[dim]
	return x.Narrow(dim, 2, n-2).
		Sub(x.Narrow(dim, 1, n-2).MulScalar(2)).
		Add(x.Narrow(dim, 0, n-2))
}

// Diffusion is the first-order smoothness regularizer of a vector field
// (N, D, ..., X): the mean squared forward difference over all spatial
// dimensions.
func Diffusion(u *tensor.Tensor) *tensor.Tensor {
	ndim := len(u.Shape())
	var total *tensor.Tensor
	for dim := 2; dim < ndim; dim++ {
		d := forwardDiff(u, dim)
		term := d.Mul(d).Mean()
		if total == nil {
			total = term
		} else {
			total = total.Add(term)
		}
	}
	return total.MulScalar(0.5)
}

// BendingEnergy is the second-order smoothness regularizer of a vector
// field (N, D, ..., X): the mean squared second differences, with mixed
// partials counted twice.
func BendingEnergy(u *tensor.Tensor) *tensor.Tensor {
	ndim := len(u.Shape())
	var total *tensor.Tensor
	add := func(term *tensor.Tensor) {
		if total == nil {
			total = term
		} else {
			total = total.Add(term)
		}
	}
	for dim := 2; dim < ndim; dim++ {
		d := secondDiff(u, dim)
		add(d.Mul(d).Mean())
	}
	for dim := 2; dim < ndim; dim++ {
		for other := dim + 1; other < ndim; other++ {
			d := forwardDiff(forwardDiff(u, dim), other)
			add(d.Mul(d).Mean().MulScalar(2))
		}
	}
	return total
}
