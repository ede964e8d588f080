package cpu

import (
	"math"
	"testing"

	"github.com/warp-ml/warp/internal/tensor"
)

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// fill writes a deterministic pseudo-random pattern.
func fill(r *tensor.RawTensor, seed float64) {
	d := r.Data()
	v := seed
	for i := range d {
		v = math.Mod(v*1.7+0.3, 1.9)
		d[i] = v - 0.9
	}
}

// Sampling is linear in the input, so the input gradient must satisfy the
// adjoint identity <g, A x> == <A' g, x>.
func TestGridSampleInputBackward_Adjoint(t *testing.T) {
	backend := New()
	input, _ := tensor.NewRaw(tensor.Shape{1, 2, 3, 4}, tensor.CPU)
	coords, _ := tensor.NewRaw(tensor.Shape{1, 5, 2}, tensor.CPU)
	grad, _ := tensor.NewRaw(tensor.Shape{1, 2, 5}, tensor.CPU)
	fill(input, 0.1)
	fill(coords, 0.5)
	fill(grad, 0.7)

	for _, padding := range []tensor.PaddingMode{tensor.PadZeros, tensor.PadBorder} {
		out := backend.GridSample(input, coords, padding, true)
		inputGrad := backend.GridSampleInputBackward(input, coords, grad, padding, true)

		lhs := dot(grad.Data(), out.Data())
		rhs := dot(inputGrad.Data(), input.Data())
		if math.Abs(lhs-rhs) > 1e-10 {
			t.Errorf("Padding %v: adjoint mismatch: %v vs %v", padding, lhs, rhs)
		}
	}
}

func TestGridResizeBackward_Adjoint(t *testing.T) {
	backend := New()
	input, _ := tensor.NewRaw(tensor.Shape{1, 1, 3, 3}, tensor.CPU)
	fill(input, 0.2)

	for _, align := range []bool{true, false} {
		out := backend.GridResize(input, []int{5, 4}, align)
		grad := out.Copy()
		fill(grad, 0.4)

		inputGrad := backend.GridResizeBackward(input, grad, align)
		if !inputGrad.Shape().Equal(input.Shape()) {
			t.Fatalf("Expected gradient shape %v, got %v", input.Shape(), inputGrad.Shape())
		}
		lhs := dot(grad.Data(), out.Data())
		rhs := dot(inputGrad.Data(), input.Data())
		if math.Abs(lhs-rhs) > 1e-10 {
			t.Errorf("Align %v: adjoint mismatch: %v vs %v", align, lhs, rhs)
		}
	}
}

func TestCubicBSplineBackward_Adjoint(t *testing.T) {
	backend := New()
	coeff, _ := tensor.NewRaw(tensor.Shape{1, 2, 7, 6}, tensor.CPU)
	fill(coeff, 0.3)
	stride := []int{3, 2}
	size := []int{9, 6}

	out := backend.CubicBSpline(coeff, stride, size)
	grad := out.Copy()
	fill(grad, 0.6)

	coeffGrad := backend.CubicBSplineBackward(coeff, grad, stride)
	if !coeffGrad.Shape().Equal(coeff.Shape()) {
		t.Fatalf("Expected gradient shape %v, got %v", coeff.Shape(), coeffGrad.Shape())
	}
	lhs := dot(grad.Data(), out.Data())
	rhs := dot(coeffGrad.Data(), coeff.Data())
	if math.Abs(lhs-rhs) > 1e-10 {
		t.Errorf("Adjoint mismatch: %v vs %v", lhs, rhs)
	}
}
