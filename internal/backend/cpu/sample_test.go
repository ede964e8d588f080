package cpu

import (
	"math"
	"testing"

	"github.com/warp-ml/warp/internal/tensor"
)

func TestGridSample_1D_AlignCorners(t *testing.T) {
	backend := New()
	input := newFilled(t, tensor.Shape{1, 1, 4}, []float64{0, 1, 2, 3})
	coords := newFilled(t, tensor.Shape{1, 3, 1}, []float64{-1, 0, 1})

	result := backend.GridSample(input, coords, tensor.PadBorder, true)
	if !result.Shape().Equal(tensor.Shape{1, 1, 3}) {
		t.Fatalf("Expected shape [1 1 3], got %v", result.Shape())
	}
	expected := []float64{0, 1.5, 3}
	for i, v := range expected {
		if math.Abs(result.Data()[i]-v) > 1e-12 {
			t.Errorf("Sample %d: expected %v, got %v", i, v, result.Data()[i])
		}
	}
}

func TestGridSample_2D_Corners(t *testing.T) {
	backend := New()
	// Rows are Y, columns are X.
	input := newFilled(t, tensor.Shape{1, 1, 2, 2}, []float64{1, 2, 3, 4})
	// Components ordered (x, y).
	coords := newFilled(t, tensor.Shape{1, 4, 2}, []float64{
		-1, -1,
		1, -1,
		-1, 1,
		1, 1,
	})

	result := backend.GridSample(input, coords, tensor.PadBorder, true)
	expected := []float64{1, 2, 3, 4}
	for i, v := range expected {
		if math.Abs(result.Data()[i]-v) > 1e-12 {
			t.Errorf("Corner %d: expected %v, got %v", i, v, result.Data()[i])
		}
	}
}

func TestGridSample_2D_Center(t *testing.T) {
	backend := New()
	input := newFilled(t, tensor.Shape{1, 1, 2, 2}, []float64{1, 2, 3, 4})
	coords := newFilled(t, tensor.Shape{1, 1, 2}, []float64{0, 0})

	result := backend.GridSample(input, coords, tensor.PadBorder, true)
	if math.Abs(result.Data()[0]-2.5) > 1e-12 {
		t.Errorf("Center: expected 2.5, got %v", result.Data()[0])
	}
}

func TestGridSample_PaddingModes(t *testing.T) {
	backend := New()
	input := newFilled(t, tensor.Shape{1, 1, 2}, []float64{10, 20})
	coords := newFilled(t, tensor.Shape{1, 1, 1}, []float64{-1})

	// Without align_corners, c = -1 lies half a voxel outside the first
	// point. Zeros padding sees only half the first value.
	zeros := backend.GridSample(input, coords, tensor.PadZeros, false)
	if math.Abs(zeros.Data()[0]-5) > 1e-12 {
		t.Errorf("Zeros padding: expected 5, got %v", zeros.Data()[0])
	}

	border := backend.GridSample(input, coords, tensor.PadBorder, false)
	if math.Abs(border.Data()[0]-10) > 1e-12 {
		t.Errorf("Border padding: expected 10, got %v", border.Data()[0])
	}
}

func TestGridSample_BatchBroadcast(t *testing.T) {
	backend := New()
	input := newFilled(t, tensor.Shape{2, 1, 2}, []float64{1, 2, 10, 20})
	coords := newFilled(t, tensor.Shape{1, 1, 1}, []float64{1})

	result := backend.GridSample(input, coords, tensor.PadBorder, true)
	if !result.Shape().Equal(tensor.Shape{2, 1, 1}) {
		t.Fatalf("Expected shape [2 1 1], got %v", result.Shape())
	}
	if result.Data()[0] != 2 || result.Data()[1] != 20 {
		t.Errorf("Expected [2 20], got %v", result.Data())
	}
}

func TestGridResize_AlignCorners(t *testing.T) {
	backend := New()
	input := newFilled(t, tensor.Shape{1, 1, 2}, []float64{0, 1})

	result := backend.GridResize(input, []int{3}, true)
	expected := []float64{0, 0.5, 1}
	for i, v := range expected {
		if math.Abs(result.Data()[i]-v) > 1e-12 {
			t.Errorf("Element %d: expected %v, got %v", i, v, result.Data()[i])
		}
	}
}

func TestGridResize_HalfPixelCenters(t *testing.T) {
	backend := New()
	input := newFilled(t, tensor.Shape{1, 1, 2}, []float64{0, 1})

	result := backend.GridResize(input, []int{4}, false)
	expected := []float64{0, 0.25, 0.75, 1}
	for i, v := range expected {
		if math.Abs(result.Data()[i]-v) > 1e-12 {
			t.Errorf("Element %d: expected %v, got %v", i, v, result.Data()[i])
		}
	}
}

func TestGridResize_2D_Identity(t *testing.T) {
	backend := New()
	input := newFilled(t, tensor.Shape{1, 1, 2, 3}, []float64{1, 2, 3, 4, 5, 6})

	result := backend.GridResize(input, []int{2, 3}, true)
	for i := 0; i < 6; i++ {
		if result.Data()[i] != input.Data()[i] {
			t.Errorf("Element %d: expected %v, got %v", i, input.Data()[i], result.Data()[i])
		}
	}
}

func TestCubicBSpline_PartitionOfUnity(t *testing.T) {
	backend := New()
	coeff, _ := tensor.NewRaw(tensor.Shape{1, 1, 7}, tensor.CPU)
	for i := range coeff.Data() {
		coeff.Data()[i] = 1
	}

	result := backend.CubicBSpline(coeff, []int{2}, []int{4})
	for i, v := range result.Data() {
		if math.Abs(v-1) > 1e-12 {
			t.Errorf("Element %d: expected 1, got %v", i, v)
		}
	}
}

func TestCubicBSpline_SingleCoefficient(t *testing.T) {
	backend := New()
	coeff, _ := tensor.NewRaw(tensor.Shape{1, 1, 7}, tensor.CPU)
	coeff.Data()[3] = 1

	result := backend.CubicBSpline(coeff, []int{1}, []int{5})
	expected := []float64{0, 0, 1.0 / 6, 4.0 / 6, 1.0 / 6}
	for i, v := range expected {
		if math.Abs(result.Data()[i]-v) > 1e-12 {
			t.Errorf("Element %d: expected %v, got %v", i, v, result.Data()[i])
		}
	}
}

func TestControlPoints(t *testing.T) {
	cases := []struct {
		size, stride, want int
	}{
		{32, 4, 11},
		{33, 4, 12},
		{16, 1, 19},
	}
	for _, c := range cases {
		if got := ControlPoints(c.size, c.stride); got != c.want {
			t.Errorf("ControlPoints(%d, %d): expected %d, got %d", c.size, c.stride, c.want, got)
		}
	}
}
