package cpu

import (
	"testing"

	"github.com/warp-ml/warp/internal/tensor"
)

func TestReshape(t *testing.T) {
	backend := New()
	x := newFilled(t, tensor.Shape{2, 3}, []float64{1, 2, 3, 4, 5, 6})

	result := backend.Reshape(x, tensor.Shape{3, 2})
	if !result.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("Expected shape [3 2], got %v", result.Shape())
	}
	// Row-major layout is preserved.
	for i := 0; i < 6; i++ {
		if result.Data()[i] != float64(i+1) {
			t.Errorf("Element %d: expected %v, got %v", i, i+1, result.Data()[i])
		}
	}
}

func TestTranspose_2D(t *testing.T) {
	backend := New()
	x := newFilled(t, tensor.Shape{2, 3}, []float64{1, 2, 3, 4, 5, 6})

	result := backend.Transpose(x, 1, 0)
	if !result.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("Expected shape [3 2], got %v", result.Shape())
	}
	expected := []float64{1, 4, 2, 5, 3, 6}
	for i, v := range expected {
		if result.Data()[i] != v {
			t.Errorf("Element %d: expected %v, got %v", i, v, result.Data()[i])
		}
	}
}

func TestTranspose_MoveAxisToEnd(t *testing.T) {
	backend := New()
	// (1, 2, 3) -> (1, 3, 2), the channel reorder used for vector fields.
	x := newFilled(t, tensor.Shape{1, 2, 3}, []float64{1, 2, 3, 4, 5, 6})

	result := backend.Transpose(x, 0, 2, 1)
	if !result.Shape().Equal(tensor.Shape{1, 3, 2}) {
		t.Fatalf("Expected shape [1 3 2], got %v", result.Shape())
	}
	expected := []float64{1, 4, 2, 5, 3, 6}
	for i, v := range expected {
		if result.Data()[i] != v {
			t.Errorf("Element %d: expected %v, got %v", i, v, result.Data()[i])
		}
	}
}

func TestFlip(t *testing.T) {
	backend := New()
	x := newFilled(t, tensor.Shape{2, 2}, []float64{1, 2, 3, 4})

	rows := backend.Flip(x, 0)
	expected := []float64{3, 4, 1, 2}
	for i, v := range expected {
		if rows.Data()[i] != v {
			t.Errorf("Flip rows element %d: expected %v, got %v", i, v, rows.Data()[i])
		}
	}

	both := backend.Flip(x, 0, 1)
	expected = []float64{4, 3, 2, 1}
	for i, v := range expected {
		if both.Data()[i] != v {
			t.Errorf("Flip both element %d: expected %v, got %v", i, v, both.Data()[i])
		}
	}
}

func TestNarrow(t *testing.T) {
	backend := New()
	x := newFilled(t, tensor.Shape{2, 4}, []float64{1, 2, 3, 4, 5, 6, 7, 8})

	result := backend.Narrow(x, 1, 1, 2)
	if !result.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("Expected shape [2 2], got %v", result.Shape())
	}
	expected := []float64{2, 3, 6, 7}
	for i, v := range expected {
		if result.Data()[i] != v {
			t.Errorf("Element %d: expected %v, got %v", i, v, result.Data()[i])
		}
	}
}

func TestCat(t *testing.T) {
	backend := New()
	a := newFilled(t, tensor.Shape{1, 2}, []float64{1, 2})
	b := newFilled(t, tensor.Shape{1, 2}, []float64{3, 4})

	dim0 := backend.Cat([]*tensor.RawTensor{a, b}, 0)
	if !dim0.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("Expected shape [2 2], got %v", dim0.Shape())
	}
	expected := []float64{1, 2, 3, 4}
	for i, v := range expected {
		if dim0.Data()[i] != v {
			t.Errorf("Cat dim 0 element %d: expected %v, got %v", i, v, dim0.Data()[i])
		}
	}

	dim1 := backend.Cat([]*tensor.RawTensor{a, b}, 1)
	if !dim1.Shape().Equal(tensor.Shape{1, 4}) {
		t.Fatalf("Expected shape [1 4], got %v", dim1.Shape())
	}
	for i, v := range expected {
		if dim1.Data()[i] != v {
			t.Errorf("Cat dim 1 element %d: expected %v, got %v", i, v, dim1.Data()[i])
		}
	}
}
