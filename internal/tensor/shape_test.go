package tensor

import (
	"testing"
)

func TestShape_NumElements(t *testing.T) {
	if n := (Shape{2, 3, 4}).NumElements(); n != 24 {
		t.Errorf("Expected 24 elements, got %d", n)
	}
	if n := (Shape{1}).NumElements(); n != 1 {
		t.Errorf("Expected 1 element, got %d", n)
	}
}

func TestShape_Equal(t *testing.T) {
	if !(Shape{2, 3}).Equal(Shape{2, 3}) {
		t.Error("Expected shapes to be equal")
	}
	if (Shape{2, 3}).Equal(Shape{3, 2}) {
		t.Error("Expected shapes to differ")
	}
	if (Shape{2, 3}).Equal(Shape{2, 3, 1}) {
		t.Error("Expected shapes of different rank to differ")
	}
}

func TestShape_ComputeStrides(t *testing.T) {
	strides := (Shape{2, 3, 4}).ComputeStrides()
	expected := []int{12, 4, 1}
	for i, s := range expected {
		if strides[i] != s {
			t.Errorf("Stride %d: expected %d, got %d", i, s, strides[i])
		}
	}
}

func TestBroadcastShapes_Equal(t *testing.T) {
	out, _, err := BroadcastShapes(Shape{2, 3}, Shape{2, 3})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !out.Equal(Shape{2, 3}) {
		t.Errorf("Expected [2 3], got %v", out)
	}
}

func TestBroadcastShapes_Expand(t *testing.T) {
	out, _, err := BroadcastShapes(Shape{4, 1, 3}, Shape{2, 3})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !out.Equal(Shape{4, 2, 3}) {
		t.Errorf("Expected [4 2 3], got %v", out)
	}
}

func TestBroadcastShapes_Scalar(t *testing.T) {
	out, _, err := BroadcastShapes(Shape{1}, Shape{2, 3})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !out.Equal(Shape{2, 3}) {
		t.Errorf("Expected [2 3], got %v", out)
	}
}

func TestBroadcastShapes_Incompatible(t *testing.T) {
	_, _, err := BroadcastShapes(Shape{2, 3}, Shape{4, 3})
	if err == nil {
		t.Error("Expected broadcast error for incompatible shapes")
	}
}
