package cpu

import (
	"testing"

	"github.com/warp-ml/warp/internal/tensor"
)

func TestBatchMatMul_SingleBatch(t *testing.T) {
	backend := New()
	a := newFilled(t, tensor.Shape{1, 2, 2}, []float64{1, 2, 3, 4})
	b := newFilled(t, tensor.Shape{1, 2, 2}, []float64{5, 6, 7, 8})

	result := backend.BatchMatMul(a, b)
	if !result.Shape().Equal(tensor.Shape{1, 2, 2}) {
		t.Fatalf("Expected shape [1 2 2], got %v", result.Shape())
	}
	expected := []float64{19, 22, 43, 50}
	for i, v := range expected {
		if result.Data()[i] != v {
			t.Errorf("Element %d: expected %v, got %v", i, v, result.Data()[i])
		}
	}
}

func TestBatchMatMul_MultiBatch(t *testing.T) {
	backend := New()
	// Batch 0 is the identity, batch 1 doubles.
	a := newFilled(t, tensor.Shape{2, 2, 2}, []float64{1, 0, 0, 1, 2, 0, 0, 2})
	b := newFilled(t, tensor.Shape{2, 2, 1}, []float64{3, 4, 5, 6})

	result := backend.BatchMatMul(a, b)
	if !result.Shape().Equal(tensor.Shape{2, 2, 1}) {
		t.Fatalf("Expected shape [2 2 1], got %v", result.Shape())
	}
	expected := []float64{3, 4, 10, 12}
	for i, v := range expected {
		if result.Data()[i] != v {
			t.Errorf("Element %d: expected %v, got %v", i, v, result.Data()[i])
		}
	}
}

func TestBatchMatMul_BatchOneBroadcast(t *testing.T) {
	backend := New()
	a := newFilled(t, tensor.Shape{1, 2, 2}, []float64{0, 1, 1, 0}) // swap rows
	b := newFilled(t, tensor.Shape{3, 2, 1}, []float64{1, 2, 3, 4, 5, 6})

	result := backend.BatchMatMul(a, b)
	if !result.Shape().Equal(tensor.Shape{3, 2, 1}) {
		t.Fatalf("Expected shape [3 2 1], got %v", result.Shape())
	}
	expected := []float64{2, 1, 4, 3, 6, 5}
	for i, v := range expected {
		if result.Data()[i] != v {
			t.Errorf("Element %d: expected %v, got %v", i, v, result.Data()[i])
		}
	}
}
