package autodiff_test

import (
	"testing"

	"github.com/warp-ml/warp/internal/autodiff"
	"github.com/warp-ml/warp/internal/backend/cpu"
	"github.com/warp-ml/warp/internal/tensor"
)

func TestBackward_AccumulatesReusedInput(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.Clear()
	tape.StartRecording()

	x, _ := tensor.FromSlice([]float64{3}, tensor.Shape{1}, backend)
	y := x.Add(x).Sum() // y = 2x

	grads := backend.Backward(y.Raw())
	grad := grads[x.Raw()]
	if grad == nil {
		t.Fatal("Expected gradient for x")
	}
	if grad.Data()[0] != 2 {
		t.Errorf("Expected accumulated gradient 2, got %v", grad.Data()[0])
	}
}

func TestBackward_NotRecording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.Clear()

	x, _ := tensor.FromSlice([]float64{1, 2}, tensor.Shape{2}, backend)
	y := x.Mul(x).Sum()

	grads := backend.Backward(y.Raw())
	if grads[x.Raw()] != nil {
		t.Error("Expected no gradient without recording")
	}
}

func TestBackward_StopsAtDetachedInput(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.Clear()

	x, _ := tensor.FromSlice([]float64{1, 2}, tensor.Shape{2}, backend)
	frozen := x.Mul(x) // computed before recording starts

	tape.StartRecording()
	y := frozen.AddScalar(1).Sum()

	grads := backend.Backward(y.Raw())
	if grads[frozen.Raw()] == nil {
		t.Error("Expected gradient for the recorded input")
	}
	if grads[x.Raw()] != nil {
		t.Error("Expected no gradient past the unrecorded operation")
	}
}

func TestTape_ClearDropsOperations(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.Clear()
	tape.StartRecording()

	x, _ := tensor.FromSlice([]float64{2}, tensor.Shape{1}, backend)
	y := x.Mul(x).Sum()
	tape.Clear()

	grads := backend.Backward(y.Raw())
	if grads[x.Raw()] != nil {
		t.Error("Expected no gradient after clearing the tape")
	}
}

func TestBackend_Metadata(t *testing.T) {
	backend := autodiff.New(cpu.New())
	if backend.Name() != "Autodiff(CPU)" {
		t.Errorf("Unexpected backend name %q", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Unexpected device %v", backend.Device())
	}
	if backend.Inner() == nil {
		t.Error("Expected inner backend")
	}
}
