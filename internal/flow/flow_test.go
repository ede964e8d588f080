package flow

import (
	"math"
	"testing"

	"github.com/warp-ml/warp/internal/backend/cpu"
	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/tensor"
)

func constantField(t *testing.T, g grid.Grid, domain grid.Domain, vec []float64, b tensor.Backend) Field {
	t.Helper()
	d := g.Dim()
	n := g.NumPoints()
	data := make([]float64, d*n)
	for j := 0; j < d; j++ {
		for i := 0; i < n; i++ {
			data[j*n+i] = vec[j]
		}
	}
	shape := append(tensor.Shape{1, d}, g.Shape()...)
	raw, err := tensor.FromSlice(data, shape, b)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	f, err := NewField(raw, g, domain)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	return f
}

func TestNewField_Validation(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{4, 3})

	// Wrong channel count.
	bad := tensor.Zeros(tensor.Shape{1, 3, 3, 4}, backend)
	if _, err := NewField(bad, g, grid.Cube); err == nil {
		t.Error("Expected error for wrong channel count")
	}
	// Wrong spatial shape.
	bad = tensor.Zeros(tensor.Shape{1, 2, 4, 3}, backend)
	if _, err := NewField(bad, g, grid.Cube); err == nil {
		t.Error("Expected error for mismatched spatial shape")
	}
	// Wrong rank.
	bad = tensor.Zeros(tensor.Shape{1, 2, 12}, backend)
	if _, err := NewField(bad, g, grid.Cube); err == nil {
		t.Error("Expected error for wrong rank")
	}
	// Correct: (N, D, Y, X).
	good := tensor.Zeros(tensor.Shape{2, 2, 3, 4}, backend)
	f, err := NewField(good, g, grid.Cube)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.Batch() != 2 || f.Dim() != 2 {
		t.Errorf("Expected batch 2 dim 2, got %d %d", f.Batch(), f.Dim())
	}
}

func TestFieldToPoints_RoundTrip(t *testing.T) {
	backend := cpu.New()
	data, _ := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		tensor.Shape{1, 2, 2, 3}, backend)

	points := FieldToPoints(data)
	if !points.Shape().Equal(tensor.Shape{1, 2, 3, 2}) {
		t.Fatalf("Expected shape [1 2 3 2], got %v", points.Shape())
	}
	// First point carries (channel0[0], channel1[0]).
	if points.Data()[0] != 1 || points.Data()[1] != 7 {
		t.Errorf("Expected first point (1, 7), got (%v, %v)", points.Data()[0], points.Data()[1])
	}

	back := PointsToField(points)
	if !back.Shape().Equal(data.Shape()) {
		t.Fatalf("Expected shape %v, got %v", data.Shape(), back.Shape())
	}
	for i, v := range data.Data() {
		if back.Data()[i] != v {
			t.Errorf("Element %d: expected %v, got %v", i, v, back.Data()[i])
		}
	}
}

func TestField_ToDomain(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{4, 4}, grid.WithSpacing(2, 2))
	f := constantField(t, g, grid.Voxel, []float64{1, 2}, backend)

	world, err := f.ToDomain(grid.World, backend)
	if err != nil {
		t.Fatalf("ToDomain: %v", err)
	}
	// Voxel to world scales vectors by the spacing.
	data := world.Tensor().Data()
	n := g.NumPoints()
	if math.Abs(data[0]-2) > 1e-12 {
		t.Errorf("Expected x component 2, got %v", data[0])
	}
	if math.Abs(data[n]-4) > 1e-12 {
		t.Errorf("Expected y component 4, got %v", data[n])
	}
}

func TestExp_ZeroVelocity(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{6, 6})
	v := Zero(g, grid.Cube, 1, backend)

	u, err := Exp(v, 0, backend)
	if err != nil {
		t.Fatalf("Exp: %v", err)
	}
	for i, val := range u.Tensor().Data() {
		if val != 0 {
			t.Fatalf("Element %d: expected 0, got %v", i, val)
		}
	}
}

func TestExp_ConstantVelocity(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{16, 16})
	// A small constant velocity integrates to the same constant
	// displacement away from the boundary.
	v := constantField(t, g, grid.Cube, []float64{0.05, 0}, backend)

	u, err := Exp(v, DefaultExpSteps, backend)
	if err != nil {
		t.Fatalf("Exp: %v", err)
	}
	// Inspect an interior point: row 8, column 8 of channel 0.
	data := u.Tensor().Data()
	idx := 8*16 + 8
	if math.Abs(data[idx]-0.05) > 1e-6 {
		t.Errorf("Expected interior displacement 0.05, got %v", data[idx])
	}
}

func TestExp_RequiresNormalizedDomain(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{4, 4})
	v := Zero(g, grid.Voxel, 1, backend)
	if _, err := Exp(v, 0, backend); err == nil {
		t.Error("Expected error for voxel domain velocity")
	}
}

func TestCompose_ConstantFields(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{16, 16})
	a := constantField(t, g, grid.Cube, []float64{0.1, 0}, backend)
	b := constantField(t, g, grid.Cube, []float64{0, 0.2}, backend)

	w, err := Compose(b, a, backend)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	// Constant fields compose to the sum (border effects aside).
	data := w.Tensor().Data()
	n := g.NumPoints()
	idx := 8*16 + 8
	if math.Abs(data[idx]-0.1) > 1e-9 {
		t.Errorf("Expected x component 0.1, got %v", data[idx])
	}
	if math.Abs(data[n+idx]-0.2) > 1e-9 {
		t.Errorf("Expected y component 0.2, got %v", data[n+idx])
	}
}

func TestCompose_Mismatch(t *testing.T) {
	backend := cpu.New()
	a := Zero(grid.MustNew([]int{4, 4}), grid.Cube, 1, backend)
	b := Zero(grid.MustNew([]int{5, 5}), grid.Cube, 1, backend)
	if _, err := Compose(a, b, backend); err == nil {
		t.Error("Expected error for mismatched grids")
	}
	c := Zero(grid.MustNew([]int{4, 4}), grid.CubeCorners, 1, backend)
	if _, err := Compose(a, c, backend); err == nil {
		t.Error("Expected error for mismatched domains")
	}
}

func TestWarp_ZeroDisplacementNearIdentity(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{4, 4}, grid.WithAlignCorners(true))
	f := Zero(g, grid.CubeCorners, 1, backend)

	img := make([]float64, 16)
	for i := range img {
		img[i] = float64(i)
	}
	imgT, _ := tensor.FromSlice(img, tensor.Shape{1, 1, 4, 4}, backend)

	warped, err := Warp(imgT, f, backend)
	if err != nil {
		t.Fatalf("Warp: %v", err)
	}
	for i, v := range img {
		if math.Abs(warped.Data()[i]-v) > 1e-9 {
			t.Errorf("Element %d: expected %v, got %v", i, v, warped.Data()[i])
		}
	}
}

func TestWarp_ConstantShift(t *testing.T) {
	backend := cpu.New()
	g := grid.MustNew([]int{4, 1}, grid.WithAlignCorners(true))
	// Shift sampling one voxel to the right: 2/(size-1) in corner units.
	f := constantField(t, g, grid.CubeCorners, []float64{2.0 / 3, 0}, backend)

	imgT, _ := tensor.FromSlice([]float64{10, 20, 30, 40}, tensor.Shape{1, 1, 1, 4}, backend)
	warped, err := Warp(imgT, f, backend)
	if err != nil {
		t.Fatalf("Warp: %v", err)
	}
	// Output voxel i reads input voxel i+1; the last falls outside.
	expected := []float64{20, 30, 40}
	for i, v := range expected {
		if math.Abs(warped.Data()[i]-v) > 1e-9 {
			t.Errorf("Element %d: expected %v, got %v", i, v, warped.Data()[i])
		}
	}
}
