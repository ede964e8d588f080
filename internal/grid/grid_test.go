package grid

import (
	"math"
	"testing"

	"github.com/warp-ml/warp/internal/backend/cpu"
)

func TestNew_Defaults(t *testing.T) {
	g, err := New([]int{4, 3})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if g.Dim() != 2 {
		t.Errorf("Expected 2 dims, got %d", g.Dim())
	}
	for i, s := range g.Spacing() {
		if s != 1 {
			t.Errorf("Spacing %d: expected 1, got %v", i, s)
		}
	}
	for i, o := range g.Origin() {
		if o != 0 {
			t.Errorf("Origin %d: expected 0, got %v", i, o)
		}
	}
	expected := []float64{1, 0, 0, 1}
	for i, d := range g.Direction() {
		if d != expected[i] {
			t.Errorf("Direction %d: expected %v, got %v", i, expected[i], d)
		}
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("Expected error for empty size")
	}
	if _, err := New([]int{4, 0}); err == nil {
		t.Error("Expected error for zero size")
	}
	if _, err := New([]int{4}, WithSpacing(-1)); err == nil {
		t.Error("Expected error for negative spacing")
	}
	if _, err := New([]int{4, 4}, WithSpacing(1)); err == nil {
		t.Error("Expected error for inconsistent spacing rank")
	}
}

func TestGrid_ShapeReversesSize(t *testing.T) {
	g := MustNew([]int{5, 3, 2}) // (X, Y, Z)
	shape := g.Shape()           // (Z, Y, X)
	expected := []int{2, 3, 5}
	for i, s := range expected {
		if shape[i] != s {
			t.Errorf("Shape %d: expected %d, got %d", i, s, shape[i])
		}
	}
	if g.NumPoints() != 30 {
		t.Errorf("Expected 30 points, got %d", g.NumPoints())
	}
}

func TestGrid_CenterAndExtent(t *testing.T) {
	g := MustNew([]int{5, 3}, WithSpacing(2, 1), WithOrigin(1, 1))
	center := g.Center()
	// x: 1 + 2*(5-1)/2 = 9, y: 1 + 1*(3-1)/2 = 2
	if center[0] != 9 || center[1] != 2 {
		t.Errorf("Expected center [9 2], got %v", center)
	}
	extent := g.Extent()
	if extent[0] != 10 || extent[1] != 3 {
		t.Errorf("Expected extent [10 3], got %v", extent)
	}
	cube := g.CubeExtent()
	if cube[0] != 8 || cube[1] != 2 {
		t.Errorf("Expected cube extent [8 2], got %v", cube)
	}
}

func TestGrid_WithCenter(t *testing.T) {
	g := MustNew([]int{5, 5}, WithSpacing(2, 2), WithCenter(0, 0))
	center := g.Center()
	if math.Abs(center[0]) > 1e-12 || math.Abs(center[1]) > 1e-12 {
		t.Errorf("Expected center at origin, got %v", center)
	}
	origin := g.Origin()
	if origin[0] != -4 || origin[1] != -4 {
		t.Errorf("Expected origin [-4 -4], got %v", origin)
	}
}

func TestGrid_Resize(t *testing.T) {
	g := MustNew([]int{8, 8}, WithSpacing(1, 1), WithCenter(3, -2))
	resized, err := g.Resize([]int{4, 4})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resized.Size()[0] != 4 {
		t.Errorf("Expected size 4, got %d", resized.Size()[0])
	}
	if resized.Spacing()[0] != 2 {
		t.Errorf("Expected spacing 2, got %v", resized.Spacing()[0])
	}
	center := resized.Center()
	if math.Abs(center[0]-3) > 1e-12 || math.Abs(center[1]+2) > 1e-12 {
		t.Errorf("Expected center preserved at [3 -2], got %v", center)
	}
	// Full extent is preserved.
	if resized.Extent()[0] != g.Extent()[0] {
		t.Errorf("Expected extent %v, got %v", g.Extent()[0], resized.Extent()[0])
	}
}

func TestGrid_Equal(t *testing.T) {
	a := MustNew([]int{4, 4}, WithSpacing(1, 2))
	b := MustNew([]int{4, 4}, WithSpacing(1, 2))
	c := MustNew([]int{4, 4}, WithSpacing(2, 2))
	if !a.Equal(b) {
		t.Error("Expected equal grids")
	}
	if a.Equal(c) {
		t.Error("Expected grids with different spacing to differ")
	}
	d := MustNew([]int{4, 4}, WithSpacing(1, 2), WithAlignCorners(true))
	if a.Equal(d) {
		t.Error("Expected grids with different conventions to differ")
	}
}

func TestGrid_TransformRoundTrip(t *testing.T) {
	backend := cpu.New()
	g := MustNew([]int{6, 4}, WithSpacing(1.5, 2), WithOrigin(-3, 1))

	domains := []Domain{Cube, CubeCorners, Voxel, World}
	points, err := g.Coords(Voxel, backend)
	if err != nil {
		t.Fatalf("Coords: %v", err)
	}
	for _, domain := range domains {
		fwd, err := g.TransformPoints(points, Voxel, domain)
		if err != nil {
			t.Fatalf("TransformPoints to %v: %v", domain, err)
		}
		back, err := g.TransformPoints(fwd, domain, Voxel)
		if err != nil {
			t.Fatalf("TransformPoints from %v: %v", domain, err)
		}
		for i, v := range points.Data() {
			if math.Abs(back.Data()[i]-v) > 1e-9 {
				t.Fatalf("Domain %v: round trip element %d: expected %v, got %v", domain, i, v, back.Data()[i])
			}
		}
	}
}

func TestGrid_TransformVoxelToWorld(t *testing.T) {
	backend := cpu.New()
	g := MustNew([]int{4, 4}, WithSpacing(2, 3), WithOrigin(10, 20))

	m, err := g.Transform(Voxel, World, backend)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	// Row-major (D, D+1): [[2 0 10], [0 3 20]]
	expected := []float64{2, 0, 10, 0, 3, 20}
	for i, v := range expected {
		if math.Abs(m.Data()[i]-v) > 1e-12 {
			t.Errorf("Matrix element %d: expected %v, got %v", i, v, m.Data()[i])
		}
	}
}

func TestGrid_TransformVectorsIgnoresTranslation(t *testing.T) {
	backend := cpu.New()
	g := MustNew([]int{4, 4}, WithSpacing(2, 2), WithOrigin(100, 100))

	vectors, err := g.Coords(Voxel, backend)
	if err != nil {
		t.Fatalf("Coords: %v", err)
	}
	world, err := g.TransformVectors(vectors, Voxel, World)
	if err != nil {
		t.Fatalf("TransformVectors: %v", err)
	}
	// Vectors scale by the spacing but do not pick up the origin.
	for i, v := range vectors.Data() {
		if math.Abs(world.Data()[i]-2*v) > 1e-12 {
			t.Errorf("Vector element %d: expected %v, got %v", i, 2*v, world.Data()[i])
		}
	}
}
