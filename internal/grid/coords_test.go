package grid

import (
	"math"
	"testing"

	"github.com/warp-ml/warp/internal/backend/cpu"
	"github.com/warp-ml/warp/internal/tensor"
)

func TestCoords_Shape(t *testing.T) {
	backend := cpu.New()
	g := MustNew([]int{4, 3}) // (X, Y)

	coords, err := g.Coords(Cube, backend)
	if err != nil {
		t.Fatalf("Coords: %v", err)
	}
	// (1, Y, X, D)
	if !coords.Shape().Equal(tensor.Shape{1, 3, 4, 2}) {
		t.Errorf("Expected shape [1 3 4 2], got %v", coords.Shape())
	}
}

func TestCoords_CubeConvention(t *testing.T) {
	backend := cpu.New()
	g := MustNew([]int{2}) // 1D

	coords, err := g.Coords(Cube, backend)
	if err != nil {
		t.Fatalf("Coords: %v", err)
	}
	// (2i+1)/n - 1 for n=2: -0.5, 0.5
	expected := []float64{-0.5, 0.5}
	for i, v := range expected {
		if math.Abs(coords.Data()[i]-v) > 1e-12 {
			t.Errorf("Point %d: expected %v, got %v", i, v, coords.Data()[i])
		}
	}
}

func TestCoords_CubeCornersConvention(t *testing.T) {
	backend := cpu.New()
	g := MustNew([]int{3})

	coords, err := g.Coords(CubeCorners, backend)
	if err != nil {
		t.Fatalf("Coords: %v", err)
	}
	expected := []float64{-1, 0, 1}
	for i, v := range expected {
		if math.Abs(coords.Data()[i]-v) > 1e-12 {
			t.Errorf("Point %d: expected %v, got %v", i, v, coords.Data()[i])
		}
	}
}

func TestCoords_ComponentOrder(t *testing.T) {
	backend := cpu.New()
	g := MustNew([]int{3, 2}) // X=3, Y=2

	coords, err := g.Coords(Voxel, backend)
	if err != nil {
		t.Fatalf("Coords: %v", err)
	}
	// Components are (x, y); x varies fastest along the innermost axis.
	data := coords.Data()
	// First point (x=0, y=0), second point (x=1, y=0).
	if data[0] != 0 || data[1] != 0 {
		t.Errorf("Point 0: expected (0, 0), got (%v, %v)", data[0], data[1])
	}
	if data[2] != 1 || data[3] != 0 {
		t.Errorf("Point 1: expected (1, 0), got (%v, %v)", data[2], data[3])
	}
	// Fourth point starts the second row: (x=0, y=1).
	if data[6] != 0 || data[7] != 1 {
		t.Errorf("Point 3: expected (0, 1), got (%v, %v)", data[6], data[7])
	}
}

func TestCoords_World(t *testing.T) {
	backend := cpu.New()
	g := MustNew([]int{2, 2}, WithSpacing(2, 3), WithOrigin(10, 20))

	coords, err := g.Coords(World, backend)
	if err != nil {
		t.Fatalf("Coords: %v", err)
	}
	data := coords.Data()
	// Point (x=1, y=1) is the last: world (10+2, 20+3).
	n := len(data)
	if data[n-2] != 12 || data[n-1] != 23 {
		t.Errorf("Last point: expected (12, 23), got (%v, %v)", data[n-2], data[n-1])
	}
}

func TestParseDomain(t *testing.T) {
	cases := map[string]Domain{
		"cube":         Cube,
		"cube_corners": CubeCorners,
		"grid":         Voxel,
		"voxel":        Voxel,
		"World":        World,
	}
	for s, want := range cases {
		got, err := ParseDomain(s)
		if err != nil {
			t.Errorf("ParseDomain(%q): unexpected error %v", s, err)
		}
		if got != want {
			t.Errorf("ParseDomain(%q): expected %v, got %v", s, want, got)
		}
	}
	if _, err := ParseDomain("bogus"); err == nil {
		t.Error("Expected error for unknown domain")
	}
}

func TestFromAlignCorners(t *testing.T) {
	if FromAlignCorners(true) != CubeCorners {
		t.Error("Expected CubeCorners for align_corners")
	}
	if FromAlignCorners(false) != Cube {
		t.Error("Expected Cube for half-pixel convention")
	}
}
