package grid

import (
	"fmt"

	"github.com/warp-ml/warp/internal/tensor"
)

// Coords returns the coordinates of all grid points in the given domain as
// a tensor of shape (1, Z, Y, X, D) with components ordered (x, y, z).
// The result is a constant; it does not participate in differentiation.
func (g Grid) Coords(domain Domain, b tensor.Backend) (*tensor.Tensor, error) {
	d := g.Dim()
	shape := append(tensor.Shape{1}, g.Shape()...)
	shape = append(shape, d)
	out := tensor.Zeros(shape, b)
	data := out.Data()

	var world affine
	if domain == World {
		var err error
		world, err = g.fromVoxel(World)
		if err != nil {
			return nil, err
		}
	}

	// Precompute per-axis coordinate values from grid indices.
	values := make([][]float64, d)
	for axis := 0; axis < d; axis++ {
		n := g.size[axis]
		values[axis] = make([]float64, n)
		for i := 0; i < n; i++ {
			switch domain {
			case Voxel, World:
				values[axis][i] = float64(i)
			case Cube:
				values[axis][i] = (2*float64(i)+1)/float64(n) - 1
			case CubeCorners:
				if n > 1 {
					values[axis][i] = 2*float64(i)/float64(n-1) - 1
				}
			default:
				return nil, fmt.Errorf("grid coords: unknown domain %v", domain)
			}
		}
	}

	spatial := g.Shape()
	idx := make([]int, d) // index over tensor order (Z, Y, X)
	point := make([]float64, d)
	for p := 0; p < g.NumPoints(); p++ {
		for j := 0; j < d; j++ {
			axis := j
			point[j] = values[axis][idx[d-1-j]]
		}
		base := p * d
		if domain == World {
			for r := 0; r < d; r++ {
				sum := world.b[r]
				for c := 0; c < d; c++ {
					sum += world.a[r*d+c] * point[c]
				}
				data[base+r] = sum
			}
		} else {
			copy(data[base:base+d], point)
		}
		for j := d - 1; j >= 0; j-- {
			idx[j]++
			if idx[j] < spatial[j] {
				break
			}
			idx[j] = 0
		}
	}
	return out, nil
}
