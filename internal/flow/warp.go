package flow

import (
	"fmt"

	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/tensor"
)

// Sample evaluates a field tensor (N, D, ..., X) at normalized coordinates
// (N, ..., D) with border padding, the convention for resampling vector
// fields.
func Sample(field, coords *tensor.Tensor, alignCorners bool) *tensor.Tensor {
	return field.GridSample(coords, tensor.PadBorder, alignCorners)
}

// Warp resamples the image tensor (N, C, ..., X) at the grid points
// displaced by the field. The displacement components must be normalized
// coordinates matching the grid's sampling convention.
func Warp(image *tensor.Tensor, f Field, b tensor.Backend) (*tensor.Tensor, error) {
	g := f.Grid()
	norm := grid.FromAlignCorners(g.AlignCorners())
	df, err := f.ToDomain(norm, b)
	if err != nil {
		return nil, err
	}
	id, err := g.Coords(norm, b)
	if err != nil {
		return nil, err
	}
	coords := id.Add(FieldToPoints(df.Tensor()))
	return image.GridSample(coords, tensor.PadZeros, g.AlignCorners()), nil
}

// DefaultExpSteps is the number of squaring steps used when exponentiating
// a stationary velocity field.
const DefaultExpSteps = 5

// Exp integrates a stationary velocity field into a displacement field by
// scaling and squaring. The velocity components must be in a normalized
// domain. With steps <= 0 the default is used.
func Exp(v Field, steps int, b tensor.Backend) (Field, error) {
	if v.Domain() != grid.Cube && v.Domain() != grid.CubeCorners {
		return Field{}, fmt.Errorf("flow exp: velocity must be in a normalized domain, got %v", v.Domain())
	}
	if steps <= 0 {
		steps = DefaultExpSteps
	}
	g := v.Grid()
	align := v.Domain() == grid.CubeCorners
	id, err := g.Coords(v.Domain(), b)
	if err != nil {
		return Field{}, err
	}

	u := v.Tensor().MulScalar(1 / float64(int(1)<<uint(steps)))
	for i := 0; i < steps; i++ {
		// u = u + u ∘ (id + u)
		coords := id.Add(FieldToPoints(u))
		u = u.Add(Sample(u, coords, align))
	}
	return NewField(u, g, v.Domain())
}

// Compose returns the displacement field of applying first, then second:
// w(x) = u2(x + u1(x)) + u1(x). Both fields must share grid and domain.
func Compose(second, first Field, b tensor.Backend) (Field, error) {
	if !second.Grid().Equal(first.Grid()) {
		return Field{}, fmt.Errorf("flow compose: grids differ")
	}
	if second.Domain() != first.Domain() {
		return Field{}, fmt.Errorf("flow compose: domains differ (%v vs %v)", second.Domain(), first.Domain())
	}
	align := first.Domain() == grid.CubeCorners
	id, err := first.Grid().Coords(first.Domain(), b)
	if err != nil {
		return Field{}, err
	}
	coords := id.Add(FieldToPoints(first.Tensor()))
	w := Sample(second.Tensor(), coords, align).Add(first.Tensor())
	return NewField(w, first.Grid(), first.Domain())
}
