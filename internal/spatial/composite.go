package spatial

import (
	"fmt"

	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/tensor"
)

// Sequential composes transforms in application order: the first component
// is applied to the input points first.
type Sequential struct {
	base
	names      []string
	transforms []Transform
}

// NewSequential creates an empty composition on the given grid.
func NewSequential(g grid.Grid, b tensor.Backend) *Sequential {
	return &Sequential{base: base{grid: g, backend: b}}
}

// Append adds a named component applied after the existing ones. Component
// names and instances must be unique within the composition.
func (s *Sequential) Append(name string, t Transform) error {
	if t.Dim() != s.Dim() {
		return fmt.Errorf("%w: component %q has %d dimensions, composition has %d",
			ErrShapeMismatch, name, t.Dim(), s.Dim())
	}
	for i, existing := range s.transforms {
		if existing == t {
			return fmt.Errorf("%w: transform already appended as %q", ErrDuplicateComponent, s.names[i])
		}
		if s.names[i] == name {
			return fmt.Errorf("%w: name %q already in use", ErrDuplicateComponent, name)
		}
	}
	s.names = append(s.names, name)
	s.transforms = append(s.transforms, t)
	return nil
}

// Len returns the number of components.
func (s *Sequential) Len() int {
	return len(s.transforms)
}

// At returns the i-th component in application order.
func (s *Sequential) At(i int) Transform {
	return s.transforms[i]
}

// Name returns the name of the i-th component.
func (s *Sequential) Name(i int) string {
	return s.names[i]
}

// Get returns the component with the given name.
func (s *Sequential) Get(name string) (Transform, bool) {
	for i, n := range s.names {
		if n == name {
			return s.transforms[i], true
		}
	}
	return nil, false
}

// SetGrid rebinds the composition and all components to a new grid.
func (s *Sequential) SetGrid(g grid.Grid) error {
	if err := s.setGrid(g); err != nil {
		return err
	}
	for _, t := range s.transforms {
		if err := t.SetGrid(g); err != nil {
			return err
		}
	}
	return nil
}

// Update recomputes the cached state of all components.
func (s *Sequential) Update() error {
	for i, t := range s.transforms {
		if err := t.Update(); err != nil {
			return fmt.Errorf("update component %q: %w", s.names[i], err)
		}
	}
	return nil
}

// MarkDirty invalidates all component caches.
func (s *Sequential) MarkDirty() {
	for _, t := range s.transforms {
		t.MarkDirty()
	}
}

// Dirty reports whether any component needs an update.
func (s *Sequential) Dirty() bool {
	for _, t := range s.transforms {
		if t.Dirty() {
			return true
		}
	}
	return false
}

// Points maps point coordinates through all components in order.
func (s *Sequential) Points(points *tensor.Tensor) (*tensor.Tensor, error) {
	out := points
	var err error
	for i, t := range s.transforms {
		out, err = t.Points(out)
		if err != nil {
			return nil, fmt.Errorf("apply component %q: %w", s.names[i], err)
		}
	}
	return out, nil
}

// Inverse returns the composition of component inverses in reverse order.
func (s *Sequential) Inverse() (Transform, error) {
	inv := NewSequential(s.grid, s.backend)
	for i := len(s.transforms) - 1; i >= 0; i-- {
		ti, err := s.transforms[i].Inverse()
		if err != nil {
			return nil, fmt.Errorf("invert component %q: %w", s.names[i], err)
		}
		if err := inv.Append(s.names[i], ti); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// Parameters returns the optimizable parameters of all components.
func (s *Sequential) Parameters() []*tensor.Tensor {
	var params []*tensor.Tensor
	for _, t := range s.transforms {
		params = append(params, t.Parameters()...)
	}
	return params
}

// Matrix returns the composed homogeneous matrices if every component is a
// linear transform.
func (s *Sequential) Matrix() (*tensor.Tensor, error) {
	var result *tensor.Tensor
	for i, t := range s.transforms {
		lt, ok := t.(LinearTransform)
		if !ok {
			return nil, fmt.Errorf("%w: component %q is not linear", ErrUnsupportedOperation, s.names[i])
		}
		m, err := lt.Matrix()
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = m
		} else {
			// Points pass through result first, so the later matrix
			// multiplies from the left.
			result = composeHomogeneous(m, result)
		}
	}
	if result == nil {
		return homIdentity(1, s.Dim(), s.backend), nil
	}
	return result, nil
}

// composeHomogeneous composes homogeneous matrices (N, D, D+1):
// second ∘ first, so that A = A2·A1 and b = A2·b1 + b2.
func composeHomogeneous(second, first *tensor.Tensor) *tensor.Tensor {
	d := second.Shape()[1]
	a2 := second.Narrow(2, 0, d)
	b2 := second.Narrow(2, d, 1)
	a1 := first.Narrow(2, 0, d)
	b1 := first.Narrow(2, d, 1)
	a := a2.BatchMatMul(a1)
	b := a2.BatchMatMul(b1).Add(b2)
	return tensor.Cat([]*tensor.Tensor{a, b}, 2)
}
