package spatial

import (
	"fmt"
	"strings"

	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/tensor"
)

// DefaultAffineModel is the affine decomposition used when none is given.
const DefaultAffineModel = "TRS"

// Config selects the composition of a configurable transform.
//
// The transform model is a composition of components joined by " o ",
// evaluated right to left: in "Affine o SVF" the non-rigid component is
// applied to points first. Valid components are "Affine" and the
// non-rigid models DDF (dense displacement), SVF (stationary velocity),
// FFD (cubic B-spline) and SVFFD (B-spline velocity). A model holds at
// most one affine and one non-rigid component.
//
// The affine component expands into elementary transforms according to
// the affine model letters, also composed right to left:
//
//	A  full affine matrix
//	K  shearing
//	T  translation
//	R  Euler rotation
//	S  anisotropic scaling
//	Q  quaternion rotation
type Config struct {
	// Transform is the model string, for example "Affine o SVF".
	Transform string `yaml:"transform"`

	// AffineModel is the decomposition of the affine component, given as
	// letters ("TRS") or joined by " o " ("T o R o S"). Empty selects
	// DefaultAffineModel.
	AffineModel string `yaml:"affine_model,omitempty"`

	// RotationOrder is the Euler angle convention for R components.
	RotationOrder string `yaml:"rotation_order,omitempty"`

	// ControlPointSpacing is the control point stride per axis in spatial
	// order. B-spline components place their lattice at this stride;
	// dense components are evaluated on a grid coarsened by it. A single
	// entry applies to all axes.
	ControlPointSpacing []int `yaml:"control_point_spacing,omitempty"`

	// Steps is the number of scaling and squaring steps for velocity
	// components. Zero selects the default.
	Steps int `yaml:"steps,omitempty"`

	// FlipGridCoords indicates that predicted parameters order vector
	// components and matrix axes (z, y, x) instead of (x, y, z).
	FlipGridCoords bool `yaml:"flip_grid_coords,omitempty"`
}

// component kinds in a parsed model, in application order.
type componentSpec struct {
	name string
	kind byte // one of 'A', 'K', 'T', 'R', 'S', 'Q', 'N'
	ddf  string
}

var nonRigidModels = map[string]bool{
	"DDF":   true,
	"SVF":   true,
	"FFD":   true,
	"SVFFD": true,
}

var letterNames = map[byte]string{
	'A': "affine",
	'K': "shearing",
	'T': "translation",
	'R': "rotation",
	'S': "scaling",
	'Q': "quaternion",
}

// modelComponents splits a model string into its " o " separated parts.
func modelComponents(model string) []string {
	parts := strings.Split(model, " o ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ValidTransformModel reports whether a model string conforms to the
// transform model grammar: "Affine" and non-rigid components joined by
// " o ". Non-negative limits bound the number of affine and non-rigid
// components.
func ValidTransformModel(model string, maxAffine, maxNonRigid int) bool {
	affine, nonrigid := 0, 0
	for _, part := range modelComponents(model) {
		switch {
		case part == "Affine":
			affine++
		case nonRigidModels[part]:
			nonrigid++
		default:
			return false
		}
	}
	if maxAffine >= 0 && affine > maxAffine {
		return false
	}
	if maxNonRigid >= 0 && nonrigid > maxNonRigid {
		return false
	}
	return true
}

// affineLetters validates an affine model and returns its letters in
// composition order.
func affineLetters(model string) ([]byte, error) {
	if model == "" {
		model = DefaultAffineModel
	}
	compact := strings.ToUpper(strings.ReplaceAll(model, " o ", ""))
	if compact == "" {
		return nil, fmt.Errorf("%w: empty affine model %q", ErrInvalidModel, model)
	}
	letters := make([]byte, 0, len(compact))
	seen := make(map[byte]bool, len(compact))
	for i := 0; i < len(compact); i++ {
		letter := compact[i]
		if _, ok := letterNames[letter]; !ok {
			return nil, fmt.Errorf("%w: unknown letter %q in affine model %q", ErrInvalidModel, letter, model)
		}
		if seen[letter] {
			return nil, fmt.Errorf("%w: letter %q appears twice in affine model %q", ErrDuplicateComponent, letter, model)
		}
		seen[letter] = true
		letters = append(letters, letter)
	}
	return letters, nil
}

// parseModel expands a model string into components in application order.
// The rightmost component applies first; the affine component expands
// into the letters of the affine model, rightmost letter first.
func parseModel(model, affineModel string) ([]componentSpec, error) {
	parts := modelComponents(model)
	affine, nonrigid := 0, 0
	var specs []componentSpec
	for i := len(parts) - 1; i >= 0; i-- {
		part := parts[i]
		switch {
		case part == "Affine":
			affine++
			letters, err := affineLetters(affineModel)
			if err != nil {
				return nil, err
			}
			for j := len(letters) - 1; j >= 0; j-- {
				specs = append(specs, componentSpec{name: letterNames[letters[j]], kind: letters[j]})
			}
		case nonRigidModels[part]:
			nonrigid++
			specs = append(specs, componentSpec{name: "nonrigid", kind: 'N', ddf: part})
		default:
			return nil, fmt.Errorf("%w: unknown component %q in %q", ErrInvalidModel, part, model)
		}
	}
	if affine > 1 || nonrigid > 1 {
		return nil, fmt.Errorf("%w: at most one affine and one non-rigid component, got %q",
			ErrInvalidModel, model)
	}
	return specs, nil
}

// MapPredictor produces named parameter tensors from a condition input.
// Recognized keys are "affine", "translation" or "offset", "rotation" or
// "angles", "scaling" or "scales", "shearing", "quaternion", and
// "nonrigid" or "vfield".
type MapPredictor func(condition *tensor.Tensor) (map[string]*tensor.Tensor, error)

// Configurable is a transform composition built from a Config. Components
// are optimizable by default or driven by a shared parameter predictor.
type Configurable struct {
	*Sequential
	config Config
}

// NewConfigurable builds a transform from the model string with
// optimizable parameters.
func NewConfigurable(cfg Config, g grid.Grid, b tensor.Backend, batch int) (*Configurable, error) {
	return newConfigurable(cfg, g, b, batch, nil)
}

// NewConfigurablePredicted builds a transform whose parameters are
// produced by the given predictor from the transform's condition input.
func NewConfigurablePredicted(cfg Config, g grid.Grid, b tensor.Backend, batch int, pred MapPredictor) (*Configurable, error) {
	if pred == nil {
		return nil, fmt.Errorf("%w: nil predictor", ErrParametersRequired)
	}
	return newConfigurable(cfg, g, b, batch, pred)
}

func newConfigurable(cfg Config, g grid.Grid, b tensor.Backend, batch int, pred MapPredictor) (*Configurable, error) {
	specs, err := parseModel(cfg.Transform, cfg.AffineModel)
	if err != nil {
		return nil, err
	}
	c := &Configurable{
		Sequential: NewSequential(g, b),
		config:     cfg,
	}
	cache := &predictionCache{pred: pred}
	for _, spec := range specs {
		t, err := c.buildComponent(spec, g, b, batch, cache)
		if err != nil {
			return nil, fmt.Errorf("build component %q: %w", spec.name, err)
		}
		if err := c.Append(spec.name, t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Model returns the transform model string.
func (c *Configurable) Model() string {
	return c.config.Transform
}

// AffineFirst reports whether the affine component applies before the
// non-rigid one. The rightmost model component applies first.
func (c *Configurable) AffineFirst() bool {
	parts := modelComponents(c.config.Transform)
	return parts[len(parts)-1] == "Affine"
}

// SetCondition forwards the condition input to all predicted components.
func (c *Configurable) SetCondition(cond *tensor.Tensor) {
	for _, t := range c.transforms {
		if pt, ok := t.(ParametricTransform); ok && pt.Kind() == ParamsPredicted {
			pt.SetCondition(cond)
		}
	}
}

func (c *Configurable) buildComponent(spec componentSpec, g grid.Grid, b tensor.Backend, batch int, cache *predictionCache) (Transform, error) {
	flip := c.config.FlipGridCoords
	params := func(keys []string, adapt flipAdapter) ParamsSpec {
		if cache.pred == nil {
			return OptimizableParams()
		}
		return PredictedParams(cache.predictor(keys, flip, adapt))
	}
	switch spec.kind {
	case 'A':
		return NewHomogeneous(g, b, batch, params([]string{"affine"}, flipMatrix))
	case 'T':
		return NewTranslation(g, b, batch, params([]string{"translation", "offset"}, flipVector))
	case 'R':
		order := c.config.RotationOrder
		adapt := flipAdapter(flipNone)
		if cache.pred != nil && flip {
			// Reversing the grid axes conjugates each elementary rotation:
			// the axis swaps X and Z and the angle negates.
			order = flipRotationOrder(order)
			adapt = flipAngles
		}
		return NewEulerRotation(g, b, batch, order, params([]string{"rotation", "angles"}, adapt))
	case 'S':
		return NewScaling(g, b, batch, params([]string{"scaling", "scales"}, flipVector))
	case 'K':
		return NewShearing(g, b, batch, params([]string{"shearing"}, flipNone))
	case 'Q':
		return NewQuaternionRotation(g, b, batch, params([]string{"quaternion"}, flipQuaternion))
	case 'N':
		spec2 := params([]string{"nonrigid", "vfield"}, flipChannels)
		stride, err := c.strides(g)
		if err != nil {
			return nil, err
		}
		switch spec.ddf {
		case "DDF", "SVF":
			ng, err := c.coarsened(g, stride)
			if err != nil {
				return nil, err
			}
			if spec.ddf == "DDF" {
				return NewDenseDisplacement(ng, b, batch, spec2)
			}
			return NewStationaryVelocity(ng, b, batch, c.config.Steps, spec2)
		case "FFD":
			return NewFreeFormDeformation(g, b, batch, stride, spec2)
		case "SVFFD":
			return NewStationaryVelocityFreeFormDeformation(g, b, batch, stride, c.config.Steps, spec2)
		}
	}
	return nil, fmt.Errorf("%w: component kind %q", ErrInvalidModel, spec.kind)
}

// strides expands the configured control point spacing to one entry per
// axis, defaulting to four grid points.
func (c *Configurable) strides(g grid.Grid) ([]int, error) {
	d := g.Dim()
	cp := c.config.ControlPointSpacing
	switch len(cp) {
	case 0:
		stride := make([]int, d)
		for i := range stride {
			stride[i] = 4
		}
		return stride, nil
	case 1:
		stride := make([]int, d)
		for i := range stride {
			stride[i] = cp[0]
		}
		return stride, nil
	case d:
		return append([]int(nil), cp...), nil
	default:
		return nil, fmt.Errorf("%w: expected 1 or %d control point spacings, got %d",
			ErrShapeMismatch, d, len(cp))
	}
}

// coarsened resizes the grid of a dense component so its parameter field
// lives at the configured control point spacing. Without explicit
// spacing the field stays at full resolution.
func (c *Configurable) coarsened(g grid.Grid, stride []int) (grid.Grid, error) {
	if len(c.config.ControlPointSpacing) == 0 {
		return g, nil
	}
	size := g.Size()
	coarse := make([]int, len(size))
	resize := false
	for i := range size {
		coarse[i] = (size[i] + stride[i] - 1) / stride[i]
		if stride[i] > 1 {
			resize = true
		}
	}
	if !resize {
		return g, nil
	}
	return g.Resize(coarse)
}

// predictionCache evaluates the shared predictor once per condition and
// serves all components from the same output map.
type predictionCache struct {
	pred MapPredictor
	cond *tensor.Tensor
	out  map[string]*tensor.Tensor
}

func (pc *predictionCache) lookup(cond *tensor.Tensor, keys []string) (*tensor.Tensor, error) {
	if pc.out == nil || pc.cond != cond {
		out, err := pc.pred(cond)
		if err != nil {
			return nil, err
		}
		pc.cond = cond
		pc.out = out
	}
	for _, key := range keys {
		if p, ok := pc.out[key]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: predictor output has no key %v", ErrParametersRequired, keys)
}

// flipAdapter reorders predicted parameters given with reversed axis order.
type flipAdapter func(p *tensor.Tensor) *tensor.Tensor

func flipNone(p *tensor.Tensor) *tensor.Tensor { return p }

// flipVector reverses per-axis vector components (N, D).
func flipVector(p *tensor.Tensor) *tensor.Tensor { return p.Flip(1) }

// flipChannels reverses the vector channel order of a dense field
// (N, D, ...).
func flipChannels(p *tensor.Tensor) *tensor.Tensor { return p.Flip(1) }

// flipMatrix reverses rows and linear columns of homogeneous matrices
// (N, D, D+1), leaving the offset column in place.
func flipMatrix(p *tensor.Tensor) *tensor.Tensor {
	d := p.Shape()[1]
	linear := p.Narrow(2, 0, d).Flip(1, 2)
	offset := p.Narrow(2, d, 1).Flip(1)
	return tensor.Cat([]*tensor.Tensor{linear, offset}, 2)
}

// flipAngles negates predicted rotation angles. The rotation order of
// the component is axis-swapped to match, see flipRotationOrder.
func flipAngles(p *tensor.Tensor) *tensor.Tensor { return p.Neg() }

// flipRotationOrder swaps the X and Z axes of an Euler angle order.
func flipRotationOrder(order string) string {
	if order == "" {
		order = DefaultRotationOrder
	}
	r := []byte(strings.ToUpper(order))
	for i, ch := range r {
		switch ch {
		case 'X':
			r[i] = 'Z'
		case 'Z':
			r[i] = 'X'
		}
	}
	return string(r)
}

// flipQuaternion conjugates a predicted quaternion (N, 4) by the axis
// reversal: (w, x, y, z) becomes (w, -z, -y, -x).
func flipQuaternion(p *tensor.Tensor) *tensor.Tensor {
	w := p.Narrow(1, 0, 1)
	v := p.Narrow(1, 1, 3).Flip(1).Neg()
	return tensor.Cat([]*tensor.Tensor{w, v}, 1)
}

// predictor builds the per-component predictor closure.
func (pc *predictionCache) predictor(keys []string, flip bool, adapt flipAdapter) Predictor {
	return func(cond *tensor.Tensor) (*tensor.Tensor, error) {
		p, err := pc.lookup(cond, keys)
		if err != nil {
			return nil, err
		}
		if flip {
			p = adapt(p)
		}
		return p, nil
	}
}
