package spatial

import (
	"fmt"
	"reflect"

	"github.com/warp-ml/warp/internal/tensor"
)

// ParamsKind discriminates the parameterization of a transform.
type ParamsKind int

// Parameterization variants. Unset transforms have no parameters and
// evaluate as identity. Fixed parameters are constant buffers. Optimizable
// parameters are trainable tensors exposed to optimizers. Predicted
// parameters are produced by a predictor from a condition input. Linked
// parameters are shared with another transform of the same type.
const (
	ParamsUnset ParamsKind = iota
	ParamsFixed
	ParamsOptimizable
	ParamsPredicted
	ParamsLinked
)

// String returns the parameterization name.
func (k ParamsKind) String() string {
	switch k {
	case ParamsUnset:
		return "unset"
	case ParamsFixed:
		return "fixed"
	case ParamsOptimizable:
		return "optimizable"
	case ParamsPredicted:
		return "predicted"
	case ParamsLinked:
		return "linked"
	default:
		return "unknown"
	}
}

// Predictor produces transform parameters from a condition input, for
// example the output head of a registration network.
type Predictor func(condition *tensor.Tensor) (*tensor.Tensor, error)

// ParamsSpec selects how a transform is parameterized at construction.
type ParamsSpec struct {
	kind      ParamsKind
	init      *tensor.Tensor
	predictor Predictor
	link      ParametricTransform
}

// NoParams creates a transform without parameters. It evaluates as the
// identity until parameters are set.
func NoParams() ParamsSpec {
	return ParamsSpec{kind: ParamsUnset}
}

// OptimizableParams creates trainable parameters initialized to the
// identity configuration.
func OptimizableParams() ParamsSpec {
	return ParamsSpec{kind: ParamsOptimizable}
}

// InitialParams creates trainable parameters initialized from the given
// tensor.
func InitialParams(init *tensor.Tensor) ParamsSpec {
	return ParamsSpec{kind: ParamsOptimizable, init: init}
}

// FixedParams creates constant parameters from the given tensor.
func FixedParams(value *tensor.Tensor) ParamsSpec {
	return ParamsSpec{kind: ParamsFixed, init: value}
}

// PredictedParams creates parameters produced by the given predictor from
// the transform's condition input.
func PredictedParams(p Predictor) ParamsSpec {
	return ParamsSpec{kind: ParamsPredicted, predictor: p}
}

// LinkedParams shares the parameters of another transform. The transforms
// must have the same concrete type and parameter shape.
func LinkedParams(other ParametricTransform) ParamsSpec {
	return ParamsSpec{kind: ParamsLinked, link: other}
}

// paramsState implements the shared parameter handling of parametric
// transforms. Concrete transforms embed it and register themselves as the
// evaluator that turns resolved parameters into evaluation state.
type paramsState struct {
	kind      ParamsKind
	params    *tensor.Tensor // owned storage for fixed and optimizable
	predictor Predictor
	link      ParametricTransform
	condition *tensor.Tensor
	dirty     bool
}

func (ps *paramsState) init(spec ParamsSpec, shape tensor.Shape, b tensor.Backend) error {
	ps.kind = spec.kind
	ps.dirty = true
	switch spec.kind {
	case ParamsUnset:
		return nil
	case ParamsFixed, ParamsOptimizable:
		if spec.init != nil {
			if !spec.init.Shape().Equal(shape) {
				return fmt.Errorf("%w: expected parameters of shape %v, got %v",
					ErrShapeMismatch, shape, spec.init.Shape())
			}
			ps.params = spec.init.Copy()
		} else {
			ps.params = tensor.Zeros(shape, b)
		}
		if spec.kind == ParamsOptimizable {
			ps.params.RequireGrad()
		}
		return nil
	case ParamsPredicted:
		if spec.predictor == nil {
			return fmt.Errorf("%w: predicted parameterization without predictor", ErrParametersRequired)
		}
		ps.predictor = spec.predictor
		return nil
	case ParamsLinked:
		// The link source is validated by linkTo once the embedding
		// transform is set up.
		return nil
	default:
		return fmt.Errorf("unknown parameterization %v", spec.kind)
	}
}

// linkTo shares the parameters of another transform. The owner is the
// concrete transform embedding this state; the other transform must have
// the same concrete type and parameter shape and must not be the owner
// itself.
func (ps *paramsState) linkTo(owner any, shape tensor.Shape, other ParametricTransform) error {
	if other == nil {
		return fmt.Errorf("%w: linked parameterization without source", ErrParametersRequired)
	}
	if any(other) == owner {
		return fmt.Errorf("%w: cannot link a transform to itself", ErrInvariantViolation)
	}
	if reflect.TypeOf(other) != reflect.TypeOf(owner) {
		return fmt.Errorf("%w: cannot link %T parameters to %T", ErrTypeMismatch, owner, other)
	}
	if !other.ParamShape().Equal(shape) {
		return fmt.Errorf("%w: linked parameters have shape %v, expected %v",
			ErrShapeMismatch, other.ParamShape(), shape)
	}
	ps.kind = ParamsLinked
	ps.params = nil
	ps.predictor = nil
	ps.link = other
	ps.dirty = true
	return nil
}

// unlink detaches linked parameters, leaving the transform without any.
func (ps *paramsState) unlink() {
	if ps.kind != ParamsLinked {
		return
	}
	ps.kind = ParamsUnset
	ps.link = nil
	ps.dirty = true
}

// cloneParams replaces shared parameter storage with an owned copy.
// Predictor, link source and condition references remain shared.
func (ps *paramsState) cloneParams() {
	if ps.params != nil {
		ps.params = ps.params.Copy()
		if ps.kind == ParamsOptimizable {
			ps.params.RequireGrad()
		}
	}
	ps.dirty = true
}

// Kind returns the parameterization variant.
func (ps *paramsState) Kind() ParamsKind {
	return ps.kind
}

// HasParams reports whether the transform currently resolves to parameters.
func (ps *paramsState) HasParams() bool {
	switch ps.kind {
	case ParamsUnset:
		return false
	case ParamsLinked:
		return ps.link.HasParams()
	default:
		return true
	}
}

// Condition returns the condition input for predicted parameters.
func (ps *paramsState) Condition() *tensor.Tensor {
	return ps.condition
}

// SetCondition sets the condition input and marks the transform dirty.
func (ps *paramsState) SetCondition(c *tensor.Tensor) {
	ps.condition = c
	ps.dirty = true
}

// MarkDirty invalidates cached evaluation state, forcing the next Update
// to recompute it. Optimizers call this after every parameter step.
func (ps *paramsState) MarkDirty() {
	ps.dirty = true
}

// Dirty reports whether cached evaluation state is stale.
func (ps *paramsState) Dirty() bool {
	if ps.kind == ParamsLinked {
		return ps.dirty || ps.link.Dirty()
	}
	return ps.dirty
}

// resolve returns the current parameter tensor for the given shape.
func (ps *paramsState) resolve(shape tensor.Shape) (*tensor.Tensor, error) {
	switch ps.kind {
	case ParamsUnset:
		return nil, ErrParametersRequired
	case ParamsFixed, ParamsOptimizable:
		return ps.params, nil
	case ParamsPredicted:
		if ps.condition == nil {
			return nil, ErrConditionRequired
		}
		p, err := ps.predictor(ps.condition)
		if err != nil {
			return nil, fmt.Errorf("predict parameters: %w", err)
		}
		if !p.Shape().Equal(shape) {
			return nil, fmt.Errorf("%w: predictor returned shape %v, expected %v",
				ErrShapeMismatch, p.Shape(), shape)
		}
		return p, nil
	case ParamsLinked:
		return ps.link.Params()
	default:
		return nil, fmt.Errorf("unknown parameterization %v", ps.kind)
	}
}

// setParams validates and writes new parameter values.
func (ps *paramsState) setParams(p *tensor.Tensor, shape tensor.Shape, b tensor.Backend) error {
	switch ps.kind {
	case ParamsPredicted, ParamsLinked:
		return fmt.Errorf("%w: %s parameters cannot be assigned", ErrReadOnlyParameters, ps.kind)
	}
	if !p.Shape().Equal(shape) {
		return fmt.Errorf("%w: expected parameters of shape %v, got %v", ErrShapeMismatch, shape, p.Shape())
	}
	if ps.params == nil {
		ps.kind = ParamsFixed
		ps.params = p.Copy()
	} else {
		copy(ps.params.Data(), p.Data())
	}
	ps.dirty = true
	return nil
}

// optimizable returns the trainable tensors of this parameterization.
// Linked and predicted parameters are owned elsewhere.
func (ps *paramsState) optimizable() []*tensor.Tensor {
	if ps.kind == ParamsOptimizable {
		return []*tensor.Tensor{ps.params}
	}
	return nil
}
