package spatial

import "errors"

// Sentinel errors returned by spatial transforms. Callers match them with
// errors.Is.
var (
	// ErrShapeMismatch indicates a tensor whose shape does not match the
	// shape required by a transform's parameterization or buffers.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrParametersRequired indicates an operation that needs parameters
	// on a transform that has none set.
	ErrParametersRequired = errors.New("parameters required")

	// ErrReadOnlyParameters indicates an attempt to set parameters on a
	// transform whose parameters are predicted or linked.
	ErrReadOnlyParameters = errors.New("parameters are read-only")

	// ErrConditionRequired indicates a predicted parameterization that was
	// evaluated without a condition input.
	ErrConditionRequired = errors.New("condition required")

	// ErrTypeMismatch indicates a transform of an unexpected concrete type,
	// for example when linking parameters across different types.
	ErrTypeMismatch = errors.New("transform type mismatch")

	// ErrDuplicateComponent indicates a composite transform configured
	// with the same component more than once.
	ErrDuplicateComponent = errors.New("duplicate transform component")

	// ErrInvalidModel indicates a transform model string that does not
	// conform to the model grammar.
	ErrInvalidModel = errors.New("invalid transform model")

	// ErrUnsupportedOperation indicates an operation a transform cannot
	// perform, such as inverting a free-form deformation.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrInvariantViolation indicates internal transform state that
	// violates a structural invariant, such as a displacement buffer with
	// the wrong number of channels.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrNoOptimizableParameters indicates a fit on a transform without
	// any optimizable parameters.
	ErrNoOptimizableParameters = errors.New("no optimizable parameters")
)
