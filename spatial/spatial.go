// Copyright 2025 Warp Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package spatial provides the public API for spatial coordinate
// transformations.
//
// Transforms map normalized grid coordinates to normalized grid
// coordinates. Linear transforms are parameterized by homogeneous
// matrices, non-rigid transforms by dense or spline-interpolated vector
// fields. Transforms compose into sequences and can be built from a
// textual model description such as "Affine o SVF".
//
// Example:
//
//	ad := autodiff.New(cpu.New())
//	g := grid.MustNew([]int{64, 64})
//	t, err := spatial.NewTranslation(g, ad, 1, spatial.OptimizableParams())
package spatial

import (
	"context"

	"github.com/warp-ml/warp/internal/flow"
	"github.com/warp-ml/warp/internal/grid"
	"github.com/warp-ml/warp/internal/spatial"
	"github.com/warp-ml/warp/internal/tensor"
)

// Transform is the interface all spatial transforms implement.
type Transform = spatial.Transform

// ParametricTransform is a transform with a parameter tensor.
type ParametricTransform = spatial.ParametricTransform

// LinearTransform is a transform defined by a homogeneous matrix.
type LinearTransform = spatial.LinearTransform

// NonRigidTransform is a transform defined by a displacement field.
type NonRigidTransform = spatial.NonRigidTransform

// ParamsKind discriminates the parameterization of a transform.
type ParamsKind = spatial.ParamsKind

// Parameterization variants.
const (
	ParamsUnset       ParamsKind = spatial.ParamsUnset
	ParamsFixed       ParamsKind = spatial.ParamsFixed
	ParamsOptimizable ParamsKind = spatial.ParamsOptimizable
	ParamsPredicted   ParamsKind = spatial.ParamsPredicted
	ParamsLinked      ParamsKind = spatial.ParamsLinked
)

// ParamsSpec selects how a transform is parameterized at construction.
type ParamsSpec = spatial.ParamsSpec

// Predictor produces transform parameters from a condition input.
type Predictor = spatial.Predictor

// MapPredictor produces named parameter tensors from a condition input.
type MapPredictor = spatial.MapPredictor

// Sentinel errors of the spatial package.
var (
	ErrShapeMismatch           = spatial.ErrShapeMismatch
	ErrParametersRequired      = spatial.ErrParametersRequired
	ErrReadOnlyParameters      = spatial.ErrReadOnlyParameters
	ErrConditionRequired       = spatial.ErrConditionRequired
	ErrTypeMismatch            = spatial.ErrTypeMismatch
	ErrDuplicateComponent      = spatial.ErrDuplicateComponent
	ErrInvalidModel            = spatial.ErrInvalidModel
	ErrUnsupportedOperation    = spatial.ErrUnsupportedOperation
	ErrInvariantViolation      = spatial.ErrInvariantViolation
	ErrNoOptimizableParameters = spatial.ErrNoOptimizableParameters
)

// NoParams creates a transform without parameters.
func NoParams() ParamsSpec { return spatial.NoParams() }

// OptimizableParams creates zero-initialized trainable parameters.
func OptimizableParams() ParamsSpec { return spatial.OptimizableParams() }

// InitialParams creates trainable parameters from an initial value.
func InitialParams(init *tensor.Tensor) ParamsSpec { return spatial.InitialParams(init) }

// FixedParams creates constant, non-trainable parameters.
func FixedParams(value *tensor.Tensor) ParamsSpec { return spatial.FixedParams(value) }

// PredictedParams creates parameters produced by a predictor.
func PredictedParams(p Predictor) ParamsSpec { return spatial.PredictedParams(p) }

// LinkedParams shares parameters with another transform.
func LinkedParams(other ParametricTransform) ParamsSpec { return spatial.LinkedParams(other) }

// Translation is a pure translation transform.
type Translation = spatial.Translation

// Scaling is an anisotropic scaling transform with log-scale parameters.
type Scaling = spatial.Scaling

// Shearing is a unit upper triangular shearing transform.
type Shearing = spatial.Shearing

// Homogeneous is a general affine transform parameterized by its matrix.
type Homogeneous = spatial.Homogeneous

// EulerRotation is a rotation parameterized by Euler angles.
type EulerRotation = spatial.EulerRotation

// QuaternionRotation is a 3D rotation parameterized by a quaternion.
type QuaternionRotation = spatial.QuaternionRotation

// DenseDisplacement is a non-rigid transform with a dense vector field.
type DenseDisplacement = spatial.DenseDisplacement

// StationaryVelocity is a diffeomorphic transform parameterized by a
// stationary velocity field.
type StationaryVelocity = spatial.StationaryVelocity

// FreeFormDeformation is a cubic B-spline free-form deformation.
type FreeFormDeformation = spatial.FreeFormDeformation

// StationaryVelocityFreeFormDeformation is a diffeomorphic transform
// whose velocity field is a cubic B-spline lattice.
type StationaryVelocityFreeFormDeformation = spatial.StationaryVelocityFreeFormDeformation

// Sequential composes transforms in application order.
type Sequential = spatial.Sequential

// Config selects a transform model and its settings.
type Config = spatial.Config

// Configurable is a transform sequence built from a model description.
type Configurable = spatial.Configurable

// DefaultRotationOrder is the Euler angle order used when none is given.
const DefaultRotationOrder = spatial.DefaultRotationOrder

// DefaultAffineModel is the affine decomposition used when none is given.
const DefaultAffineModel = spatial.DefaultAffineModel

// DefaultSquaringSteps is the default number of scaling and squaring
// steps of velocity field transforms.
const DefaultSquaringSteps = spatial.DefaultSquaringSteps

// NewTranslation creates a translation transform.
func NewTranslation(g grid.Grid, b tensor.Backend, batch int, spec ParamsSpec) (*Translation, error) {
	return spatial.NewTranslation(g, b, batch, spec)
}

// NewScaling creates a scaling transform.
func NewScaling(g grid.Grid, b tensor.Backend, batch int, spec ParamsSpec) (*Scaling, error) {
	return spatial.NewScaling(g, b, batch, spec)
}

// NewShearing creates a shearing transform.
func NewShearing(g grid.Grid, b tensor.Backend, batch int, spec ParamsSpec) (*Shearing, error) {
	return spatial.NewShearing(g, b, batch, spec)
}

// NewHomogeneous creates an affine transform parameterized by its matrix.
func NewHomogeneous(g grid.Grid, b tensor.Backend, batch int, spec ParamsSpec) (*Homogeneous, error) {
	return spatial.NewHomogeneous(g, b, batch, spec)
}

// NewEulerRotation creates an Euler angle rotation with the given order,
// for example "ZYX".
func NewEulerRotation(g grid.Grid, b tensor.Backend, batch int, order string, spec ParamsSpec) (*EulerRotation, error) {
	return spatial.NewEulerRotation(g, b, batch, order, spec)
}

// NewQuaternionRotation creates a quaternion rotation.
func NewQuaternionRotation(g grid.Grid, b tensor.Backend, batch int, spec ParamsSpec) (*QuaternionRotation, error) {
	return spatial.NewQuaternionRotation(g, b, batch, spec)
}

// NewDenseDisplacement creates a dense displacement field transform.
func NewDenseDisplacement(g grid.Grid, b tensor.Backend, batch int, spec ParamsSpec) (*DenseDisplacement, error) {
	return spatial.NewDenseDisplacement(g, b, batch, spec)
}

// NewStationaryVelocity creates a stationary velocity field transform.
func NewStationaryVelocity(g grid.Grid, b tensor.Backend, batch, steps int, spec ParamsSpec) (*StationaryVelocity, error) {
	return spatial.NewStationaryVelocity(g, b, batch, steps, spec)
}

// NewFreeFormDeformation creates a cubic B-spline free-form deformation
// with the given control point stride per spatial dimension.
func NewFreeFormDeformation(g grid.Grid, b tensor.Backend, batch int, stride []int, spec ParamsSpec) (*FreeFormDeformation, error) {
	return spatial.NewFreeFormDeformation(g, b, batch, stride, spec)
}

// NewStationaryVelocityFreeFormDeformation creates a diffeomorphic
// B-spline transform.
func NewStationaryVelocityFreeFormDeformation(g grid.Grid, b tensor.Backend, batch int, stride []int, steps int, spec ParamsSpec) (*StationaryVelocityFreeFormDeformation, error) {
	return spatial.NewStationaryVelocityFreeFormDeformation(g, b, batch, stride, steps, spec)
}

// NewSequential creates an empty transform sequence.
func NewSequential(g grid.Grid, b tensor.Backend) *Sequential {
	return spatial.NewSequential(g, b)
}

// NewConfigurable builds a transform sequence from a model description
// with optimizable parameters.
func NewConfigurable(cfg Config, g grid.Grid, b tensor.Backend, batch int) (*Configurable, error) {
	return spatial.NewConfigurable(cfg, g, b, batch)
}

// NewConfigurablePredicted builds a transform sequence whose parameters
// are produced by a predictor.
func NewConfigurablePredicted(cfg Config, g grid.Grid, b tensor.Backend, batch int, pred MapPredictor) (*Configurable, error) {
	return spatial.NewConfigurablePredicted(cfg, g, b, batch, pred)
}

// ValidTransformModel reports whether a model description parses.
// Non-negative limits bound the number of affine and non-rigid
// components.
func ValidTransformModel(model string, maxAffine, maxNonRigid int) bool {
	return spatial.ValidTransformModel(model, maxAffine, maxNonRigid)
}

// Displacement evaluates the transform's dense displacement field on its
// grid.
func Displacement(t Transform) (flow.Field, error) {
	return spatial.Displacement(t)
}

// DisplacementOn evaluates the transform's displacement field on an
// arbitrary grid of the same dimensionality.
func DisplacementOn(t Transform, g grid.Grid) (flow.Field, error) {
	return spatial.DisplacementOn(t, g)
}

// ApplyToImage warps an image tensor with the transform.
func ApplyToImage(t Transform, img *tensor.Tensor) (*tensor.Tensor, error) {
	return spatial.ApplyToImage(t, img)
}

// FitOptions controls the iterative approximation of a target flow field.
type FitOptions = spatial.FitOptions

// FitResult reports the outcome of a fit.
type FitResult = spatial.FitResult

// Fit adjusts the transform's optimizable parameters so its displacement
// field approximates the target.
func Fit(ctx context.Context, t Transform, target flow.Field, opts FitOptions) (*FitResult, error) {
	return spatial.Fit(ctx, t, target, opts)
}
