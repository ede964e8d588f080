// Copyright 2025 Warp Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package registration provides the public API for pairwise image
// registration.
//
// Example:
//
//	ad := autodiff.New(cpu.New())
//	engine := registration.New(ad)
//	result, err := engine.Register(ctx, fixed, moving, transform, registration.Options{})
package registration

import (
	"github.com/warp-ml/warp/internal/autodiff"
	"github.com/warp-ml/warp/internal/registration"
)

// Similarity selects the image similarity term.
type Similarity = registration.Similarity

// Supported similarity terms.
const (
	SimilarityMSE Similarity = registration.SimilarityMSE
	SimilaritySSD Similarity = registration.SimilaritySSD
	SimilarityNCC Similarity = registration.SimilarityNCC
)

// Weights scales the deformation regularizers.
type Weights = registration.Weights

// Options configures a registration run.
type Options = registration.Options

// Result reports the outcome of a registration run.
type Result = registration.Result

// Engine runs pairwise registrations on an autodiff backend.
type Engine = registration.Engine

// New creates a registration engine.
func New(backend *autodiff.Backend) *Engine {
	return registration.New(backend)
}
