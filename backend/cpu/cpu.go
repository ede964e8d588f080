// Copyright 2025 Warp Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU compute backend.
package cpu

import (
	"github.com/warp-ml/warp/internal/backend/cpu"
)

// CPUBackend executes tensor operations on the host CPU.
type CPUBackend = cpu.CPUBackend

// New creates a CPU backend.
func New() *CPUBackend {
	return cpu.New()
}
