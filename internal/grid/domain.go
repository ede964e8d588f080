package grid

import (
	"fmt"
	"strings"
)

// Domain identifies the coordinate space points live in.
type Domain int

// Supported coordinate domains.
//
// Cube is the normalized domain [-1, 1]^D spanning the full sampling grid
// extent including the half-voxel margin at each side. CubeCorners spans
// the extent between the centers of the corner points. World is the
// physical space defined by grid origin, spacing and direction. Voxel is
// the zero-based grid index space.
const (
	Cube Domain = iota
	CubeCorners
	Voxel
	World
)

// String returns the canonical domain name.
func (d Domain) String() string {
	switch d {
	case Cube:
		return "cube"
	case CubeCorners:
		return "cube_corners"
	case Voxel:
		return "grid"
	case World:
		return "world"
	default:
		return "unknown"
	}
}

// ParseDomain converts a configuration string to a Domain.
func ParseDomain(s string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cube":
		return Cube, nil
	case "cube_corners":
		return CubeCorners, nil
	case "grid", "voxel":
		return Voxel, nil
	case "world":
		return World, nil
	default:
		return Cube, fmt.Errorf("unknown coordinate domain %q", s)
	}
}

// FromAlignCorners returns the normalized domain matching the given
// sampling convention.
func FromAlignCorners(alignCorners bool) Domain {
	if alignCorners {
		return CubeCorners
	}
	return Cube
}
