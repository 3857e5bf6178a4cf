package keymap

import (
	"fmt"
	"math"
)

// Position is a physical key location: translation and rotation in
// millimeters and degrees, index-aligned with scan codes. The runtime
// never reads it; layout tooling does.
type Position struct {
	X  float64
	Y  float64
	Z  float64
	RX float64
	RY float64
	RZ float64
}

// String returns a compact form like "(19.05, 0.00, 0.00)".
func (p Position) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}

// Distance returns the straight-line distance to another position.
func (p Position) Distance(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	dz := p.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
