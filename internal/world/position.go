// Package world provides the physical substrate of the simulation:
// positions, harvestable resource nodes, and buildings with their
// construction resource ledgers.
package world

import "math"

// Position is a point on the ground plane.
type Position struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// DistanceTo returns the euclidean distance to other.
func (p Position) DistanceTo(other Position) float64 {
	dx := p.X - other.X
	dz := p.Z - other.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// StepToward returns p moved at most speed units toward target. If the
// target is within speed, the result is the target itself.
func (p Position) StepToward(target Position, speed float64) Position {
	dx := target.X - p.X
	dz := target.Z - p.Z
	dist := math.Sqrt(dx*dx + dz*dz)
	if dist <= speed || dist == 0 {
		return target
	}
	return Position{X: p.X + dx/dist*speed, Z: p.Z + dz/dist*speed}
}

// Clamp bounds the position to a square of half-extent size.
func (p Position) Clamp(size float64) Position {
	return Position{
		X: math.Max(-size, math.Min(size, p.X)),
		Z: math.Max(-size, math.Min(size, p.Z)),
	}
}
