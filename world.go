package main

import (
	"math"
	"math/rand"
)

const (
	WorldWidth  = 1600.0
	WorldHeight = 900.0
	SegmentSize = 12.0

	TickRate          = 20 // simulation ticks per second
	MaxPlayersPerRoom = 8

	KillBonus = 100 // score awarded for eliminating another player
)

// Vec is a 2D point or direction in world coordinates.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Dist returns the Euclidean distance between two points
func Dist(a, b Vec) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// RandomCell returns the center of a random grid cell inside the arena.
// Spawned entities land on segment-aligned positions.
func RandomCell(rng *rand.Rand) Vec {
	cols := int(WorldWidth) / int(SegmentSize)
	rows := int(WorldHeight) / int(SegmentSize)
	return Vec{
		X: float64(rng.Intn(cols))*SegmentSize + SegmentSize/2,
		Y: float64(rng.Intn(rows))*SegmentSize + SegmentSize/2,
	}
}
