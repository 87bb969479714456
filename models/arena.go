// Package models arena.go
package models

import "math"

// Arena is the fixed rectangular world.
type Arena struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	BgColor     string  `json:"-"`
	BorderColor string  `json:"-"`
}

func NewArena(width, height float64) Arena {
	return Arena{Width: width, Height: height, BgColor: "#111", BorderColor: "#fff"}
}

// Clamp pulls a point into [0, Width] x [0, Height].
func (a Arena) Clamp(x, y float64) (float64, float64) {
	return math.Min(math.Max(x, 0), a.Width), math.Min(math.Max(y, 0), a.Height)
}

// Box is an axis-aligned rectangle with its origin at the top-left corner.
type Box struct {
	X, Y, W, H float64
}

// Overlaps is the four-inequality box test.
func (b Box) Overlaps(o Box) bool {
	return b.X < o.X+o.W &&
		b.X+b.W > o.X &&
		b.Y < o.Y+o.H &&
		b.Y+b.H > o.Y
}
