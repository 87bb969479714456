// Package models pellet.go
package models

// Pellet is static food. It never changes after creation; it only disappears.
type Pellet struct {
	ID    uint64
	X     float64
	Y     float64
	Mass  float64
	Color string
}

// Radius is the pellet's drawn size. It plays no part in absorption, which uses
// only the blob's radius.
func (p *Pellet) Radius() float64 {
	return p.Mass * 2
}

// Box is the pellet's broad-phase box: side of mass, extending right and down
// from the pellet's center.
func (p *Pellet) Box() Box {
	return Box{X: p.X, Y: p.Y, W: p.Mass, H: p.Mass}
}
