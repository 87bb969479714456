// Package models blob.go
package models

import "math"

// CollisionBorderScale is the side of a blob's broad-phase box in radii.
const CollisionBorderScale = 2.5

// Style is the cosmetic part of a blob. It travels with the record but never
// affects simulation.
type Style struct {
	BgColor     string
	BorderColor string
	TextColor   string
	ImageURL    string
}

// DefaultStyle matches what a blob looks like before the player picks colors.
var DefaultStyle = Style{
	BgColor:     "rgba(0,0,0,0.9)",
	BorderColor: "#f00",
	TextColor:   "#fff",
}

// Blob is a growable circular entity. GUID is fixed at creation.
type Blob struct {
	guid     string
	Name     string
	Mass     float64
	X        float64
	Y        float64
	XVel     float64
	YVel     float64
	Rotation float64
	Moving   bool
	Style    Style
}

// NewBlob creates a blob with zero velocity and the default style.
func NewBlob(guid, name string, mass, x, y float64) *Blob {
	return &Blob{
		guid:  guid,
		Name:  name,
		Mass:  mass,
		X:     x,
		Y:     y,
		Style: DefaultStyle,
	}
}

// NewBlobFromRecord creates the local copy of a remote player.
func NewBlobFromRecord(rec PlayerRecord) *Blob {
	b := NewBlob(rec.GUID, rec.Name, rec.Mass, rec.X, rec.Y)
	b.Rotation = rec.Rotation
	b.XVel = rec.XVel
	b.YVel = rec.YVel
	b.SetStyle(rec.Style())
	return b
}

func (b *Blob) GUID() string {
	return b.guid
}

// Radius is always half the mass.
func (b *Blob) Radius() float64 {
	return b.Mass / 2
}

// SetStyle replaces the colors, keeping defaults for empty fields.
func (b *Blob) SetStyle(s Style) {
	if s.BgColor == "" {
		s.BgColor = DefaultStyle.BgColor
	}
	if s.BorderColor == "" {
		s.BorderColor = DefaultStyle.BorderColor
	}
	if s.TextColor == "" {
		s.TextColor = DefaultStyle.TextColor
	}
	b.Style = s
}

// Steer sets the facing angle in degrees, normalised into [0, 360), and whether
// the blob is thrusting.
func (b *Blob) Steer(angle float64, moving bool) {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		angle = 0
	}
	angle = math.Mod(angle, 360)
	if angle < 0 {
		angle += 360
	}
	b.Rotation = angle
	b.Moving = moving
}

// Integrate advances the blob one tick: thrust along the facing angle while
// moving, friction decay, position update, then clamp into the arena.
func (b *Blob) Integrate(arena Arena, speed, friction float64) {
	if b.Moving {
		rad := b.Rotation * math.Pi / 180
		b.XVel += math.Cos(rad) * speed
		b.YVel += math.Sin(rad) * speed
	}
	b.XVel *= 1 - friction
	b.YVel *= 1 - friction
	b.X += b.XVel
	b.Y += b.YVel
	b.X, b.Y = arena.Clamp(b.X, b.Y)
}

// CollisionBorders is the oversized broad-phase box centered on the blob.
func (b *Blob) CollisionBorders() Box {
	side := CollisionBorderScale * b.Radius()
	return Box{X: b.X - side/2, Y: b.Y - side/2, W: side, H: side}
}

// Apply overwrites the simulated fields from an authoritative record.
func (b *Blob) Apply(rec PlayerRecord) {
	b.Name = rec.Name
	b.Mass = rec.Mass
	b.Rotation = rec.Rotation
	b.XVel = rec.XVel
	b.YVel = rec.YVel
	b.X = rec.X
	b.Y = rec.Y
}

// Record projects the blob onto the wire shape.
func (b *Blob) Record() PlayerRecord {
	return PlayerRecord{
		GUID:        b.guid,
		Name:        b.Name,
		Mass:        b.Mass,
		Rotation:    b.Rotation,
		X:           b.X,
		Y:           b.Y,
		XVel:        b.XVel,
		YVel:        b.YVel,
		ImageURL:    b.Style.ImageURL,
		BgColor:     b.Style.BgColor,
		BorderColor: b.Style.BorderColor,
		TextColor:   b.Style.TextColor,
	}
}

// Clone returns an independent copy.
func (b *Blob) Clone() *Blob {
	c := *b
	return &c
}
