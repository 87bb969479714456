package game

import (
	"math"

	"github.com/4cecoder/blobarena/models"
)

// AbsorbRatio is the prey/predator mass ratio a pair must stay under to resolve,
// so near-equal blobs never absorb each other.
const AbsorbRatio = 0.95

// Absorption records one mass transfer. Prey is empty when a pellet was eaten.
type Absorption struct {
	Predator string
	Prey     string
	PelletID uint64
	Mass     float64
}

func distance(ax, ay, bx, by float64) float64 {
	return math.Hypot(ax-bx, ay-by)
}

// Reaches reports whether a point lies inside the absorption range of b. Only
// the blob's own radius counts.
func Reaches(b *models.Blob, x, y float64) bool {
	return distance(b.X, b.Y, x, y) < b.Radius()
}

// CanAbsorb reports whether pred absorbs prey given their current masses and positions.
func CanAbsorb(pred, prey *models.Blob) bool {
	if pred.Mass <= prey.Mass {
		return false
	}
	if prey.Mass/pred.Mass >= AbsorbRatio {
		return false
	}
	return Reaches(pred, prey.X, prey.Y)
}

// resolveCollisionsLocked is one absorption pass. Blobs are visited in ascending
// mass order as it stood when the pass began; every transfer is applied before
// the next check, so a blob can eat several entities in one tick and each
// check sees the grown mass. Removals go by identity, never by index.
func (w *World) resolveCollisionsLocked() []Absorption {
	if len(w.blobs) == 0 {
		return nil
	}
	order := make([]*models.Blob, len(w.blobs))
	copy(order, w.blobs)
	gone := make(map[*models.Blob]bool)

	var events []Absorption
	for _, pred := range order {
		if gone[pred] {
			continue
		}

		box := pred.CollisionBorders()
		w.queryBuf = w.grid.QueryBuf(box, w.queryBuf[:0])
		for _, id := range w.queryBuf {
			p, ok := w.pellets[id]
			if !ok || !box.Overlaps(p.Box()) {
				continue
			}
			if Reaches(pred, p.X, p.Y) {
				pred.Mass += p.Mass
				w.removePelletLocked(p)
				events = append(events, Absorption{Predator: pred.GUID(), PelletID: p.ID, Mass: p.Mass})
			}
		}

		box = pred.CollisionBorders()
		for _, prey := range order {
			if prey == pred || gone[prey] {
				continue
			}
			if !box.Overlaps(prey.CollisionBorders()) {
				continue
			}
			if CanAbsorb(pred, prey) {
				pred.Mass += prey.Mass
				gone[prey] = true
				w.removeBlobLocked(prey.GUID())
				events = append(events, Absorption{Predator: pred.GUID(), Prey: prey.GUID(), Mass: prey.Mass})
				box = pred.CollisionBorders()
			}
		}
	}

	w.sortBlobsLocked()
	return events
}
