package game

import (
	"log"

	"github.com/4cecoder/blobarena/models"
)

// ReconcileResult counts what a snapshot did to the world.
type ReconcileResult struct {
	Created int
	Updated int
	Dropped int
	Reaped  int
}

// Reconcile merges an authoritative snapshot into the world, matching records to
// blobs by guid only.
//
// Unknown guids become new blobs. Known guids get name, mass, rotation,
// velocity and position overwritten, except the owned blob, whose local state is
// ahead of anything the store can hold. Guids this client used to own are never
// resurrected. Remote blobs missing from every snapshot for longer than the
// configured reap window are removed; with a zero window they stay forever.
//
// Applying the same snapshot twice leaves the world as applying it once did.
func (w *World) Reconcile(records []models.PlayerRecord) ReconcileResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	var res ReconcileResult
	now := w.now()
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			log.Printf("[world] dropping snapshot entry: %v", err)
			res.Dropped++
			continue
		}
		if rec.GUID == w.owned {
			continue
		}
		if _, ok := w.retired[rec.GUID]; ok {
			continue
		}
		w.lastSeen[rec.GUID] = now

		b, ok := w.byGUID[rec.GUID]
		if !ok {
			w.addBlobLocked(models.NewBlobFromRecord(rec))
			res.Created++
			continue
		}
		b.Apply(rec)
		res.Updated++
	}

	if w.reapAfter > 0 {
		for guid, seen := range w.lastSeen {
			if now.Sub(seen) > w.reapAfter && w.removeBlobLocked(guid) {
				res.Reaped++
			}
		}
	}

	w.sortBlobsLocked()
	return res
}
