// Package game holds one client's simulated universe: the arena, its pellets and
// blobs, the collision rules between them, and the merge of authoritative
// snapshots into that universe.
package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/4cecoder/blobarena/config"
	"github.com/4cecoder/blobarena/models"
)

// World is a single client's local simulation. Every method is safe for
// concurrent use; the spawner, the network reader and the tick loop all go
// through the same mutex.
type World struct {
	mu sync.Mutex

	arena     models.Arena
	speed     float64
	friction  float64
	reapAfter time.Duration
	capacity  int

	blobs  []*models.Blob // ascending mass
	byGUID map[string]*models.Blob

	pellets      map[uint64]*models.Pellet
	grid         *PelletGrid
	nextPelletID uint64
	queryBuf     []uint64

	owned   string
	retired map[string]struct{}

	lastSeen map[string]time.Time
	now      func() time.Time

	onOwnedRemoved func(guid string)
}

// NewWorld builds an empty world for the given game config.
func NewWorld(cfg config.Game) *World {
	cfg = cfg.Normalize()
	arena := models.NewArena(cfg.Arena.Width, cfg.Arena.Height)
	return &World{
		arena:     arena,
		speed:     cfg.Blob.Speed,
		friction:  cfg.Blob.Friction,
		reapAfter: cfg.ReapAfter(),
		capacity:  cfg.Pellets.Capacity,
		byGUID:    make(map[string]*models.Blob),
		pellets:   make(map[uint64]*models.Pellet),
		grid:      NewPelletGrid(arena, DefaultCellSize),
		retired:   make(map[string]struct{}),
		lastSeen:  make(map[string]time.Time),
		now:       time.Now,
	}
}

func (w *World) Arena() models.Arena {
	return w.arena
}

// OnOwnedRemoved registers the hook fired when the owned blob is absorbed.
// It runs after the world lock is released.
func (w *World) OnOwnedRemoved(fn func(guid string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onOwnedRemoved = fn
}

// SetOwned marks guid as the blob this client is authoritative for. An empty
// guid clears ownership.
func (w *World) SetOwned(guid string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.owned != "" && w.owned != guid {
		w.retired[w.owned] = struct{}{}
	}
	w.owned = guid
	delete(w.lastSeen, guid)
}

func (w *World) Owned() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.owned
}

// AddBlob inserts b. The first blob with a guid wins; a second insert with the
// same guid is ignored and reported as false.
func (w *World) AddBlob(b *models.Blob) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.addBlobLocked(b)
}

func (w *World) addBlobLocked(b *models.Blob) bool {
	if _, ok := w.byGUID[b.GUID()]; ok {
		return false
	}
	w.byGUID[b.GUID()] = b
	w.blobs = append(w.blobs, b)
	w.sortBlobsLocked()
	return true
}

// RemoveBlob deletes the blob by identity. It never fires the owned-removed hook;
// that is reserved for absorption.
func (w *World) RemoveBlob(guid string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.removeBlobLocked(guid)
}

func (w *World) removeBlobLocked(guid string) bool {
	b, ok := w.byGUID[guid]
	if !ok {
		return false
	}
	delete(w.byGUID, guid)
	delete(w.lastSeen, guid)
	for i, cur := range w.blobs {
		if cur == b {
			w.blobs = append(w.blobs[:i], w.blobs[i+1:]...)
			break
		}
	}
	return true
}

func (w *World) sortBlobsLocked() {
	sort.SliceStable(w.blobs, func(i, j int) bool {
		return w.blobs[i].Mass < w.blobs[j].Mass
	})
}

// Blob returns a copy of the blob with guid.
func (w *World) Blob(guid string) (*models.Blob, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.byGUID[guid]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

// Blobs returns copies of every blob in ascending mass order.
func (w *World) Blobs() []*models.Blob {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*models.Blob, len(w.blobs))
	for i, b := range w.blobs {
		out[i] = b.Clone()
	}
	return out
}

func (w *World) BlobCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.blobs)
}

// UpdateBlob runs fn against the live blob under the world lock.
func (w *World) UpdateBlob(guid string, fn func(b *models.Blob)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.byGUID[guid]
	if !ok {
		return false
	}
	fn(b)
	w.sortBlobsLocked()
	return true
}

// AddPellet inserts p unless the population is at capacity, in which case the
// pellet is silently dropped. A zero ID is replaced with the next free one.
func (w *World) AddPellet(p *models.Pellet) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pellets) >= w.capacity {
		return false
	}
	if p.ID == 0 {
		w.nextPelletID++
		p.ID = w.nextPelletID
	} else if _, ok := w.pellets[p.ID]; ok {
		return false
	} else if p.ID > w.nextPelletID {
		w.nextPelletID = p.ID
	}
	w.pellets[p.ID] = p
	w.grid.Insert(p)
	return true
}

func (w *World) PelletCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pellets)
}

// Pellets returns copies of every pellet, in no particular order.
func (w *World) Pellets() []models.Pellet {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.Pellet, 0, len(w.pellets))
	for _, p := range w.pellets {
		out = append(out, *p)
	}
	return out
}

func (w *World) removePelletLocked(p *models.Pellet) {
	delete(w.pellets, p.ID)
	w.grid.Remove(p)
}

// Step advances the simulation by one tick: integrate and clamp every blob,
// then resolve collisions. The returned absorptions are in application order.
func (w *World) Step() []Absorption {
	w.mu.Lock()
	for _, b := range w.blobs {
		b.Integrate(w.arena, w.speed, w.friction)
	}
	events := w.resolveCollisionsLocked()

	ownedLost := ""
	for _, ev := range events {
		if ev.Prey != "" && ev.Prey == w.owned {
			ownedLost = ev.Prey
		}
	}
	hook := w.onOwnedRemoved
	w.mu.Unlock()

	if ownedLost != "" && hook != nil {
		hook(ownedLost)
	}
	return events
}

// Run steps the world every period until ctx is done.
func (w *World) Run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Step()
		}
	}
}
