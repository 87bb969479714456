package game

import (
	"reflect"
	"testing"
	"time"

	"github.com/4cecoder/blobarena/config"
	"github.com/4cecoder/blobarena/models"
)

func record(guid string, mass, x, y float64) models.PlayerRecord {
	return models.PlayerRecord{
		GUID:        guid,
		Name:        "name-" + guid,
		Mass:        mass,
		Rotation:    90,
		X:           x,
		Y:           y,
		XVel:        1,
		YVel:        -1,
		BgColor:     "#123456",
		BorderColor: "#654321",
		TextColor:   "#fff",
	}
}

func TestReconcileLeavesOwnedBlobAlone(t *testing.T) {
	w := newTestWorld(t)
	w.AddBlob(still("G", 50, 10, 10))
	w.SetOwned("G")

	w.Reconcile([]models.PlayerRecord{record("G", 500, 999, 999)})

	b, ok := w.Blob("G")
	if !ok {
		t.Fatalf("owned blob missing")
	}
	if b.X != 10 || b.Y != 10 || b.Mass != 50 {
		t.Fatalf("owned blob overwritten: %+v", b)
	}
}

func TestReconcileCreatesUnseenGuid(t *testing.T) {
	w := newTestWorld(t)
	w.AddBlob(still("G", 50, 10, 10))
	w.SetOwned("G")

	rec := record("H", 70, 300, 400)
	res := w.Reconcile([]models.PlayerRecord{rec})
	if res.Created != 1 {
		t.Fatalf("created = %d, want 1", res.Created)
	}

	count := 0
	for _, b := range w.Blobs() {
		if b.GUID() == "H" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("found %d blobs with guid H, want 1", count)
	}
	h, _ := w.Blob("H")
	if got := h.Record(); got != rec {
		t.Fatalf("blob fields %+v, want %+v", got, rec)
	}
}

func TestReconcileOverwritesRemoteBlob(t *testing.T) {
	w := newTestWorld(t)
	remote := still("R", 40, 1, 1)
	w.AddBlob(remote)

	res := w.Reconcile([]models.PlayerRecord{record("R", 90, 250, 260)})
	if res.Updated != 1 || res.Created != 0 {
		t.Fatalf("result = %+v", res)
	}
	b, _ := w.Blob("R")
	if b.Mass != 90 || b.X != 250 || b.Y != 260 || b.Rotation != 90 || b.XVel != 1 || b.YVel != -1 || b.Name != "name-R" {
		t.Fatalf("remote not overwritten: %+v", b)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	snapshot := []models.PlayerRecord{
		record("A", 30, 100, 100),
		record("B", 60, 200, 200),
		record("G", 999, 0, 0),
		{Name: "broken"},
	}

	once := newTestWorld(t)
	once.AddBlob(still("G", 50, 10, 10))
	once.SetOwned("G")
	once.AddBlob(still("B", 10, 5, 5))
	once.Reconcile(snapshot)

	twice := newTestWorld(t)
	twice.AddBlob(still("G", 50, 10, 10))
	twice.SetOwned("G")
	twice.AddBlob(still("B", 10, 5, 5))
	twice.Reconcile(snapshot)
	res := twice.Reconcile(snapshot)
	if res.Created != 0 {
		t.Fatalf("second apply created %d blobs", res.Created)
	}

	if !reflect.DeepEqual(once.Blobs(), twice.Blobs()) {
		t.Fatalf("blob sets differ:\nonce  %+v\ntwice %+v", once.Blobs(), twice.Blobs())
	}
}

func TestReconcileDropsMalformedEntries(t *testing.T) {
	w := newTestWorld(t)
	res := w.Reconcile([]models.PlayerRecord{
		{Name: "no guid", Mass: 10},
		{GUID: "zero", Mass: 0},
		record("ok", 20, 1, 1),
	})
	if res.Dropped != 2 || res.Created != 1 {
		t.Fatalf("result = %+v, want 2 dropped and 1 created", res)
	}
}

func TestReconcileDoesNotRemoveAbsentWithoutReaping(t *testing.T) {
	cfg := config.Default()
	cfg.ReapAfterMs = 0
	w := NewWorld(cfg)
	w.Reconcile([]models.PlayerRecord{record("A", 30, 1, 1)})
	w.Reconcile(nil)
	if _, ok := w.Blob("A"); !ok {
		t.Fatalf("absent blob removed with reaping disabled")
	}
}

func TestReconcileReapsStaleRemoteBlobs(t *testing.T) {
	cfg := config.Default()
	cfg.ReapAfterMs = 1000
	w := NewWorld(cfg)
	now := time.Unix(1000, 0)
	w.now = func() time.Time { return now }

	w.AddBlob(still("G", 50, 10, 10))
	w.SetOwned("G")
	w.Reconcile([]models.PlayerRecord{record("A", 30, 1, 1), record("B", 30, 2, 2)})

	now = now.Add(500 * time.Millisecond)
	res := w.Reconcile([]models.PlayerRecord{record("B", 30, 2, 2)})
	if res.Reaped != 0 {
		t.Fatalf("reaped too early: %+v", res)
	}

	now = now.Add(600 * time.Millisecond)
	res = w.Reconcile([]models.PlayerRecord{record("B", 30, 2, 2)})
	if res.Reaped != 1 {
		t.Fatalf("reaped = %d, want 1", res.Reaped)
	}
	if _, ok := w.Blob("A"); ok {
		t.Fatalf("A should have been reaped")
	}
	if _, ok := w.Blob("B"); !ok {
		t.Fatalf("B reaped while still in snapshots")
	}
	if _, ok := w.Blob("G"); !ok {
		t.Fatalf("owned blob reaped")
	}
}

func TestReconcileDoesNotResurrectFormerOwnedBlob(t *testing.T) {
	w := newTestWorld(t)
	w.AddBlob(still("old", 50, 10, 10))
	w.SetOwned("old")
	w.RemoveBlob("old")
	w.AddBlob(still("new", 50, 20, 20))
	w.SetOwned("new")

	w.Reconcile([]models.PlayerRecord{record("old", 50, 10, 10)})
	if _, ok := w.Blob("old"); ok {
		t.Fatalf("stale record recreated the previously owned blob")
	}
}
