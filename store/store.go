// Package store is the process-wide record of every registered player. It is
// the only place cross-client truth lives: clients push their own record into
// it and read everyone's records back out of it.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/4cecoder/blobarena/models"
)

var (
	ErrReadFailure   = errors.New("store read failure")
	ErrWriteFailure  = errors.New("store write failure")
	ErrDuplicateGuid = errors.New("duplicate guid")
	ErrUnknownGuid   = errors.New("unknown guid")
)

// Store holds the ordered player record list in memory and writes it behind to
// a Persister. A mutex serialises join, update and leave; only the owning
// client ever writes a given guid.
type Store struct {
	mu      sync.Mutex
	records []models.PlayerRecord
	touched map[string]time.Time
	dirty   bool
	now     func() time.Time

	flushMu   sync.Mutex
	persister Persister
}

// New loads the initial list from p. A failed load is logged and the store
// starts empty; the simulation never waits on storage.
func New(p Persister) *Store {
	s := &Store{
		touched:   make(map[string]time.Time),
		now:       time.Now,
		persister: p,
	}
	records, err := p.Load()
	if err != nil {
		log.Printf("[store] %v, starting with no players", fmt.Errorf("%w: %v", ErrReadFailure, err))
		return s
	}
	now := s.now()
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			log.Printf("[store] skipping persisted record: %v", err)
			continue
		}
		if s.indexLocked(rec.GUID) >= 0 {
			continue
		}
		s.records = append(s.records, rec)
		s.touched[rec.GUID] = now
	}
	return s
}

func (s *Store) indexLocked(guid string) int {
	for i := range s.records {
		if s.records[i].GUID == guid {
			return i
		}
	}
	return -1
}

// Join registers a new record. The first record for a guid wins.
func (s *Store) Join(rec models.PlayerRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(rec.GUID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateGuid, rec.GUID)
	}
	s.records = append(s.records, rec)
	s.touched[rec.GUID] = s.now()
	s.dirty = true
	return nil
}

// Update replaces the record with the same guid wholesale. An unknown guid is a
// no-op reported as ErrUnknownGuid.
func (s *Store) Update(rec models.PlayerRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(rec.GUID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownGuid, rec.GUID)
	}
	s.records[i] = rec
	s.touched[rec.GUID] = s.now()
	s.dirty = true
	return nil
}

// Leave deletes the record for guid and reports whether there was one.
func (s *Store) Leave(guid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(guid)
}

func (s *Store) removeLocked(guid string) bool {
	i := s.indexLocked(guid)
	if i < 0 {
		return false
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	delete(s.touched, guid)
	s.dirty = true
	return true
}

// Snapshot returns a copy of the current records in join order.
func (s *Store) Snapshot() []models.PlayerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PlayerRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Reap removes records that have not been joined or updated for longer than
// maxAge and returns their guids.
func (s *Store) Reap(maxAge time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var reaped []string
	for guid, at := range s.touched {
		if now.Sub(at) > maxAge {
			reaped = append(reaped, guid)
		}
	}
	for _, guid := range reaped {
		s.removeLocked(guid)
	}
	return reaped
}

// Flush saves the list if it changed since the last flush. A failed write is
// reported as ErrWriteFailure and not retried; the next mutation schedules
// another write.
func (s *Store) Flush() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	records := make([]models.PlayerRecord, len(s.records))
	copy(records, s.records)
	s.dirty = false
	s.mu.Unlock()

	if err := s.persister.Save(records); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}
	return nil
}

// Run flushes every flushEvery and, when reapAfter is positive, reaps stale
// records on the same beat. It flushes one last time when ctx is done.
func (s *Store) Run(ctx context.Context, flushEvery, reapAfter time.Duration) {
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := s.Flush(); err != nil {
				log.Printf("[store] final flush: %v", err)
			}
			return
		case <-ticker.C:
			if reapAfter > 0 {
				for _, guid := range s.Reap(reapAfter) {
					log.Printf("[store] reaped stale player %s", guid)
				}
			}
			if err := s.Flush(); err != nil {
				log.Printf("[store] %v", err)
			}
		}
	}
}
