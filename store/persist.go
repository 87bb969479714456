package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/4cecoder/blobarena/models"
	"github.com/vmihailenco/msgpack/v5"
)

// Persister is the storage collaborator behind the store.
type Persister interface {
	Load() ([]models.PlayerRecord, error)
	Save(records []models.PlayerRecord) error
}

// gameData is the on-disk document.
type gameData struct {
	Players []models.PlayerRecord `json:"players" msgpack:"players"`
}

// FilePersister keeps the record list in a single file. Paths ending in .json
// are written as JSON, anything else as msgpack.
type FilePersister struct {
	Path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{Path: path}
}

func (f *FilePersister) isJSON() bool {
	return strings.EqualFold(filepath.Ext(f.Path), ".json")
}

func (f *FilePersister) Load() ([]models.PlayerRecord, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Path, err)
	}
	var doc gameData
	if f.isJSON() {
		err = json.Unmarshal(b, &doc)
	} else {
		err = msgpack.Unmarshal(b, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", f.Path, err)
	}
	return doc.Players, nil
}

// Save writes to a temp file and renames it over the target so a crash never
// leaves a half-written document behind.
func (f *FilePersister) Save(records []models.PlayerRecord) error {
	doc := gameData{Players: records}
	if doc.Players == nil {
		doc.Players = []models.PlayerRecord{}
	}
	var (
		b   []byte
		err error
	)
	if f.isJSON() {
		b, err = json.Marshal(doc)
	} else {
		b, err = msgpack.Marshal(&doc)
	}
	if err != nil {
		return fmt.Errorf("failed to encode player records: %w", err)
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write player records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", f.Path, err)
	}
	return nil
}

// MemoryPersister keeps the last saved list in memory. Tests use it to inject
// read and write failures.
type MemoryPersister struct {
	mu      sync.Mutex
	records []models.PlayerRecord
	saves   int
	LoadErr error
	SaveErr error
}

func (m *MemoryPersister) Load() ([]models.PlayerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return append([]models.PlayerRecord(nil), m.records...), nil
}

func (m *MemoryPersister) Save(records []models.PlayerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.records = append([]models.PlayerRecord(nil), records...)
	return nil
}

// Saves counts Save calls, failed ones included.
func (m *MemoryPersister) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
