// Package store keeps completed analyses so they can be fetched again by ID,
// for example to download the CSV report of an earlier upload.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/parkscan/internal/pipeline"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("analysis not found")

// Record is one stored analysis.
type Record struct {
	ID        string           `json:"id"`
	Source    string           `json:"source"`
	CreatedAt time.Time        `json:"created_at"`
	Result    *pipeline.Result `json:"result"`
}

// NewRecord assigns a fresh ID and timestamp to res.
func NewRecord(source string, res *pipeline.Result) *Record {
	return &Record{
		ID:        uuid.NewString(),
		Source:    source,
		CreatedAt: time.Now().UTC(),
		Result:    res,
	}
}

// Store persists records. Implementations are safe for concurrent use.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
}

// Memory is an in-process Store that keeps at most limit records, dropping
// the oldest first.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string
	limit   int
}

// DefaultMemoryLimit bounds a Memory store created with limit <= 0.
const DefaultMemoryLimit = 256

// NewMemory creates an empty Memory store.
func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &Memory{records: make(map[string]*Record), limit: limit}
}

// Save stores rec, replacing any record with the same ID.
func (m *Memory) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" {
		return errors.New("failed to save analysis: record has no id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[rec.ID]; !exists {
		m.order = append(m.order, rec.ID)
	}
	m.records[rec.ID] = rec

	for len(m.order) > m.limit {
		delete(m.records, m.order[0])
		m.order = m.order[1:]
	}
	return nil
}

// Get returns the record with the given ID.
func (m *Memory) Get(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
