// Package idempotency remembers the outcome of client-keyed requests for a
// bounded time so retried submissions replay instead of minting twice.
package idempotency

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultTTL is how long a key is remembered.
const DefaultTTL = 24 * time.Hour

// Record states.
const (
	StatePending   = "pending"
	StateCompleted = "completed"
)

// ErrNotFound is returned by Lookup for unknown keys.
var ErrNotFound = errors.New("idempotency key not found")

// Record is what a key maps to.
type Record struct {
	State     string    `json:"state"`
	Status    int       `json:"status,omitempty"`
	Payload   []byte    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store reserves keys and stores completed responses.
type Store interface {
	// Reserve marks key as pending. It returns nil when the caller now owns
	// the key, or the existing record otherwise.
	Reserve(ctx context.Context, key string) (*Record, error)
	// Complete stores the final response for a reserved key.
	Complete(ctx context.Context, key string, status int, payload []byte) error
	// Release forgets a pending key so the client may retry.
	Release(ctx context.Context, key string) error
	// Lookup returns the record for key or ErrNotFound.
	Lookup(ctx context.Context, key string) (*Record, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	records map[string]memoryEntry
}

type memoryEntry struct {
	record    Record
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore. A non-positive ttl uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		records: make(map[string]memoryEntry),
	}
}

func (m *MemoryStore) Reserve(_ context.Context, key string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.evictLocked(now)

	if e, ok := m.records[key]; ok {
		rec := e.record
		return &rec, nil
	}
	m.records[key] = memoryEntry{
		record:    Record{State: StatePending, CreatedAt: now},
		expiresAt: now.Add(m.ttl),
	}
	return nil, nil
}

func (m *MemoryStore) Complete(_ context.Context, key string, status int, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	created := now
	if e, ok := m.records[key]; ok {
		created = e.record.CreatedAt
	}
	m.records[key] = memoryEntry{
		record: Record{
			State:     StateCompleted,
			Status:    status,
			Payload:   append([]byte(nil), payload...),
			CreatedAt: created,
		},
		expiresAt: now.Add(m.ttl),
	}
	return nil
}

func (m *MemoryStore) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.records[key]; ok && e.record.State == StatePending {
		delete(m.records, key)
	}
	return nil
}

func (m *MemoryStore) Lookup(_ context.Context, key string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.records[key]
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, ErrNotFound
	}
	rec := e.record
	return &rec, nil
}

// Len returns the number of live records.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked(m.now())
	return len(m.records)
}

func (m *MemoryStore) evictLocked(now time.Time) {
	for k, e := range m.records {
		if !now.Before(e.expiresAt) {
			delete(m.records, k)
		}
	}
}
