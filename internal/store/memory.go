package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ledgerpay/ledgerpay/internal/wallet"
)

// MemoryStore is a concurrency-safe in-memory store useful for unit tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]wallet.Record
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]wallet.Record)}
}

// Load returns the stored record for the wallet id.
func (s *MemoryStore) Load(_ context.Context, id uuid.UUID) (wallet.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id.String()]
	if !ok {
		return wallet.Record{}, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}
	return rec, nil
}

// Save stores the record, replacing any previous version.
func (s *MemoryStore) Save(_ context.Context, rec wallet.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

// Len reports how many records are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
