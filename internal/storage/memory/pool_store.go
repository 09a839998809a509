package memory

import (
	"context"
	"sync"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore.
type PoolStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.PoolRecord // keyed by record_id
	byPool map[string]string             // pool_id -> record_id
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore() *PoolStore {
	return &PoolStore{
		data:   make(map[string]*domain.PoolRecord),
		byPool: make(map[string]string),
	}
}

// Insert adds a new pool record. Returns ErrDuplicateKey if record_id or
// pool_id exists.
func (s *PoolStore) Insert(_ context.Context, r *domain.PoolRecord) error {
	if r == nil || r.RecordID == "" || r.PoolID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RecordID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byPool[r.PoolID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	recordCopy := *r
	s.data[r.RecordID] = &recordCopy
	s.byPool[r.PoolID] = r.RecordID
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByID(_ context.Context, recordID string) (*domain.PoolRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[recordID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *r
	return &recordCopy, nil
}

// GetByPool retrieves the record for a pool address. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByPool(_ context.Context, poolID string) (*domain.PoolRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recordID, exists := s.byPool[poolID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *s.data[recordID]
	return &recordCopy, nil
}

// Verify interface compliance at compile time.
var _ storage.PoolStore = (*PoolStore)(nil)
