package memory

import (
	"context"
	"sort"
	"sync"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/storage"
)

// PriceTickStore is an in-memory implementation of storage.PriceTickStore.
type PriceTickStore struct {
	mu   sync.RWMutex
	data []*domain.PriceTick
}

// NewPriceTickStore creates a new in-memory price tick store.
func NewPriceTickStore() *PriceTickStore {
	return &PriceTickStore{}
}

// Insert adds a single price tick.
func (s *PriceTickStore) Insert(_ context.Context, tick *domain.PriceTick) error {
	if tick == nil || tick.RecordID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tickCopy := *tick
	s.data = append(s.data, &tickCopy)
	return nil
}

// GetByRecordID retrieves all ticks for a record, ordered by timestamp ASC.
func (s *PriceTickStore) GetByRecordID(_ context.Context, recordID string) ([]*domain.PriceTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceTick
	for _, t := range s.data {
		if t.RecordID == recordID {
			tickCopy := *t
			result = append(result, &tickCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.PriceTickStore = (*PriceTickStore)(nil)
