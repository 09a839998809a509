package storage

import (
	"context"

	"solana-pool-sniper/internal/domain"
)

// PoolStore provides access to pool_records storage. A record is written
// exactly once per pool and never updated afterwards.
type PoolStore interface {
	// Insert adds a new pool record. Returns ErrDuplicateKey if record_id exists.
	Insert(ctx context.Context, r *domain.PoolRecord) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, recordID string) (*domain.PoolRecord, error)

	// GetByPool retrieves the record for a pool address. Returns ErrNotFound if not exists.
	GetByPool(ctx context.Context, poolID string) (*domain.PoolRecord, error)
}

// PriceTickStore archives watch-phase price evaluations.
type PriceTickStore interface {
	// Insert adds a single price tick.
	Insert(ctx context.Context, tick *domain.PriceTick) error

	// GetByRecordID retrieves all ticks for a record, ordered by timestamp ASC.
	GetByRecordID(ctx context.Context, recordID string) ([]*domain.PriceTick, error)
}
