package clickhouse

import (
	"context"
	"fmt"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/storage"
)

// PriceTickStore implements storage.PriceTickStore using ClickHouse.
type PriceTickStore struct {
	conn *Conn
}

// NewPriceTickStore creates a new PriceTickStore.
func NewPriceTickStore(conn *Conn) *PriceTickStore {
	return &PriceTickStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceTickStore = (*PriceTickStore)(nil)

// Insert adds a single price tick.
func (s *PriceTickStore) Insert(ctx context.Context, tick *domain.PriceTick) error {
	if tick == nil || tick.RecordID == "" {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_ticks (
			record_id, pool_id, timestamp_ms, quote_lamports, price
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		tick.RecordID, tick.PoolID, uint64(tick.TimestampMs),
		tick.QuoteLamports, tick.Price,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRecordID retrieves all ticks for a record, ordered by timestamp ASC.
func (s *PriceTickStore) GetByRecordID(ctx context.Context, recordID string) ([]*domain.PriceTick, error) {
	query := `
		SELECT record_id, pool_id, timestamp_ms, quote_lamports, price
		FROM price_ticks
		WHERE record_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("query by record id: %w", err)
	}
	defer rows.Close()

	var ticks []*domain.PriceTick
	for rows.Next() {
		var t domain.PriceTick
		var timestampMs uint64

		if err := rows.Scan(&t.RecordID, &t.PoolID, &timestampMs, &t.QuoteLamports, &t.Price); err != nil {
			return nil, fmt.Errorf("scan price tick row: %w", err)
		}

		t.TimestampMs = int64(timestampMs)
		ticks = append(ticks, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price tick rows: %w", err)
	}

	return ticks, nil
}
