package memory

import (
	"context"
	"errors"
	"testing"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/storage"
)

func TestPriceTickStore_InsertAndGetOrdered(t *testing.T) {
	store := NewPriceTickStore()
	ctx := context.Background()

	ticks := []*domain.PriceTick{
		{RecordID: "rec1", PoolID: "pool1", TimestampMs: 3000, QuoteLamports: 60_000_000_000, Price: 72},
		{RecordID: "rec1", PoolID: "pool1", TimestampMs: 1000, QuoteLamports: 50_000_000_000, Price: 50},
		{RecordID: "rec2", PoolID: "pool2", TimestampMs: 500, QuoteLamports: 1_000_000_000, Price: 1},
		{RecordID: "rec1", PoolID: "pool1", TimestampMs: 2000, QuoteLamports: 55_000_000_000, Price: 60.5},
	}
	for _, tick := range ticks {
		if err := store.Insert(ctx, tick); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	got, err := store.GetByRecordID(ctx, "rec1")
	if err != nil {
		t.Fatalf("GetByRecordID() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("GetByRecordID() returned %d ticks, want 3", len(got))
	}
	for i, wantTs := range []int64{1000, 2000, 3000} {
		if got[i].TimestampMs != wantTs {
			t.Errorf("tick[%d].TimestampMs = %d, want %d", i, got[i].TimestampMs, wantTs)
		}
	}
	if got[1].Price != 60.5 {
		t.Errorf("tick[1].Price = %v, want 60.5", got[1].Price)
	}
}

func TestPriceTickStore_EmptyResult(t *testing.T) {
	store := NewPriceTickStore()

	got, err := store.GetByRecordID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByRecordID() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("GetByRecordID() returned %d ticks, want 0", len(got))
	}
}

func TestPriceTickStore_InvalidInput(t *testing.T) {
	store := NewPriceTickStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Insert(nil) error = %v, want ErrInvalidInput", err)
	}
	if err := store.Insert(ctx, &domain.PriceTick{PoolID: "pool1"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Insert() without record id error = %v, want ErrInvalidInput", err)
	}
}

func TestPriceTickStore_CopiesOnRead(t *testing.T) {
	store := NewPriceTickStore()
	ctx := context.Background()

	tick := &domain.PriceTick{RecordID: "rec1", TimestampMs: 1000, Price: 50}
	if err := store.Insert(ctx, tick); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := store.GetByRecordID(ctx, "rec1")
	if err != nil {
		t.Fatalf("GetByRecordID() error = %v", err)
	}
	got[0].Price = 999

	again, err := store.GetByRecordID(ctx, "rec1")
	if err != nil {
		t.Fatalf("GetByRecordID() error = %v", err)
	}
	if again[0].Price != 50 {
		t.Errorf("stored Price = %v after reader mutation, want 50", again[0].Price)
	}
}
