package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

const poolRecordColumns = `
	record_id, program_id, pool_id, lp_mint, authority, open_orders, target_orders,
	base_mint, quote_mint, base_vault, quote_vault,
	market_id, market_program_id, market_base_vault, market_quote_vault, market_authority,
	withdraw_queue, lp_vault, nonce, open_time,
	market_event_queue, market_bids, market_asks,
	vault_owner, user_base_token, user_quote_token, owner,
	init_base_amount, init_quote_amount, base_decimals, quote_decimals, lp_decimals,
	k, k_raw, v, wrapped_sol_pool, tx_signature, slot, created_at`

// Insert adds a new pool record. Returns ErrDuplicateKey if record_id or
// pool_id exists.
func (s *PoolStore) Insert(ctx context.Context, r *domain.PoolRecord) error {
	if r == nil || r.RecordID == "" || r.PoolID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pool_records (` + poolRecordColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33, $34, $35, $36, $37, $38, $39
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RecordID, r.ProgramID, r.PoolID, r.LpMint, r.Authority, r.OpenOrders, r.TargetOrders,
		r.BaseMint, r.QuoteMint, r.BaseVault, r.QuoteVault,
		r.MarketID, r.MarketProgramID, r.MarketBaseVault, r.MarketQuoteVault, r.MarketAuthority,
		r.WithdrawQueue, r.LpVault, int16(r.Nonce), r.OpenTime,
		r.MarketEventQueue, r.MarketBids, r.MarketAsks,
		r.VaultOwner, r.UserBaseToken, r.UserQuoteToken, r.Owner,
		int64(r.InitBaseAmount), int64(r.InitQuoteAmount), int16(r.BaseDecimals), int16(r.QuoteDecimals), int16(r.LpDecimals),
		r.K, r.KRaw, r.V, r.WrappedSolPool, r.TxSignature, r.Slot, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pool record: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByID(ctx context.Context, recordID string) (*domain.PoolRecord, error) {
	query := `SELECT ` + poolRecordColumns + ` FROM pool_records WHERE record_id = $1`

	row := s.pool.QueryRow(ctx, query, recordID)
	r, err := scanPoolRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool record by id: %w", err)
	}
	return r, nil
}

// GetByPool retrieves the record for a pool address. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByPool(ctx context.Context, poolID string) (*domain.PoolRecord, error) {
	query := `SELECT ` + poolRecordColumns + ` FROM pool_records WHERE pool_id = $1`

	row := s.pool.QueryRow(ctx, query, poolID)
	r, err := scanPoolRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool record by pool: %w", err)
	}
	return r, nil
}

// scanPoolRecord scans a single row into a PoolRecord.
func scanPoolRecord(row pgx.Row) (*domain.PoolRecord, error) {
	var r domain.PoolRecord
	var nonce, baseDec, quoteDec, lpDec int16
	var initBase, initQuote int64

	err := row.Scan(
		&r.RecordID, &r.ProgramID, &r.PoolID, &r.LpMint, &r.Authority, &r.OpenOrders, &r.TargetOrders,
		&r.BaseMint, &r.QuoteMint, &r.BaseVault, &r.QuoteVault,
		&r.MarketID, &r.MarketProgramID, &r.MarketBaseVault, &r.MarketQuoteVault, &r.MarketAuthority,
		&r.WithdrawQueue, &r.LpVault, &nonce, &r.OpenTime,
		&r.MarketEventQueue, &r.MarketBids, &r.MarketAsks,
		&r.VaultOwner, &r.UserBaseToken, &r.UserQuoteToken, &r.Owner,
		&initBase, &initQuote, &baseDec, &quoteDec, &lpDec,
		&r.K, &r.KRaw, &r.V, &r.WrappedSolPool, &r.TxSignature, &r.Slot, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Nonce = uint8(nonce)
	r.BaseDecimals = uint8(baseDec)
	r.QuoteDecimals = uint8(quoteDec)
	r.LpDecimals = uint8(lpDec)
	r.InitBaseAmount = uint64(initBase)
	r.InitQuoteAmount = uint64(initQuote)
	return &r, nil
}
