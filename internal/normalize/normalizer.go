// Package normalize turns decoded pool-creation events into canonical pool
// records: it resolves which side is the SOL numeraire, computes the
// decimal-normalized invariant constant and launch price, and derives the
// trade-routing addresses. All functions are pure.
package normalize

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/idhash"
)

// WSOL is the wrapped SOL mint address.
const WSOL = "So11111111111111111111111111111111111111112"

// Decimals holds resolved decimal precision for the pool's mints.
type Decimals struct {
	Base  uint8
	Quote uint8
	Lp    uint8
}

// Normalize produces the canonical PoolRecord for a creation event.
//
// The exchange labels reserves coin/pc regardless of which side is SOL. If
// WSOL occupies the base (coin) slot, the mint, vault and raw-reserve triples
// are swapped together so that quote is always the SOL-denominated side.
// Decimals must be given in the event's pre-swap orientation; they are swapped
// along with the sides.
func Normalize(event *domain.PoolCreationEvent, dec Decimals, state *domain.PoolStateFields, market *domain.MarketSideAccounts, owner string) (*domain.PoolRecord, error) {
	if event == nil || state == nil || market == nil {
		return nil, fmt.Errorf("normalize: nil input")
	}

	baseMint, quoteMint := event.BaseMint, event.QuoteMint
	baseVault, quoteVault := event.BaseVault, event.QuoteVault
	initBase, initQuote := event.InitBaseAmount, event.InitQuoteAmount
	baseDec, quoteDec := dec.Base, dec.Quote

	// Swap all three paired fields together or none: a partial swap would
	// mismatch mint/vault/amount triples.
	if baseMint == WSOL {
		baseMint, quoteMint = quoteMint, baseMint
		baseVault, quoteVault = quoteVault, baseVault
		initBase, initQuote = initQuote, initBase
		baseDec, quoteDec = quoteDec, baseDec
	}

	kRaw := constantProduct(initBase, initQuote, baseDec, quoteDec)
	k, _ := new(big.Float).SetInt(kRaw).Float64()

	baseHuman := float64(initBase) / math.Pow10(int(baseDec))
	quoteHuman := float64(initQuote) / math.Pow10(int(quoteDec))
	if baseHuman == 0 {
		return nil, fmt.Errorf("normalize: zero base reserve in pool %s", event.PoolID)
	}
	v := quoteHuman / baseHuman

	vaultOwner, err := DeriveVaultOwner(event.MarketID, event.MarketProgramID)
	if err != nil {
		return nil, err
	}
	userBase, err := DeriveAssociatedTokenAccount(owner, baseMint)
	if err != nil {
		return nil, err
	}
	userQuote, err := DeriveAssociatedTokenAccount(owner, quoteMint)
	if err != nil {
		return nil, err
	}

	return &domain.PoolRecord{
		RecordID: idhash.ComputePoolRecordID(event.PoolID, event.TxSignature, event.Slot),

		ProgramID:        event.ProgramID,
		PoolID:           event.PoolID,
		LpMint:           event.LpMint,
		Authority:        event.Authority,
		OpenOrders:       event.OpenOrders,
		TargetOrders:     event.TargetOrders,
		BaseMint:         baseMint,
		QuoteMint:        quoteMint,
		BaseVault:        baseVault,
		QuoteVault:       quoteVault,
		MarketID:         event.MarketID,
		MarketProgramID:  event.MarketProgramID,
		MarketBaseVault:  event.MarketBaseVault,
		MarketQuoteVault: event.MarketQuoteVault,
		MarketAuthority:  event.MarketAuthority,

		WithdrawQueue: state.WithdrawQueue,
		LpVault:       state.LpVault,
		Nonce:         state.Nonce,
		OpenTime:      state.OpenTime,

		MarketEventQueue: market.EventQueue,
		MarketBids:       market.Bids,
		MarketAsks:       market.Asks,

		VaultOwner:     vaultOwner,
		UserBaseToken:  userBase,
		UserQuoteToken: userQuote,
		Owner:          owner,

		InitBaseAmount:  initBase,
		InitQuoteAmount: initQuote,
		BaseDecimals:    baseDec,
		QuoteDecimals:   quoteDec,
		LpDecimals:      dec.Lp,

		K:    k,
		KRaw: kRaw.String(),
		V:    v,

		WrappedSolPool: quoteMint == WSOL,

		TxSignature: event.TxSignature,
		Slot:        event.Slot,
		CreatedAt:   time.Now().UnixMilli(),
	}, nil
}

// constantProduct computes (rawQuote * rawBase) / 10^(quoteDec+baseDec) with
// truncating big-integer division. Raw reserves can exceed 2^53, so the
// product must never pass through a float.
func constantProduct(rawBase, rawQuote uint64, baseDec, quoteDec uint8) *big.Int {
	product := new(big.Int).Mul(
		new(big.Int).SetUint64(rawQuote),
		new(big.Int).SetUint64(rawBase),
	)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(quoteDec)+int64(baseDec)), nil)
	return product.Quo(product, scale)
}
