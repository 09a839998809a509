package decoder

import (
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"

	"solana-pool-sniper/internal/domain"
)

// Liquidity state v4 account layout offsets. Only the fields the record
// needs are decoded; the account is 752 bytes on chain.
const (
	poolStateNonceOffset    = 8   // u64
	poolStateOpenTimeOffset = 224 // u64
	poolStateWithdrawQueue  = 624 // pubkey
	poolStateLpVault        = 656 // pubkey
	poolStateMinLen         = poolStateLpVault + 32
)

// Serum market state layout: the three side accounts sit at fixed offsets.
const (
	marketEventQueueOffset = 245
	marketBidsOffset       = 277
	marketAsksOffset       = 309
	marketStateMinLen      = marketAsksOffset + 32 // 341
)

// DecodePoolState extracts the withdraw queue, LP vault, nonce and open time
// from raw liquidity-state-v4 account data.
func DecodePoolState(data []byte) (*domain.PoolStateFields, error) {
	if len(data) < poolStateMinLen {
		return nil, fmt.Errorf("%w: pool state %d bytes, want >= %d", ErrIncompleteAccountData, len(data), poolStateMinLen)
	}

	return &domain.PoolStateFields{
		WithdrawQueue: base58.Encode(data[poolStateWithdrawQueue : poolStateWithdrawQueue+32]),
		LpVault:       base58.Encode(data[poolStateLpVault : poolStateLpVault+32]),
		Nonce:         uint8(binary.LittleEndian.Uint64(data[poolStateNonceOffset:])),
		OpenTime:      int64(binary.LittleEndian.Uint64(data[poolStateOpenTimeOffset:])),
	}, nil
}

// DecodeMarketState extracts the event queue, bid book and ask book addresses
// from raw serum market account data.
func DecodeMarketState(data []byte) (*domain.MarketSideAccounts, error) {
	if len(data) < marketStateMinLen {
		return nil, fmt.Errorf("%w: market state %d bytes, want >= %d", ErrIncompleteAccountData, len(data), marketStateMinLen)
	}

	return &domain.MarketSideAccounts{
		EventQueue: base58.Encode(data[marketEventQueueOffset : marketEventQueueOffset+32]),
		Bids:       base58.Encode(data[marketBidsOffset : marketBidsOffset+32]),
		Asks:       base58.Encode(data[marketAsksOffset : marketAsksOffset+32]),
	}, nil
}
