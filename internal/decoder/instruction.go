// Package decoder interprets raw Raydium AMM v4 transaction and account bytes
// into typed pool-creation events. It performs no I/O.
package decoder

import (
	"encoding/binary"
	"fmt"

	"solana-pool-sniper/internal/domain"
)

// Well-known addresses.
const (
	// RaydiumAMMV4 is the Raydium AMM v4 program ID.
	RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	// SysvarClock marks the legacy initialize2 account layout: when it sits at
	// the canonical authority index, authority and open orders are shifted by one.
	SysvarClock = "SysvarC1ock11111111111111111111111111111111"
)

// initialize2 instruction data layout:
// opcode(1) | nonce(1) | openTime(8) | initPcAmount(8) | initCoinAmount(8)
const (
	initialize2Opcode = 0x01
	initPcOffset      = 10
	initCoinOffset    = 18
	initialize2MinLen = initCoinOffset + 8
)

// minAccountIndices is the number of instruction account indices the
// initialize2 layout addresses (the highest used index is 20).
const minAccountIndices = 21

// CompiledInstruction is a single instruction of a transaction message,
// with account indices resolved against the message account-key list.
type CompiledInstruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           []byte
}

// DecodeInitialize2 decodes a Raydium initialize2 instruction into a
// PoolCreationEvent.
//
// Two account layouts are supported. In the current layout authority and open
// orders sit at instruction account indices 5 and 6. In the legacy layout the
// sysvar clock occupies index 5 and both shift up by one. The clock check runs
// before any field is read from those indices; any other arrangement fails
// with ErrUnsupportedLayoutVariant.
func DecodeInitialize2(accountKeys []string, ix CompiledInstruction, signature string, slot int64) (*domain.PoolCreationEvent, error) {
	if len(ix.Data) < initialize2MinLen {
		return nil, fmt.Errorf("%w: instruction data %d bytes, want >= %d", ErrMalformedInstruction, len(ix.Data), initialize2MinLen)
	}
	if ix.Data[0] != initialize2Opcode {
		return nil, fmt.Errorf("%w: opcode 0x%02x is not initialize2", ErrMalformedInstruction, ix.Data[0])
	}
	if len(ix.Accounts) < minAccountIndices {
		return nil, fmt.Errorf("%w: %d account indices, want >= %d", ErrMalformedInstruction, len(ix.Accounts), minAccountIndices)
	}
	if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(accountKeys) {
		return nil, fmt.Errorf("%w: program index %d out of range (%d keys)", ErrMalformedInstruction, ix.ProgramIDIndex, len(accountKeys))
	}

	key := func(i int) (string, error) {
		idx := ix.Accounts[i]
		if idx < 0 || idx >= len(accountKeys) {
			return "", fmt.Errorf("%w: account index %d out of range (%d keys)", ErrMalformedInstruction, idx, len(accountKeys))
		}
		return accountKeys[idx], nil
	}

	// Variant detection must precede every other read from these indices.
	authority, err := key(5)
	if err != nil {
		return nil, err
	}
	openOrders, err := key(6)
	if err != nil {
		return nil, err
	}
	if authority == SysvarClock {
		authority = openOrders
		openOrders, err = key(7)
		if err != nil {
			return nil, err
		}
		if authority == SysvarClock || openOrders == SysvarClock {
			return nil, fmt.Errorf("%w: clock sysvar at shifted authority/open-orders position", ErrUnsupportedLayoutVariant)
		}
	}

	initPc := binary.LittleEndian.Uint64(ix.Data[initPcOffset:])
	initCoin := binary.LittleEndian.Uint64(ix.Data[initCoinOffset:])

	event := &domain.PoolCreationEvent{
		ProgramID:       accountKeys[ix.ProgramIDIndex],
		Authority:       authority,
		OpenOrders:      openOrders,
		InitBaseAmount:  initCoin,
		InitQuoteAmount: initPc,
		TxSignature:     signature,
		Slot:            slot,
	}

	fields := []struct {
		dst *string
		idx int
	}{
		{&event.PoolID, 4},
		{&event.LpMint, 7},
		{&event.BaseMint, 8},
		{&event.QuoteMint, 9},
		{&event.BaseVault, 10},
		{&event.QuoteVault, 11},
		{&event.TargetOrders, 13},
		{&event.MarketProgramID, 15},
		{&event.MarketID, 16},
		{&event.MarketBaseVault, 18},
		{&event.MarketQuoteVault, 19},
		{&event.MarketAuthority, 20},
	}
	for _, f := range fields {
		v, err := key(f.idx)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	return event, nil
}
