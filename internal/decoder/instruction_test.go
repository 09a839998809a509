package decoder

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/mr-tron/base58"
)

// testKey returns a deterministic base58 pubkey built from a single byte.
func testKey(b byte) string {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = b
	}
	return base58.Encode(raw)
}

// testAccountKeys returns 22 distinct keys; index 21 is the Raydium program.
func testAccountKeys() []string {
	keys := make([]string, 22)
	for i := range keys {
		keys[i] = testKey(byte(i + 1))
	}
	keys[21] = RaydiumAMMV4
	return keys
}

func testInstruction(initPc, initCoin uint64) CompiledInstruction {
	data := make([]byte, initialize2MinLen)
	data[0] = initialize2Opcode
	data[1] = 254 // nonce
	binary.LittleEndian.PutUint64(data[2:], 1700000000)
	binary.LittleEndian.PutUint64(data[initPcOffset:], initPc)
	binary.LittleEndian.PutUint64(data[initCoinOffset:], initCoin)

	accounts := make([]int, minAccountIndices)
	for i := range accounts {
		accounts[i] = i
	}

	return CompiledInstruction{
		ProgramIDIndex: 21,
		Accounts:       accounts,
		Data:           data,
	}
}

func TestDecodeInitialize2_CurrentLayout(t *testing.T) {
	keys := testAccountKeys()
	ix := testInstruction(50_000_000_000, 1_000_000_000)

	event, err := DecodeInitialize2(keys, ix, "sig1", 5000)
	if err != nil {
		t.Fatalf("DecodeInitialize2() error = %v", err)
	}

	if event.ProgramID != RaydiumAMMV4 {
		t.Errorf("ProgramID = %q, want %q", event.ProgramID, RaydiumAMMV4)
	}
	if event.Authority != keys[5] {
		t.Errorf("Authority = %q, want %q", event.Authority, keys[5])
	}
	if event.OpenOrders != keys[6] {
		t.Errorf("OpenOrders = %q, want %q", event.OpenOrders, keys[6])
	}
	if event.PoolID != keys[4] {
		t.Errorf("PoolID = %q, want %q", event.PoolID, keys[4])
	}
	if event.LpMint != keys[7] {
		t.Errorf("LpMint = %q, want %q", event.LpMint, keys[7])
	}
	if event.BaseMint != keys[8] || event.QuoteMint != keys[9] {
		t.Errorf("mints = %q/%q, want %q/%q", event.BaseMint, event.QuoteMint, keys[8], keys[9])
	}
	if event.BaseVault != keys[10] || event.QuoteVault != keys[11] {
		t.Errorf("vaults = %q/%q, want %q/%q", event.BaseVault, event.QuoteVault, keys[10], keys[11])
	}
	if event.TargetOrders != keys[13] {
		t.Errorf("TargetOrders = %q, want %q", event.TargetOrders, keys[13])
	}
	if event.MarketProgramID != keys[15] || event.MarketID != keys[16] {
		t.Errorf("market = %q/%q, want %q/%q", event.MarketProgramID, event.MarketID, keys[15], keys[16])
	}
	if event.MarketBaseVault != keys[18] || event.MarketQuoteVault != keys[19] {
		t.Errorf("market vaults = %q/%q, want %q/%q", event.MarketBaseVault, event.MarketQuoteVault, keys[18], keys[19])
	}
	if event.MarketAuthority != keys[20] {
		t.Errorf("MarketAuthority = %q, want %q", event.MarketAuthority, keys[20])
	}
	if event.InitQuoteAmount != 50_000_000_000 {
		t.Errorf("InitQuoteAmount = %d, want 50000000000", event.InitQuoteAmount)
	}
	if event.InitBaseAmount != 1_000_000_000 {
		t.Errorf("InitBaseAmount = %d, want 1000000000", event.InitBaseAmount)
	}
	if event.TxSignature != "sig1" || event.Slot != 5000 {
		t.Errorf("signature/slot = %q/%d, want sig1/5000", event.TxSignature, event.Slot)
	}
}

func TestDecodeInitialize2_LegacyClockLayout(t *testing.T) {
	keys := testAccountKeys()
	keys[5] = SysvarClock
	ix := testInstruction(50_000_000_000, 1_000_000_000)

	event, err := DecodeInitialize2(keys, ix, "sig1", 5000)
	if err != nil {
		t.Fatalf("DecodeInitialize2() error = %v", err)
	}

	// Authority and open orders shift past the clock sysvar.
	if event.Authority != keys[6] {
		t.Errorf("Authority = %q, want %q", event.Authority, keys[6])
	}
	if event.OpenOrders != keys[7] {
		t.Errorf("OpenOrders = %q, want %q", event.OpenOrders, keys[7])
	}
	// The remaining fields keep their canonical positions.
	if event.PoolID != keys[4] {
		t.Errorf("PoolID = %q, want %q", event.PoolID, keys[4])
	}
	if event.BaseMint != keys[8] {
		t.Errorf("BaseMint = %q, want %q", event.BaseMint, keys[8])
	}
}

func TestDecodeInitialize2_ClockAtShiftedPosition(t *testing.T) {
	keys := testAccountKeys()
	keys[5] = SysvarClock
	keys[6] = SysvarClock
	ix := testInstruction(1, 1)

	_, err := DecodeInitialize2(keys, ix, "sig1", 5000)
	if !errors.Is(err, ErrUnsupportedLayoutVariant) {
		t.Errorf("DecodeInitialize2() error = %v, want ErrUnsupportedLayoutVariant", err)
	}

	keys = testAccountKeys()
	keys[5] = SysvarClock
	keys[7] = SysvarClock
	_, err = DecodeInitialize2(keys, testInstruction(1, 1), "sig1", 5000)
	if !errors.Is(err, ErrUnsupportedLayoutVariant) {
		t.Errorf("DecodeInitialize2() error = %v, want ErrUnsupportedLayoutVariant", err)
	}
}

func TestDecodeInitialize2_ShortData(t *testing.T) {
	ix := testInstruction(1, 1)
	ix.Data = ix.Data[:initialize2MinLen-1]

	_, err := DecodeInitialize2(testAccountKeys(), ix, "sig1", 5000)
	if !errors.Is(err, ErrMalformedInstruction) {
		t.Errorf("DecodeInitialize2() error = %v, want ErrMalformedInstruction", err)
	}
}

func TestDecodeInitialize2_WrongOpcode(t *testing.T) {
	ix := testInstruction(1, 1)
	ix.Data[0] = 0x09 // swap opcode

	_, err := DecodeInitialize2(testAccountKeys(), ix, "sig1", 5000)
	if !errors.Is(err, ErrMalformedInstruction) {
		t.Errorf("DecodeInitialize2() error = %v, want ErrMalformedInstruction", err)
	}
}

func TestDecodeInitialize2_TooFewAccounts(t *testing.T) {
	ix := testInstruction(1, 1)
	ix.Accounts = ix.Accounts[:minAccountIndices-1]

	_, err := DecodeInitialize2(testAccountKeys(), ix, "sig1", 5000)
	if !errors.Is(err, ErrMalformedInstruction) {
		t.Errorf("DecodeInitialize2() error = %v, want ErrMalformedInstruction", err)
	}
}

func TestDecodeInitialize2_AccountIndexOutOfRange(t *testing.T) {
	ix := testInstruction(1, 1)
	ix.Accounts[10] = 99

	_, err := DecodeInitialize2(testAccountKeys(), ix, "sig1", 5000)
	if !errors.Is(err, ErrMalformedInstruction) {
		t.Errorf("DecodeInitialize2() error = %v, want ErrMalformedInstruction", err)
	}
}

func TestDecodeInitialize2_ProgramIndexOutOfRange(t *testing.T) {
	ix := testInstruction(1, 1)
	ix.ProgramIDIndex = 99

	_, err := DecodeInitialize2(testAccountKeys(), ix, "sig1", 5000)
	if !errors.Is(err, ErrMalformedInstruction) {
		t.Errorf("DecodeInitialize2() error = %v, want ErrMalformedInstruction", err)
	}
}
