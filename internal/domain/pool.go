package domain

// PoolCreationEvent is the decoded initialize2 instruction of a new AMM pool.
// Field values are base58 account addresses exactly as they appear in the
// transaction; reserve amounts are raw smallest-unit integers. Immutable once
// decoded.
type PoolCreationEvent struct {
	ProgramID        string // AMM program that created the pool
	PoolID           string // AMM pool state account
	LpMint           string
	Authority        string // AMM authority PDA
	OpenOrders       string
	TargetOrders     string
	BaseMint         string // coin side as emitted on chain
	QuoteMint        string // pc side as emitted on chain
	BaseVault        string
	QuoteVault       string
	MarketID         string
	MarketProgramID  string
	MarketBaseVault  string
	MarketQuoteVault string
	MarketAuthority  string

	// Initial reserves from the instruction data, unnormalized.
	InitBaseAmount  uint64 // coin side
	InitQuoteAmount uint64 // pc side

	TxSignature string
	Slot        int64
}

// PoolStateFields are the fields read from the pool state account that the
// instruction itself does not carry.
type PoolStateFields struct {
	WithdrawQueue string
	LpVault       string
	Nonce         uint8
	OpenTime      int64
}

// MarketSideAccounts are the serum market accounts read from the market
// state account at fixed offsets.
type MarketSideAccounts struct {
	EventQueue string
	Bids       string
	Asks       string
}

// PoolRecord is the persisted canonical record of a pool. Base/quote are
// post side-resolution: quote is always the SOL-denominated side. All derived
// numeric fields are a snapshot at creation time; a record is written exactly
// once and never mutated.
type PoolRecord struct {
	RecordID string // deterministic hash, primary key

	ProgramID        string
	PoolID           string
	LpMint           string
	Authority        string
	OpenOrders       string
	TargetOrders     string
	BaseMint         string
	QuoteMint        string
	BaseVault        string
	QuoteVault       string
	MarketID         string
	MarketProgramID  string
	MarketBaseVault  string
	MarketQuoteVault string
	MarketAuthority  string

	WithdrawQueue string
	LpVault       string
	Nonce         uint8
	OpenTime      int64

	MarketEventQueue string
	MarketBids       string
	MarketAsks       string

	// Derived trade-routing addresses.
	VaultOwner     string // market vault owner PDA
	UserBaseToken  string // owner's associated token account for base
	UserQuoteToken string // owner's associated token account for quote
	Owner          string

	InitBaseAmount  uint64
	InitQuoteAmount uint64
	BaseDecimals    uint8
	QuoteDecimals   uint8
	LpDecimals      uint8

	// K is the decimal-normalized constant product of the initial reserves,
	// truncated to an integer quotient. KRaw preserves the exact quotient.
	K    float64
	KRaw string
	// V is the launch price in quote (SOL) per base, human units.
	V float64

	// WrappedSolPool is true when the resolved quote mint is wrapped SOL.
	WrappedSolPool bool

	TxSignature string
	Slot        int64
	CreatedAt   int64 // Unix timestamp in milliseconds
}

// PriceTick is one watch-phase price evaluation for a tracked pool.
type PriceTick struct {
	RecordID      string
	PoolID        string
	TimestampMs   int64
	QuoteLamports uint64
	Price         float64
}
