package solana

// TokenAmount is an SPL token amount with its mint decimals.
type TokenAmount struct {
	Amount   uint64 // raw amount in base units
	Decimals uint8
	UIAmount string // human-readable amount as reported by the node
}

// TokenAccount is a token account returned by getTokenAccountsByOwner.
type TokenAccount struct {
	Pubkey string
	Amount uint64
}
