package solana

import "context"

// RPCClient defines Solana RPC HTTP interface.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAccountInfo retrieves account info by public key.
	// Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenSupply retrieves the total supply of an SPL token mint.
	GetTokenSupply(ctx context.Context, mint string) (*TokenAmount, error)

	// GetTokenAccountsByOwner retrieves token accounts of an owner filtered by mint.
	GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]TokenAccount, error)

	// GetTokenAccountBalance retrieves the balance of a token account.
	GetTokenAccountBalance(ctx context.Context, account string) (*TokenAmount, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys  []string
	Instructions []CompiledInstruction
}

// CompiledInstruction is a top-level instruction with account indices
// into the message account keys. Data is the raw instruction payload,
// already decoded from base58.
type CompiledInstruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           []byte
}
