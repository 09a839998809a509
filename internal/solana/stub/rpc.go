package stub

import (
	"context"
	"errors"
	"fmt"

	"solana-pool-sniper/internal/solana"
)

// ErrNotFound is returned when a transaction or account is not found.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	Transactions  map[string]*solana.Transaction
	Accounts      map[string]*solana.AccountInfo
	TokenSupplies map[string]*solana.TokenAmount
	TokenAccounts map[string][]solana.TokenAccount // keyed by owner|mint
	Balances      map[string]*solana.TokenAmount
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions:  make(map[string]*solana.Transaction),
		Accounts:      make(map[string]*solana.AccountInfo),
		TokenSupplies: make(map[string]*solana.TokenAmount),
		TokenAccounts: make(map[string][]solana.TokenAccount),
		Balances:      make(map[string]*solana.TokenAmount),
	}
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, nil
	}
	return tx, nil
}

// GetAccountInfo retrieves an account from the stub store.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	info, ok := c.Accounts[pubkey]
	if !ok {
		return nil, nil
	}
	return info, nil
}

// GetTokenSupply retrieves a token supply from the stub store.
func (c *RPCClient) GetTokenSupply(_ context.Context, mint string) (*solana.TokenAmount, error) {
	supply, ok := c.TokenSupplies[mint]
	if !ok {
		return nil, ErrNotFound
	}
	return supply, nil
}

// GetTokenAccountsByOwner retrieves token accounts from the stub store.
func (c *RPCClient) GetTokenAccountsByOwner(_ context.Context, owner, mint string) ([]solana.TokenAccount, error) {
	return c.TokenAccounts[tokenAccountsKey(owner, mint)], nil
}

// GetTokenAccountBalance retrieves a token account balance from the stub store.
func (c *RPCClient) GetTokenAccountBalance(_ context.Context, account string) (*solana.TokenAmount, error) {
	balance, ok := c.Balances[account]
	if !ok {
		return nil, ErrNotFound
	}
	return balance, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.Transactions[tx.Signature] = tx
}

// AddAccount adds an account to the stub store.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.Accounts[pubkey] = info
}

// AddTokenSupply adds a token supply for a mint to the stub store.
func (c *RPCClient) AddTokenSupply(mint string, supply *solana.TokenAmount) {
	c.TokenSupplies[mint] = supply
}

// AddTokenAccount adds a token account for an owner and mint.
func (c *RPCClient) AddTokenAccount(owner, mint string, account solana.TokenAccount) {
	key := tokenAccountsKey(owner, mint)
	c.TokenAccounts[key] = append(c.TokenAccounts[key], account)
}

// AddBalance adds a token account balance to the stub store.
func (c *RPCClient) AddBalance(account string, balance *solana.TokenAmount) {
	c.Balances[account] = balance
}

func tokenAccountsKey(owner, mint string) string {
	return fmt.Sprintf("%s|%s", owner, mint)
}
