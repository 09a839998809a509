package execution

import (
	"context"
	"errors"

	"solana-pool-sniper/internal/domain"
)

// ErrExecutionFailed is returned when an order cannot be executed. It is
// terminal for the submitting position, orders are never retried.
var ErrExecutionFailed = errors.New("order execution failed")

// Direction is the side of an order.
type Direction int

const (
	// Buy spends quote currency for the pool's base token.
	Buy Direction = iota
	// Sell converts the base token position back to quote currency.
	Sell
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Order is a single swap request against a pool.
type Order struct {
	Record    *domain.PoolRecord
	Amount    uint64 // raw base units of the spent side
	Direction Direction
}

// Service executes orders against the chain.
type Service interface {
	// Submit executes an order and returns the transaction signature.
	// A failed submission returns an error wrapping ErrExecutionFailed.
	Submit(ctx context.Context, order Order) (string, error)
}
