package stub

import (
	"context"
	"fmt"
	"sync"

	"solana-pool-sniper/internal/execution"
)

// Service implements execution.Service for testing. Failures are
// scripted per direction, and submitted orders are recorded.
type Service struct {
	mu     sync.Mutex
	orders []execution.Order
	seq    int

	// FailBuys and FailSells make Submit return ErrExecutionFailed for
	// the respective direction.
	FailBuys  bool
	FailSells bool

	// SubmitHook, when set, runs inside Submit before the order is
	// recorded. Used to inject delays or panics.
	SubmitHook func(order execution.Order)
}

// NewService creates a new stub execution service.
func NewService() *Service {
	return &Service{}
}

// Compile-time interface check.
var _ execution.Service = (*Service)(nil)

// Submit records the order, or fails if scripted to.
func (s *Service) Submit(_ context.Context, order execution.Order) (string, error) {
	if s.SubmitHook != nil {
		s.SubmitHook(order)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if order.Direction == execution.Buy && s.FailBuys {
		return "", fmt.Errorf("%w: scripted buy failure", execution.ErrExecutionFailed)
	}
	if order.Direction == execution.Sell && s.FailSells {
		return "", fmt.Errorf("%w: scripted sell failure", execution.ErrExecutionFailed)
	}

	s.orders = append(s.orders, order)
	s.seq++
	return fmt.Sprintf("stubsig%d", s.seq), nil
}

// Orders returns a copy of all successfully submitted orders.
func (s *Service) Orders() []execution.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]execution.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// OrdersByDirection returns submitted orders matching a direction.
func (s *Service) OrdersByDirection(dir execution.Direction) []execution.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []execution.Order
	for _, o := range s.orders {
		if o.Direction == dir {
			out = append(out, o)
		}
	}
	return out
}
