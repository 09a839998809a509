package execution

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sync/atomic"
)

// DryRunService implements Service without touching the chain. Every
// order succeeds and is logged, with a deterministic synthetic
// signature returned. Used for paper trading and local runs.
type DryRunService struct {
	logger *log.Logger
	seq    atomic.Uint64
}

// DryRunOptions configures DryRunService.
type DryRunOptions struct {
	Logger *log.Logger
}

// NewDryRunService creates a new dry-run execution service.
func NewDryRunService(opts DryRunOptions) *DryRunService {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &DryRunService{logger: logger}
}

// Compile-time interface check.
var _ Service = (*DryRunService)(nil)

// Submit logs the order and returns a synthetic signature.
func (s *DryRunService) Submit(ctx context.Context, order Order) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}
	if order.Record == nil {
		return "", fmt.Errorf("%w: order without pool record", ErrExecutionFailed)
	}

	n := s.seq.Add(1)
	sum := sha256.Sum256([]byte(fmt.Sprintf("dry-run|%s|%s|%d|%d",
		order.Record.PoolID, order.Direction, order.Amount, n)))
	signature := hex.EncodeToString(sum[:])

	s.logger.Printf("[execution] dry-run %s pool=%s amount=%d sig=%s",
		order.Direction, order.Record.PoolID, order.Amount, signature)

	return signature, nil
}
