// Package ingestion turns Raydium pool-creation logs into stored pool
// records and live trackers.
package ingestion

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"solana-pool-sniper/internal/decoder"
	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/normalize"
	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/sniper"
	"solana-pool-sniper/internal/solana"
	"solana-pool-sniper/internal/storage"
)

// Listener subscribes to program logs and drives the decode pipeline:
// log filter, transaction fetch, instruction decode, account state
// fetch, normalization, store insert, manager handoff. Decode-stage
// errors are logged and swallowed; the pipeline never stops on a bad
// event.
type Listener struct {
	ws        solana.WSClient
	rpc       solana.RPCClient
	store     storage.PoolStore
	manager   *sniper.Manager
	programID string
	logger    *log.Logger
}

// ListenerOptions configures a Listener.
type ListenerOptions struct {
	WSClient  solana.WSClient
	RPCClient solana.RPCClient
	Store     storage.PoolStore
	Manager   *sniper.Manager

	// ProgramID is the AMM program to watch. Defaults to Raydium v4.
	ProgramID string

	Logger *log.Logger
}

// NewListener creates a new listener.
func NewListener(opts ListenerOptions) *Listener {
	programID := opts.ProgramID
	if programID == "" {
		programID = decoder.RaydiumAMMV4
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Listener{
		ws:        opts.WSClient,
		rpc:       opts.RPCClient,
		store:     opts.Store,
		manager:   opts.Manager,
		programID: programID,
		logger:    logger,
	}
}

// Run consumes log notifications until the context is cancelled or the
// subscription channel closes.
func (l *Listener) Run(ctx context.Context) error {
	ch, err := l.ws.SubscribeLogs(ctx, solana.LogsFilter{
		Mentions: []string{l.programID},
	})
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}

	l.logger.Printf("[ingestion] watching pool creations program=%s", l.programID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notif, ok := <-ch:
			if !ok {
				return errors.New("log subscription closed")
			}
			l.handleNotification(ctx, notif)
		}
	}
}

// handleNotification processes one log notification end to end.
func (l *Listener) handleNotification(ctx context.Context, notif solana.LogNotification) {
	if notif.Err != nil {
		// Failed transaction, nothing was created.
		return
	}
	if !decoder.IsPoolCreationLog(notif.Logs) {
		return
	}
	observability.RecordPoolDetected()

	tx, err := l.rpc.GetTransaction(ctx, notif.Signature)
	if err != nil {
		l.logger.Printf("[ingestion] get transaction %s: %v", notif.Signature, err)
		observability.RecordDecodeError("transaction")
		return
	}
	if tx == nil || tx.Message == nil {
		l.logger.Printf("[ingestion] transaction %s not found", notif.Signature)
		observability.RecordDecodeError("transaction")
		return
	}

	keys := tx.Message.AccountKeys
	if decoder.MentionsAccount(keys, decoder.JupiterAMM) {
		// Aggregator-routed swaps fire the same log markers.
		return
	}

	for _, ix := range tx.Message.Instructions {
		if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(keys) {
			continue
		}
		if keys[ix.ProgramIDIndex] != l.programID {
			continue
		}

		event, err := decoder.DecodeInitialize2(keys, decoder.CompiledInstruction{
			ProgramIDIndex: ix.ProgramIDIndex,
			Accounts:       ix.Accounts,
			Data:           ix.Data,
		}, notif.Signature, notif.Slot)
		if err != nil {
			l.logger.Printf("[ingestion] decode instruction in %s: %v", notif.Signature, err)
			observability.RecordDecodeError("instruction")
			continue
		}
		observability.RecordPoolDecoded()

		l.processEvent(ctx, event)
	}
}

// processEvent enriches a decoded creation event into a pool record,
// stores it and hands it to the manager.
func (l *Listener) processEvent(ctx context.Context, event *domain.PoolCreationEvent) {
	state, err := l.fetchPoolState(ctx, event.PoolID)
	if err != nil {
		l.logger.Printf("[ingestion] pool state %s: %v", event.PoolID, err)
		observability.RecordDecodeError("pool_state")
		return
	}

	market, err := l.fetchMarketState(ctx, event.MarketID)
	if err != nil {
		l.logger.Printf("[ingestion] market state %s: %v", event.MarketID, err)
		observability.RecordDecodeError("market_state")
		return
	}

	dec, err := l.fetchDecimals(ctx, event)
	if err != nil {
		l.logger.Printf("[ingestion] decimals for pool %s: %v", event.PoolID, err)
		observability.RecordDecodeError("decimals")
		return
	}

	owner := l.manager.Config().Owner
	record, err := normalize.Normalize(event, dec, state, market, owner)
	if err != nil {
		l.logger.Printf("[ingestion] normalize pool %s: %v", event.PoolID, err)
		observability.RecordDecodeError("normalize")
		return
	}

	if err := l.store.Insert(ctx, record); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			l.logger.Printf("[ingestion] pool %s already stored, skipping", record.PoolID)
			return
		}
		l.logger.Printf("[ingestion] store pool %s: %v", record.PoolID, err)
		return
	}
	observability.RecordPoolStored()
	l.logger.Printf("[ingestion] new pool %s base=%s quote=%s V=%g K=%g",
		record.PoolID, record.BaseMint, record.QuoteMint, record.V, record.K)

	if err := l.manager.Track(ctx, record); err != nil {
		l.logger.Printf("[ingestion] track pool %s: %v", record.PoolID, err)
	}
}

// fetchPoolState loads and decodes the AMM pool account.
func (l *Listener) fetchPoolState(ctx context.Context, poolID string) (*domain.PoolStateFields, error) {
	data, err := l.fetchAccountData(ctx, poolID)
	if err != nil {
		return nil, err
	}
	return decoder.DecodePoolState(data)
}

// fetchMarketState loads and decodes the serum market account.
func (l *Listener) fetchMarketState(ctx context.Context, marketID string) (*domain.MarketSideAccounts, error) {
	data, err := l.fetchAccountData(ctx, marketID)
	if err != nil {
		return nil, err
	}
	return decoder.DecodeMarketState(data)
}

func (l *Listener) fetchAccountData(ctx context.Context, pubkey string) ([]byte, error) {
	info, err := l.rpc.GetAccountInfo(ctx, pubkey)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("account %s not found", pubkey)
	}
	data, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return nil, fmt.Errorf("decode account data: %w", err)
	}
	return data, nil
}

// fetchDecimals resolves mint precisions through getTokenSupply.
func (l *Listener) fetchDecimals(ctx context.Context, event *domain.PoolCreationEvent) (normalize.Decimals, error) {
	base, err := l.rpc.GetTokenSupply(ctx, event.BaseMint)
	if err != nil {
		return normalize.Decimals{}, fmt.Errorf("base mint %s: %w", event.BaseMint, err)
	}
	quote, err := l.rpc.GetTokenSupply(ctx, event.QuoteMint)
	if err != nil {
		return normalize.Decimals{}, fmt.Errorf("quote mint %s: %w", event.QuoteMint, err)
	}
	lp, err := l.rpc.GetTokenSupply(ctx, event.LpMint)
	if err != nil {
		return normalize.Decimals{}, fmt.Errorf("lp mint %s: %w", event.LpMint, err)
	}
	return normalize.Decimals{
		Base:  base.Decimals,
		Quote: quote.Decimals,
		Lp:    lp.Decimals,
	}, nil
}
