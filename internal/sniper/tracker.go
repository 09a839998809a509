package sniper

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/execution"
	"solana-pool-sniper/internal/feed"
	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/solana"
	"solana-pool-sniper/internal/storage"
)

// sellTimeout bounds the balance lookup and order submission of the
// sell path, which runs detached from any caller context.
const sellTimeout = 30 * time.Second

// BalanceSource provides fresh token balances for sell sizing.
// Satisfied by solana.RPCClient.
type BalanceSource interface {
	GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]solana.TokenAccount, error)
}

// Tracker drives a single position through buy, watch and sell.
//
// The state word is the only synchronization between the bootstrap
// goroutine and feed callbacks. The compare-and-swap from Watching to
// Selling is the sole gate into the sell path, so at most one sell is
// ever submitted no matter how many updates race past the target.
type Tracker struct {
	record *domain.PoolRecord
	cfg    Config
	target float64

	exec     execution.Service
	feedSrc  feed.Feed
	balances BalanceSource
	ticks    storage.PriceTickStore
	logger   *log.Logger

	state atomic.Int32

	subMu sync.Mutex
	sub   feed.Subscription
	timer *time.Timer

	resMu         sync.Mutex
	buySignature  string
	sellSignature string
	watchStart    time.Time

	onTerminal func(*Tracker)
}

// TrackerOptions configures a Tracker.
type TrackerOptions struct {
	Record   *domain.PoolRecord
	Config   Config
	Executor execution.Service
	Feed     feed.Feed
	Balances BalanceSource

	// Ticks, when set, archives every watch-phase price evaluation.
	Ticks storage.PriceTickStore

	Logger *log.Logger

	// OnTerminal runs once after the tracker reaches Closed or Failed,
	// after the feed subscription is released.
	OnTerminal func(*Tracker)
}

// NewTracker creates a tracker in the Created state.
func NewTracker(opts TrackerOptions) *Tracker {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	t := &Tracker{
		record:     opts.Record,
		cfg:        opts.Config,
		target:     opts.Record.V * (1 + opts.Config.TargetPercent/100),
		exec:       opts.Executor,
		feedSrc:    opts.Feed,
		balances:   opts.Balances,
		ticks:      opts.Ticks,
		logger:     logger,
		onTerminal: opts.OnTerminal,
	}
	t.state.Store(int32(domain.PositionCreated))
	return t
}

// Record returns the tracked pool record.
func (t *Tracker) Record() *domain.PoolRecord {
	return t.record
}

// State returns the current position state.
func (t *Tracker) State() domain.PositionState {
	return domain.PositionState(t.state.Load())
}

// Target returns the value ratio at which the position sells.
func (t *Tracker) Target() float64 {
	return t.target
}

// BuySignature returns the buy transaction signature, if any.
func (t *Tracker) BuySignature() string {
	t.resMu.Lock()
	defer t.resMu.Unlock()
	return t.buySignature
}

// SellSignature returns the sell transaction signature, if any.
func (t *Tracker) SellSignature() string {
	t.resMu.Lock()
	defer t.resMu.Unlock()
	return t.sellSignature
}

// Buy submits the entry order, moving Created to Bought. A failed
// submission is terminal: the tracker moves to Failed and the error is
// returned. Orders are never retried.
func (t *Tracker) Buy(ctx context.Context) error {
	if st := t.State(); st != domain.PositionCreated {
		return fmt.Errorf("buy from state %s", st)
	}

	amount := toRawAmount(t.cfg.BuyAmount, t.record.QuoteDecimals)
	sig, err := t.exec.Submit(ctx, execution.Order{
		Record:    t.record,
		Amount:    amount,
		Direction: execution.Buy,
	})
	if err != nil {
		observability.RecordTrackerFailure("buy")
		t.terminate(domain.PositionFailed)
		return fmt.Errorf("buy order: %w", err)
	}

	t.resMu.Lock()
	t.buySignature = sig
	t.resMu.Unlock()

	t.state.Store(int32(domain.PositionBought))
	observability.RecordBuy()
	t.logger.Printf("[sniper] bought pool=%s amount=%d sig=%s target=%g",
		t.record.PoolID, amount, sig, t.target)
	return nil
}

// Watch subscribes to the pool's quote vault and moves Bought to
// Watching. A subscription failure is terminal and leaves no feed
// handle behind.
func (t *Tracker) Watch(ctx context.Context) error {
	if st := t.State(); st != domain.PositionBought {
		return fmt.Errorf("watch from state %s", st)
	}

	sub, err := t.feedSrc.Subscribe(ctx, t.record.QuoteVault, t.safeHandleUpdate)
	if err != nil {
		observability.RecordTrackerFailure("subscribe")
		t.terminate(domain.PositionFailed)
		return fmt.Errorf("watch pool %s: %w", t.record.PoolID, err)
	}

	t.resMu.Lock()
	t.watchStart = time.Now()
	t.resMu.Unlock()

	t.subMu.Lock()
	t.sub = sub
	if t.cfg.MaxWatchDuration > 0 {
		t.timer = time.AfterFunc(t.cfg.MaxWatchDuration, t.expire)
	}
	t.subMu.Unlock()

	t.state.Store(int32(domain.PositionWatching))
	t.logger.Printf("[sniper] watching pool=%s vault=%s", t.record.PoolID, t.record.QuoteVault)
	return nil
}

// safeHandleUpdate is the feed callback. A panicking update fails this
// tracker only; nothing propagates to the feed or to other trackers.
func (t *Tracker) safeHandleUpdate(lamports uint64) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Printf("[sniper] panic handling update for pool %s: %v", t.record.PoolID, r)
			observability.RecordTrackerFailure("panic")
			t.terminate(domain.PositionFailed)
		}
	}()
	t.handleUpdate(lamports)
}

// handleUpdate evaluates one quote vault balance update.
func (t *Tracker) handleUpdate(lamports uint64) {
	if st := t.State(); st != domain.PositionWatching {
		// Terminal and in-flight states ignore updates.
		return
	}

	quote := float64(lamports) / pow10(t.record.QuoteDecimals)
	price := quote * quote / t.record.K
	observability.RecordPriceUpdate()
	t.archiveTick(lamports, price)

	if price < t.target {
		return
	}

	if !t.state.CompareAndSwap(int32(domain.PositionWatching), int32(domain.PositionSelling)) {
		return
	}

	t.logger.Printf("[sniper] target hit pool=%s price=%g target=%g", t.record.PoolID, price, t.target)
	t.sell()
}

// expire fires when MaxWatchDuration elapses. The position is sold at
// market through the same gate as a target hit.
func (t *Tracker) expire() {
	if !t.state.CompareAndSwap(int32(domain.PositionWatching), int32(domain.PositionSelling)) {
		return
	}
	t.logger.Printf("[sniper] watch expired pool=%s after %v", t.record.PoolID, t.cfg.MaxWatchDuration)
	t.sell()
}

// sell liquidates the full current base token balance. Runs exactly
// once, after a successful CAS into Selling.
func (t *Tracker) sell() {
	ctx, cancel := context.WithTimeout(context.Background(), sellTimeout)
	defer cancel()

	accounts, err := t.balances.GetTokenAccountsByOwner(ctx, t.cfg.Owner, t.record.BaseMint)
	if err != nil {
		t.logger.Printf("[sniper] balance lookup failed pool=%s: %v", t.record.PoolID, err)
		observability.RecordTrackerFailure("sell")
		t.terminate(domain.PositionFailed)
		return
	}

	var total uint64
	for _, acct := range accounts {
		total += acct.Amount
	}
	if total == 0 {
		t.logger.Printf("[sniper] nothing to sell pool=%s owner=%s", t.record.PoolID, t.cfg.Owner)
		observability.RecordTrackerFailure("sell")
		t.terminate(domain.PositionFailed)
		return
	}

	sig, err := t.exec.Submit(ctx, execution.Order{
		Record:    t.record,
		Amount:    total,
		Direction: execution.Sell,
	})
	if err != nil {
		t.logger.Printf("[sniper] sell order failed pool=%s: %v", t.record.PoolID, err)
		observability.RecordTrackerFailure("sell")
		t.terminate(domain.PositionFailed)
		return
	}

	t.resMu.Lock()
	t.sellSignature = sig
	watchStart := t.watchStart
	t.resMu.Unlock()

	observability.RecordSell(time.Since(watchStart).Seconds())
	t.logger.Printf("[sniper] sold pool=%s amount=%d sig=%s", t.record.PoolID, total, sig)
	t.terminate(domain.PositionClosed)
}

// terminate moves the tracker to a terminal state, releases the feed
// subscription and notifies the owner.
func (t *Tracker) terminate(st domain.PositionState) {
	t.state.Store(int32(st))
	t.release()
	if t.onTerminal != nil {
		t.onTerminal(t)
	}
}

// release stops the expiry timer and drops the feed subscription.
// Idempotent.
func (t *Tracker) release() {
	t.subMu.Lock()
	sub := t.sub
	timer := t.timer
	t.sub = nil
	t.timer = nil
	t.subMu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if sub != nil {
		sub.Unsubscribe()
	}
}

// archiveTick stores one watch-phase price evaluation, best effort.
func (t *Tracker) archiveTick(lamports uint64, price float64) {
	if t.ticks == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tick := &domain.PriceTick{
		RecordID:      t.record.RecordID,
		PoolID:        t.record.PoolID,
		TimestampMs:   time.Now().UnixMilli(),
		QuoteLamports: lamports,
		Price:         price,
	}
	if err := t.ticks.Insert(ctx, tick); err != nil {
		t.logger.Printf("[sniper] archive tick pool=%s: %v", t.record.PoolID, err)
	}
}

func pow10(decimals uint8) float64 {
	return math.Pow(10, float64(decimals))
}

func toRawAmount(amount float64, decimals uint8) uint64 {
	return uint64(amount * pow10(decimals))
}
