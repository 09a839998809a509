package sniper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/execution"
	"solana-pool-sniper/internal/feed"
	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/storage"
)

// Manager owns the live set of trackers. All mutations of the live set
// are serialized by a mutex; trackers themselves run concurrently.
type Manager struct {
	exec     execution.Service
	feedSrc  feed.Feed
	balances BalanceSource
	ticks    storage.PriceTickStore
	logger   *log.Logger

	mu   sync.Mutex
	cfg  Config
	live map[string]*Tracker // keyed by record ID
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Config   Config
	Executor execution.Service
	Feed     feed.Feed
	Balances BalanceSource

	// Ticks, when set, archives watch-phase price evaluations.
	Ticks storage.PriceTickStore

	Logger *log.Logger
}

// NewManager creates a manager. Invalid config or missing collaborators
// are constructor errors, fatal at startup.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if opts.Executor == nil {
		return nil, errors.New("executor is required")
	}
	if opts.Feed == nil {
		return nil, errors.New("feed is required")
	}
	if opts.Balances == nil {
		return nil, errors.New("balance source is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Manager{
		exec:     opts.Executor,
		feedSrc:  opts.Feed,
		balances: opts.Balances,
		ticks:    opts.Ticks,
		logger:   logger,
		cfg:      opts.Config,
		live:     make(map[string]*Tracker),
	}, nil
}

// Track bootstraps a tracker for a freshly stored pool record: buy,
// then watch. A failure in either step discards the tracker and returns
// the error; nothing is retried and the live set is left clean.
func (m *Manager) Track(ctx context.Context, record *domain.PoolRecord) error {
	if record == nil || record.RecordID == "" {
		return errors.New("track: nil or incomplete pool record")
	}

	m.mu.Lock()
	if _, exists := m.live[record.RecordID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("track: pool %s already tracked", record.PoolID)
	}
	cfg := m.cfg
	m.mu.Unlock()

	tr := NewTracker(TrackerOptions{
		Record:   record,
		Config:   cfg,
		Executor: m.exec,
		Feed:     m.feedSrc,
		Balances: m.balances,
		Ticks:    m.ticks,
		Logger:   m.logger,
		OnTerminal: func(t *Tracker) {
			m.removeTracker(record.RecordID, t)
		},
	})

	if err := tr.Buy(ctx); err != nil {
		return err
	}

	// Insert only after Watch succeeds: a tracker whose bootstrap fails
	// is never observable in the live set.
	if err := tr.Watch(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.live[record.RecordID] = tr
	observability.SetLiveTrackers(len(m.live))
	m.mu.Unlock()

	// A fast update can drive the tracker terminal between Watch and the
	// insert; its own removal ran before the entry existed.
	if tr.State().Terminal() {
		m.removeTracker(record.RecordID, tr)
	}

	return nil
}

// Remove drops a tracker from the live set. Safe to call concurrently
// with Track and with terminal transitions; removing an unknown ID is a
// no-op.
func (m *Manager) Remove(recordID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live[recordID]; ok {
		delete(m.live, recordID)
		observability.SetLiveTrackers(len(m.live))
	}
}

// removeTracker drops the entry only if it still maps to this tracker.
func (m *Manager) removeTracker(recordID string, t *Tracker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live[recordID] == t {
		delete(m.live, recordID)
		observability.SetLiveTrackers(len(m.live))
	}
}

// Tracker returns the live tracker for a record ID.
func (m *Manager) Tracker(recordID string) (*Tracker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.live[recordID]
	return t, ok
}

// LiveCount returns the number of trackers in the live set.
func (m *Manager) LiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// SetBuyAmount updates the buy size for future trackers. Positions
// already open keep the size they were bought with.
func (m *Manager) SetBuyAmount(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("buy amount must be positive, got %v", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.BuyAmount = amount
	return nil
}

// SetTargetPercent updates the sell target for future trackers.
func (m *Manager) SetTargetPercent(percent float64) error {
	if percent <= 0 {
		return fmt.Errorf("target percent must be positive, got %v", percent)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.TargetPercent = percent
	return nil
}

// Config returns a snapshot of the current trading config.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Close releases the feed subscriptions of all live trackers. Position
// state is left as is; open positions are simply no longer watched.
func (m *Manager) Close() {
	m.mu.Lock()
	trackers := make([]*Tracker, 0, len(m.live))
	for _, t := range m.live {
		trackers = append(trackers, t)
	}
	m.mu.Unlock()

	for _, t := range trackers {
		t.release()
	}
}
