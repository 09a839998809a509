package sniper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/execution"
	execstub "solana-pool-sniper/internal/execution/stub"
	"solana-pool-sniper/internal/feed"
	feedstub "solana-pool-sniper/internal/feed/stub"
	"solana-pool-sniper/internal/solana"
)

type managerFixture struct {
	exec     *execstub.Service
	feed     *feedstub.Feed
	balances *fakeBalances
	manager  *Manager
}

func newManagerFixture(t *testing.T, cfg Config) *managerFixture {
	t.Helper()
	f := &managerFixture{
		exec:     execstub.NewService(),
		feed:     feedstub.NewFeed(),
		balances: newFakeBalances(),
	}
	m, err := NewManager(ManagerOptions{
		Config:   cfg,
		Executor: f.exec,
		Feed:     f.feed,
		Balances: f.balances,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	f.manager = m
	return f
}

func (f *managerFixture) track(t *testing.T, record *domain.PoolRecord) {
	t.Helper()
	f.balances.set(record.BaseMint, solana.TokenAccount{Pubkey: "ta-" + record.PoolID, Amount: 1000})
	if err := f.manager.Track(context.Background(), record); err != nil {
		t.Fatalf("Track(%s): %v", record.PoolID, err)
	}
}

func TestNewManager_InvalidConfig(t *testing.T) {
	_, err := NewManager(ManagerOptions{
		Config:   Config{},
		Executor: execstub.NewService(),
		Feed:     feedstub.NewFeed(),
		Balances: newFakeBalances(),
	})
	if err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestNewManager_MissingCollaborators(t *testing.T) {
	_, err := NewManager(ManagerOptions{Config: testConfig()})
	if err == nil {
		t.Fatal("expected error for missing collaborators")
	}
}

func TestManager_TrackLifecycle(t *testing.T) {
	f := newManagerFixture(t, testConfig())
	record := testRecord("a")
	f.track(t, record)

	if f.manager.LiveCount() != 1 {
		t.Fatalf("expected 1 live tracker, got %d", f.manager.LiveCount())
	}

	tr, ok := f.manager.Tracker(record.RecordID)
	if !ok {
		t.Fatal("tracker not found in live set")
	}
	if st := tr.State(); st != domain.PositionWatching {
		t.Errorf("expected Watching, got %s", st)
	}

	// Below target: stays live.
	f.feed.Push(record.QuoteVault, 1000000000)
	if f.manager.LiveCount() != 1 {
		t.Errorf("expected tracker still live, got %d", f.manager.LiveCount())
	}

	// At target: sold and removed.
	f.feed.Push(record.QuoteVault, 2000000000)
	if f.manager.LiveCount() != 0 {
		t.Errorf("expected empty live set after close, got %d", f.manager.LiveCount())
	}
	if st := tr.State(); st != domain.PositionClosed {
		t.Errorf("expected Closed, got %s", st)
	}
}

func TestManager_BuyFailureNotInLiveSet(t *testing.T) {
	f := newManagerFixture(t, testConfig())
	f.exec.FailBuys = true

	err := f.manager.Track(context.Background(), testRecord("a"))
	if !errors.Is(err, execution.ErrExecutionFailed) {
		t.Fatalf("expected ErrExecutionFailed, got %v", err)
	}
	if f.manager.LiveCount() != 0 {
		t.Errorf("expected empty live set, got %d", f.manager.LiveCount())
	}
}

func TestManager_SubscribeFailureNotInLiveSet(t *testing.T) {
	f := newManagerFixture(t, testConfig())
	f.feed.SubscribeErr = errors.New("connection lost")

	err := f.manager.Track(context.Background(), testRecord("a"))
	if err == nil {
		t.Fatal("expected error")
	}
	if f.manager.LiveCount() != 0 {
		t.Errorf("expected empty live set, got %d", f.manager.LiveCount())
	}
}

// observingFeed records how many trackers are live at subscribe time,
// then fails the subscription.
type observingFeed struct {
	manager         *Manager
	liveAtSubscribe int
}

func (f *observingFeed) Subscribe(context.Context, string, func(uint64)) (feed.Subscription, error) {
	f.liveAtSubscribe = f.manager.LiveCount()
	return nil, errors.New("connection lost")
}

func TestManager_FailedBootstrapNeverVisible(t *testing.T) {
	obs := &observingFeed{liveAtSubscribe: -1}
	m, err := NewManager(ManagerOptions{
		Config:   testConfig(),
		Executor: execstub.NewService(),
		Feed:     obs,
		Balances: newFakeBalances(),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	obs.manager = m

	if err := m.Track(context.Background(), testRecord("a")); err == nil {
		t.Fatal("expected error")
	}
	if obs.liveAtSubscribe != 0 {
		t.Errorf("tracker visible mid-bootstrap, live=%d", obs.liveAtSubscribe)
	}
	if m.LiveCount() != 0 {
		t.Errorf("expected empty live set, got %d", m.LiveCount())
	}
}

// hammerFeed floods the callback with one fixed update from the moment
// the subscription exists, racing the bootstrap's bookkeeping.
type hammerFeed struct {
	lamports uint64
}

func (f *hammerFeed) Subscribe(_ context.Context, _ string, onUpdate func(uint64)) (feed.Subscription, error) {
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				onUpdate(f.lamports)
			}
		}
	}()
	return &hammerSub{done: done}, nil
}

type hammerSub struct {
	done chan struct{}
	once sync.Once
}

func (s *hammerSub) Unsubscribe() {
	s.once.Do(func() { close(s.done) })
}

func TestManager_InstantSellNotLeftInLiveSet(t *testing.T) {
	exec := execstub.NewService()
	balances := newFakeBalances()
	record := testRecord("a")
	balances.set(record.BaseMint, solana.TokenAccount{Pubkey: "ta-a", Amount: 1000})

	// Price 4.0 == target: the sell can complete before Track returns.
	m, err := NewManager(ManagerOptions{
		Config:   testConfig(),
		Executor: exec,
		Feed:     &hammerFeed{lamports: 2000000000},
		Balances: balances,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := m.Track(context.Background(), record); err != nil {
		t.Fatalf("Track: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for m.LiveCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("closed tracker left in live set: %d", m.LiveCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := len(exec.OrdersByDirection(execution.Sell)); got != 1 {
		t.Errorf("expected 1 sell, got %d", got)
	}
}

func TestManager_DuplicateTrackRejected(t *testing.T) {
	f := newManagerFixture(t, testConfig())
	record := testRecord("a")
	f.track(t, record)

	err := f.manager.Track(context.Background(), record)
	if err == nil || !strings.Contains(err.Error(), "already tracked") {
		t.Fatalf("expected already-tracked error, got %v", err)
	}
	if f.manager.LiveCount() != 1 {
		t.Errorf("expected 1 live tracker, got %d", f.manager.LiveCount())
	}
}

func TestManager_PanicInOneTrackerIsolated(t *testing.T) {
	f := newManagerFixture(t, testConfig())
	recordA := testRecord("a")
	recordB := testRecord("b")

	f.exec.SubmitHook = func(order execution.Order) {
		if order.Direction == execution.Sell && order.Record.PoolID == recordA.PoolID {
			panic("injected failure")
		}
	}

	f.track(t, recordA)
	f.track(t, recordB)

	// Trigger the panicking sell on A.
	f.feed.Push(recordA.QuoteVault, 2000000000)

	trA, _ := f.manager.Tracker(recordA.RecordID)
	if trA != nil {
		t.Error("expected tracker A removed from live set")
	}
	if f.manager.LiveCount() != 1 {
		t.Fatalf("expected 1 live tracker after panic, got %d", f.manager.LiveCount())
	}

	// B is unaffected and still sells normally.
	trB, ok := f.manager.Tracker(recordB.RecordID)
	if !ok {
		t.Fatal("tracker B missing")
	}
	if st := trB.State(); st != domain.PositionWatching {
		t.Fatalf("expected B Watching, got %s", st)
	}

	f.feed.Push(recordB.QuoteVault, 2000000000)
	if st := trB.State(); st != domain.PositionClosed {
		t.Errorf("expected B Closed, got %s", st)
	}
	if f.manager.LiveCount() != 0 {
		t.Errorf("expected empty live set, got %d", f.manager.LiveCount())
	}
}

func TestManager_RemoveUnknownIsNoop(t *testing.T) {
	f := newManagerFixture(t, testConfig())
	f.manager.Remove("nope")
	if f.manager.LiveCount() != 0 {
		t.Errorf("expected 0, got %d", f.manager.LiveCount())
	}
}

func TestManager_SetBuyAmount(t *testing.T) {
	f := newManagerFixture(t, testConfig())

	if err := f.manager.SetBuyAmount(-1); err == nil {
		t.Error("expected error for negative buy amount")
	}
	if err := f.manager.SetBuyAmount(2.5); err != nil {
		t.Fatalf("SetBuyAmount: %v", err)
	}

	record := testRecord("a")
	f.track(t, record)

	buys := f.exec.OrdersByDirection(execution.Buy)
	if len(buys) != 1 {
		t.Fatalf("expected 1 buy, got %d", len(buys))
	}
	if buys[0].Amount != 2500000000 {
		t.Errorf("expected buy amount 2500000000, got %d", buys[0].Amount)
	}
}

func TestManager_SetTargetPercent(t *testing.T) {
	f := newManagerFixture(t, testConfig())

	if err := f.manager.SetTargetPercent(0); err == nil {
		t.Error("expected error for zero target percent")
	}
	if err := f.manager.SetTargetPercent(100); err != nil {
		t.Fatalf("SetTargetPercent: %v", err)
	}

	record := testRecord("a")
	f.track(t, record)

	tr, _ := f.manager.Tracker(record.RecordID)
	if tr.Target() != 2 {
		t.Errorf("expected target 2, got %g", tr.Target())
	}

	// Price 2.25 >= target 2: sells under the new target.
	f.feed.Push(record.QuoteVault, 1500000000)
	if st := tr.State(); st != domain.PositionClosed {
		t.Errorf("expected Closed, got %s", st)
	}
}

func TestManager_CloseReleasesSubscriptions(t *testing.T) {
	f := newManagerFixture(t, testConfig())
	recordA := testRecord("a")
	recordB := testRecord("b")
	f.track(t, recordA)
	f.track(t, recordB)

	f.manager.Close()

	if f.feed.ActiveSubs(recordA.QuoteVault) != 0 || f.feed.ActiveSubs(recordB.QuoteVault) != 0 {
		t.Error("expected all subscriptions released after Close")
	}

	// Updates after Close are not delivered; positions stay open.
	f.feed.Push(recordA.QuoteVault, 2000000000)
	time.Sleep(10 * time.Millisecond)
	if got := len(f.exec.OrdersByDirection(execution.Sell)); got != 0 {
		t.Errorf("expected no sells after Close, got %d", got)
	}
}
