package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"solana-pool-sniper/internal/solana"
)

// fakeWSClient implements solana.WSClient for feed tests.
type fakeWSClient struct {
	mu       sync.Mutex
	nextID   int64
	channels map[int64]chan solana.AccountNotification
	accounts map[int64]string

	subscribeErr error
	unsubCalls   int
}

func newFakeWSClient() *fakeWSClient {
	return &fakeWSClient{
		channels: make(map[int64]chan solana.AccountNotification),
		accounts: make(map[int64]string),
	}
}

func (c *fakeWSClient) SubscribeLogs(context.Context, solana.LogsFilter) (<-chan solana.LogNotification, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeWSClient) SubscribeAccount(_ context.Context, pubkey string) (int64, <-chan solana.AccountNotification, error) {
	if c.subscribeErr != nil {
		return 0, nil, c.subscribeErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	ch := make(chan solana.AccountNotification, 16)
	c.channels[c.nextID] = ch
	c.accounts[c.nextID] = pubkey
	return c.nextID, ch, nil
}

func (c *fakeWSClient) UnsubscribeAccount(_ context.Context, handle int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubCalls++
	if ch, ok := c.channels[handle]; ok {
		close(ch)
		delete(c.channels, handle)
		delete(c.accounts, handle)
	}
	return nil
}

func (c *fakeWSClient) Close() error { return nil }

func (c *fakeWSClient) push(handle int64, lamports uint64) {
	c.mu.Lock()
	ch := c.channels[handle]
	c.mu.Unlock()
	if ch != nil {
		ch <- solana.AccountNotification{Lamports: lamports}
	}
}

func TestWSFeed_DeliversUpdates(t *testing.T) {
	ws := newFakeWSClient()
	f := NewWSFeed(WSFeedOptions{WSClient: ws})

	updates := make(chan uint64, 16)
	sub, err := f.Subscribe(context.Background(), "vault1", func(lamports uint64) {
		updates <- lamports
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	ws.push(1, 100)
	ws.push(1, 200)

	for _, want := range []uint64{100, 200} {
		select {
		case got := <-updates:
			if got != want {
				t.Errorf("expected %d lamports, got %d", want, got)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for update")
		}
	}
}

func TestWSFeed_SubscribeError(t *testing.T) {
	ws := newFakeWSClient()
	ws.subscribeErr = errors.New("connection lost")
	f := NewWSFeed(WSFeedOptions{WSClient: ws})

	_, err := f.Subscribe(context.Background(), "vault1", func(uint64) {})
	if !errors.Is(err, ErrSubscription) {
		t.Fatalf("expected ErrSubscription, got %v", err)
	}
}

func TestWSFeed_UnsubscribeIdempotent(t *testing.T) {
	ws := newFakeWSClient()
	f := NewWSFeed(WSFeedOptions{WSClient: ws})

	sub, err := f.Subscribe(context.Background(), "vault1", func(uint64) {})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub.Unsubscribe()
		}()
	}
	wg.Wait()

	ws.mu.Lock()
	calls := ws.unsubCalls
	ws.mu.Unlock()
	if calls != 1 {
		t.Errorf("expected 1 unsubscribe call, got %d", calls)
	}
}

func TestWSFeed_NoUpdatesAfterUnsubscribe(t *testing.T) {
	ws := newFakeWSClient()
	f := NewWSFeed(WSFeedOptions{WSClient: ws})

	var mu sync.Mutex
	var received []uint64
	sub, err := f.Subscribe(context.Background(), "vault1", func(lamports uint64) {
		mu.Lock()
		received = append(received, lamports)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	sub.Unsubscribe()

	// Channel is closed; delivery goroutine must have exited.
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	count := len(received)
	mu.Unlock()
	if count != 0 {
		t.Errorf("expected no updates after unsubscribe, got %d", count)
	}
}
