package feed

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"solana-pool-sniper/internal/solana"
)

// WSFeed implements Feed on top of Solana account subscriptions.
type WSFeed struct {
	ws     solana.WSClient
	logger *log.Logger
}

// WSFeedOptions configures WSFeed.
type WSFeedOptions struct {
	WSClient solana.WSClient
	Logger   *log.Logger
}

// NewWSFeed creates a feed backed by a Solana WebSocket client.
func NewWSFeed(opts WSFeedOptions) *WSFeed {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &WSFeed{
		ws:     opts.WSClient,
		logger: logger,
	}
}

// Compile-time interface check.
var _ Feed = (*WSFeed)(nil)

// Subscribe starts delivering lamport balance updates for the account.
func (f *WSFeed) Subscribe(ctx context.Context, account string, onUpdate func(lamports uint64)) (Subscription, error) {
	handle, ch, err := f.ws.SubscribeAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("%w: account %s: %v", ErrSubscription, account, err)
	}

	sub := &wsSubscription{
		feed:   f,
		handle: handle,
	}

	go func() {
		for notif := range ch {
			onUpdate(notif.Lamports)
		}
	}()

	return sub, nil
}

// wsSubscription is a handle to an active account subscription.
type wsSubscription struct {
	feed   *WSFeed
	handle int64
	once   sync.Once
}

// Unsubscribe releases the subscription. The delivery goroutine exits
// once the underlying channel is closed.
func (s *wsSubscription) Unsubscribe() {
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.feed.ws.UnsubscribeAccount(ctx, s.handle); err != nil {
			s.feed.logger.Printf("[feed] unsubscribe handle %d: %v", s.handle, err)
		}
	})
}
