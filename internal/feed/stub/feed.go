package stub

import (
	"context"
	"sync"

	"solana-pool-sniper/internal/feed"
)

// Feed implements feed.Feed for testing. Updates are pushed manually
// with Push.
type Feed struct {
	mu   sync.Mutex
	subs map[string][]*Subscription

	// SubscribeErr, when set, is returned from Subscribe.
	SubscribeErr error
}

// NewFeed creates a new stub feed.
func NewFeed() *Feed {
	return &Feed{
		subs: make(map[string][]*Subscription),
	}
}

// Compile-time interface check.
var _ feed.Feed = (*Feed)(nil)

// Subscribe registers a callback for an account.
func (f *Feed) Subscribe(_ context.Context, account string, onUpdate func(lamports uint64)) (feed.Subscription, error) {
	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}

	sub := &Subscription{feed: f, account: account, onUpdate: onUpdate}
	f.mu.Lock()
	f.subs[account] = append(f.subs[account], sub)
	f.mu.Unlock()
	return sub, nil
}

// Push delivers a balance update to all active subscribers of an account.
func (f *Feed) Push(account string, lamports uint64) {
	f.mu.Lock()
	subs := make([]*Subscription, len(f.subs[account]))
	copy(subs, f.subs[account])
	f.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(lamports)
	}
}

// ActiveSubs returns the number of live subscriptions for an account.
func (f *Feed) ActiveSubs(account string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[account])
}

func (f *Feed) remove(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := f.subs[sub.account]
	for i, s := range subs {
		if s == sub {
			f.subs[sub.account] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Subscription implements feed.Subscription for the stub feed.
type Subscription struct {
	feed     *Feed
	account  string
	onUpdate func(lamports uint64)

	mu       sync.Mutex
	released bool
}

// Compile-time interface check.
var _ feed.Subscription = (*Subscription)(nil)

func (s *Subscription) deliver(lamports uint64) {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if !released {
		s.onUpdate(lamports)
	}
}

// Unsubscribe releases the subscription.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()
	s.feed.remove(s)
}
