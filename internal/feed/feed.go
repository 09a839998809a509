package feed

import (
	"context"
	"errors"
)

// ErrSubscription is returned when a price feed subscription cannot be
// established.
var ErrSubscription = errors.New("feed subscription failed")

// Feed delivers balance updates for watched vault accounts.
type Feed interface {
	// Subscribe starts delivering lamport balance updates for the account.
	// onUpdate is invoked sequentially for each update until the
	// subscription is released.
	Subscribe(ctx context.Context, account string, onUpdate func(lamports uint64)) (Subscription, error)
}

// Subscription is a handle to an active feed subscription.
type Subscription interface {
	// Unsubscribe releases the subscription. Safe to call multiple times
	// and from concurrent goroutines.
	Unsubscribe()
}
