package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to program logs matching the filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// SubscribeAccount subscribes to account change notifications for a
	// public key. The returned subscription ID is used to unsubscribe.
	SubscribeAccount(ctx context.Context, pubkey string) (int64, <-chan AccountNotification, error)

	// UnsubscribeAccount cancels an account subscription and closes its
	// notification channel. Safe to call for already-cancelled IDs.
	UnsubscribeAccount(ctx context.Context, subID int64) error

	// Close closes the WebSocket connection.
	Close() error
}

// LogsFilter defines subscription filter for logs.
type LogsFilter struct {
	// Mentions filters logs that mention any of these program IDs.
	Mentions []string
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}

// AccountNotification represents an account change message.
type AccountNotification struct {
	Slot     int64
	Lamports uint64
	Owner    string
	Data     string // base64 encoded
}
