// Package transport defines the outbound notifier boundary.
package transport

import "context"

// Notifier delivers one formatted notification to a destination.
//
// Destination is an opaque address owned by the adapter (for Telegram: a
// numeric chat id or "@channelname"). Implementations must report every
// failure (network, auth, non-2xx) as an error; callers decide whether to
// surface or absorb it.
type Notifier interface {
	Send(ctx context.Context, destination, text string) error
}

// Func adapts a function to the Notifier interface. Used by tests.
type Func func(ctx context.Context, destination, text string) error

func (f Func) Send(ctx context.Context, destination, text string) error {
	return f(ctx, destination, text)
}
