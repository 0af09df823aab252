package redisadapter

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by membership calls on a closed adapter.
	ErrClosed = errors.New("redisadapter: adapter closed")

	// ErrMissingTransport is returned by New when a handle is nil.
	ErrMissingTransport = errors.New("redisadapter: publisher and subscriber are required")
)

// Subscription operations reported in SubscriptionError.Op.
const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
)

// SubscriptionError reports a failed subscribe or unsubscribe of a channel.
// Room membership has already been updated when it is returned; the room may
// miss broadcasts from other servers until it is joined again.
type SubscriptionError struct {
	Op      string
	Channel string
	Err     error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("redisadapter: %s %q: %v", e.Op, e.Channel, e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}
