package pubsub

import (
	"context"
	"sync"
)

// MemoryBus is an in-process transport. Publish delivers synchronously to
// every subscriber of the channel, in no particular order.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[*MemorySubscriber]struct{}
	closed bool
}

// NewMemoryBus creates an empty bus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[*MemorySubscriber]struct{})}
}

// Publish delivers payload to every subscriber of channel
func (b *MemoryBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]*MemorySubscriber, 0, len(b.subs))
	for s := range b.subs {
		if s.subscribed(channel) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		s.listeners.dispatch(ctx, Message{
			Channel: channel,
			Payload: append([]byte(nil), payload...),
		})
	}
	return nil
}

// NewPublisher returns a publish handle on the bus
func (b *MemoryBus) NewPublisher() Publisher {
	return b
}

// NewSubscriber returns a new subscribe handle with no subscriptions
func (b *MemoryBus) NewSubscriber() *MemorySubscriber {
	s := &MemorySubscriber{
		bus:      b,
		channels: make(map[string]struct{}),
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	return s
}

// Close detaches every subscriber; later publishes fail with ErrClosed
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.subs = make(map[*MemorySubscriber]struct{})
	return nil
}

// MemorySubscriber is a subscribe handle on a MemoryBus
type MemorySubscriber struct {
	bus       *MemoryBus
	listeners listeners

	mu       sync.RWMutex
	channels map[string]struct{}
	closed   bool
}

var _ Subscriber = (*MemorySubscriber)(nil)

// Subscribe starts receiving messages published on channel
func (s *MemorySubscriber) Subscribe(ctx context.Context, channel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.channels[channel] = struct{}{}
	return nil
}

// Unsubscribe stops receiving messages published on channel
func (s *MemorySubscriber) Unsubscribe(ctx context.Context, channel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	delete(s.channels, channel)
	return nil
}

// Listen registers a message handler
func (s *MemorySubscriber) Listen(handler MessageHandler) func() {
	return s.listeners.add(handler)
}

// Channels returns the currently subscribed channels
func (s *MemorySubscriber) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, 0, len(s.channels))
	for ch := range s.channels {
		result = append(result, ch)
	}
	return result
}

// Close drops every subscription and detaches from the bus
func (s *MemorySubscriber) Close() error {
	s.mu.Lock()
	s.closed = true
	s.channels = make(map[string]struct{})
	s.mu.Unlock()

	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
	return nil
}

func (s *MemorySubscriber) subscribed(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.channels[channel]
	return ok
}
