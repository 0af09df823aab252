package pubsub

import (
	"context"
	"sync"
)

// Message is a payload received on a subscribed channel.
type Message struct {
	Channel string
	Payload []byte
}

// MessageHandler consumes received messages. Handlers run on the
// subscriber's receive goroutine and must not block for long.
type MessageHandler func(ctx context.Context, msg Message)

// Publisher sends payloads to channels. Publishing is fire-and-forget: a
// payload published on a channel nobody subscribes to is dropped.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Subscriber manages channel subscriptions on one connection and hands every
// received message to its listeners.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) error
	Unsubscribe(ctx context.Context, channel string) error

	// Listen registers a handler for messages on every subscribed channel.
	// The returned func detaches it; after it returns the handler is not
	// invoked again. It must not be called from inside a handler.
	Listen(handler MessageHandler) (stop func())
}

// listeners is the handler registry shared by the Subscriber implementations.
type listeners struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]MessageHandler
}

func (l *listeners) add(h MessageHandler) func() {
	l.mu.Lock()
	if l.handlers == nil {
		l.handlers = make(map[int]MessageHandler)
	}
	id := l.next
	l.next++
	l.handlers[id] = h
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.handlers, id)
			l.mu.Unlock()
		})
	}
}

// dispatch holds the read lock while handlers run so that a stop func
// returning guarantees its handler is no longer executing.
func (l *listeners) dispatch(ctx context.Context, msg Message) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, h := range l.handlers {
		h(ctx, msg)
	}
}

func (l *listeners) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.handlers)
}
