package pubsub

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ramory-l/sio/internal/logging"
)

const receiveRetryDelay = 100 * time.Millisecond

// RedisPublisher publishes with Redis PUBLISH
type RedisPublisher struct {
	rdb redis.UniversalClient
}

var _ Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher wraps a client used only for publishing
func NewRedisPublisher(rdb redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// Publish sends payload to channel
func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.rdb.Publish(ctx, channel, payload).Err()
}

// SubscriberOptions configure a RedisSubscriber
type SubscriberOptions struct {
	// OnError receives errors from the background receive loop.
	OnError func(error)
	Logger  *slog.Logger
}

// RedisSubscriber holds one Redis connection in subscribe mode and fans
// received messages out to its listeners.
type RedisSubscriber struct {
	rdb       redis.UniversalClient
	log       *slog.Logger
	onError   func(error)
	listeners listeners

	mu     sync.Mutex
	ps     *redis.PubSub
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

var _ Subscriber = (*RedisSubscriber)(nil)

// NewRedisSubscriber wraps a client dedicated to subscriptions. The
// connection is opened on the first Subscribe.
func NewRedisSubscriber(rdb redis.UniversalClient, opts *SubscriberOptions) *RedisSubscriber {
	if opts == nil {
		opts = &SubscriberOptions{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RedisSubscriber{
		rdb:     rdb,
		log:     logger,
		onError: opts.OnError,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Subscribe adds channel to the subscription set
func (s *RedisSubscriber) Subscribe(ctx context.Context, channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if s.ps == nil {
		ps := s.rdb.Subscribe(ctx)
		if err := ps.Subscribe(ctx, channel); err != nil {
			_ = ps.Close()
			return err
		}
		s.ps = ps
		s.done = make(chan struct{})
		go s.receive(ps)
		return nil
	}

	return s.ps.Subscribe(ctx, channel)
}

// Unsubscribe removes channel from the subscription set
func (s *RedisSubscriber) Unsubscribe(ctx context.Context, channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.ps == nil {
		return nil
	}

	return s.ps.Unsubscribe(ctx, channel)
}

// Listen registers a message handler
func (s *RedisSubscriber) Listen(handler MessageHandler) func() {
	return s.listeners.add(handler)
}

// Close stops the receive loop and closes the subscription connection. The
// underlying client is left open.
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ps, done := s.ps, s.done
	s.mu.Unlock()

	s.cancel()
	if ps == nil {
		return nil
	}

	err := ps.Close()
	<-done
	return err
}

func (s *RedisSubscriber) receive(ps *redis.PubSub) {
	defer close(s.done)

	for {
		msg, err := ps.ReceiveMessage(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
				return
			}

			s.log.Warn("pubsub.receive", logging.Error(err))
			if s.onError != nil {
				s.onError(err)
			}

			// go-redis reconnects and resubscribes on the next receive.
			select {
			case <-time.After(receiveRetryDelay):
			case <-s.ctx.Done():
				return
			}
			continue
		}

		s.listeners.dispatch(s.ctx, Message{
			Channel: msg.Channel,
			Payload: []byte(msg.Payload),
		})
	}
}
