package redisadapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ramory-l/sio"
	"github.com/ramory-l/sio/internal/logging"
	"github.com/ramory-l/sio/pubsub"
)

// Adapter shares the rooms of one namespace with every other server
// subscribed to the same Redis channels. Local membership and delivery are
// handled by an embedded sio.MemoryAdapter; Adapter keeps the Redis
// subscription set equal to the namespace channel plus one channel per
// non-empty local room.
type Adapter struct {
	uid     string
	prefix  string
	nsp     string
	log     *slog.Logger
	onError func(error)
	metrics *metrics
	local   *sio.MemoryAdapter

	// lifecycle serializes membership changes with the subscribe and
	// unsubscribe calls they trigger.
	lifecycle sync.Mutex

	mu     sync.RWMutex
	sub    pubsub.Subscriber
	closed bool

	stop      func()
	outbox    chan outgoing
	done      chan struct{}
	closeOnce sync.Once
}

var _ sio.Adapter = (*Adapter)(nil)

type outgoing struct {
	channel string
	payload []byte
}

func newAdapter(host sio.Host, s *shared) *Adapter {
	nsp := host.Name()
	if nsp == "" {
		nsp = sio.RootNamespace
	}

	a := &Adapter{
		uid:     s.uid,
		prefix:  s.prefix,
		nsp:     nsp,
		log:     s.log.With("nsp", nsp),
		onError: s.onError,
		metrics: s.metrics,
		local:   sio.NewMemoryAdapter(host),
		sub:     s.sub,
		outbox:  make(chan outgoing, s.publishBuffer),
		done:    make(chan struct{}),
	}

	a.stop = s.sub.Listen(a.onMessage)
	go a.publishLoop(s.pub)

	channel := namespaceChannel(a.prefix, a.nsp)
	if err := s.sub.Subscribe(context.Background(), channel); err != nil {
		a.reportError(a.subscriptionError(OpSubscribe, channel, err))
	}

	return a
}

// ProcessID returns the token tagging every envelope this server publishes
func (a *Adapter) ProcessID() string {
	return a.uid
}

// Add adds a socket to a room, subscribing to the room channel when the room
// is new on this server.
func (a *Adapter) Add(ctx context.Context, socketID, room string) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	sub, err := a.subscriber()
	if err != nil {
		return err
	}

	if !a.local.Join(socketID, room) {
		return nil
	}

	channel := roomChannel(a.prefix, a.nsp, room)
	a.log.Debug("redisadapter.subscribe", "room", room, "channel", channel)
	if err := sub.Subscribe(ctx, channel); err != nil {
		err = a.subscriptionError(OpSubscribe, channel, err)
		a.reportError(err)
		return err
	}
	return nil
}

// Remove removes a socket from a room, unsubscribing from the room channel
// when no local socket is left in it.
func (a *Adapter) Remove(ctx context.Context, socketID, room string) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	sub, err := a.subscriber()
	if err != nil {
		return err
	}

	if !a.local.Leave(socketID, room) {
		return nil
	}

	channel := roomChannel(a.prefix, a.nsp, room)
	a.log.Debug("redisadapter.unsubscribe", "room", room, "channel", channel)
	if err := sub.Unsubscribe(ctx, channel); err != nil {
		err = a.subscriptionError(OpUnsubscribe, channel, err)
		a.reportError(err)
		return err
	}
	return nil
}

// RemoveAll removes a socket from every room. Channels of rooms left empty
// are unsubscribed concurrently; every unsubscribe runs to completion and
// the first failure is returned.
func (a *Adapter) RemoveAll(ctx context.Context, socketID string) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	sub, err := a.subscriber()
	if err != nil {
		return err
	}

	emptied, _ := a.local.LeaveAll(socketID)
	if len(emptied) == 0 {
		return nil
	}

	var g errgroup.Group
	for _, room := range emptied {
		channel := roomChannel(a.prefix, a.nsp, room)
		g.Go(func() error {
			if err := sub.Unsubscribe(ctx, channel); err != nil {
				return a.subscriptionError(OpUnsubscribe, channel, err)
			}
			return nil
		})
	}

	a.log.Debug("redisadapter.leave_all", "sid", socketID, "rooms", len(emptied))
	if err := g.Wait(); err != nil {
		a.reportError(err)
		return err
	}
	return nil
}

// Sockets returns the local socket IDs in a room
func (a *Adapter) Sockets(room string) []string {
	return a.local.Sockets(room)
}

// SocketRooms returns the rooms a local socket is in
func (a *Adapter) SocketRooms(socketID string) []string {
	return a.local.SocketRooms(socketID)
}

// Rooms returns the rooms with at least one local socket
func (a *Adapter) Rooms() []string {
	return a.local.Rooms()
}

// Channels returns the channels this adapter should be subscribed to: the
// namespace channel followed by one channel per local room.
func (a *Adapter) Channels() []string {
	rooms := a.local.Rooms()
	channels := make([]string, 0, len(rooms)+1)
	channels = append(channels, namespaceChannel(a.prefix, a.nsp))
	for _, room := range rooms {
		channels = append(channels, roomChannel(a.prefix, a.nsp, room))
	}
	return channels
}

// Broadcast delivers packet to the matching local sockets and publishes it
// for the other servers. Publishing is asynchronous; its failures go to
// OnError instead of the caller. After Close it returns ErrClosed.
func (a *Adapter) Broadcast(packet *sio.Packet, opts *sio.BroadcastOptions) error {
	return a.broadcast(packet, opts, false)
}

func (a *Adapter) broadcast(packet *sio.Packet, opts *sio.BroadcastOptions, remote bool) error {
	if opts == nil {
		opts = &sio.BroadcastOptions{}
	}
	if a.isClosed() {
		return ErrClosed
	}

	if err := a.local.Broadcast(packet, opts); err != nil {
		return err
	}
	if remote {
		return nil
	}

	out := *packet
	out.Namespace = packet.NamespaceOrRoot()

	payload, err := encodeEnvelope(a.uid, &out, opts)
	if err != nil {
		return err
	}

	if len(opts.Rooms) == 0 {
		a.enqueue(namespaceChannel(a.prefix, out.Namespace), payload)
		return nil
	}
	for _, room := range opts.Rooms {
		a.enqueue(roomChannel(a.prefix, out.Namespace, room), payload)
	}
	return nil
}

func (a *Adapter) enqueue(channel string, payload []byte) {
	select {
	case <-a.done:
		return
	default:
	}

	select {
	case a.outbox <- outgoing{channel: channel, payload: payload}:
	default:
		a.log.Warn("redisadapter.publish.overflow", "channel", channel)
		a.metrics.publishErrors.WithLabelValues(a.nsp, publishOverflow).Inc()
	}
}

func (a *Adapter) publishLoop(pub pubsub.Publisher) {
	for {
		select {
		case out := <-a.outbox:
			if err := pub.Publish(context.Background(), out.channel, out.payload); err != nil {
				a.metrics.publishErrors.WithLabelValues(a.nsp, publishTransport).Inc()
				a.reportError(fmt.Errorf("publish %s: %w", out.channel, err))
				continue
			}
			a.metrics.published.WithLabelValues(a.nsp).Inc()
		case <-a.done:
			return
		}
	}
}

// Close detaches the adapter from the transport and forgets every room.
// Channels are not unsubscribed one by one; the transport handles are owned
// by whoever created them. The publish goroutine exits and drops anything
// still queued.
func (a *Adapter) Close() error {
	var err error
	a.closeOnce.Do(func() {
		// Detach first: once stop returns no message callback is running.
		a.stop()

		a.mu.Lock()
		a.closed = true
		a.sub = nil
		a.mu.Unlock()

		close(a.done)
		err = a.local.Close()
		a.log.Debug("redisadapter.close")
	})
	return err
}

func (a *Adapter) subscriber() (pubsub.Subscriber, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, ErrClosed
	}
	return a.sub, nil
}

func (a *Adapter) isClosed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.closed
}

func (a *Adapter) subscriptionError(op, channel string, err error) error {
	a.metrics.subscriptionErrors.WithLabelValues(a.nsp, op).Inc()
	return &SubscriptionError{Op: op, Channel: channel, Err: err}
}

func (a *Adapter) reportError(err error) {
	a.log.Warn("redisadapter.error", logging.Error(err))
	if a.onError != nil {
		a.onError(err)
	}
}
