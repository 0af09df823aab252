package redisadapter

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ramory-l/sio"
	"github.com/ramory-l/sio/pubsub"
)

// fakeHost records every packet delivered to each socket.
type fakeHost struct {
	name string

	mu  sync.Mutex
	ids []string
	got map[string][]string
}

var _ sio.Host = (*fakeHost)(nil)

func newHost(name string, ids ...string) *fakeHost {
	return &fakeHost{name: name, ids: ids, got: make(map[string][]string)}
}

func (h *fakeHost) Name() string { return h.name }

func (h *fakeHost) SocketIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.ids...)
}

func (h *fakeHost) Deliver(socketID string, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.got[socketID] = append(h.got[socketID], string(data))
	return nil
}

func (h *fakeHost) deliveries(socketID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.got[socketID]...)
}

type call struct {
	op      string
	channel string
	payload []byte
}

// failKey selects the subscriber calls that fail.
type failKey struct {
	op      string
	channel string
}

// recordingSubscriber wraps a MemorySubscriber, recording calls and failing
// the ones listed in fail.
type recordingSubscriber struct {
	*pubsub.MemorySubscriber

	mu    sync.Mutex
	calls []call
	fail  map[failKey]error
}

func newRecordingSubscriber(bus *pubsub.MemoryBus) *recordingSubscriber {
	return &recordingSubscriber{
		MemorySubscriber: bus.NewSubscriber(),
		fail:             make(map[failKey]error),
	}
}

func (s *recordingSubscriber) failOn(op, channel string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[failKey{op: op, channel: channel}] = err
}

func (s *recordingSubscriber) record(op, channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{op: op, channel: channel})
	return s.fail[failKey{op: op, channel: channel}]
}

func (s *recordingSubscriber) Subscribe(ctx context.Context, channel string) error {
	if err := s.record(OpSubscribe, channel); err != nil {
		return err
	}
	return s.MemorySubscriber.Subscribe(ctx, channel)
}

func (s *recordingSubscriber) Unsubscribe(ctx context.Context, channel string) error {
	if err := s.record(OpUnsubscribe, channel); err != nil {
		return err
	}
	return s.MemorySubscriber.Unsubscribe(ctx, channel)
}

func (s *recordingSubscriber) callsFor(op string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var channels []string
	for _, c := range s.calls {
		if c.op == op {
			channels = append(channels, c.channel)
		}
	}
	return channels
}

func (s *recordingSubscriber) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// recordingPublisher wraps a publisher and records every publish.
type recordingPublisher struct {
	next pubsub.Publisher

	mu    sync.Mutex
	calls []call
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	p.calls = append(p.calls, call{op: "publish", channel: channel, payload: payload})
	p.mu.Unlock()

	if p.next == nil {
		return nil
	}
	return p.next.Publish(ctx, channel, payload)
}

func (p *recordingPublisher) published() []call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]call(nil), p.calls...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (e *errorSink) handle(err error) {
	e.mu.Lock()
	e.errs = append(e.errs, err)
	e.mu.Unlock()
}

func (e *errorSink) all() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]error(nil), e.errs...)
}

type testNode struct {
	adapter *Adapter
	host    *fakeHost
	pub     *recordingPublisher
	sub     *recordingSubscriber
	errs    *errorSink
}

// newNode builds one server's adapter on bus.
func newNode(t *testing.T, bus *pubsub.MemoryBus, host *fakeHost) *testNode {
	t.Helper()

	n := &testNode{
		host: host,
		pub:  &recordingPublisher{next: bus.NewPublisher()},
		sub:  newRecordingSubscriber(bus),
		errs: &errorSink{},
	}
	n.adapter = newTestAdapter(t, n.pub, n.sub, n.errs.handle, host)
	return n
}

func newTestAdapter(t *testing.T, pub pubsub.Publisher, sub pubsub.Subscriber, onError func(error), host sio.Host) *Adapter {
	t.Helper()

	factory, err := New(&Config{
		Publisher:  pub,
		Subscriber: sub,
		OnError:    onError,
		Logger:     discardLogger(),
	})
	require.NoError(t, err)

	a, ok := factory(host).(*Adapter)
	require.True(t, ok)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// syncBuffer is a log sink safe to read while adapters write to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
