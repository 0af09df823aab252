package redisadapter

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramory-l/sio"
	"github.com/ramory-l/sio/pubsub"
)

func dialAdapter(t *testing.T, mr *miniredis.Miniredis, host sio.Host, reg prometheus.Registerer) *Adapter {
	t.Helper()

	factory, closeFn, err := Dial(context.Background(), pubsub.Config{
		ConnectionURL: "redis://" + mr.Addr(),
		RetryAttempts: 1,
	}, &Config{Logger: discardLogger(), Registerer: reg})
	require.NoError(t, err)

	a, ok := factory(host).(*Adapter)
	require.True(t, ok)
	t.Cleanup(func() {
		_ = a.Close()
		_ = closeFn()
	})
	return a
}

func waitNumSub(t *testing.T, mr *miniredis.Miniredis, channel string, n int) {
	t.Helper()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(channel)[channel] == n
	}, waitFor, tick)
}

func TestDial(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("room broadcast crosses redis", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		reg := prometheus.NewRegistry()
		a := dialAdapter(t, mr, newHost("/", "c1"), reg)
		b := dialAdapter(t, mr, newHost("/", "c2"), reg)

		waitNumSub(t, mr, "socket.io#/#", 2)

		require.NoError(t, a.Add(ctx, "c1", "lobby"))
		waitNumSub(t, mr, "socket.io#/#lobby#", 1)

		require.NoError(t, b.Broadcast(eventPacket("/", "msg", "hello"), &sio.BroadcastOptions{Rooms: []string{"lobby"}}))

		host := a.local.Host().(*fakeHost)
		require.Eventually(t, func() bool { return len(host.deliveries("c1")) == 1 }, waitFor, tick)
		assert.Equal(t, []string{`2["msg","hello"]`}, host.deliveries("c1"))

		assert.Equal(t, float64(1), testutil.ToFloat64(b.metrics.published.WithLabelValues("/")))
		assert.Equal(t, float64(1), testutil.ToFloat64(a.metrics.received.WithLabelValues("/")))
	})

	t.Run("last leave unsubscribes on the server", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		a := dialAdapter(t, mr, newHost("/", "c1"), nil)

		require.NoError(t, a.Add(ctx, "c1", "lobby"))
		waitNumSub(t, mr, "socket.io#/#lobby#", 1)

		require.NoError(t, a.Remove(ctx, "c1", "lobby"))
		waitNumSub(t, mr, "socket.io#/#lobby#", 0)
	})

	t.Run("connection failure", func(t *testing.T) {
		t.Parallel()

		_, _, err := Dial(ctx, pubsub.Config{}, nil)
		assert.ErrorIs(t, err, pubsub.ErrEmptyConnectionURL)
	})
}
