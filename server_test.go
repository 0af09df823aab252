package sio_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramory-l/sio"
	"github.com/ramory-l/sio/pubsub"
	"github.com/ramory-l/sio/redisadapter"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

type node struct {
	server *sio.Server
	url    string
}

// startNode runs a server whose rooms are shared over bus.
func startNode(t *testing.T, bus *pubsub.MemoryBus, onConnect func(*sio.Socket)) *node {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sub := bus.NewSubscriber()
	factory, err := redisadapter.New(&redisadapter.Config{
		Publisher:  bus.NewPublisher(),
		Subscriber: sub,
		Logger:     logger,
	})
	require.NoError(t, err)

	server := sio.NewServer(&sio.Config{Adapter: factory, Logger: logger})
	server.OnConnect(onConnect)

	ts := httptest.NewServer(server)
	t.Cleanup(func() {
		_ = server.Close()
		ts.Close()
		_ = sub.Close()
	})

	return &node{
		server: server,
		url:    "ws" + strings.TrimPrefix(ts.URL, "http") + "/socket.io/?EIO=4&transport=websocket",
	}
}

// connect dials n and returns the connection and the socket id from the
// namespace connect packet.
func connect(t *testing.T, n *node) (*websocket.Conn, string) {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(n.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	handshake := readMessage(t, conn)
	require.True(t, strings.HasPrefix(handshake, "0"), handshake)

	connected := readMessage(t, conn)
	require.True(t, strings.HasPrefix(connected, "40"), connected)

	var payload struct {
		SID string `json:"sid"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(connected, "40")), &payload))
	require.NotEmpty(t, payload.SID)

	return conn, payload.SID
}

func readMessage(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

// readEvent skips engine.io control packets and returns the next message.
func readEvent(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	for {
		msg := readMessage(t, conn)
		if strings.HasPrefix(msg, "4") {
			return msg
		}
	}
}

func joinLobby(s *sio.Socket) {
	_ = s.Join("lobby")
}

func TestServerCluster(t *testing.T) {
	t.Parallel()

	t.Run("room emit on one server reaches clients on both", func(t *testing.T) {
		t.Parallel()

		bus := pubsub.NewMemoryBus()
		a := startNode(t, bus, joinLobby)
		b := startNode(t, bus, joinLobby)

		connA, sidA := connect(t, a)
		connB, sidB := connect(t, b)

		require.Eventually(t, func() bool {
			return len(a.server.Of("/").Adapter().Sockets("lobby")) == 1 &&
				len(b.server.Of("/").Adapter().Sockets("lobby")) == 1
		}, waitFor, tick)

		require.NoError(t, b.server.To("lobby").Emit("news", "hi"))

		assert.Equal(t, `42["news","hi"]`, readEvent(t, connA))
		assert.Equal(t, `42["news","hi"]`, readEvent(t, connB))

		assert.ElementsMatch(t, []string{sidA, "lobby"}, a.server.Of("/").Adapter().SocketRooms(sidA))
		assert.ElementsMatch(t, []string{sidB, "lobby"}, b.server.Of("/").Adapter().SocketRooms(sidB))
	})

	t.Run("private room emit crosses servers", func(t *testing.T) {
		t.Parallel()

		bus := pubsub.NewMemoryBus()
		a := startNode(t, bus, func(*sio.Socket) {})
		b := startNode(t, bus, func(*sio.Socket) {})

		connA, sidA := connect(t, a)

		require.NoError(t, b.server.To(sidA).Emit("direct", 1))

		assert.Equal(t, `42["direct",1]`, readEvent(t, connA))
	})

	t.Run("disconnect leaves every room", func(t *testing.T) {
		t.Parallel()

		bus := pubsub.NewMemoryBus()
		a := startNode(t, bus, joinLobby)

		conn, sid := connect(t, a)
		adapter := a.server.Of("/").Adapter()

		require.Eventually(t, func() bool { return len(adapter.Sockets("lobby")) == 1 }, waitFor, tick)

		require.NoError(t, conn.Close())

		require.Eventually(t, func() bool {
			return len(adapter.Sockets("lobby")) == 0 && len(adapter.SocketRooms(sid)) == 0
		}, waitFor, tick)
		assert.Empty(t, adapter.(*redisadapter.Adapter).Rooms())
	})
}
