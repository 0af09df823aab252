// Package redisadapter shares Socket.IO rooms between servers over Redis
// pub/sub.
//
// Each namespace gets an Adapter that keeps local room membership in a
// sio.MemoryAdapter and mirrors it onto Redis channels:
//
//	prefix#nsp#        namespace-wide broadcasts (always subscribed)
//	prefix#nsp#room#   broadcasts to room (subscribed while the room has
//	                   at least one local socket)
//
// A broadcast is delivered to local sockets first, then published as a
// msgpack envelope [uid, packet, opts]: once per target room, or once on the
// namespace channel when no room is named. Receiving servers drop envelopes
// carrying their own uid or another namespace and deliver the rest to their
// local sockets without publishing again.
//
// Usage:
//
//	factory, closeRedis, err := redisadapter.Dial(ctx,
//		pubsub.Config{ConnectionURL: "redis://localhost:6379/0"},
//		&redisadapter.Config{Logger: logger},
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer closeRedis()
//
//	server := sio.NewServer(&sio.Config{Adapter: factory})
//	defer server.Close()
//
// Room and namespace names must not contain '#'.
//
// Delivery is best effort. Publishing happens on a background goroutine and
// its errors are logged, not returned. A failed subscribe or unsubscribe is
// returned to the caller and passed to Config.OnError, but membership is not
// rolled back: local broadcasts keep working while the room may miss
// broadcasts from other servers.
package redisadapter
