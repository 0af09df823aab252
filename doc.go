// Package sio is a websocket-only Socket.IO v4 server whose rooms can span
// several server processes.
//
// # Server
//
//	server := sio.NewServer(nil)
//	server.OnConnect(func(socket *sio.Socket) {
//	    socket.On("message", func(args ...interface{}) {
//	        _ = socket.Emit("echo", args...)
//	    })
//	})
//	http.Handle("/socket.io/", server)
//
// Clients connect with the official Socket.IO client using
// transports: ["websocket"]. Long polling is not served.
//
// Namespaces come from Server.Of. A socket connects to the root namespace
// "/" and joins a room named after its own ID.
//
// # Rooms and broadcasts
//
//	_ = socket.Join("lobby")
//	_ = server.To("lobby").Emit("news", "hello")
//	_ = socket.Broadcast().To("lobby").Emit("typing") // everyone but socket
//	_ = socket.Leave("lobby")
//
// Join and Leave return the adapter's error. With the clustered adapter this
// is a failed channel subscription; the socket's membership still changes
// and local broadcasts still reach it.
//
// Event handlers run on their own goroutines. When the client asked for an
// acknowledgement the last handler argument is a func(...interface{}).
//
// # Adapters
//
// Every namespace owns an Adapter that tracks membership and performs
// broadcasts. MemoryAdapter, the default, only reaches local sockets.
// Package redisadapter shares rooms through Redis pub/sub:
//
//	factory, closeRedis, err := redisadapter.Dial(ctx, pubsub.Config{
//	    ConnectionURL: "redis://localhost:6379/0",
//	}, nil)
//	if err != nil {
//	    return err
//	}
//	defer closeRedis()
//
//	server := sio.NewServer(&sio.Config{Adapter: factory})
//	defer server.Close()
//
// A broadcast reaches local sockets immediately and the other servers
// asynchronously. Delivery across servers is best effort.
package sio
