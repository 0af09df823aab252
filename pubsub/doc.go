// Package pubsub is the channel-based transport that clustered room adapters
// publish broadcasts on.
//
// The transport is deliberately dumb: payloads are opaque bytes and channels
// are plain strings. Publishing and subscribing go through separate handles so
// a slow subscriber connection never holds up publishers:
//
//	type Publisher interface {
//		Publish(ctx context.Context, channel string, payload []byte) error
//	}
//
//	type Subscriber interface {
//		Subscribe(ctx context.Context, channel string) error
//		Unsubscribe(ctx context.Context, channel string) error
//		Listen(handler MessageHandler) (stop func())
//	}
//
// Two implementations are provided:
//
//   - MemoryBus: in-process delivery, for tests and single-binary setups
//   - RedisPublisher / RedisSubscriber: Redis PUBLISH / SUBSCRIBE via go-redis
//
// Connect dials a Redis client from a URL, retrying with exponential backoff
// until the server answers PING:
//
//	cfg := pubsub.Config{ConnectionURL: "redis://localhost:6379/0"}
//	pubClient, err := pubsub.Connect(ctx, cfg)
//	subClient, err := pubsub.Connect(ctx, cfg)
//
//	pub := pubsub.NewRedisPublisher(pubClient)
//	sub := pubsub.NewRedisSubscriber(subClient, nil)
//	defer sub.Close()
//
// Use one client per handle: a Redis connection in subscribe mode cannot
// issue PUBLISH.
package pubsub
