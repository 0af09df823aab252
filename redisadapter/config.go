package redisadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/ramory-l/sio"
	"github.com/ramory-l/sio/pubsub"
)

const (
	uidLength            = 6
	defaultPublishBuffer = 1024
)

// Config configures the adapters built by New.
type Config struct {
	// Prefix starts every channel name. Defaults to DefaultPrefix.
	Prefix string

	// Publisher and Subscriber are the transport handles. They must use
	// separate connections.
	Publisher  pubsub.Publisher
	Subscriber pubsub.Subscriber

	// OnError receives transport and subscription errors. Errors are logged
	// whether or not it is set.
	OnError func(error)

	Logger *slog.Logger

	// Registerer receives the adapter metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer

	// PublishBuffer bounds the number of envelopes waiting to be published
	// per namespace. Broadcasts beyond it are dropped.
	PublishBuffer int
}

// shared is the per-process state every namespace adapter of a factory uses.
type shared struct {
	uid           string
	prefix        string
	pub           pubsub.Publisher
	sub           pubsub.Subscriber
	onError       func(error)
	log           *slog.Logger
	metrics       *metrics
	publishBuffer int
}

// New returns an AdapterFactory producing one Redis-backed adapter per
// namespace. All adapters from the factory share one process id and the
// transport handles.
func New(cfg *Config) (sio.AdapterFactory, error) {
	if cfg == nil || cfg.Publisher == nil || cfg.Subscriber == nil {
		return nil, ErrMissingTransport
	}

	s := &shared{
		uid:           newUID(),
		prefix:        cfg.Prefix,
		pub:           cfg.Publisher,
		sub:           cfg.Subscriber,
		onError:       cfg.OnError,
		log:           cfg.Logger,
		metrics:       newMetrics(cfg.Registerer),
		publishBuffer: cfg.PublishBuffer,
	}
	if s.prefix == "" {
		s.prefix = DefaultPrefix
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.publishBuffer <= 0 {
		s.publishBuffer = defaultPublishBuffer
	}
	s.log = s.log.With("uid", s.uid)

	return func(host sio.Host) sio.Adapter {
		return newAdapter(host, s)
	}, nil
}

// Dial connects the publish and subscribe clients described by redisCfg and
// returns a factory using them. The returned close func shuts down the
// subscriber and both clients; call it after the server is closed.
func Dial(ctx context.Context, redisCfg pubsub.Config, cfg *Config) (sio.AdapterFactory, func() error, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}

	pubClient, err := pubsub.Connect(ctx, redisCfg)
	if err != nil {
		return nil, nil, err
	}
	subClient, err := pubsub.Connect(ctx, redisCfg)
	if err != nil {
		_ = pubClient.Close()
		return nil, nil, err
	}

	sub := pubsub.NewRedisSubscriber(subClient, &pubsub.SubscriberOptions{
		OnError: c.OnError,
		Logger:  c.Logger,
	})
	c.Publisher = pubsub.NewRedisPublisher(pubClient)
	c.Subscriber = sub

	factory, err := New(&c)
	if err != nil {
		closeAll(sub, subClient, pubClient)
		return nil, nil, err
	}

	return factory, func() error { return closeAll(sub, subClient, pubClient) }, nil
}

func closeAll(sub *pubsub.RedisSubscriber, clients ...*redis.Client) error {
	errs := []error{sub.Close()}
	for _, c := range clients {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// newUID returns a short random token identifying this process on the bus.
func newUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:uidLength]
}
