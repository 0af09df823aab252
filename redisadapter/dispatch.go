package redisadapter

import (
	"context"

	"github.com/ramory-l/sio/internal/logging"
	"github.com/ramory-l/sio/pubsub"
)

// onMessage handles every message the subscriber receives. Envelopes this
// server published, envelopes for other namespaces and undecodable payloads
// are dropped; the rest are delivered to local sockets only, so a message
// is never relayed more than one hop.
func (a *Adapter) onMessage(_ context.Context, msg pubsub.Message) {
	if a.isClosed() {
		return
	}

	env, err := decodeEnvelope(msg.Payload)
	if err != nil {
		a.log.Debug("redisadapter.decode", "channel", msg.Channel, logging.Error(err))
		a.drop(dropDecode)
		return
	}

	if env.UID == a.uid {
		a.drop(dropSelf)
		return
	}

	env.Packet.Namespace = env.Packet.NamespaceOrRoot()
	if env.Packet.Namespace != a.nsp {
		a.drop(dropNamespace)
		return
	}

	a.metrics.received.WithLabelValues(a.nsp).Inc()
	if err := a.broadcast(env.Packet, env.Opts, true); err != nil {
		a.log.Warn("redisadapter.deliver", "channel", msg.Channel, logging.Error(err))
	}
}

func (a *Adapter) drop(reason string) {
	a.metrics.dropped.WithLabelValues(a.nsp, reason).Inc()
}
