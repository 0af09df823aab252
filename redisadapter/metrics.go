package redisadapter

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Reasons for dropped incoming messages and failed publishes.
const (
	dropDecode    = "decode"
	dropSelf      = "self"
	dropNamespace = "namespace"

	publishOverflow  = "overflow"
	publishTransport = "transport"
)

type metrics struct {
	published          *prometheus.CounterVec
	publishErrors      *prometheus.CounterVec
	received           *prometheus.CounterVec
	dropped            *prometheus.CounterVec
	subscriptionErrors *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sio",
			Subsystem: "redis_adapter",
			Name:      "published_total",
			Help:      "Envelopes published to other servers.",
		}, []string{"nsp"}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sio",
			Subsystem: "redis_adapter",
			Name:      "publish_errors_total",
			Help:      "Envelopes that could not be published.",
		}, []string{"nsp", "reason"}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sio",
			Subsystem: "redis_adapter",
			Name:      "received_total",
			Help:      "Envelopes from other servers delivered to local sockets.",
		}, []string{"nsp"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sio",
			Subsystem: "redis_adapter",
			Name:      "dropped_total",
			Help:      "Received envelopes that were not delivered locally.",
		}, []string{"nsp", "reason"}),
		subscriptionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sio",
			Subsystem: "redis_adapter",
			Name:      "subscription_errors_total",
			Help:      "Failed channel subscribe and unsubscribe calls.",
		}, []string{"nsp", "op"}),
	}

	if reg != nil {
		m.published = register(reg, m.published)
		m.publishErrors = register(reg, m.publishErrors)
		m.received = register(reg, m.received)
		m.dropped = register(reg, m.dropped)
		m.subscriptionErrors = register(reg, m.subscriptionErrors)
	}

	return m
}

// register reuses an already registered collector so several adapter
// factories can share one registry.
func register(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return c
}
