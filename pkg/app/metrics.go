package app

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics are the counters exported by the metrics web service.
// Each App has its own registry.
type metrics struct {
	registry   *prometheus.Registry
	received   *prometheus.CounterVec
	sent       *prometheus.CounterVec
	sendErrors prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		received: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "irl",
				Subsystem: "receiver",
				Name:      "messages_total",
				Help:      "Decoded IR messages.",
			},
			[]string{"protocol"},
		),
		sent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "irl",
				Subsystem: "sender",
				Name:      "messages_total",
				Help:      "Transmitted IR messages.",
			},
			[]string{"protocol"},
		),
		sendErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "irl",
				Subsystem: "sender",
				Name:      "errors_total",
				Help:      "Failed IR transmissions.",
			},
		),
	}

	m.registry.MustRegister(m.received, m.sent, m.sendErrors)
	return m
}
