package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the fan-out layer's Prometheus instruments. A nil
// *Metrics is accepted everywhere so unit tests can skip registration.
type Metrics struct {
	ConnectionsActive prometheus.Gauge
	BroadcastsTotal   *prometheus.CounterVec
	DeliveriesTotal   prometheus.Counter
	SendFailuresTotal prometheus.Counter
	PresenceOnline    prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "alumnet",
			Subsystem: "realtime",
			Name:      "connections_active",
			Help:      "Open WebSocket connections on this node.",
		}),
		BroadcastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alumnet",
			Subsystem: "realtime",
			Name:      "broadcasts_total",
			Help:      "Broadcast invocations by event type.",
		}, []string{"type"}),
		DeliveriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alumnet",
			Subsystem: "realtime",
			Name:      "deliveries_total",
			Help:      "Individual payload writes delivered to recipients.",
		}),
		SendFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alumnet",
			Subsystem: "realtime",
			Name:      "send_failures_total",
			Help:      "Recipient writes that failed and triggered an implicit unregister.",
		}),
		PresenceOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "alumnet",
			Subsystem: "realtime",
			Name:      "presence_online",
			Help:      "Users currently counted online on this node.",
		}),
	}
	reg.MustRegister(
		m.ConnectionsActive,
		m.BroadcastsTotal,
		m.DeliveriesTotal,
		m.SendFailuresTotal,
		m.PresenceOnline,
	)
	return m
}
