package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the relay's Prometheus instruments.
type metrics struct {
	connectionsActive prometheus.Gauge
	roomsActive       prometheus.Gauge
	connectsTotal     prometheus.Counter
	framesIn          prometheus.Counter
	framesForwarded   prometheus.Counter
	framesDropped     *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "liveboard",
			Subsystem: "relay",
			Name:      "connections_active",
			Help:      "Number of live WebSocket connections",
		}),

		roomsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "liveboard",
			Subsystem: "relay",
			Name:      "rooms_active",
			Help:      "Number of rooms with at least one connection",
		}),

		connectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "liveboard",
			Subsystem: "relay",
			Name:      "connects_total",
			Help:      "Total WebSocket connections accepted",
		}),

		framesIn: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "liveboard",
			Subsystem: "relay",
			Name:      "frames_in_total",
			Help:      "Total inbound frames received",
		}),

		framesForwarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "liveboard",
			Subsystem: "relay",
			Name:      "frames_forwarded_total",
			Help:      "Total frames fanned out to room members",
		}),

		framesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liveboard",
			Subsystem: "relay",
			Name:      "frames_dropped_total",
			Help:      "Total frames dropped by reason",
		}, []string{"reason"}),
	}
}
