package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RealtimeClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "veritas",
			Subsystem: "realtime",
			Name:      "clients",
			Help:      "Connected verdict feed clients",
		},
	)

	RealtimeDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "veritas",
			Subsystem: "realtime",
			Name:      "dropped_total",
			Help:      "Verdict events not delivered to the feed",
		},
		[]string{"reason"},
	)
)
