package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	tunnelsSpawned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunnelctl",
			Subsystem: "pool",
			Name:      "tunnels_spawned_total",
			Help:      "Transport processes spawned by the tunnel pool.",
		},
		[]string{"host"},
	)
	tunnelsEvicted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunnelctl",
			Subsystem: "pool",
			Name:      "tunnels_evicted_total",
			Help:      "Transport processes killed and removed from the pool.",
		},
		[]string{"host"},
	)
	openTunnels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tunnelctl",
			Subsystem: "pool",
			Name:      "open_tunnels",
			Help:      "Transport processes currently registered in the pool.",
		},
	)
	exchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunnelctl",
			Subsystem: "session",
			Name:      "exchanges_total",
			Help:      "Command exchanges by host, framing mode and outcome.",
		},
		[]string{"host", "mode", "outcome"},
	)
	exchangeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tunnelctl",
			Subsystem: "session",
			Name:      "exchange_duration_seconds",
			Help:      "Command exchange duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"host", "mode", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(tunnelsSpawned, tunnelsEvicted, openTunnels, exchanges, exchangeDuration)
	})
}

func RecordTunnelSpawn(host string) {
	RegisterMetrics()
	tunnelsSpawned.WithLabelValues(host).Inc()
}

func RecordTunnelEviction(host string) {
	RegisterMetrics()
	tunnelsEvicted.WithLabelValues(host).Inc()
}

func SetOpenTunnels(n int) {
	RegisterMetrics()
	openTunnels.Set(float64(n))
}

func RecordExchange(host, mode, outcome string, duration time.Duration) {
	RegisterMetrics()
	exchanges.WithLabelValues(host, mode, outcome).Inc()
	exchangeDuration.WithLabelValues(host, mode, outcome).Observe(duration.Seconds())
}
