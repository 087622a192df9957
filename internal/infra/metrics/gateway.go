package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(gatewayCallsTotal, gatewayLatency) }

var (
	gatewayCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_calls_total",
			Help: "Outbound calls to remote services by service, operation and result.",
		},
		[]string{"service", "op", "result"}, // result: ok, transient, not_found, remote
	)

	gatewayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_call_latency_ms",
			Help:    "Latency of outbound calls in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"service", "op"},
	)
)

func ObserveGatewayCall(service, op, result string, took time.Duration) {
	gatewayCallsTotal.WithLabelValues(norm(service), norm(op), norm(result)).Inc()
	gatewayLatency.WithLabelValues(norm(service), norm(op)).Observe(float64(took.Milliseconds()))
}
