package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		providerRequestsTotal,
		providerRequestDuration,
		providerRetriesTotal,
		providerReloginsTotal,
	)
}

var (
	providerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Panel API requests by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	providerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Panel API request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	providerRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "provider_retries_total",
			Help: "Transient-fault retries against the panel API.",
		},
	)

	providerReloginsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "provider_relogins_total",
			Help: "Token refreshes triggered by a 401 response.",
		},
	)
)

func IncProviderRequest(op, outcome string) {
	providerRequestsTotal.WithLabelValues(norm(op), norm(outcome)).Inc()
}

func ObserveProviderRequest(op string, seconds float64) {
	providerRequestDuration.WithLabelValues(norm(op)).Observe(seconds)
}

func IncProviderRetry()   { providerRetriesTotal.Inc() }
func IncProviderRelogin() { providerReloginsTotal.Inc() }
