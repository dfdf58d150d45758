// Package prometheus builds the go-kit metrics pair used by the service
// middleware.
package prometheus

import (
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// MakeMetrics returns a request counter and a latency histogram registered
// with reg. Each job run carries its own registry, so the same process can
// run more than one job without colliding registrations.
func MakeMetrics(reg stdprometheus.Registerer, namespace, subsystem string) (metrics.Counter, metrics.Histogram) {
	counterVec := stdprometheus.NewCounterVec(stdprometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_count",
		Help:      "Number of requests received.",
	}, []string{"method"})

	latencyVec := stdprometheus.NewSummaryVec(stdprometheus.SummaryOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_latency_microseconds",
		Help:      "Total duration of requests in microseconds.",
	}, []string{"method"})

	reg.MustRegister(counterVec, latencyVec)

	return kitprometheus.NewCounter(counterVec), kitprometheus.NewSummary(latencyVec)
}
