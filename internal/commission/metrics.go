package commission

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	commissionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "composer_commission_duration_seconds",
			Help:    "Time taken to process a commission or decommission request.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"direction"},
	)
	commissionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "composer_commission_requests_total",
			Help: "Number of commission requests processed, by direction and result.",
		},
		[]string{"direction", "result"},
	)
)

func init() {
	metrics.Registry.MustRegister(
		commissionDuration,
		commissionRequestsTotal,
	)
}

func observe(direction Direction, elapsed time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	commissionDuration.WithLabelValues(direction.String()).Observe(elapsed.Seconds())
	commissionRequestsTotal.WithLabelValues(direction.String(), result).Inc()
}
