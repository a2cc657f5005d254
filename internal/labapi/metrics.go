package labapi

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labdesk_labapi_requests_total",
			Help: "Requests issued to the lab API",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labdesk_labapi_request_duration_seconds",
			Help:    "Duration of lab API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// Collectors returns the client's metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{requestsTotal, requestDuration}
}

func observe(method, endpoint string, status int, took time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	requestsTotal.WithLabelValues(method, endpoint, code).Inc()
	requestDuration.WithLabelValues(method, endpoint).Observe(took.Seconds())
}
