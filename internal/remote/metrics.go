package remote

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_api_requests_total",
			Help: "Requests sent to the catalog API by operation and HTTP status",
		},
		[]string{"op", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_api_request_duration_seconds",
			Help:    "Catalog API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	inflight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_api_requests_in_flight",
			Help: "Catalog API requests currently holding a limiter slot",
		},
	)
)

// observe records one request. Status 0 means no response arrived.
func observe(op string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	requestsTotal.WithLabelValues(op, label).Inc()
	requestDuration.WithLabelValues(op).Observe(d.Seconds())
}
