package apiclient

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts REST calls per resource. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "site_cms_api_requests_total",
			Help: "REST API calls by resource, method and status code.",
		}, []string{"resource", "method", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "site_cms_api_request_duration_seconds",
			Help:    "REST API call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource", "method"}),
	}
}

func (m *Metrics) observe(resource, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.requests.WithLabelValues(resource, method, label).Inc()
	m.duration.WithLabelValues(resource, method).Observe(elapsed.Seconds())
}
