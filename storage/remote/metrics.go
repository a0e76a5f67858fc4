package remote

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts the requests made to the remote data service.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coachdesk",
			Subsystem: "remote",
			Name:      "requests_total",
			Help:      "Requests made to the remote data service, by API and status code.",
		}, []string{"api", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coachdesk",
			Subsystem: "remote",
			Name:      "request_duration_seconds",
			Help:      "Latency of the requests made to the remote data service.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"api"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// observe records a request; code 0 means the request never got a response.
func (m *Metrics) observe(api, method string, code int, took time.Duration) {
	if m == nil {
		return
	}
	c := "error"
	if code > 0 {
		c = strconv.Itoa(code)
	}
	m.requests.WithLabelValues(api, method, c).Inc()
	m.duration.WithLabelValues(api).Observe(took.Seconds())
}

// Requests exposes the request counter, by api, method & status code.
func (m *Metrics) Requests() *prometheus.CounterVec {
	return m.requests
}
