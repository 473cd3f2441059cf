package server

import (
	"strconv"
	"time"

	"github.com/iwvelando/bigmac-dashboard/internal/session"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "bigmac"

type metrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	uploads    *prometheus.CounterVec
	narratives *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer, store *session.Store) (*metrics, error) {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "uploads_total",
			Help:      "Uploaded series by kind and outcome.",
		}, []string{"kind", "outcome"}),
		narratives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "narratives_total",
			Help:      "Narrative requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	sessions := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "sessions_active",
		Help:      "Live analysis sessions.",
	}, func() float64 { return float64(store.Len()) })

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.uploads, m.narratives, sessions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) observeRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
