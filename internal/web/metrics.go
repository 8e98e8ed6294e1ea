package web

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type metrics struct {
	reg       *prometheus.Registry
	generates *prometheus.CounterVec
	rejects   *prometheus.CounterVec
	duration  prometheus.Histogram
	requests  *prometheus.CounterVec
}

// newMetrics uses a private registry so several servers can live in one
// process.
func newMetrics() *metrics {
	m := &metrics{
		reg: prometheus.NewRegistry(),
		generates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "text2qr_generated_total",
			Help: "QR codes generated, by output format.",
		}, []string{"format"}),
		rejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "text2qr_rejected_total",
			Help: "Generation requests that failed, by reason.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "text2qr_generate_seconds",
			Help:    "Time spent rendering a QR image.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "text2qr_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
	m.reg.MustRegister(
		m.generates, m.rejects, m.duration, m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) generated(format string, took time.Duration) {
	m.generates.WithLabelValues(format).Inc()
	m.duration.Observe(took.Seconds())
}

func (m *metrics) rejected(reason string) {
	m.rejects.WithLabelValues(reason).Inc()
}
