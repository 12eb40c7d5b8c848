package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the collectors exported on /metrics. A dedicated registry
// keeps tests independent from the global default registerer.
type Metrics struct {
	Registry         *prometheus.Registry
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	SitesCreated     *prometheus.CounterVec
	SitesActivated   *prometheus.CounterVec
	CheckoutSessions *prometheus.CounterVec
	MediaStaged      *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amor",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "amor",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		SitesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amor",
			Name:      "sites_created_total",
			Help:      "Sites created from submitted drafts.",
		}, []string{"plan"}),
		SitesActivated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amor",
			Name:      "sites_activated_total",
			Help:      "Sites that became publicly visible.",
		}, []string{"plan"}),
		CheckoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amor",
			Name:      "checkout_sessions_total",
			Help:      "Checkout session creation attempts.",
		}, []string{"result"}),
		MediaStaged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amor",
			Name:      "media_staged_total",
			Help:      "Media staging attempts by kind and result.",
		}, []string{"kind", "result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.SitesCreated,
		m.SitesActivated,
		m.CheckoutSessions,
		m.MediaStaged,
	)

	return m
}
