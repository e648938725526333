// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CommandBuckets spans quick queries to full analysis runs, 1ms to 5min.
var CommandBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120, 300}

// Metrics holds the gateway's collectors on a private registry. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Requests counts calls by frontend (jsonrpc, grpc), method and status.
	Requests *prometheus.CounterVec

	// Duration records call latency in seconds by frontend and method.
	Duration *prometheus.HistogramVec

	// Sessions tracks live engine sessions.
	Sessions prometheus.Gauge
}

// NewMetrics creates the gateway collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "r2pipe_gateway_requests_total",
				Help: "Gateway requests",
			},
			[]string{"frontend", "method", "status"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "r2pipe_gateway_request_duration_seconds",
				Help:    "Gateway request duration",
				Buckets: CommandBuckets,
			},
			[]string{"frontend", "method"},
		),
		Sessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "r2pipe_gateway_sessions_active",
				Help: "Live engine sessions",
			},
		),
	}
	m.registry.MustRegister(
		m.Requests,
		m.Duration,
		m.Sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) observe(frontend, method string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Requests.WithLabelValues(frontend, method, status).Inc()
	m.Duration.WithLabelValues(frontend, method).Observe(time.Since(start).Seconds())
}

func (m *Metrics) setSessions(n int) {
	if m == nil {
		return
	}
	m.Sessions.Set(float64(n))
}
