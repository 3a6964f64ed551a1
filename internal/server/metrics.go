package server

import (
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds server runtime counters. The atomic counters back Stats;
// the prometheus collectors are only set up by NewMetrics with a
// registerer.
type Metrics struct {
	RequestsTotal     atomic.Int64
	ActiveConnections atomic.Int64
	ErrorsTotal       atomic.Int64
	Errors4xx         atomic.Int64
	Errors5xx         atomic.Int64
	RejectedBodies    atomic.Int64

	TotalLatencyNs atomic.Int64

	requests    *prometheus.CounterVec
	duration    prometheus.Histogram
	connections prometheus.Gauge
	rejected    prometheus.Counter
}

// NewMetrics creates a metrics instance. With a non-nil reg the collectors
// are registered there; collectors registered by an earlier call are
// reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{}
	if reg == nil {
		return m
	}
	m.requests = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mvcfun_http_requests_total",
		Help: "Total number of HTTP requests by status code",
	}, []string{"code"}))
	m.duration = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mvcfun_http_request_duration_seconds",
		Help:    "Duration of request processing in seconds",
		Buckets: prometheus.DefBuckets,
	}))
	m.connections = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mvcfun_http_active_connections",
		Help: "Number of open client connections",
	}))
	m.rejected = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mvcfun_http_rejected_bodies_total",
		Help: "Connections dropped because the request body exceeded the limit",
	}))
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// RecordRequest records a completed request.
func (m *Metrics) RecordRequest(statusCode int, duration time.Duration) {
	m.RequestsTotal.Add(1)
	m.TotalLatencyNs.Add(duration.Nanoseconds())

	if statusCode >= 400 && statusCode < 500 {
		m.Errors4xx.Add(1)
	} else if statusCode >= 500 {
		m.Errors5xx.Add(1)
		m.ErrorsTotal.Add(1)
	}

	if m.requests != nil {
		m.requests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
		m.duration.Observe(duration.Seconds())
	}
}

func (m *Metrics) connOpened() {
	m.ActiveConnections.Add(1)
	if m.connections != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) connClosed() {
	m.ActiveConnections.Add(-1)
	if m.connections != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) bodyRejected() {
	m.RejectedBodies.Add(1)
	if m.rejected != nil {
		m.rejected.Inc()
	}
}

// AverageLatency returns average request latency.
func (m *Metrics) AverageLatency() time.Duration {
	totalReqs := m.RequestsTotal.Load()
	if totalReqs == 0 {
		return 0
	}
	return time.Duration(m.TotalLatencyNs.Load() / totalReqs)
}

// MetricsSnapshot is a point-in-time copy of Metrics, served on /stats.
type MetricsSnapshot struct {
	RequestsTotal     int64         `json:"requests_total"`
	ActiveConnections int64         `json:"active_connections"`
	ErrorsTotal       int64         `json:"errors_total"`
	Errors4xx         int64         `json:"errors_4xx"`
	Errors5xx         int64         `json:"errors_5xx"`
	RejectedBodies    int64         `json:"rejected_bodies"`
	AverageLatency    time.Duration `json:"average_latency_ns"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		RequestsTotal:     m.RequestsTotal.Load(),
		ActiveConnections: m.ActiveConnections.Load(),
		ErrorsTotal:       m.ErrorsTotal.Load(),
		Errors4xx:         m.Errors4xx.Load(),
		Errors5xx:         m.Errors5xx.Load(),
		RejectedBodies:    m.RejectedBodies.Load(),
		AverageLatency:    m.AverageLatency(),
	}
}
