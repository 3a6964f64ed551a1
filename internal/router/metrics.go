package router

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultHit      = "hit"
	resultMiss     = "miss"
	resultNotFound = "not_found"
)

// Metrics holds the router collectors. A nil *Metrics records nothing.
type Metrics struct {
	resolves    *prometheus.CounterVec
	controllers prometheus.Gauge
}

// NewMetrics registers the router collectors with reg. Collectors already
// registered by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		resolves: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mvcfun_router_resolve_total",
			Help: "Controller lookups by result (hit, miss, not_found)",
		}, []string{"result"})),
		controllers: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mvcfun_router_controllers",
			Help: "Number of registered controllers",
		})),
	}
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

func (m *Metrics) observe(result string) {
	if m == nil {
		return
	}
	m.resolves.WithLabelValues(result).Inc()
}

func (m *Metrics) setControllers(n int) {
	if m == nil {
		return
	}
	m.controllers.Set(float64(n))
}
