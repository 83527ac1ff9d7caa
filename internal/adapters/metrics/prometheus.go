// Package metrics exports sink activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/mongoship/internal/app"
)

const namespace = "mongoship"

// Collector implements app.Emitter on its own registry.
type Collector struct {
	registry *prometheus.Registry

	opsWritten   *prometheus.CounterVec
	flushLatency *prometheus.HistogramVec
	duplicates   *prometheus.CounterVec
	retries      *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	rejected     prometheus.Counter
	breakerState *prometheus.GaugeVec
}

var _ app.Emitter = (*Collector)(nil)

var breakerStates = []string{"closed", "half-open", "open"}

// NewCollector creates a collector with every metric registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		opsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ops_written_total",
				Help:      "Write operations acknowledged by the store",
			},
			[]string{"collection"},
		),
		flushLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "write_duration_seconds",
				Help:      "Time from first attempt to acknowledgement of a write call",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"collection"},
		),
		duplicates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicate_keys_total",
				Help:      "Operations skipped because of a duplicate key",
			},
			[]string{"collection"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "write_retries_total",
				Help:      "Retried write attempts",
			},
			[]string{"collection"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ops_dropped_total",
				Help:      "Operations dropped after the retry policy gave up",
			},
			[]string{"collection"},
		),
		rejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_rejected_total",
				Help:      "Events rejected before reaching the store",
			},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "breaker_state",
				Help:      "1 for the current circuit breaker state",
			},
			[]string{"state"},
		),
	}

	c.registry.MustRegister(
		c.opsWritten,
		c.flushLatency,
		c.duplicates,
		c.retries,
		c.dropped,
		c.rejected,
		c.breakerState,
	)
	c.OnBreakerState("closed")
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) OnFlush(collection string, ops int, duration time.Duration) {
	c.opsWritten.WithLabelValues(collection).Add(float64(ops))
	c.flushLatency.WithLabelValues(collection).Observe(duration.Seconds())
}

func (c *Collector) OnDuplicate(collection string) {
	c.duplicates.WithLabelValues(collection).Inc()
}

func (c *Collector) OnRetry(collection string, attempt int, err error) {
	c.retries.WithLabelValues(collection).Inc()
}

func (c *Collector) OnDrop(collection string, ops int) {
	c.dropped.WithLabelValues(collection).Add(float64(ops))
}

func (c *Collector) OnRejected(err error) {
	c.rejected.Inc()
}

func (c *Collector) OnBreakerState(state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		c.breakerState.WithLabelValues(s).Set(v)
	}
}
