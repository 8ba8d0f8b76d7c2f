// Package prometheus registers ChemXGen metrics on a private registry and
// serves them for scraping.
//
// Metric vectors are exposed through small interfaces so callers never touch
// client_golang types. A failed registration degrades to a no-op vector and
// is logged.
package prometheus

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// Collector creates and serves metric vectors.
type Collector interface {
	Counter(name, help string, labels ...string) CounterVec
	Gauge(name, help string, labels ...string) GaugeVec
	Histogram(name, help string, buckets []float64, labels ...string) HistogramVec
	Handler() http.Handler
	Gatherer() prometheus.Gatherer
}

type CounterVec interface {
	WithLabelValues(lvs ...string) Counter
}

type Counter interface {
	Inc()
	Add(delta float64)
}

type GaugeVec interface {
	WithLabelValues(lvs ...string) Gauge
}

type Gauge interface {
	Set(value float64)
	Inc()
	Dec()
}

type HistogramVec interface {
	WithLabelValues(lvs ...string) Histogram
}

type Histogram interface {
	Observe(value float64)
}

type CollectorConfig struct {
	Namespace            string
	Subsystem            string
	EnableProcessMetrics bool
	EnableGoMetrics      bool
	ConstLabels          map[string]string
}

type collector struct {
	registry *prometheus.Registry
	config   CollectorConfig
	logger   logging.Logger

	mu         sync.Mutex
	registered map[string]prometheus.Collector
}

func NewCollector(cfg CollectorConfig, logger logging.Logger) (Collector, error) {
	if cfg.Namespace == "" {
		return nil, errors.New(errors.ErrCodeValidation, "metrics namespace is required")
	}
	registry := prometheus.NewRegistry()
	if cfg.EnableProcessMetrics {
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: cfg.Namespace}))
	}
	if cfg.EnableGoMetrics {
		registry.MustRegister(collectors.NewGoCollector())
	}
	return &collector{
		registry:   registry,
		config:     cfg,
		logger:     logger,
		registered: make(map[string]prometheus.Collector),
	}, nil
}

func (c *collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (c *collector) Gatherer() prometheus.Gatherer { return c.registry }

// register returns the vector already registered under name, if any, so
// repeated calls share one series set.
func (c *collector) register(name string, vec prometheus.Collector) (prometheus.Collector, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	full := prometheus.BuildFQName(c.config.Namespace, c.config.Subsystem, name)
	if existing, ok := c.registered[full]; ok {
		return existing, true
	}
	if err := c.registry.Register(vec); err != nil {
		c.logger.Error("Failed to register metric", logging.String("name", full), logging.Err(err))
		return nil, false
	}
	c.registered[full] = vec
	return vec, true
}

func (c *collector) Counter(name, help string, labels ...string) CounterVec {
	got, ok := c.register(name, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace, Subsystem: c.config.Subsystem,
		Name: name, Help: help, ConstLabels: c.config.ConstLabels,
	}, labels))
	if v, isVec := got.(*prometheus.CounterVec); ok && isVec {
		return counterVec{v}
	}
	c.mismatch(name, "counter", ok)
	return noopCounterVec{}
}

func (c *collector) Gauge(name, help string, labels ...string) GaugeVec {
	got, ok := c.register(name, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.config.Namespace, Subsystem: c.config.Subsystem,
		Name: name, Help: help, ConstLabels: c.config.ConstLabels,
	}, labels))
	if v, isVec := got.(*prometheus.GaugeVec); ok && isVec {
		return gaugeVec{v}
	}
	c.mismatch(name, "gauge", ok)
	return noopGaugeVec{}
}

func (c *collector) Histogram(name, help string, buckets []float64, labels ...string) HistogramVec {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	got, ok := c.register(name, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.config.Namespace, Subsystem: c.config.Subsystem,
		Name: name, Help: help, ConstLabels: c.config.ConstLabels, Buckets: buckets,
	}, labels))
	if v, isVec := got.(*prometheus.HistogramVec); ok && isVec {
		return histogramVec{v}
	}
	c.mismatch(name, "histogram", ok)
	return noopHistogramVec{}
}

func (c *collector) mismatch(name, kind string, registered bool) {
	if registered {
		c.logger.Warn("Metric type mismatch", logging.String("name", name), logging.String("type", kind))
	}
}

type counterVec struct{ v *prometheus.CounterVec }

func (c counterVec) WithLabelValues(lvs ...string) Counter { return c.v.WithLabelValues(lvs...) }

type gaugeVec struct{ v *prometheus.GaugeVec }

func (g gaugeVec) WithLabelValues(lvs ...string) Gauge { return g.v.WithLabelValues(lvs...) }

type histogramVec struct{ v *prometheus.HistogramVec }

func (h histogramVec) WithLabelValues(lvs ...string) Histogram { return h.v.WithLabelValues(lvs...) }

// Stand-ins for vectors that failed to register.
type noopCounterVec struct{}

func (noopCounterVec) WithLabelValues(...string) Counter { return noopMetric{} }

type noopGaugeVec struct{}

func (noopGaugeVec) WithLabelValues(...string) Gauge { return noopMetric{} }

type noopHistogramVec struct{}

func (noopHistogramVec) WithLabelValues(...string) Histogram { return noopMetric{} }

type noopMetric struct{}

func (noopMetric) Inc()            {}
func (noopMetric) Dec()            {}
func (noopMetric) Add(float64)     {}
func (noopMetric) Set(float64)     {}
func (noopMetric) Observe(float64) {}

// Timer observes elapsed seconds into h.
type Timer struct {
	h     Histogram
	start time.Time
}

func NewTimer(h Histogram) *Timer {
	return &Timer{h: h, start: time.Now()}
}

func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	if t.h != nil {
		t.h.Observe(d.Seconds())
	}
	return d
}
