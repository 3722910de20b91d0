package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics is a Metrics implementation backed by client_golang
// collectors. Counters, gauges, and histograms are created lazily per
// metric name since tag sets vary by call site.
type PrometheusMetrics struct {
	registry *prometheus.Registry
	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
	hists    map[string]*prometheus.HistogramVec
}

// NewPrometheusMetrics creates a metrics collector registered against reg.
// Pass a fresh *prometheus.Registry, or prometheus.NewRegistry() if the
// caller does not need to share the default global registry.
func NewPrometheusMetrics(reg *prometheus.Registry) *PrometheusMetrics {
	return &PrometheusMetrics{
		registry: reg,
		counters: make(map[string]*prometheus.CounterVec),
		gauges:   make(map[string]*prometheus.GaugeVec),
		hists:    make(map[string]*prometheus.HistogramVec),
	}
}

// Registry returns the underlying registry, for wiring into an
// /metrics HTTP handler.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func tagNames(tags []Tag) []string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Key
	}
	return names
}

func tagValues(tags []Tag) []string {
	values := make([]string, len(tags))
	for i, t := range tags {
		values[i] = t.Value
	}
	return values
}

func metricName(name string) string {
	out := make([]byte, 0, len(name))
	for _, r := range name {
		if r == '.' || r == '-' {
			out = append(out, '_')
			continue
		}
		out = append(out, byte(r))
	}
	return string(out)
}

func (m *PrometheusMetrics) counterFor(name string, tags []Tag) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricName(name),
	}, tagNames(tags))
	m.registry.MustRegister(c)
	m.counters[name] = c
	return c
}

func (m *PrometheusMetrics) gaugeFor(name string, tags []Tag) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.gauges[name]; ok {
		return g
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: metricName(name),
	}, tagNames(tags))
	m.registry.MustRegister(g)
	m.gauges[name] = g
	return g
}

func (m *PrometheusMetrics) histogramFor(name string, tags []Tag) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.hists[name]; ok {
		return h
	}
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: metricName(name),
	}, tagNames(tags))
	m.registry.MustRegister(h)
	m.hists[name] = h
	return h
}

func (m *PrometheusMetrics) Counter(name string, value int64, tags ...Tag) {
	m.counterFor(name, tags).WithLabelValues(tagValues(tags)...).Add(float64(value))
}

func (m *PrometheusMetrics) Gauge(name string, value float64, tags ...Tag) {
	m.gaugeFor(name, tags).WithLabelValues(tagValues(tags)...).Set(value)
}

func (m *PrometheusMetrics) Histogram(name string, value float64, tags ...Tag) {
	m.histogramFor(name, tags).WithLabelValues(tagValues(tags)...).Observe(value)
}

func (m *PrometheusMetrics) Timing(name string, duration time.Duration, tags ...Tag) {
	m.histogramFor(name, tags).WithLabelValues(tagValues(tags)...).Observe(duration.Seconds())
}
