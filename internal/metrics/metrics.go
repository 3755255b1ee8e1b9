// Package metrics exposes Prometheus metrics for build passes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docsmap"

// Metrics records build pass outcomes. It satisfies site.Recorder.
type Metrics struct {
	builds   *prometheus.CounterVec
	pages    prometheus.Counter
	docs     prometheus.Gauge
	duration prometheus.Histogram
}

// New registers the build metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		builds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Build passes by outcome.",
		}, []string{"status"}),
		pages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_read_total",
			Help:      "Pages read across all build passes.",
		}),
		docs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "docs_collected",
			Help:      "Documentation pages read by the last build pass.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Build pass duration.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
}

// ObserveBuild records one build pass.
func (m *Metrics) ObserveBuild(status string, pages, docs int, elapsed time.Duration) {
	m.builds.WithLabelValues(status).Inc()
	m.pages.Add(float64(pages))
	m.docs.Set(float64(docs))
	m.duration.Observe(elapsed.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
