package preview

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records what the preview server does, exposed on /metrics.
type Metrics struct {
	registry       *prom.Registry
	pagesRendered  *prom.CounterVec
	renderDuration prom.Histogram
}

// NewMetrics constructs and registers the preview metrics.
func NewMetrics(reg *prom.Registry) *Metrics {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	m := &Metrics{registry: reg}
	m.pagesRendered = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "markdownc",
		Name:      "preview_pages_rendered_total",
		Help:      "Markdown pages rendered by the preview server, by result",
	}, []string{"result"})
	m.renderDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "markdownc",
		Name:      "preview_render_duration_seconds",
		Help:      "Time spent converting a page to HTML",
		Buckets:   prom.DefBuckets,
	})
	reg.MustRegister(m.pagesRendered, m.renderDuration)
	return m
}

func (m *Metrics) PageRendered(result string, seconds float64) {
	m.pagesRendered.WithLabelValues(result).Inc()
	if result == "ok" {
		m.renderDuration.Observe(seconds)
	}
}

// Handler serves the registry in OpenMetrics-capable text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
