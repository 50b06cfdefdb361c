package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	renderDuration   prom.Histogram
	pagesRendered    prom.Counter
	substitutions    prom.Counter
	lookupBatches    prom.Counter
	lookupBatchPages prom.Histogram
	negativeHits     prom.Counter
	limitExceeded    prom.Counter
	declarations     *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.renderDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "linktext",
			Name:      "render_duration_seconds",
			Help:      "Duration of one page render pass",
			Buckets:   prom.DefBuckets,
		})
		pr.pagesRendered = prom.NewCounter(prom.CounterOpts{
			Namespace: "linktext",
			Name:      "pages_rendered_total",
			Help:      "Pages processed by the rewrite pass",
		})
		pr.substitutions = prom.NewCounter(prom.CounterOpts{
			Namespace: "linktext",
			Name:      "substitutions_total",
			Help:      "Link occurrences rewritten with declared text",
		})
		pr.lookupBatches = prom.NewCounter(prom.CounterOpts{
			Namespace: "linktext",
			Name:      "lookup_batches_total",
			Help:      "Batched property-store reads issued",
		})
		pr.lookupBatchPages = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "linktext",
			Name:      "lookup_batch_pages",
			Help:      "Distinct page ids per batched read",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		})
		pr.negativeHits = prom.NewCounter(prom.CounterOpts{
			Namespace: "linktext",
			Name:      "negative_cache_hits_total",
			Help:      "Resolutions answered by the negative cache",
		})
		pr.limitExceeded = prom.NewCounter(prom.CounterOpts{
			Namespace: "linktext",
			Name:      "limit_exceeded_total",
			Help:      "Substitution passes aborted by the inclusion-size budget",
		})
		pr.declarations = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "linktext",
			Name:      "declarations_total",
			Help:      "Declaration outcomes by result",
		}, []string{"result"})
		reg.MustRegister(pr.renderDuration, pr.pagesRendered, pr.substitutions,
			pr.lookupBatches, pr.lookupBatchPages, pr.negativeHits, pr.limitExceeded, pr.declarations)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveRenderDuration(d time.Duration) {
	if p == nil || p.renderDuration == nil {
		return
	}
	p.renderDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPagesRendered() {
	if p == nil || p.pagesRendered == nil {
		return
	}
	p.pagesRendered.Inc()
}

func (p *PrometheusRecorder) IncSubstitutions(n int) {
	if p == nil || p.substitutions == nil || n <= 0 {
		return
	}
	p.substitutions.Add(float64(n))
}

func (p *PrometheusRecorder) IncLookupBatch(pages int) {
	if p == nil || p.lookupBatches == nil {
		return
	}
	p.lookupBatches.Inc()
	p.lookupBatchPages.Observe(float64(pages))
}

func (p *PrometheusRecorder) IncNegativeCacheHit() {
	if p == nil || p.negativeHits == nil {
		return
	}
	p.negativeHits.Inc()
}

func (p *PrometheusRecorder) IncLimitExceeded() {
	if p == nil || p.limitExceeded == nil {
		return
	}
	p.limitExceeded.Inc()
}

func (p *PrometheusRecorder) IncDeclarations(result DeclarationResult) {
	if p == nil || p.declarations == nil {
		return
	}
	p.declarations.WithLabelValues(string(result)).Inc()
}
