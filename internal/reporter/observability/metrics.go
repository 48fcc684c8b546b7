package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reporter"

// Metrics holds the pipeline's Prometheus instruments: LLM calls per tier,
// cache hit ratio, retry counts, chunk counts per PromptFitter invocation,
// and pipeline stage durations.
type Metrics struct {
	LLMCallsTotal   *prometheus.CounterVec
	LLMRetriesTotal *prometheus.CounterVec
	CacheHitsTotal  prometheus.Counter
	CacheMissTotal  prometheus.Counter
	ChunkCount      prometheus.Histogram
	StageDuration   *prometheus.HistogramVec
}

// NewMetrics creates and registers the pipeline's instruments on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Total LLM Generate calls, by tier and outcome.",
		}, []string{"tier", "outcome"}),
		LLMRetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_retries_total",
			Help:      "Total LLM retry attempts, by tier.",
		}, []string{"tier"}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total ArtifactCache GetOrCompute calls served from cache.",
		}),
		CacheMissTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total ArtifactCache GetOrCompute calls that invoked compute.",
		}),
		ChunkCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "promptfit_chunks",
			Help:      "Number of chunks PromptFitter split a single Fit call into.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of a pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}

	registry.MustRegister(
		m.LLMCallsTotal,
		m.LLMRetriesTotal,
		m.CacheHitsTotal,
		m.CacheMissTotal,
		m.ChunkCount,
		m.StageDuration,
	)

	return m
}
