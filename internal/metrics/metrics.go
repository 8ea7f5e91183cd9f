package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "haunt"

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	ChunksCreated    prometheus.Counter
	AICalls          *prometheus.CounterVec
	Retries          prometheus.Counter
	CacheLookups     *prometheus.CounterVec
	MergeJoins       *prometheus.CounterVec
	MergeFallbacks   prometheus.Counter
	PagesProduced    prometheus.Counter
	PipelineDuration *prometheus.HistogramVec

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ChunksCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_created_total",
			Help:      "Total number of chunks produced by the chunker",
		}),
		AICalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_calls_total",
			Help:      "Total number of generator calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		Retries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of retried generator calls",
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Chunk output cache lookups by result",
		}, []string{"result"}),
		MergeJoins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merge_joins_total",
			Help:      "Chunk joins by kind (matched, half_matched, separated)",
		}, []string{"kind"}),
		MergeFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merge_fallbacks_total",
			Help:      "Merges that fell back to sequential joining",
		}),
		PagesProduced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_produced_total",
			Help:      "Total number of pages produced by the paginator",
		}),
		PipelineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of a full haunting run",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"status"}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) RecordChunks(n int) {
	if m == nil {
		return
	}
	m.ChunksCreated.Add(float64(n))
}

func (m *Metrics) RecordAICall(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.AICalls.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}

func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordMerge(matched, halfMatched, separated int, fallback bool) {
	if m == nil {
		return
	}
	m.MergeJoins.WithLabelValues("matched").Add(float64(matched))
	m.MergeJoins.WithLabelValues("half_matched").Add(float64(halfMatched))
	m.MergeJoins.WithLabelValues("separated").Add(float64(separated))
	if fallback {
		m.MergeFallbacks.Inc()
	}
}

func (m *Metrics) RecordPages(n int) {
	if m == nil {
		return
	}
	m.PagesProduced.Add(float64(n))
}

func (m *Metrics) ObservePipeline(d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.PipelineDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
