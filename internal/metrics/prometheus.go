package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hr_assistant_query_duration_seconds",
			Help:    "Query resolution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"category"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hr_assistant_query_total",
			Help: "Total number of queries resolved",
		},
		[]string{"status"},
	)

	EscalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hr_assistant_escalations_total",
			Help: "Total escalations by reason",
		},
		[]string{"reason"},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hr_assistant_confidence_score",
			Help:    "Resolution confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	RetrievedFragments = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hr_assistant_retrieved_fragments",
			Help:    "Number of policy fragments retrieved per query",
			Buckets: []float64{0, 1, 2, 4, 6, 10},
		},
	)

	StageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hr_assistant_stage_failures_total",
			Help: "Pipeline stage failures absorbed into escalations",
		},
		[]string{"stage"},
	)

	SinkWriteRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hr_assistant_sink_write_retries_total",
			Help: "Analytics sink write attempts beyond the first",
		},
	)

	SinkWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hr_assistant_sink_write_failures_total",
			Help: "Analytics sink writes that exhausted retries",
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hr_assistant_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hr_assistant_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hr_assistant_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	DocumentsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hr_assistant_documents_processed_total",
			Help: "Total policy documents ingested",
		},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(EscalationsTotal)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(RetrievedFragments)
	prometheus.MustRegister(StageFailures)
	prometheus.MustRegister(SinkWriteRetries)
	prometheus.MustRegister(SinkWriteFailures)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(DocumentsProcessed)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
