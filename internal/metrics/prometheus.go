package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FilesIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_agent_files_ingested_total",
			Help: "Files seen during ingestion, by outcome",
		},
		[]string{"status"},
	)

	ChunksIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "support_agent_chunks_ingested_total",
			Help: "Total chunks written to the vector index",
		},
	)

	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "support_agent_query_duration_seconds",
			Help:    "End-to-end answer latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_agent_query_total",
			Help: "Total questions answered, by outcome",
		},
		[]string{"status"},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "support_agent_confidence_score",
			Help:    "Retrieval-derived confidence per answer",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	Escalations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "support_agent_escalations_total",
			Help: "Answers flagged for human review",
		},
	)

	RetrievedChunks = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "support_agent_retrieved_chunks",
			Help:    "Number of chunks retrieved per query",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_agent_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_agent_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(FilesIngested)
	prometheus.MustRegister(ChunksIngested)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(Escalations)
	prometheus.MustRegister(RetrievedChunks)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
