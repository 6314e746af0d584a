package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creditexplain_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "creditexplain_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	PipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creditexplain_pipeline_runs_total",
		Help: "Total pipeline runs by terminal status",
	}, []string{"status"})

	PipelineRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "creditexplain_pipeline_run_duration_seconds",
		Help:    "End-to-end pipeline run duration",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	RetrievalCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "creditexplain_retrieval_candidates",
		Help:    "Number of passages returned by vector search",
		Buckets: []float64{0, 1, 5, 10, 25, 50},
	})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creditexplain_llm_requests_total",
		Help: "Total LLM requests",
	}, []string{"role", "status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "creditexplain_llm_request_duration_seconds",
		Help:    "LLM request duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"role"})

	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "creditexplain_circuit_breaker_state",
		Help: "Circuit breaker state per collaborator (0=closed, 1=open, 2=half-open)",
	}, []string{"breaker"})

	DocumentsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creditexplain_documents_ingested_total",
		Help: "Total documents ingested into the index",
	})

	ChunksIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creditexplain_chunks_indexed_total",
		Help: "Total chunks written to the vector index",
	})

	PIIRedactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creditexplain_pii_redactions_total",
		Help: "Total PII redactions by class",
	}, []string{"class"})

	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creditexplain_audit_write_failures_total",
		Help: "Audit records that could not be persisted",
	})
)
