package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval and chat Prometheus metrics.
var (
	DocumentsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docdex",
			Name:      "documents_stored",
			Help:      "Number of document chunks in the store",
		},
	)

	IndexTerms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docdex",
			Name:      "index_terms",
			Help:      "Number of distinct terms in the inverted index",
		},
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docdex",
			Name:      "search_duration_seconds",
			Help:      "Retrieval query duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "searches_total",
			Help:      "Total retrieval queries",
		},
		[]string{"outcome"}, // "hit" / "empty"
	)

	ChunksIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "chunks_ingested_total",
			Help:      "Total text chunks added to the store",
		},
	)

	FilesIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "files_ingested_total",
			Help:      "Total files handled by ingestion",
		},
		[]string{"status"}, // "processed" / "skipped" / "failed"
	)

	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "chat_requests_total",
			Help:      "Total chat completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	ChatRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docdex",
			Name:      "chat_request_duration_seconds",
			Help:      "Chat completion request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	ChatTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "chat_tokens_total",
			Help:      "Total chat completion tokens consumed",
		},
		[]string{"provider", "model", "type"}, // type: "prompt" / "completion" / "total"
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval and chat metrics. Must be
// called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(DocumentsStored)
	prometheus.MustRegister(IndexTerms)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(ChunksIngestedTotal)
	prometheus.MustRegister(FilesIngestedTotal)
	prometheus.MustRegister(ChatRequestsTotal)
	prometheus.MustRegister(ChatRequestDuration)
	prometheus.MustRegister(ChatTokensTotal)
	retrievalMetricsRegistered = true
}
