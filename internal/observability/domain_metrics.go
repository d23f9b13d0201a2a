package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlchat_turns_total",
			Help: "Total number of chat turns by terminal outcome.",
		},
		[]string{"outcome"},
	)
	llmCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlchat_llm_call_duration_seconds",
			Help:    "Latency of text-generation calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "purpose", "status"},
	)
	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlchat_query_duration_seconds",
			Help:    "Latency of statement execution by result kind.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"kind"},
	)
	presentationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlchat_presentation_total",
			Help: "Total number of presentation decisions.",
		},
		[]string{"decision"},
	)
	archiveWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlchat_archive_writes_total",
			Help: "Total number of turn archive writes by status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		turnsTotal,
		llmCallDurationSeconds,
		queryDurationSeconds,
		presentationTotal,
		archiveWritesTotal,
	)
}

func ObserveTurn(outcome string) {
	turnsTotal.WithLabelValues(outcome).Inc()
}

func ObserveLLMCall(provider, purpose, status string, elapsed time.Duration) {
	llmCallDurationSeconds.WithLabelValues(provider, purpose, status).Observe(elapsed.Seconds())
}

func ObserveQuery(kind string, elapsed time.Duration) {
	queryDurationSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func ObservePresentation(decision string) {
	presentationTotal.WithLabelValues(decision).Inc()
}

func ObserveArchiveWrite(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	archiveWritesTotal.WithLabelValues(status).Inc()
}
