// Package metrics exposes the pipeline's Prometheus collectors: one query
// counter/duration pair, one pair per fan-out batch, tool call counts, token
// usage, and search-fallback attempts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the pipeline exposes. Construct once per
// process with NewMetrics and share the pointer. The orchestrator records
// against it; tool.Executor does not, so ToolCallCounter and
// ToolCallDuration change only through direct RecordToolCall calls.
type Metrics struct {
	// QueryCounter counts completed queries by scaling tier and outcome.
	// Labels: tier (tiny|small|medium|large|xlarge), outcome (success|error)
	QueryCounter *prometheus.CounterVec

	// QueryDuration measures end-to-end Query() latency in seconds.
	// Labels: tier
	QueryDuration *prometheus.HistogramVec

	// BatchCounter counts subcall batches by outcome.
	// Labels: outcome (success|error)
	BatchCounter *prometheus.CounterVec

	// BatchDuration measures a single subcall batch's latency in seconds.
	BatchDuration prometheus.Histogram

	// ToolCallCounter counts tool invocations by tool name and outcome.
	// Labels: tool_name, status (success|error)
	ToolCallCounter *prometheus.CounterVec

	// ToolCallDuration measures tool execution latency in seconds.
	// Labels: tool_name
	ToolCallDuration *prometheus.HistogramVec

	// TokensUsed tracks token consumption by agent role and token type.
	// Labels: role (primary|subcall|synthesizer), type (prompt|completion)
	TokensUsed *prometheus.CounterVec

	// SearchFallbackCounter counts search-with-fallback attempts.
	// Labels: mode (hybrid|semantic|bm25), result (hit|empty)
	SearchFallbackCounter *prometheus.CounterVec

	// FindingsCounter tracks findings emitted and retained after filtering.
	// Labels: stage (emitted|retained)
	FindingsCounter *prometheus.CounterVec

	// ActiveBatches is a gauge of in-flight subcall batches.
	ActiveBatches prometheus.Gauge
}

// NewMetrics creates and registers every collector with Prometheus's default
// registry. Call once at process startup.
func NewMetrics() *Metrics {
	return &Metrics{
		QueryCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rlm_queries_total",
				Help: "Total number of queries processed by scaling tier and outcome",
			},
			[]string{"tier", "outcome"},
		),

		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rlm_query_duration_seconds",
				Help:    "End-to-end query duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"tier"},
		),

		BatchCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rlm_batches_total",
				Help: "Total number of subcall batches processed by outcome",
			},
			[]string{"outcome"},
		),

		BatchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rlm_batch_duration_seconds",
				Help:    "Duration of a single subcall batch in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
		),

		ToolCallCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rlm_tool_calls_total",
				Help: "Total number of tool calls by tool name and status",
			},
			[]string{"tool_name", "status"},
		),

		ToolCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rlm_tool_call_duration_seconds",
				Help:    "Duration of tool calls in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"tool_name"},
		),

		TokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rlm_tokens_total",
				Help: "Total number of tokens used by agent role and token type",
			},
			[]string{"role", "type"},
		),

		SearchFallbackCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rlm_search_attempts_total",
				Help: "Total number of search-with-fallback attempts by mode and result",
			},
			[]string{"mode", "result"},
		),

		FindingsCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rlm_findings_total",
				Help: "Total number of findings by stage (emitted before filtering, retained after)",
			},
			[]string{"stage"},
		),

		ActiveBatches: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rlm_active_batches",
				Help: "Current number of in-flight subcall batches",
			},
		),
	}
}

// RecordQuery records a completed query's tier, outcome, and duration.
func (m *Metrics) RecordQuery(tier, outcome string, durationSeconds float64) {
	m.QueryCounter.WithLabelValues(tier, outcome).Inc()
	m.QueryDuration.WithLabelValues(tier).Observe(durationSeconds)
}

// RecordBatch records a single subcall batch's outcome and duration.
func (m *Metrics) RecordBatch(outcome string, durationSeconds float64) {
	m.BatchCounter.WithLabelValues(outcome).Inc()
	m.BatchDuration.Observe(durationSeconds)
}

// RecordToolCall records a tool invocation's status and duration.
func (m *Metrics) RecordToolCall(toolName, status string, durationSeconds float64) {
	m.ToolCallCounter.WithLabelValues(toolName, status).Inc()
	m.ToolCallDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordTokens records prompt and completion token counts for an agent role.
func (m *Metrics) RecordTokens(role string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		m.TokensUsed.WithLabelValues(role, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.TokensUsed.WithLabelValues(role, "completion").Add(float64(completionTokens))
	}
}

// RecordSearchAttempt records one mode in the search-with-fallback chain.
func (m *Metrics) RecordSearchAttempt(mode string, hit bool) {
	result := "empty"
	if hit {
		result = "hit"
	}
	m.SearchFallbackCounter.WithLabelValues(mode, result).Inc()
}

// RecordFindings records the finding counts before and after relevance
// filtering for one query.
func (m *Metrics) RecordFindings(emitted, retained int) {
	m.FindingsCounter.WithLabelValues("emitted").Add(float64(emitted))
	m.FindingsCounter.WithLabelValues("retained").Add(float64(retained))
}

// BatchStarted increments the in-flight batch gauge.
func (m *Metrics) BatchStarted() { m.ActiveBatches.Inc() }

// BatchFinished decrements the in-flight batch gauge.
func (m *Metrics) BatchFinished() { m.ActiveBatches.Dec() }
