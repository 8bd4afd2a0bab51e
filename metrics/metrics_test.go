package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// newTestMetrics builds a Metrics instance against a private registry so
// tests don't collide with other packages registering against the default
// registry in the same test binary.
func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	reg := prometheus.NewRegistry()

	m := &Metrics{
		QueryCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rlm_queries_total", Help: "test"},
			[]string{"tier", "outcome"},
		),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "rlm_query_duration_seconds", Help: "test"},
			[]string{"tier"},
		),
		BatchCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rlm_batches_total", Help: "test"},
			[]string{"outcome"},
		),
		BatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{Name: "rlm_batch_duration_seconds", Help: "test"},
		),
		ToolCallCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rlm_tool_calls_total", Help: "test"},
			[]string{"tool_name", "status"},
		),
		ToolCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "rlm_tool_call_duration_seconds", Help: "test"},
			[]string{"tool_name"},
		),
		TokensUsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rlm_tokens_total", Help: "test"},
			[]string{"role", "type"},
		),
		SearchFallbackCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rlm_search_attempts_total", Help: "test"},
			[]string{"mode", "result"},
		),
		FindingsCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "rlm_findings_total", Help: "test"},
			[]string{"stage"},
		),
		ActiveBatches: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "rlm_active_batches", Help: "test"},
		),
	}

	reg.MustRegister(
		m.QueryCounter, m.QueryDuration, m.BatchCounter, m.BatchDuration,
		m.ToolCallCounter, m.ToolCallDuration, m.TokensUsed,
		m.SearchFallbackCounter, m.FindingsCounter, m.ActiveBatches,
	)
	return m
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return metric.GetGauge().GetValue()
}

func TestRecordQuery(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordQuery("medium", "success", 12.5)

	got := counterValue(t, m.QueryCounter.WithLabelValues("medium", "success"))
	if got != 1 {
		t.Errorf("expected query counter 1, got %v", got)
	}
}

func TestRecordBatch(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordBatch("success", 2.0)
	m.RecordBatch("error", 1.0)

	if got := counterValue(t, m.BatchCounter.WithLabelValues("success")); got != 1 {
		t.Errorf("expected success batch counter 1, got %v", got)
	}
	if got := counterValue(t, m.BatchCounter.WithLabelValues("error")); got != 1 {
		t.Errorf("expected error batch counter 1, got %v", got)
	}
}

func TestRecordTokens(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordTokens("subcall", 100, 50)
	m.RecordTokens("subcall", 0, 0)

	if got := counterValue(t, m.TokensUsed.WithLabelValues("subcall", "prompt")); got != 100 {
		t.Errorf("expected prompt tokens 100, got %v", got)
	}
	if got := counterValue(t, m.TokensUsed.WithLabelValues("subcall", "completion")); got != 50 {
		t.Errorf("expected completion tokens 50, got %v", got)
	}
}

func TestRecordSearchAttempt(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordSearchAttempt("hybrid", true)
	m.RecordSearchAttempt("bm25", false)

	if got := counterValue(t, m.SearchFallbackCounter.WithLabelValues("hybrid", "hit")); got != 1 {
		t.Errorf("expected hit counter 1, got %v", got)
	}
	if got := counterValue(t, m.SearchFallbackCounter.WithLabelValues("bm25", "empty")); got != 1 {
		t.Errorf("expected empty counter 1, got %v", got)
	}
}

func TestRecordFindings(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordFindings(10, 4)

	if got := counterValue(t, m.FindingsCounter.WithLabelValues("emitted")); got != 10 {
		t.Errorf("expected emitted 10, got %v", got)
	}
	if got := counterValue(t, m.FindingsCounter.WithLabelValues("retained")); got != 4 {
		t.Errorf("expected retained 4, got %v", got)
	}
}

func TestActiveBatchesGauge(t *testing.T) {
	m := newTestMetrics(t)
	m.BatchStarted()
	m.BatchStarted()
	m.BatchFinished()

	if got := gaugeValue(t, m.ActiveBatches); got != 1 {
		t.Errorf("expected active batches 1, got %v", got)
	}
}
