package telemetry

import (
	"context"
	"errors"
	"testing"
)

func TestNewTracerNoopWithoutEndpoint(t *testing.T) {
	tracer, shutdown := NewTracer(Config{ServiceName: "rlm-go-test"})
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	}()

	ctx, span := tracer.TraceQuery(context.Background(), "query-1")
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	span.End()
}

func TestTraceHelpersDoNotPanic(t *testing.T) {
	tracer, shutdown := NewTracer(Config{})
	defer shutdown(context.Background())

	_, planSpan := tracer.TracePlan(context.Background())
	planSpan.End()

	_, searchSpan := tracer.TraceSearch(context.Background(), "hybrid")
	searchSpan.End()

	_, batchSpan := tracer.TraceBatch(context.Background(), "batch-1", 0, 10)
	batchSpan.End()

	_, synthSpan := tracer.TraceSynthesis(context.Background(), 5)
	tracer.RecordError(synthSpan, errors.New("boom"))
	synthSpan.End()
}
