// Package telemetry wraps OpenTelemetry tracing for the query pipeline: one
// root span per Query call, child spans per stage (plan, search, batch,
// synthesis), exported via OTLP/gRPC when an endpoint is configured.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the pipeline's tracer.
type Config struct {
	// ServiceName identifies this process in exported spans. Defaults to
	// "rlm-go".
	ServiceName string

	// ServiceVersion tags every span with the running binary's version.
	ServiceVersion string

	// Endpoint is the OTLP/gRPC collector address (e.g. "localhost:4317").
	// If empty, tracing is a no-op: spans are created but never exported.
	Endpoint string

	// SamplingRate is the fraction of traces recorded, in [0,1]. Defaults
	// to 1.0 (all traces).
	SamplingRate float64

	// EnableInsecure disables TLS for the OTLP connection. Dev/test only.
	EnableInsecure bool
}

// Tracer creates and ends spans for the pipeline's stages. The zero value is
// not usable; construct with NewTracer.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracer builds a Tracer from cfg and returns a shutdown function that
// must be called on process exit (a no-op when cfg.Endpoint is empty).
func NewTracer(cfg Config) (*Tracer, func(context.Context) error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "rlm-go"
	}

	if cfg.Endpoint == "" {
		return &Tracer{tracer: otel.Tracer(cfg.ServiceName)}, func(context.Context) error { return nil }
	}

	if cfg.SamplingRate == 0 {
		cfg.SamplingRate = 1.0
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.EnableInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(opts...))
	if err != nil {
		return &Tracer{tracer: otel.Tracer(cfg.ServiceName)}, func(context.Context) error { return nil }
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		res = resource.Default()
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SamplingRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)

	t := &Tracer{provider: provider, tracer: provider.Tracer(cfg.ServiceName)}
	return t, provider.Shutdown
}

// Start opens a span named name as a child of ctx's current span.
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError marks span as failed with err, a no-op if err is nil.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceQuery opens the root span for one Query call.
func (t *Tracer) TraceQuery(ctx context.Context, queryID string) (context.Context, trace.Span) {
	return t.Start(ctx, "rlm.query", attribute.String("query.id", queryID))
}

// TracePlan opens a span for the primary agent's planning call.
func (t *Tracer) TracePlan(ctx context.Context) (context.Context, trace.Span) {
	return t.Start(ctx, "rlm.plan")
}

// TraceSearch opens a span for one search attempt in the fallback chain.
func (t *Tracer) TraceSearch(ctx context.Context, mode string) (context.Context, trace.Span) {
	return t.Start(ctx, fmt.Sprintf("rlm.search.%s", mode), attribute.String("search.mode", mode))
}

// TraceBatch opens a span for one subcall batch's fan-out execution.
func (t *Tracer) TraceBatch(ctx context.Context, batchID string, batchIndex, chunkCount int) (context.Context, trace.Span) {
	return t.Start(ctx, "rlm.batch",
		attribute.String("batch.id", batchID),
		attribute.Int("batch.index", batchIndex),
		attribute.Int("batch.chunk_count", chunkCount),
	)
}

// TraceSynthesis opens a span for the synthesizer's tool-calling loop.
func (t *Tracer) TraceSynthesis(ctx context.Context, findingCount int) (context.Context, trace.Span) {
	return t.Start(ctx, "rlm.synthesize", attribute.Int("synthesis.finding_count", findingCount))
}
