package orchestrator

import (
	"context"

	"github.com/haasonsaas/rlm-go/agent"
	"github.com/haasonsaas/rlm-go/agent/prompt"
	"github.com/haasonsaas/rlm-go/core"
	"github.com/haasonsaas/rlm-go/scaling"
	"github.com/haasonsaas/rlm-go/storage"
)

// resolvePlan runs the primary agent to produce an AnalysisPlan, unless
// overrides.SkipPlan is set (saving one LLM round-trip when every
// parameter the plan would supply is already pinned by the caller), in
// which case it returns core.DefaultAnalysisPlan directly. A planner whose
// response fails to parse falls back to the default plan rather than
// failing the query — losing the plan's recommendations is not fatal since
// every parameter it supplies has a further fallback in the resolution
// chain.
func (o *Orchestrator) resolvePlan(ctx context.Context, st storage.Storage, query, bufferName string, overrides *CliOverrides) (core.AnalysisPlan, error) {
	if overrides.SkipPlan {
		return core.DefaultAnalysisPlan(), nil
	}

	ctx, span := o.tracer.TracePlan(ctx)
	defer span.End()

	chunkCount, bufferSize, contentType := o.bufferMetadata(ctx, st, bufferName)

	primary := agent.NewPrimaryAgent(o.config, o.prompts.Primary)
	userMsg := prompt.BuildPrimaryPrompt(query, chunkCount, contentType, bufferSize)

	response, err := agent.Execute(ctx, primary, o.provider, userMsg)
	if err != nil {
		o.tracer.RecordError(span, err)
		return core.DefaultAnalysisPlan(), nil
	}

	plan, err := primary.Plan(response, true)
	if err != nil {
		return core.DefaultAnalysisPlan(), nil
	}
	return plan, nil
}

// bufferMetadata looks up chunk count, byte size, and content type for
// bufferName. An empty bufferName (query-all-buffers mode) falls back to
// storage-wide totals from Stats.
func (o *Orchestrator) bufferMetadata(ctx context.Context, st storage.Storage, bufferName string) (chunkCount, bufferSize int, contentType string) {
	if bufferName != "" {
		buf, err := st.GetBufferByName(ctx, bufferName)
		if err == nil && buf != nil {
			return buf.Metadata.ChunkCount, buf.Metadata.Size, buf.Metadata.ContentType
		}
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		return 0, 0, ""
	}
	return int(stats.ChunkCount), int(stats.TotalContentBytes), ""
}

// buildDatasetProfile builds the DatasetProfile scaling.Compute consumes,
// scoped to bufferName when given, otherwise storage-wide.
func (o *Orchestrator) buildDatasetProfile(ctx context.Context, st storage.Storage, bufferName string) scaling.DatasetProfile {
	chunkCount, bufferSize, _ := o.bufferMetadata(ctx, st, bufferName)
	return scaling.DatasetProfile{ChunkCount: chunkCount, TotalBytes: bufferSize}
}
