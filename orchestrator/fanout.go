package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/rlm-go/agent"
	"github.com/haasonsaas/rlm-go/agent/prompt"
	"github.com/haasonsaas/rlm-go/core"
)

// subcallResult is one batch's outcome from the fan-out stage.
type subcallResult struct {
	findings []core.Finding
	usage    agent.TokenUsage
	elapsed  time.Duration
	err      error
}

// fanOut splits loaded into batchSize-sized slices (in their already
// temporally-sorted order) and runs one subcall agent per batch,
// concurrently, bounded by concurrency. Results are written into a
// pre-sized slice at each batch's own index, so no mutex is needed to
// collect them safely across goroutines.
func (o *Orchestrator) fanOut(ctx context.Context, query string, loaded []core.LoadedChunk, batchSize, concurrency int) []subcallResult {
	if batchSize < 1 {
		batchSize = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}

	batches := chunkBatches(loaded, batchSize)
	results := make([]subcallResult, len(batches))

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for idx, batch := range batches {
		idx, batch := idx, batch

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			results[idx] = subcallResult{err: ctx.Err()}
			continue
		}

		wg.Add(1)
		if o.metrics != nil {
			o.metrics.BatchStarted()
		}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if o.metrics != nil {
				defer o.metrics.BatchFinished()
			}
			results[idx] = o.runBatch(ctx, query, idx, batch)
		}()
	}

	wg.Wait()
	return results
}

func chunkBatches(loaded []core.LoadedChunk, batchSize int) [][]core.LoadedChunk {
	var batches [][]core.LoadedChunk
	for i := 0; i < len(loaded); i += batchSize {
		end := i + batchSize
		if end > len(loaded) {
			end = len(loaded)
		}
		batches = append(batches, loaded[i:end])
	}
	return batches
}

// runBatch runs one subcall agent over batch and parses its findings. The
// batch's chunk IDs are recorded in the error so a failed batch can be
// diagnosed without re-running the query.
func (o *Orchestrator) runBatch(ctx context.Context, query string, batchIndex int, batch []core.LoadedChunk) subcallResult {
	batchID := uuid.NewString()
	ctx, span := o.tracer.TraceBatch(ctx, batchID, batchIndex, len(batch))
	defer span.End()

	start := time.Now()

	chunkContexts := make([]prompt.ChunkContext, len(batch))
	for i, c := range batch {
		chunkContexts[i] = prompt.ChunkContext{
			ChunkID:  c.ChunkID,
			BufferID: c.BufferID,
			Index:    c.Index,
			Score:    c.Score,
			Content:  c.Content,
		}
	}

	subcall := agent.NewSubcallAgent(o.config, o.prompts.Subcall)
	userMsg := prompt.BuildSubcallPrompt(query, chunkContexts)

	response, err := agent.Execute(ctx, subcall, o.provider, userMsg)
	if err != nil {
		o.tracer.RecordError(span, err)
		return subcallResult{elapsed: time.Since(start), err: batchError(err, batch)}
	}

	findings, err := subcall.ParseFindings(response)
	if err != nil {
		o.tracer.RecordError(span, err)
		return subcallResult{elapsed: time.Since(start), err: batchError(err, batch)}
	}

	if o.metrics != nil {
		o.metrics.RecordTokens("subcall", response.Usage.PromptTokens, response.Usage.CompletionTokens)
	}

	return subcallResult{findings: findings, usage: response.Usage, elapsed: time.Since(start)}
}

func batchError(err error, batch []core.LoadedChunk) error {
	ids := make([]int64, len(batch))
	for i, c := range batch {
		ids[i] = c.ChunkID
	}
	return &batchErr{cause: err, chunkIDs: ids}
}

type batchErr struct {
	cause    error
	chunkIDs []int64
}

func (e *batchErr) Error() string {
	msg := e.cause.Error() + " (chunks: ["
	for i, id := range e.chunkIDs {
		if i > 0 {
			msg += ","
		}
		msg += itoa(int(id))
	}
	return msg + "])"
}

func (e *batchErr) Unwrap() error { return e.cause }
