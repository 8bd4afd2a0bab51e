package orchestrator

import (
	"context"

	"github.com/haasonsaas/rlm-go/agent"
	"github.com/haasonsaas/rlm-go/agent/prompt"
	"github.com/haasonsaas/rlm-go/core"
	"github.com/haasonsaas/rlm-go/tool"
)

// synthesize runs the tool-calling synthesizer agent over the aggregated,
// filtered findings and returns its final markdown response. The
// synthesizer may call back into storage/search via executor (e.g. to pull
// a chunk's full neighboring context) before producing its final answer.
func (o *Orchestrator) synthesize(ctx context.Context, query string, findings []core.Finding, executor *tool.Executor) (string, agent.TokenUsage, error) {
	synthesizer := agent.NewSynthesizerAgent(o.config, o.prompts.Synthesizer)
	userMsg := prompt.BuildSynthesizerPrompt(query, findings)

	response, err := agent.ExecuteWithTools(ctx, synthesizer, o.provider, userMsg, executor)
	if err != nil {
		return "", agent.TokenUsage{}, err
	}

	if o.metrics != nil {
		o.metrics.RecordTokens("synthesizer", response.Usage.PromptTokens, response.Usage.CompletionTokens)
	}

	return response.Content, response.Usage, nil
}
