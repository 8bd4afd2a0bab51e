package agent

import (
	"encoding/json"
	"strings"

	"github.com/haasonsaas/rlm-go/config"
	"github.com/haasonsaas/rlm-go/core"
	"github.com/haasonsaas/rlm-go/rlmerr"
)

// PrimaryAgent plans the analysis strategy for a query: search mode, batch
// size, relevance threshold, and focus areas, derived from the query and
// buffer metadata alone (it never sees chunk content).
type PrimaryAgent struct {
	model        string
	maxTokens    int
	systemPrompt string
}

// NewPrimaryAgent builds a PrimaryAgent from cfg's primary-model settings.
func NewPrimaryAgent(cfg *config.AgentConfig, systemPrompt string) *PrimaryAgent {
	return &PrimaryAgent{
		model:        cfg.PrimaryModel,
		maxTokens:    cfg.PrimaryMaxTokens,
		systemPrompt: systemPrompt,
	}
}

var _ Agent = (*PrimaryAgent)(nil)

func (a *PrimaryAgent) Name() string            { return "primary" }
func (a *PrimaryAgent) Model() string           { return a.model }
func (a *PrimaryAgent) SystemPrompt() string    { return a.systemPrompt }
func (a *PrimaryAgent) JSONMode() bool          { return true }
func (a *PrimaryAgent) Temperature() float32    { return 0.0 }
func (a *PrimaryAgent) MaxTokens() int          { return a.maxTokens }
func (a *PrimaryAgent) Tools() []ToolDefinition { return nil }
func (a *PrimaryAgent) MaxToolIterations() int  { return 0 }

// Plan executes the agent and parses its response into an AnalysisPlan. When
// lenient is true, a malformed response falls back to
// core.DefaultAnalysisPlan instead of returning an error — the orchestrator
// passes true so a flaky planner never blocks the rest of the pipeline.
func (a *PrimaryAgent) Plan(response *AgentResponse, lenient bool) (core.AnalysisPlan, error) {
	plan, err := parsePlan(response.Content)
	if err != nil {
		if lenient {
			return core.DefaultAnalysisPlan(), nil
		}
		return core.AnalysisPlan{}, err
	}
	return plan, nil
}

func parsePlan(content string) (core.AnalysisPlan, error) {
	jsonStr := stripCodeFence(content)

	var plan core.AnalysisPlan
	if err := json.Unmarshal([]byte(jsonStr), &plan); err != nil {
		return core.AnalysisPlan{}, rlmerr.ResponseParse("failed to parse analysis plan: "+err.Error(), content)
	}
	return plan, nil
}

// stripCodeFence removes a surrounding ```json ... ``` or ``` ... ``` fence,
// returning the trimmed interior. Content without a fence is returned
// trimmed and otherwise unchanged.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
