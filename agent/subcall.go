package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/rlm-go/config"
	"github.com/haasonsaas/rlm-go/core"
	"github.com/haasonsaas/rlm-go/rlmerr"
)

// Limits applied to a subcall agent's parsed findings before they enter the
// aggregation stage, bounding how much a single misbehaving batch can cost
// downstream (the synthesizer prompt, in particular).
const (
	maxFindingsPerBatch = 200
	maxFindingTextLen   = 5_000
	maxFollowUps        = 10
)

// SubcallAgent analyzes one batch of chunks against the query and extracts
// structured findings. The orchestrator fans out many of these concurrently,
// one per batch.
type SubcallAgent struct {
	model        string
	maxTokens    int
	systemPrompt string
}

// NewSubcallAgent builds a SubcallAgent from cfg's subcall-model settings.
func NewSubcallAgent(cfg *config.AgentConfig, systemPrompt string) *SubcallAgent {
	return &SubcallAgent{
		model:        cfg.SubcallModel,
		maxTokens:    cfg.SubcallMaxTokens,
		systemPrompt: systemPrompt,
	}
}

var _ Agent = (*SubcallAgent)(nil)

func (a *SubcallAgent) Name() string            { return "subcall" }
func (a *SubcallAgent) Model() string           { return a.model }
func (a *SubcallAgent) SystemPrompt() string    { return a.systemPrompt }
func (a *SubcallAgent) JSONMode() bool          { return true }
func (a *SubcallAgent) Temperature() float32    { return 0.0 }
func (a *SubcallAgent) MaxTokens() int          { return a.maxTokens }
func (a *SubcallAgent) Tools() []ToolDefinition { return nil }
func (a *SubcallAgent) MaxToolIterations() int  { return 0 }

// ParseFindings parses response's content into findings and applies the
// sanitize limits. When the response was truncated (FinishReason ==
// "length"), a parse failure is reported with a hint to raise
// subcall-max-tokens or lower the batch size rather than the raw parse
// error, since truncation is almost always the real cause.
func (a *SubcallAgent) ParseFindings(response *AgentResponse) ([]core.Finding, error) {
	findings, err := parseFindings(response.Content)
	if err != nil {
		if response.FinishReason == "length" {
			return nil, rlmerr.ResponseParse(
				fmt.Sprintf("response truncated (finish_reason=length, max_tokens=%d); consider increasing the subcall token budget or reducing the batch size", a.maxTokens),
				response.Content,
			)
		}
		return nil, err
	}
	return sanitizeFindings(findings), nil
}

func parseFindings(content string) ([]core.Finding, error) {
	trimmed := strings.TrimSpace(content)

	jsonStr := trimmed
	if inner, ok := stripTag(trimmed, "<findings>", "</findings>"); ok {
		jsonStr = strings.TrimSpace(inner)
	} else {
		jsonStr = stripCodeFence(trimmed)
	}

	var findings []core.Finding
	arrayErr := json.Unmarshal([]byte(jsonStr), &findings)
	if arrayErr == nil {
		return findings, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &wrapper); err == nil {
		if raw, ok := wrapper["findings"]; ok {
			var wrapped []core.Finding
			if err := json.Unmarshal(raw, &wrapped); err == nil {
				return wrapped, nil
			}
		}
	}

	var single core.Finding
	if err := json.Unmarshal([]byte(jsonStr), &single); err == nil {
		return []core.Finding{single}, nil
	}

	preview := jsonStr
	if len(preview) > 200 {
		preview = preview[:200]
	}
	message := fmt.Sprintf("failed to parse findings JSON: %v (response length %d bytes, preview: %q)", arrayErr, len(jsonStr), preview)
	return nil, rlmerr.ResponseParse(message, content)
}

// stripTag strips a matching prefix/suffix pair, reporting whether both were
// present.
func stripTag(s, prefix, suffix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, suffix) {
		return "", false
	}
	return s[len(prefix) : len(s)-len(suffix)], true
}

func sanitizeFindings(findings []core.Finding) []core.Finding {
	if len(findings) > maxFindingsPerBatch {
		findings = findings[:maxFindingsPerBatch]
	}
	for i := range findings {
		f := &findings[i]
		for j, text := range f.Findings {
			f.Findings[j] = truncateText(text)
		}
		f.Summary = truncateText(f.Summary)
		if len(f.FollowUp) > maxFollowUps {
			f.FollowUp = f.FollowUp[:maxFollowUps]
		}
		for j, text := range f.FollowUp {
			f.FollowUp[j] = truncateText(text)
		}
	}
	return findings
}

func truncateText(s string) string {
	if len(s) <= maxFindingTextLen {
		return s
	}
	return s[:maxFindingTextLen]
}
