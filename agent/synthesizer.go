package agent

import "github.com/haasonsaas/rlm-go/config"

// SynthesizerAgent aggregates findings from all subcall agents into a final
// markdown response. Unlike the primary and subcall agents it has
// tool-calling access to the fixed six-tool vocabulary so it can verify or
// deepen its analysis against storage before answering.
type SynthesizerAgent struct {
	model             string
	maxTokens         int
	maxToolIterations int
	systemPrompt      string
}

// NewSynthesizerAgent builds a SynthesizerAgent from cfg's synthesizer-model
// settings.
func NewSynthesizerAgent(cfg *config.AgentConfig, systemPrompt string) *SynthesizerAgent {
	return &SynthesizerAgent{
		model:             cfg.SynthesizerModel,
		maxTokens:         cfg.SynthesizerMaxTokens,
		maxToolIterations: cfg.MaxToolIterations,
		systemPrompt:      systemPrompt,
	}
}

var _ Agent = (*SynthesizerAgent)(nil)

func (a *SynthesizerAgent) Name() string         { return "synthesizer" }
func (a *SynthesizerAgent) Model() string        { return a.model }
func (a *SynthesizerAgent) SystemPrompt() string { return a.systemPrompt }
func (a *SynthesizerAgent) JSONMode() bool       { return false }
func (a *SynthesizerAgent) Temperature() float32 { return 0.1 }
func (a *SynthesizerAgent) MaxTokens() int       { return a.maxTokens }

func (a *SynthesizerAgent) Tools() []ToolDefinition {
	return SynthesizerTools().Definitions()
}

func (a *SynthesizerAgent) MaxToolIterations() int { return a.maxToolIterations }
