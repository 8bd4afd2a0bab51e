package agent

import (
	"testing"

	"github.com/haasonsaas/rlm-go/config"
)

func TestSynthesizerAgentProperties(t *testing.T) {
	cfg, err := config.NewBuilder().
		APIKey("test").
		SynthesizerModel("gpt-4o").
		SynthesizerMaxTokens(8192).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	a := NewSynthesizerAgent(cfg, "system prompt")
	if a.Name() != "synthesizer" {
		t.Errorf("expected name synthesizer, got %q", a.Name())
	}
	if a.Model() != "gpt-4o" {
		t.Errorf("unexpected model %q", a.Model())
	}
	if a.JSONMode() {
		t.Error("expected JSON mode disabled")
	}
	if a.MaxTokens() != 8192 {
		t.Errorf("expected max tokens 8192, got %d", a.MaxTokens())
	}
}

func TestSynthesizerAgentHasSixTools(t *testing.T) {
	cfg, _ := config.NewBuilder().APIKey("test").Build()
	a := NewSynthesizerAgent(cfg, "system prompt")

	tools := a.Tools()
	if len(tools) != 6 {
		t.Fatalf("expected 6 tools, got %d", len(tools))
	}

	names := make(map[string]bool, len(tools))
	for _, tool := range tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"get_chunks", "search", "grep_chunks", "get_buffer", "list_buffers", "storage_stats"} {
		if !names[want] {
			t.Errorf("expected tool %q to be present", want)
		}
	}
}

func TestSynthesizerAgentMaxToolIterations(t *testing.T) {
	cfg, err := config.NewBuilder().APIKey("test").MaxToolIterations(5).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	a := NewSynthesizerAgent(cfg, "test")
	if a.MaxToolIterations() != 5 {
		t.Errorf("expected max tool iterations 5, got %d", a.MaxToolIterations())
	}
}
