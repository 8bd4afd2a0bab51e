package orchestrator

import (
	"testing"

	"github.com/haasonsaas/rlm-go/core"
	"github.com/haasonsaas/rlm-go/scaling"
	"github.com/haasonsaas/rlm-go/search"
)

func intPtr(v int) *int                  { return &v }
func floatPtr(v float64) *float64        { return &v }
func modePtr(v search.Mode) *search.Mode { return &v }

func TestResolveSearchModeCLIWins(t *testing.T) {
	overrides := &CliOverrides{SearchMode: modePtr(search.ModeBM25)}
	plan := core.AnalysisPlan{SearchMode: "semantic"}
	if got := resolveSearchMode(overrides, plan); got != search.ModeBM25 {
		t.Errorf("expected CLI override to win, got %q", got)
	}
}

func TestResolveSearchModeFallsBackToPlan(t *testing.T) {
	overrides := &CliOverrides{}
	plan := core.AnalysisPlan{SearchMode: "semantic"}
	if got := resolveSearchMode(overrides, plan); got != search.ModeSemantic {
		t.Errorf("expected plan mode, got %q", got)
	}
}

func TestResolveSearchModeDefaultsToHybrid(t *testing.T) {
	overrides := &CliOverrides{}
	plan := core.AnalysisPlan{}
	if got := resolveSearchMode(overrides, plan); got != search.ModeHybrid {
		t.Errorf("expected hybrid default, got %q", got)
	}
}

func TestResolveThresholdChain(t *testing.T) {
	planThreshold := float32(0.5)
	plan := core.AnalysisPlan{Threshold: &planThreshold}

	if got := resolveThreshold(&CliOverrides{Threshold: floatPtr(0.9)}, plan); got != 0.9 {
		t.Errorf("expected CLI override 0.9, got %v", got)
	}
	if got := resolveThreshold(&CliOverrides{}, plan); got != 0.5 {
		t.Errorf("expected plan threshold 0.5, got %v", got)
	}
	if got := resolveThreshold(&CliOverrides{}, core.AnalysisPlan{}); got != 0.3 {
		t.Errorf("expected default 0.3, got %v", got)
	}
}

func TestResolveMaxChunksChain(t *testing.T) {
	plan := core.AnalysisPlan{MaxChunks: intPtr(50)}
	scale := scaling.Profile{MaxChunks: intPtr(200)}

	if got := resolveMaxChunks(&CliOverrides{MaxChunks: intPtr(10)}, plan, scale); got != 10 {
		t.Errorf("expected CLI override 10, got %d", got)
	}
	if got := resolveMaxChunks(&CliOverrides{}, plan, scale); got != 50 {
		t.Errorf("expected plan value 50, got %d", got)
	}
	if got := resolveMaxChunks(&CliOverrides{}, core.AnalysisPlan{}, scale); got != 200 {
		t.Errorf("expected scaling value 200, got %d", got)
	}
	if got := resolveMaxChunks(&CliOverrides{}, core.AnalysisPlan{}, scaling.Profile{}); got != 0 {
		t.Errorf("expected unlimited (0), got %d", got)
	}
}

func TestResolveTopKChain(t *testing.T) {
	plan := core.AnalysisPlan{TopK: intPtr(150)}
	scale := scaling.Profile{TopK: intPtr(300)}

	if got := resolveTopK(&CliOverrides{TopK: intPtr(5)}, plan, scale, 999); got != 5 {
		t.Errorf("expected CLI override 5, got %d", got)
	}
	if got := resolveTopK(&CliOverrides{}, plan, scale, 999); got != 150 {
		t.Errorf("expected plan value 150, got %d", got)
	}
	if got := resolveTopK(&CliOverrides{}, core.AnalysisPlan{}, scale, 999); got != 300 {
		t.Errorf("expected scaling value 300, got %d", got)
	}
	if got := resolveTopK(&CliOverrides{}, core.AnalysisPlan{}, scaling.Profile{}, 999); got != 999 {
		t.Errorf("expected config default 999, got %d", got)
	}
}

func TestResolveBatchSizeNumAgentsOverridesBatchSize(t *testing.T) {
	overrides := &CliOverrides{NumAgents: intPtr(4), BatchSize: intPtr(99)}
	got := resolveBatchSize(overrides, core.AnalysisPlan{}, scaling.Profile{}, 10, 40)
	if got != 10 {
		t.Errorf("expected ceil(40/4)=10, got %d", got)
	}
}

func TestResolveBatchSizeNumAgentsRoundsUp(t *testing.T) {
	overrides := &CliOverrides{NumAgents: intPtr(3)}
	got := resolveBatchSize(overrides, core.AnalysisPlan{}, scaling.Profile{}, 10, 10)
	if got != 4 {
		t.Errorf("expected ceil(10/3)=4, got %d", got)
	}
}

func TestResolveBatchSizeChain(t *testing.T) {
	plan := core.AnalysisPlan{BatchSize: intPtr(7)}
	scale := scaling.Profile{BatchSize: intPtr(20)}

	if got := resolveBatchSize(&CliOverrides{BatchSize: intPtr(3)}, plan, scale, 10, 100); got != 3 {
		t.Errorf("expected CLI override 3, got %d", got)
	}
	if got := resolveBatchSize(&CliOverrides{}, plan, scale, 10, 100); got != 7 {
		t.Errorf("expected plan value 7, got %d", got)
	}
	if got := resolveBatchSize(&CliOverrides{}, core.AnalysisPlan{}, scale, 10, 100); got != 20 {
		t.Errorf("expected scaling value 20, got %d", got)
	}
	if got := resolveBatchSize(&CliOverrides{}, core.AnalysisPlan{}, scaling.Profile{}, 10, 100); got != 10 {
		t.Errorf("expected config default 10, got %d", got)
	}
	if got := resolveBatchSize(&CliOverrides{}, core.AnalysisPlan{}, scaling.Profile{}, 0, 33); got != 33 {
		t.Errorf("expected everything-in-one-batch fallback 33, got %d", got)
	}
}
