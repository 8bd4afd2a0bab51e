package orchestrator

import (
	"github.com/haasonsaas/rlm-go/core"
	"github.com/haasonsaas/rlm-go/scaling"
	"github.com/haasonsaas/rlm-go/search"
)

// resolveSearchMode applies the CLI -> plan -> default chain. Scaling and
// config never recommend a search mode, so the chain is shorter than the
// others.
func resolveSearchMode(overrides *CliOverrides, plan core.AnalysisPlan) search.Mode {
	if overrides.SearchMode != nil {
		return *overrides.SearchMode
	}
	if plan.SearchMode != "" {
		return search.Mode(plan.SearchMode)
	}
	return search.ModeHybrid
}

// resolveThreshold applies the CLI -> plan -> default chain. Scaling and
// config never recommend a similarity threshold.
func resolveThreshold(overrides *CliOverrides, plan core.AnalysisPlan) float64 {
	if overrides.Threshold != nil {
		return *overrides.Threshold
	}
	if plan.Threshold != nil {
		return float64(*plan.Threshold)
	}
	return 0.3
}

// resolveMaxChunks applies the CLI -> plan -> scaling chain. A zero result
// means "unlimited" (the default).
func resolveMaxChunks(overrides *CliOverrides, plan core.AnalysisPlan, scale scaling.Profile) int {
	if overrides.MaxChunks != nil {
		return *overrides.MaxChunks
	}
	if plan.MaxChunks != nil {
		return *plan.MaxChunks
	}
	if scale.MaxChunks != nil {
		return *scale.MaxChunks
	}
	return 0
}

// resolveTopK applies the CLI -> plan -> scaling -> config chain.
func resolveTopK(overrides *CliOverrides, plan core.AnalysisPlan, scale scaling.Profile, configTopK int) int {
	if overrides.TopK != nil {
		return *overrides.TopK
	}
	if plan.TopK != nil {
		return *plan.TopK
	}
	if scale.TopK != nil {
		return *scale.TopK
	}
	return configTopK
}

// resolveBatchSize applies NumAgents (mutually exclusive with BatchSize) as
// the highest-priority override, then the usual CLI -> plan -> scaling ->
// config chain, then falls back to loadedChunks (everything in one batch)
// when nothing recommends a value.
func resolveBatchSize(overrides *CliOverrides, plan core.AnalysisPlan, scale scaling.Profile, configBatchSize, loadedChunks int) int {
	if overrides.NumAgents != nil {
		agents := *overrides.NumAgents
		if agents < 1 {
			agents = 1
		}
		return ceilDiv(loadedChunks, agents)
	}
	if overrides.BatchSize != nil {
		return *overrides.BatchSize
	}
	if plan.BatchSize != nil {
		return *plan.BatchSize
	}
	if scale.BatchSize != nil {
		return *scale.BatchSize
	}
	if configBatchSize > 0 {
		return configBatchSize
	}
	return loadedChunks
}

func ceilDiv(n, d int) int {
	if d <= 0 {
		d = 1
	}
	if n <= 0 {
		return 1
	}
	return (n + d - 1) / d
}
