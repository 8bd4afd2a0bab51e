// Package core defines the data model shared across the pipeline: buffers,
// chunks, search results, and the relevance ordering used to rank findings.
package core

import "strings"

// Relevance is a totally ordered assessment of how relevant a chunk is to
// a query. The discriminants are inverted (High = 0 ... None = 3) so that
// the natural ascending Go comparison (<) sorts High first, matching the
// "High before Medium before Low before None" external contract. This is
// purely a sorting convenience, not semantics.
type Relevance int

const (
	RelevanceHigh Relevance = iota
	RelevanceMedium
	RelevanceLow
	RelevanceNone
)

// ParseRelevance parses a relevance string case-insensitively, defaulting
// to RelevanceNone for anything unrecognized.
func ParseRelevance(s string) Relevance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return RelevanceHigh
	case "medium":
		return RelevanceMedium
	case "low":
		return RelevanceLow
	default:
		return RelevanceNone
	}
}

// String returns the lowercase canonical representation.
func (r Relevance) String() string {
	switch r {
	case RelevanceHigh:
		return "high"
	case RelevanceMedium:
		return "medium"
	case RelevanceLow:
		return "low"
	default:
		return "none"
	}
}

// MarshalJSON encodes the relevance as its lowercase string form.
func (r Relevance) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON decodes a lowercase string form into a Relevance, falling
// back to RelevanceNone for unrecognized values (lenient, matching the
// subcall parser's tolerance for malformed agent output).
func (r *Relevance) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	*r = ParseRelevance(s)
	return nil
}

// MeetsThreshold reports whether r is at least as relevant as threshold,
// i.e. r <= threshold in this package's ascending-is-more-relevant order.
func (r Relevance) MeetsThreshold(threshold Relevance) bool {
	return r <= threshold
}
