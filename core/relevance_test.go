package core

import "testing"

func TestRelevanceOrdering(t *testing.T) {
	if !(RelevanceHigh < RelevanceMedium && RelevanceMedium < RelevanceLow && RelevanceLow < RelevanceNone) {
		t.Fatalf("expected High < Medium < Low < None, got %d %d %d %d",
			RelevanceHigh, RelevanceMedium, RelevanceLow, RelevanceNone)
	}
}

func TestParseRelevance(t *testing.T) {
	cases := map[string]Relevance{
		"high":    RelevanceHigh,
		"HIGH":    RelevanceHigh,
		"Medium":  RelevanceMedium,
		"low":     RelevanceLow,
		"unknown": RelevanceNone,
		"":        RelevanceNone,
	}
	for in, want := range cases {
		if got := ParseRelevance(in); got != want {
			t.Errorf("ParseRelevance(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMeetsThreshold(t *testing.T) {
	if !RelevanceHigh.MeetsThreshold(RelevanceHigh) {
		t.Error("High should meet High threshold")
	}
	if !RelevanceHigh.MeetsThreshold(RelevanceLow) {
		t.Error("High should meet Low threshold")
	}
	if RelevanceLow.MeetsThreshold(RelevanceHigh) {
		t.Error("Low should not meet High threshold")
	}
	if !RelevanceMedium.MeetsThreshold(RelevanceMedium) {
		t.Error("Medium should meet Medium threshold")
	}
}

func TestRelevanceJSONRoundTrip(t *testing.T) {
	for _, r := range []Relevance{RelevanceHigh, RelevanceMedium, RelevanceLow, RelevanceNone} {
		data, err := r.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON: %v", err)
		}
		var got Relevance
		if err := got.UnmarshalJSON(data); err != nil {
			t.Fatalf("UnmarshalJSON: %v", err)
		}
		if got != r {
			t.Errorf("round trip %v -> %q -> %v", r, data, got)
		}
	}
}
