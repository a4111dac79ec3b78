package confluence

import (
	"testing"

	"swing-signal-bot/internal/market"
)

func TestWeightsValidate(t *testing.T) {
	valid := Weights{"structure": 60, "liquidity": 40}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid weights, got %v", err)
	}

	short := Weights{"structure": 60, "liquidity": 30}
	if err := short.Validate(); err == nil {
		t.Error("expected error for weights summing to 90")
	}

	negative := Weights{"structure": 120, "liquidity": -20}
	if err := negative.Validate(); err == nil {
		t.Error("expected error for negative weight")
	}
}

func TestNewScorerRejectsInvalidWeights(t *testing.T) {
	if _, err := NewScorer(Weights{"structure": 50}); err == nil {
		t.Error("expected constructor to reject invalid weights")
	}
}

func TestScoreWeightedTotal(t *testing.T) {
	s, err := NewScorer(Weights{"structure": 50, "liquidity": 30, "volatility": 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := s.Score(market.Long, map[string]Component{
		"structure":  {Score: 80, Rationale: "aligned trend"},
		"liquidity":  {Score: 100, Rationale: "external sweep"},
		"volatility": {Score: 40},
	})

	// 80*0.5 + 100*0.3 + 40*0.2 = 78
	if b.Total != 78 {
		t.Errorf("expected total 78, got %d", b.Total)
	}
	if b.Direction != market.Long {
		t.Errorf("expected long breakdown, got %s", b.Direction)
	}
	if len(b.Components) != 3 {
		t.Fatalf("expected 3 components, got %d", len(b.Components))
	}
	// Sorted name order keeps the breakdown stable across runs.
	if b.Components[0].Name != "liquidity" || b.Components[2].Name != "volatility" {
		t.Errorf("expected sorted components, got %v", b.Components)
	}
	if b.Components[1].Raw != 80 || b.Components[1].Weighted != 40 {
		t.Errorf("unexpected structure contribution: %+v", b.Components[1])
	}
}

func TestScoreMissingComponentsScoreZero(t *testing.T) {
	s, _ := NewScorer(Weights{"structure": 50, "liquidity": 50})

	b := s.Score(market.Short, map[string]Component{
		"structure": {Score: 60},
	})
	if b.Total != 30 {
		t.Errorf("expected total 30 with missing component, got %d", b.Total)
	}
}

func TestScoreClampsRawScores(t *testing.T) {
	s, _ := NewScorer(Weights{"structure": 100})

	b := s.Score(market.Long, map[string]Component{
		"structure": {Score: 150},
	})
	if b.Total != 100 || b.Components[0].Raw != 100 {
		t.Errorf("expected raw clamped to 100, got %+v", b.Components[0])
	}

	b = s.Score(market.Long, map[string]Component{
		"structure": {Score: -20},
	})
	if b.Total != 0 || b.Components[0].Raw != 0 {
		t.Errorf("expected raw clamped to 0, got %+v", b.Components[0])
	}
}

func TestGrade(t *testing.T) {
	cases := []struct {
		total int
		want  string
	}{
		{95, "A+"},
		{90, "A+"},
		{87, "A"},
		{80, "B+"},
		{72, "B"},
		{65, "C"},
		{55, "D"},
		{30, "F"},
	}
	for _, tc := range cases {
		if got := Grade(tc.total); got != tc.want {
			t.Errorf("Grade(%d): expected %s, got %s", tc.total, tc.want, got)
		}
	}
}
