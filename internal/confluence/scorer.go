package confluence

import (
	"fmt"
	"sort"

	"swing-signal-bot/internal/market"
)

// Component is one scored confluence factor (0-100) with the evidence
// behind it.
type Component struct {
	Score     int
	Rationale string
}

// Weights maps component names to their integer percentage weights.
type Weights map[string]int

// Validate rejects weight sets that do not sum to exactly 100 or carry
// negative entries.
func (w Weights) Validate() error {
	sum := 0
	for name, weight := range w {
		if weight < 0 {
			return fmt.Errorf("confluence: weight %q is negative (%d)", name, weight)
		}
		sum += weight
	}
	if sum != 100 {
		return fmt.Errorf("confluence: weights sum to %d, want 100", sum)
	}
	return nil
}

// ComponentResult is one component's contribution to the total.
type ComponentResult struct {
	Name      string
	Raw       int
	Weight    int
	Weighted  float64
	Rationale string
}

// Breakdown is the full scoring result for a candidate setup.
type Breakdown struct {
	Direction  market.Direction
	Total      int
	Components []ComponentResult
}

// Scorer combines component scores under a fixed weight set.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer after validating the weights.
func NewScorer(weights Weights) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: weights}, nil
}

// Score computes the weighted total for the given component scores.
// Components absent from the input score zero. The result is deterministic:
// components are evaluated in sorted name order and the total is clamped
// to [0, 100].
func (s *Scorer) Score(dir market.Direction, components map[string]Component) Breakdown {
	names := make([]string, 0, len(s.weights))
	for name := range s.weights {
		names = append(names, name)
	}
	sort.Strings(names)

	b := Breakdown{Direction: dir}
	var total float64
	for _, name := range names {
		weight := s.weights[name]
		comp := components[name]

		raw := comp.Score
		if raw < 0 {
			raw = 0
		} else if raw > 100 {
			raw = 100
		}

		weighted := float64(raw*weight) / 100
		total += weighted
		b.Components = append(b.Components, ComponentResult{
			Name:      name,
			Raw:       raw,
			Weight:    weight,
			Weighted:  weighted,
			Rationale: comp.Rationale,
		})
	}

	b.Total = int(total)
	if b.Total < 0 {
		b.Total = 0
	} else if b.Total > 100 {
		b.Total = 100
	}
	return b
}

// Grade maps a total score to a letter grade for alert formatting.
func Grade(total int) string {
	switch {
	case total >= 90:
		return "A+"
	case total >= 85:
		return "A"
	case total >= 75:
		return "B+"
	case total >= 70:
		return "B"
	case total >= 60:
		return "C"
	case total >= 50:
		return "D"
	default:
		return "F"
	}
}
