package analysis

import (
	"math"

	"swing-signal-bot/internal/market"
)

// Trendline is a line fitted through swing pivots.
type Trendline struct {
	Slope     float64
	Intercept float64 // price at index 0
	Touches   int
	Rising    bool
	Support   bool // drawn under swing lows rather than over swing highs
}

// PriceAt returns the trendline price at the given candle index.
func (tl Trendline) PriceAt(index int) float64 {
	return tl.Intercept + tl.Slope*float64(index)
}

// TrendlineDetector fits trendlines through swing points and scores breaks
// and retests.
type TrendlineDetector struct {
	maxDeviationPct float64
	minTouches      int
}

// NewTrendlineDetector creates a trendline detector. Defaults: touches must
// sit within 0.5% of the line, at least 2 pivots to draw one.
func NewTrendlineDetector() *TrendlineDetector {
	return &TrendlineDetector{maxDeviationPct: 0.005, minTouches: 2}
}

// Detect fits one line under the swing lows and one over the swing highs,
// anchored on the last two pivots, then counts earlier pivots that touch
// the extended line within tolerance. Lines with fewer than the minimum
// touches are discarded.
func (td *TrendlineDetector) Detect(structure StructureState) []Trendline {
	var lines []Trendline
	if tl, ok := td.fit(structure.SwingLows, true); ok {
		lines = append(lines, tl)
	}
	if tl, ok := td.fit(structure.SwingHighs, false); ok {
		lines = append(lines, tl)
	}
	return lines
}

func (td *TrendlineDetector) fit(swings []SwingPoint, support bool) (Trendline, bool) {
	if len(swings) < 2 {
		return Trendline{}, false
	}

	a := swings[len(swings)-2]
	b := swings[len(swings)-1]
	if b.Index == a.Index {
		return Trendline{}, false
	}

	slope := (b.Price - a.Price) / float64(b.Index-a.Index)
	tl := Trendline{
		Slope:     slope,
		Intercept: a.Price - slope*float64(a.Index),
		Touches:   2,
		Rising:    slope > 0,
		Support:   support,
	}

	for _, sp := range swings[:len(swings)-2] {
		expected := tl.PriceAt(sp.Index)
		if expected <= 0 {
			continue
		}
		if math.Abs(sp.Price-expected)/expected < td.maxDeviationPct {
			tl.Touches++
		}
	}

	if tl.Touches < td.minTouches {
		return Trendline{}, false
	}
	return tl, true
}

// Score rates the latest candle's interaction with direction-aligned
// trendlines (0-100). A hold at a rising support line favors longs, a hold
// at a falling resistance line favors shorts; more touches raise the score.
func (td *TrendlineDetector) Score(structure StructureState, candles []market.Candle, dir market.Direction) int {
	if len(candles) == 0 {
		return 0
	}
	lines := td.Detect(structure)
	if len(lines) == 0 {
		return 0
	}

	latest := candles[len(candles)-1]
	idx := len(candles) - 1

	for _, tl := range lines {
		if dir == market.Long && !tl.Support {
			continue
		}
		if dir == market.Short && tl.Support {
			continue
		}

		lvl := tl.PriceAt(idx)
		if lvl <= 0 {
			continue
		}
		touched := latest.Low <= lvl*(1+td.maxDeviationPct) && latest.High >= lvl*(1-td.maxDeviationPct)
		if !touched {
			continue
		}
		held := (tl.Support && latest.Close > lvl) || (!tl.Support && latest.Close < lvl)
		if !held {
			continue
		}

		score := 40 + tl.Touches*15
		if score > 100 {
			score = 100
		}
		return score
	}
	return 0
}
