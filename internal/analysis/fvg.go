package analysis

import (
	"swing-signal-bot/internal/market"
)

// FVG is a fair value gap: a three-candle imbalance where the first and
// third candles leave unfilled space around the middle one.
type FVG struct {
	Top     float64
	Bottom  float64
	Bullish bool
	Index   int // index of the middle candle
	Filled  bool
}

// FVGDetector detects fair value gaps and scores retests of them.
type FVGDetector struct {
	minGapPct  float64
	scanWindow int
}

// NewFVGDetector creates a gap detector. Defaults: 0.1% minimum gap size,
// last 60 candles scanned.
func NewFVGDetector(minGapPct float64) *FVGDetector {
	if minGapPct <= 0 {
		minGapPct = 0.001
	}
	return &FVGDetector{minGapPct: minGapPct, scanWindow: 60}
}

// Detect returns unfilled gaps in the scan window. Bullish gap: the first
// candle's low sits above the third candle's high, leaving a demand
// imbalance below price. A gap is filled once a later close trades through
// the far side of the zone.
func (fd *FVGDetector) Detect(candles []market.Candle) []FVG {
	if len(candles) < 3 {
		return nil
	}

	start := 2
	if len(candles) > fd.scanWindow {
		start = len(candles) - fd.scanWindow
	}

	var gaps []FVG
	for i := start; i < len(candles); i++ {
		first := candles[i-2]
		third := candles[i]

		if first.Low > third.High && third.High > 0 {
			if (first.Low-third.High)/third.High >= fd.minGapPct {
				gaps = append(gaps, FVG{Top: first.Low, Bottom: third.High, Bullish: true, Index: i - 1})
			}
		} else if third.Low > first.High && first.High > 0 {
			if (third.Low-first.High)/first.High >= fd.minGapPct {
				gaps = append(gaps, FVG{Top: third.Low, Bottom: first.High, Bullish: false, Index: i - 1})
			}
		}
	}

	var open []FVG
	for _, g := range gaps {
		for j := g.Index + 2; j < len(candles); j++ {
			c := candles[j]
			if g.Bullish && c.Close > g.Top {
				g.Filled = true
				break
			}
			if !g.Bullish && c.Close < g.Bottom {
				g.Filled = true
				break
			}
		}
		if !g.Filled {
			open = append(open, g)
		}
	}
	return open
}

// InZone reports whether price sits inside the gap.
func (g FVG) InZone(price float64) bool {
	return price >= g.Bottom && price <= g.Top
}

// Score rates the latest candle's interaction with direction-aligned open
// gaps (0-100). A retest into a gap zone scores the base, multiple aligned
// open gaps add the stacked-imbalance bonus.
func (fd *FVGDetector) Score(candles []market.Candle, dir market.Direction) int {
	gaps := fd.Detect(candles)
	if len(gaps) == 0 || len(candles) == 0 {
		return 0
	}
	latest := candles[len(candles)-1]
	wantBullish := dir == market.Long

	aligned := 0
	retested := false
	for _, g := range gaps {
		if g.Bullish != wantBullish {
			continue
		}
		aligned++
		if latest.Low <= g.Top && latest.High >= g.Bottom {
			retested = true
		}
	}
	if !retested {
		return 0
	}
	score := 70
	if aligned > 1 {
		score += 30
	}
	return score
}
