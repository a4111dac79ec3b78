package analysis

import (
	"math"

	"swing-signal-bot/internal/market"
)

// Displacement describes an impulsive candle: a body well beyond the
// average true range, backed by expanded volume.
type Displacement struct {
	Detected bool
	Bullish  bool
	Strength float64 // body as a multiple of ATR
	GapLeft  bool    // the move left an open fair value gap behind it
}

// DisplacementDetector identifies impulsive moves.
type DisplacementDetector struct {
	atrPeriod    int
	bodyMultiple float64
	volume       *VolumeAnalyzer
	fvg          *FVGDetector
}

// NewDisplacementDetector creates a displacement detector with the stock
// thresholds: body > 1.5x ATR(14) and volume > 1.2x its 20-period average.
func NewDisplacementDetector() *DisplacementDetector {
	return &DisplacementDetector{
		atrPeriod:    14,
		bodyMultiple: 1.5,
		volume:       NewVolumeAnalyzer(20, 1.2),
		fvg:          NewFVGDetector(0),
	}
}

// Detect inspects the latest closed candle for displacement.
func (dd *DisplacementDetector) Detect(candles []market.Candle) Displacement {
	if len(candles) < dd.atrPeriod+1 {
		return Displacement{}
	}

	atr := market.ATR(candles[:len(candles)-1], dd.atrPeriod)
	if atr == 0 {
		return Displacement{}
	}

	latest := candles[len(candles)-1]
	strength := latest.Body() / atr
	if strength <= dd.bodyMultiple {
		return Displacement{}
	}
	if !dd.volume.Confirms(candles) {
		return Displacement{}
	}

	d := Displacement{Detected: true, Bullish: latest.IsBullish(), Strength: strength}
	// Either gap orientation counts. The impulse sits at the edge of the
	// triple, so only the newest gap can belong to it.
	for _, g := range dd.fvg.Detect(candles) {
		if g.Index == len(candles)-2 {
			d.GapLeft = true
			break
		}
	}
	return d
}

// Score rates a displacement aligned with the trade direction (0-100).
// Stronger bodies score higher, a gap left behind the move adds the
// imbalance bonus.
func (dd *DisplacementDetector) Score(candles []market.Candle, dir market.Direction) int {
	d := dd.Detect(candles)
	if !d.Detected {
		return 0
	}
	if d.Bullish != (dir == market.Long) {
		return 0
	}

	score := int(math.Min(d.Strength*30, 70))
	if d.GapLeft {
		score += 30
	}
	if score > 100 {
		score = 100
	}
	return score
}
