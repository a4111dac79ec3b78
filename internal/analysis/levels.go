package analysis

import (
	"math"

	"swing-signal-bot/internal/market"
)

// Level is a clustered support or resistance price with touch count.
type Level struct {
	Price   float64
	Touches int
	Support bool
}

// LevelDetector clusters swing points into horizontal support and
// resistance levels.
type LevelDetector struct {
	clusterPct float64
}

// NewLevelDetector creates a level detector. Default cluster tolerance 1%.
func NewLevelDetector(clusterPct float64) *LevelDetector {
	if clusterPct <= 0 {
		clusterPct = 0.01
	}
	return &LevelDetector{clusterPct: clusterPct}
}

// Detect clusters swing lows into supports and swing highs into
// resistances. Swings within the tolerance of an existing level merge into
// it, averaging the price and bumping the touch count.
func (ld *LevelDetector) Detect(structure StructureState) []Level {
	var levels []Level
	levels = ld.cluster(levels, structure.SwingLows, true)
	levels = ld.cluster(levels, structure.SwingHighs, false)
	return levels
}

func (ld *LevelDetector) cluster(levels []Level, swings []SwingPoint, support bool) []Level {
	for _, sp := range swings {
		merged := false
		for i := range levels {
			if levels[i].Support != support {
				continue
			}
			if math.Abs(sp.Price-levels[i].Price)/levels[i].Price < ld.clusterPct {
				levels[i].Price = (levels[i].Price + sp.Price) / 2
				levels[i].Touches++
				merged = true
				break
			}
		}
		if !merged {
			levels = append(levels, Level{Price: sp.Price, Touches: 1, Support: support})
		}
	}
	return levels
}

// Nearest returns the closest level to price on the far side of the trade:
// resistance above for longs, support below for shorts. Used to anchor
// profit targets.
func (ld *LevelDetector) Nearest(levels []Level, price float64, dir market.Direction) (Level, bool) {
	wantSupport := dir == market.Short
	best := Level{}
	bestDist := math.MaxFloat64
	found := false
	for _, lv := range levels {
		if lv.Support != wantSupport {
			continue
		}
		if dir == market.Long && lv.Price <= price {
			continue
		}
		if dir == market.Short && lv.Price >= price {
			continue
		}
		d := math.Abs(lv.Price - price)
		if d < bestDist {
			best, bestDist, found = lv, d, true
		}
	}
	return best, found
}

// Score rates how strong a level price is currently reacting at (0-100).
// A score requires the latest close within the cluster tolerance of a
// same-side level; more touches make the level stronger.
func (ld *LevelDetector) Score(structure StructureState, price float64, dir market.Direction) int {
	levels := ld.Detect(structure)
	wantSupport := dir == market.Long
	for _, lv := range levels {
		if lv.Support != wantSupport || lv.Price == 0 {
			continue
		}
		if math.Abs(price-lv.Price)/lv.Price < ld.clusterPct {
			score := 40 + lv.Touches*20
			if score > 100 {
				score = 100
			}
			return score
		}
	}
	return 0
}
