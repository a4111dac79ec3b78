package analysis

import (
	"swing-signal-bot/internal/market"
)

// Trend represents the structural trend direction
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// BreakEvent represents a structural break
type BreakEvent string

const (
	BreakCHoCH BreakEvent = "CHoCH"
	BreakNone  BreakEvent = "none"
)

// SwingPoint is a confirmed local extreme. Derived data: recomputed from the
// candle window on every analysis pass, never mutated.
type SwingPoint struct {
	Price  float64
	Index  int
	IsHigh bool
}

// StructureState is the structural read of one symbol and timeframe.
type StructureState struct {
	Timeframe   string
	Trend       Trend
	SwingHighs  []SwingPoint
	SwingLows   []SwingPoint
	LastBreak   BreakEvent
	Intact      bool
	HigherHighs bool
	HigherLows  bool
	LowerHighs  bool
	LowerLows   bool
}

// RecentHigh returns the most recent swing high, if any.
func (s StructureState) RecentHigh() (SwingPoint, bool) {
	if len(s.SwingHighs) == 0 {
		return SwingPoint{}, false
	}
	return s.SwingHighs[len(s.SwingHighs)-1], true
}

// RecentLow returns the most recent swing low, if any.
func (s StructureState) RecentLow() (SwingPoint, bool) {
	if len(s.SwingLows) == 0 {
		return SwingPoint{}, false
	}
	return s.SwingLows[len(s.SwingLows)-1], true
}

// StructureAnalyzer detects swing points, trend and structural breaks.
// Analysis is a pure function of the candle window: the same sequence always
// produces the same state.
type StructureAnalyzer struct {
	swingLookback int
	minCandles    int
}

// NewStructureAnalyzer creates a structure analyzer. lookback <= 0 selects
// the default 5-candle symmetric swing lookback.
func NewStructureAnalyzer(lookback int) *StructureAnalyzer {
	if lookback <= 0 {
		lookback = 5
	}
	return &StructureAnalyzer{
		swingLookback: lookback,
		minCandles:    20,
	}
}

// Analyze computes the structure state for a closed-candle window.
// Fewer than 20 candles yields the empty neutral state.
func (sa *StructureAnalyzer) Analyze(candles []market.Candle, timeframe string) StructureState {
	if len(candles) < sa.minCandles {
		return StructureState{Timeframe: timeframe, Trend: TrendNeutral, LastBreak: BreakNone}
	}

	highs := sa.findSwings(candles, true)
	lows := sa.findSwings(candles, false)

	state := StructureState{
		Timeframe:  timeframe,
		SwingHighs: highs,
		SwingLows:  lows,
		LastBreak:  BreakNone,
	}

	state.HigherHighs = risingLast(highs)
	state.LowerHighs = fallingLast(highs)
	state.HigherLows = risingLast(lows)
	state.LowerLows = fallingLast(lows)

	state.Trend = TrendNeutral
	switch {
	case state.HigherHighs && state.HigherLows:
		state.Trend = TrendBullish
	case state.LowerHighs && state.LowerLows:
		state.Trend = TrendBearish
	}

	state.LastBreak = sa.detectBreak(candles, state)
	state.Intact = structureIntact(state)

	return state
}

// findSwings scans for candles whose extreme strictly exceeds every candle
// within the symmetric lookback on both sides. Ties disqualify.
func (sa *StructureAnalyzer) findSwings(candles []market.Candle, high bool) []SwingPoint {
	var swings []SwingPoint
	lb := sa.swingLookback

	for i := lb; i < len(candles)-lb; i++ {
		extreme := candles[i].Low
		if high {
			extreme = candles[i].High
		}

		isSwing := true
		for j := i - lb; j <= i+lb; j++ {
			if j == i {
				continue
			}
			if high && candles[j].High >= extreme {
				isSwing = false
				break
			}
			if !high && candles[j].Low <= extreme {
				isSwing = false
				break
			}
		}

		if isSwing {
			swings = append(swings, SwingPoint{Price: extreme, Index: i, IsHigh: high})
		}
	}
	return swings
}

// detectBreak checks the latest close against the most recent opposing swing.
// A trend changes only through this explicit break event.
func (sa *StructureAnalyzer) detectBreak(candles []market.Candle, state StructureState) BreakEvent {
	if len(state.SwingHighs) == 0 || len(state.SwingLows) == 0 {
		return BreakNone
	}

	lastClose := candles[len(candles)-1].Close

	switch state.Trend {
	case TrendBullish:
		if low, ok := state.RecentLow(); ok && lastClose < low.Price {
			return BreakCHoCH
		}
	case TrendBearish:
		if high, ok := state.RecentHigh(); ok && lastClose > high.Price {
			return BreakCHoCH
		}
	}
	return BreakNone
}

// structureIntact holds while the most recent swing extremum continues the
// established direction.
func structureIntact(state StructureState) bool {
	if len(state.SwingHighs) < 2 || len(state.SwingLows) < 2 {
		return false
	}
	switch state.Trend {
	case TrendBullish:
		return state.HigherLows
	case TrendBearish:
		return state.LowerHighs
	}
	return false
}

// Aligned reports whether two structures trend in the same non-neutral
// direction.
func Aligned(a, b StructureState) bool {
	return a.Trend == b.Trend && a.Trend != TrendNeutral
}

func risingLast(swings []SwingPoint) bool {
	n := len(swings)
	return n >= 2 && swings[n-1].Price > swings[n-2].Price
}

func fallingLast(swings []SwingPoint) bool {
	n := len(swings)
	return n >= 2 && swings[n-1].Price < swings[n-2].Price
}
