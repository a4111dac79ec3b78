package patterns

import (
	"swing-signal-bot/internal/market"
)

// Pattern identifies a detected candlestick pattern.
type Pattern string

const (
	BullishEngulfing   Pattern = "bullish_engulfing"
	BearishEngulfing   Pattern = "bearish_engulfing"
	BullishHarami      Pattern = "bullish_harami"
	BearishHarami      Pattern = "bearish_harami"
	TweezerBottom      Pattern = "tweezer_bottom"
	TweezerTop         Pattern = "tweezer_top"
	InsideBar          Pattern = "inside_bar"
	MorningStar        Pattern = "morning_star"
	EveningStar        Pattern = "evening_star"
	ThreeWhiteSoldiers Pattern = "three_white_soldiers"
	ThreeBlackCrows    Pattern = "three_black_crows"
	Hammer             Pattern = "hammer"
	ShootingStar       Pattern = "shooting_star"
	PinBarBullish      Pattern = "pin_bar_bullish"
	PinBarBearish      Pattern = "pin_bar_bearish"
	MomentumBullish    Pattern = "momentum_bullish"
	MomentumBearish    Pattern = "momentum_bearish"
	Doji               Pattern = "doji"
	LongLeggedDoji     Pattern = "long_legged_doji"
	DragonflyDoji      Pattern = "dragonfly_doji"
	GravestoneDoji     Pattern = "gravestone_doji"
	FakeoutBullish     Pattern = "fakeout_bullish"
	FakeoutBearish     Pattern = "fakeout_bearish"
)

// Detector recognizes candlestick patterns and scores them as entry
// confirmation.
type Detector struct {
	pinBarMinWickRatio   float64
	momentumMinBodyRatio float64
}

// NewDetector creates a pattern detector. Defaults: pin bar wicks at least
// 2x the body, momentum candles at least 60% body.
func NewDetector() *Detector {
	return &Detector{
		pinBarMinWickRatio:   2.0,
		momentumMinBodyRatio: 0.6,
	}
}

// wickRatio returns wick/body, treating a zero body with any wick as an
// arbitrarily large ratio.
func wickRatio(wick, body float64) float64 {
	if body == 0 {
		if wick > 0 {
			return 1e9
		}
		return 0
	}
	return wick / body
}

// upperWickRatio and lowerWickRatio relate wick length to body size.
func upperWickRatio(c market.Candle) float64 { return wickRatio(c.UpperWick(), c.Body()) }
func lowerWickRatio(c market.Candle) float64 { return wickRatio(c.LowerWick(), c.Body()) }
