package patterns

import (
	"swing-signal-bot/internal/market"
)

// IsInsideBar reports a candle whose range is fully inside the previous
// candle's range.
func (d *Detector) IsInsideBar(prev, cur market.Candle) bool {
	return cur.High <= prev.High && cur.Low >= prev.Low
}

// IsMomentumBullish reports a bullish candle with a dominant body sized
// against ATR.
func (d *Detector) IsMomentumBullish(c market.Candle, atr float64) bool {
	if !c.IsBullish() {
		return false
	}
	if c.BodyRatio() < d.momentumMinBodyRatio {
		return false
	}
	return atr <= 0 || c.Body() >= 0.5*atr
}

// IsMomentumBearish reports a bearish candle with a dominant body sized
// against ATR.
func (d *Detector) IsMomentumBearish(c market.Candle, atr float64) bool {
	if !c.IsBearish() {
		return false
	}
	if c.BodyRatio() < d.momentumMinBodyRatio {
		return false
	}
	return atr <= 0 || c.Body() >= 0.5*atr
}

// IsThreeWhiteSoldiers reports three consecutive long bullish candles with
// rising closes, each opening within the previous body, without long upper
// shadows.
func (d *Detector) IsThreeWhiteSoldiers(candles []market.Candle, atr float64) bool {
	if len(candles) < 3 {
		return false
	}
	c1 := candles[len(candles)-3]
	c2 := candles[len(candles)-2]
	c3 := candles[len(candles)-1]

	if !c1.IsBullish() || !c2.IsBullish() || !c3.IsBullish() {
		return false
	}
	if c1.Body() <= 0.5*atr || c2.Body() <= 0.5*atr || c3.Body() <= 0.5*atr {
		return false
	}
	if c2.Close <= c1.Close || c3.Close <= c2.Close {
		return false
	}
	if c2.Open <= c1.Open || c2.Open >= c1.Close {
		return false
	}
	if c3.Open <= c2.Open || c3.Open >= c2.Close {
		return false
	}
	return c1.UpperWick() < 0.3*c1.Body() &&
		c2.UpperWick() < 0.3*c2.Body() &&
		c3.UpperWick() < 0.3*c3.Body()
}

// IsThreeBlackCrows reports three consecutive long bearish candles with
// falling closes, each opening within the previous body, without long lower
// shadows.
func (d *Detector) IsThreeBlackCrows(candles []market.Candle, atr float64) bool {
	if len(candles) < 3 {
		return false
	}
	c1 := candles[len(candles)-3]
	c2 := candles[len(candles)-2]
	c3 := candles[len(candles)-1]

	if !c1.IsBearish() || !c2.IsBearish() || !c3.IsBearish() {
		return false
	}
	if c1.Body() <= 0.5*atr || c2.Body() <= 0.5*atr || c3.Body() <= 0.5*atr {
		return false
	}
	if c2.Close >= c1.Close || c3.Close >= c2.Close {
		return false
	}
	if c2.Open >= c1.Open || c2.Open <= c1.Close {
		return false
	}
	if c3.Open >= c2.Open || c3.Open <= c2.Close {
		return false
	}
	return c1.LowerWick() < 0.3*c1.Body() &&
		c2.LowerWick() < 0.3*c2.Body() &&
		c3.LowerWick() < 0.3*c3.Body()
}
