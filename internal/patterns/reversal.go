package patterns

import (
	"math"

	"swing-signal-bot/internal/market"
)

// IsBullishEngulfing reports a bearish candle followed by a bullish candle
// whose body covers it.
func (d *Detector) IsBullishEngulfing(prev, cur market.Candle) bool {
	if !prev.IsBearish() || !cur.IsBullish() {
		return false
	}
	return cur.Open <= prev.Close && cur.Close >= prev.Open
}

// IsBearishEngulfing reports a bullish candle followed by a bearish candle
// whose body covers it.
func (d *Detector) IsBearishEngulfing(prev, cur market.Candle) bool {
	if !prev.IsBullish() || !cur.IsBearish() {
		return false
	}
	return cur.Open >= prev.Close && cur.Close <= prev.Open
}

// IsBullishHarami reports a long bearish candle followed by a small bullish
// candle contained within its body.
func (d *Detector) IsBullishHarami(prev, cur market.Candle, atr float64) bool {
	if !prev.IsBearish() || prev.Body() <= 0.6*atr {
		return false
	}
	if !cur.IsBullish() || cur.Body() >= 0.5*prev.Body() {
		return false
	}
	return cur.Open < prev.Open && cur.Close > prev.Close
}

// IsBearishHarami reports a long bullish candle followed by a small bearish
// candle contained within its body.
func (d *Detector) IsBearishHarami(prev, cur market.Candle, atr float64) bool {
	if !prev.IsBullish() || prev.Body() <= 0.6*atr {
		return false
	}
	if !cur.IsBearish() || cur.Body() >= 0.5*prev.Body() {
		return false
	}
	return cur.Open > prev.Open && cur.Close < prev.Close
}

// IsTweezerTop reports two candles with matching highs, bullish then
// bearish, both with real bodies.
func (d *Detector) IsTweezerTop(prev, cur market.Candle, atr float64) bool {
	tolerance := math.Min(prev.High*0.005, 0.1*atr)
	if math.Abs(prev.High-cur.High) >= tolerance {
		return false
	}
	if !prev.IsBullish() || !cur.IsBearish() {
		return false
	}
	return prev.Body() > 0.3*atr && cur.Body() > 0.3*atr
}

// IsTweezerBottom reports two candles with matching lows, bearish then
// bullish, both with real bodies.
func (d *Detector) IsTweezerBottom(prev, cur market.Candle, atr float64) bool {
	tolerance := math.Min(prev.Low*0.005, 0.1*atr)
	if math.Abs(prev.Low-cur.Low) >= tolerance {
		return false
	}
	if !prev.IsBearish() || !cur.IsBullish() {
		return false
	}
	return prev.Body() > 0.3*atr && cur.Body() > 0.3*atr
}

// IsMorningStar reports a long bearish candle, a small star gapping down,
// then a long bullish candle closing above the first candle's midpoint.
func (d *Detector) IsMorningStar(candles []market.Candle, atr float64) bool {
	if len(candles) < 3 {
		return false
	}
	c1 := candles[len(candles)-3]
	c2 := candles[len(candles)-2]
	c3 := candles[len(candles)-1]

	if !c1.IsBearish() || c1.Body() <= 0.6*atr {
		return false
	}
	if c2.Body() >= 0.3*atr || c2.High >= c1.Close {
		return false
	}
	if !c3.IsBullish() || c3.Body() <= 0.6*atr {
		return false
	}
	return c3.Close > c1.Midpoint()
}

// IsEveningStar reports a long bullish candle, a small star gapping up,
// then a long bearish candle closing below the first candle's midpoint.
func (d *Detector) IsEveningStar(candles []market.Candle, atr float64) bool {
	if len(candles) < 3 {
		return false
	}
	c1 := candles[len(candles)-3]
	c2 := candles[len(candles)-2]
	c3 := candles[len(candles)-1]

	if !c1.IsBullish() || c1.Body() <= 0.6*atr {
		return false
	}
	if c2.Body() >= 0.3*atr || c2.Low <= c1.Close {
		return false
	}
	if !c3.IsBearish() || c3.Body() <= 0.6*atr {
		return false
	}
	return c3.Close < c1.Midpoint()
}

// IsHammer reports a bullish candle with a long lower wick and a small
// upper wick.
func (d *Detector) IsHammer(c market.Candle) bool {
	if !c.IsBullish() {
		return false
	}
	if lowerWickRatio(c) < d.pinBarMinWickRatio {
		return false
	}
	return c.UpperWick() <= c.Body()
}

// IsShootingStar reports a bearish candle with a long upper wick and a
// small lower wick.
func (d *Detector) IsShootingStar(c market.Candle) bool {
	if !c.IsBearish() {
		return false
	}
	if upperWickRatio(c) < d.pinBarMinWickRatio {
		return false
	}
	return c.LowerWick() <= c.Body()
}

// IsPinBarBullish reports a small-bodied candle with a long lower wick
// rejecting lower prices, regardless of close direction.
func (d *Detector) IsPinBarBullish(c market.Candle) bool {
	if lowerWickRatio(c) < d.pinBarMinWickRatio {
		return false
	}
	if c.BodyRatio() > 0.3 {
		return false
	}
	return c.UpperWick() <= c.Body()
}

// IsPinBarBearish reports a small-bodied candle with a long upper wick
// rejecting higher prices.
func (d *Detector) IsPinBarBearish(c market.Candle) bool {
	if upperWickRatio(c) < d.pinBarMinWickRatio {
		return false
	}
	if c.BodyRatio() > 0.3 {
		return false
	}
	return c.LowerWick() <= c.Body()
}

// IsDoji reports a candle with almost no body but a meaningful range.
func (d *Detector) IsDoji(c market.Candle, atr float64) bool {
	return c.BodyRatio() < 0.1 && c.Range() > 0.3*atr
}

// IsLongLeggedDoji reports a doji with long shadows on both sides.
func (d *Detector) IsLongLeggedDoji(c market.Candle, atr float64) bool {
	return c.BodyRatio() < 0.05 &&
		c.Range() > 0.8*atr &&
		c.UpperWick() > 0.3*c.Range() &&
		c.LowerWick() > 0.3*c.Range()
}

// IsDragonflyDoji reports a doji with a long lower shadow and almost no
// upper shadow.
func (d *Detector) IsDragonflyDoji(c market.Candle, atr float64) bool {
	return c.BodyRatio() < 0.1 &&
		c.Range() > 0.3*atr &&
		c.LowerWick() > 0.6*c.Range() &&
		c.UpperWick() < 0.1*c.Range()
}

// IsGravestoneDoji reports a doji with a long upper shadow and almost no
// lower shadow.
func (d *Detector) IsGravestoneDoji(c market.Candle, atr float64) bool {
	return c.BodyRatio() < 0.1 &&
		c.Range() > 0.3*atr &&
		c.UpperWick() > 0.6*c.Range() &&
		c.LowerWick() < 0.1*c.Range()
}

// IsFakeout reports a wick through the level with the close back on the
// trade's side: below support for longs, above resistance for shorts.
func (d *Detector) IsFakeout(c market.Candle, level float64, dir market.Direction) bool {
	if dir == market.Long {
		return c.Low < level && c.Close > level
	}
	return c.High > level && c.Close < level
}
