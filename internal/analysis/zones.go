package analysis

import (
	"swing-signal-bot/internal/market"
)

// Zone labels where price sits inside its recent dealing range.
type Zone string

const (
	ZonePremium     Zone = "premium"
	ZoneDiscount    Zone = "discount"
	ZoneEquilibrium Zone = "equilibrium"
)

// RangePosition places price inside the high-low range of the lookback
// window.
type RangePosition struct {
	Zone     Zone
	High     float64
	Low      float64
	Midpoint float64
	Percent  float64 // 0 at the range low, 1 at the range high
}

// ZoneAnalyzer computes premium and discount zones from the dealing range.
type ZoneAnalyzer struct {
	lookback int
}

// NewZoneAnalyzer creates a zone analyzer. Default 50-bar dealing range.
func NewZoneAnalyzer(lookback int) *ZoneAnalyzer {
	if lookback <= 0 {
		lookback = 50
	}
	return &ZoneAnalyzer{lookback: lookback}
}

// Locate places the latest close inside the dealing range. Above the
// midpoint is premium, below is discount.
func (za *ZoneAnalyzer) Locate(candles []market.Candle) RangePosition {
	if len(candles) == 0 {
		return RangePosition{Zone: ZoneEquilibrium}
	}

	window := candles
	if len(window) > za.lookback {
		window = window[len(window)-za.lookback:]
	}

	high := window[0].High
	low := window[0].Low
	for _, c := range window[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}

	pos := RangePosition{High: high, Low: low, Midpoint: (high + low) / 2, Zone: ZoneEquilibrium}
	price := candles[len(candles)-1].Close
	if high > low {
		pos.Percent = (price - low) / (high - low)
	} else {
		pos.Percent = 0.5
	}

	switch {
	case price > pos.Midpoint:
		pos.Zone = ZonePremium
	case price < pos.Midpoint:
		pos.Zone = ZoneDiscount
	}
	return pos
}

// Score rates entry location for the trade direction (0-100). Longs want
// discount, shorts want premium; the deeper into the favorable half the
// better, scaling linearly from 0 at the midpoint to 100 at the range edge.
func (za *ZoneAnalyzer) Score(candles []market.Candle, dir market.Direction) int {
	pos := za.Locate(candles)

	var depth float64
	if dir == market.Long {
		depth = 0.5 - pos.Percent
	} else {
		depth = pos.Percent - 0.5
	}
	if depth <= 0 {
		return 0
	}

	score := int(depth * 200)
	if score > 100 {
		score = 100
	}
	return score
}
