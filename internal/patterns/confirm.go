package patterns

import (
	"swing-signal-bot/internal/market"
)

// Confirmation is the aggregate pattern score for an entry candle.
type Confirmation struct {
	Score    int
	Patterns []Pattern
}

// ScoreConfirmation scores the latest candles as confirmation for a trade
// in the given direction. Within each category only the strongest pattern
// counts; categories stack. nearbyLevel, when non-zero, enables fakeout
// detection at that support or resistance price. The total is capped at
// 100.
func (d *Detector) ScoreConfirmation(candles []market.Candle, dir market.Direction, atr float64, nearbyLevel float64) Confirmation {
	if len(candles) == 0 {
		return Confirmation{}
	}

	cur := candles[len(candles)-1]
	var prev *market.Candle
	if len(candles) >= 2 {
		prev = &candles[len(candles)-2]
	}

	c := Confirmation{}
	add := func(points int, p Pattern) {
		c.Score += points
		c.Patterns = append(c.Patterns, p)
	}

	if dir == market.Long {
		if prev != nil {
			switch {
			case d.IsBullishEngulfing(*prev, cur):
				add(30, BullishEngulfing)
			case d.IsBullishHarami(*prev, cur, atr):
				add(18, BullishHarami)
			case d.IsTweezerBottom(*prev, cur, atr):
				add(15, TweezerBottom)
			case d.IsInsideBar(*prev, cur):
				add(10, InsideBar)
			}
		}

		if d.IsMorningStar(candles, atr) {
			add(25, MorningStar)
		} else if d.IsThreeWhiteSoldiers(candles, atr) {
			add(30, ThreeWhiteSoldiers)
		}

		switch {
		case d.IsHammer(cur):
			add(25, Hammer)
		case d.IsPinBarBullish(cur):
			add(20, PinBarBullish)
		case d.IsDragonflyDoji(cur, atr):
			add(15, DragonflyDoji)
		}

		if d.IsMomentumBullish(cur, atr) {
			add(25, MomentumBullish)
		}

		if d.IsLongLeggedDoji(cur, atr) {
			add(10, LongLeggedDoji)
		} else if d.IsDoji(cur, atr) {
			add(5, Doji)
		}

		if nearbyLevel > 0 && d.IsFakeout(cur, nearbyLevel, market.Long) {
			add(30, FakeoutBullish)
		}
	} else {
		if prev != nil {
			switch {
			case d.IsBearishEngulfing(*prev, cur):
				add(30, BearishEngulfing)
			case d.IsBearishHarami(*prev, cur, atr):
				add(18, BearishHarami)
			case d.IsTweezerTop(*prev, cur, atr):
				add(15, TweezerTop)
			case d.IsInsideBar(*prev, cur):
				add(10, InsideBar)
			}
		}

		if d.IsEveningStar(candles, atr) {
			add(25, EveningStar)
		} else if d.IsThreeBlackCrows(candles, atr) {
			add(30, ThreeBlackCrows)
		}

		switch {
		case d.IsShootingStar(cur):
			add(25, ShootingStar)
		case d.IsPinBarBearish(cur):
			add(20, PinBarBearish)
		case d.IsGravestoneDoji(cur, atr):
			add(15, GravestoneDoji)
		}

		if d.IsMomentumBearish(cur, atr) {
			add(25, MomentumBearish)
		}

		if d.IsLongLeggedDoji(cur, atr) {
			add(10, LongLeggedDoji)
		} else if d.IsDoji(cur, atr) {
			add(5, Doji)
		}

		if nearbyLevel > 0 && d.IsFakeout(cur, nearbyLevel, market.Short) {
			add(30, FakeoutBearish)
		}
	}

	if c.Score > 100 {
		c.Score = 100
	}
	return c
}
