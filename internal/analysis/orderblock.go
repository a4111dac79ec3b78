package analysis

import (
	"swing-signal-bot/internal/market"
)

// OrderBlock is the last opposing candle before a displacement move, marking
// a zone price frequently returns to.
type OrderBlock struct {
	High      float64
	Low       float64
	Bullish   bool
	Index     int
	Mitigated bool
}

// OrderBlockDetector locates unmitigated order blocks and scores retests.
type OrderBlockDetector struct {
	atrPeriod    int
	bodyMultiple float64
	maxBlocks    int
	scanWindow   int
}

// NewOrderBlockDetector creates an order block detector with the stock
// thresholds: body > 1.5x ATR qualifies the displacement leg, last 60
// candles scanned, up to 5 blocks tracked per side.
func NewOrderBlockDetector() *OrderBlockDetector {
	return &OrderBlockDetector{
		atrPeriod:    14,
		bodyMultiple: 1.5,
		maxBlocks:    5,
		scanWindow:   60,
	}
}

// Detect finds order blocks in the scan window. A bullish block is the last
// bearish candle before a displacement candle up; bearish is the mirror.
// Blocks whose zone the close has since traded fully through are marked
// mitigated and dropped.
func (od *OrderBlockDetector) Detect(candles []market.Candle) []OrderBlock {
	if len(candles) < od.atrPeriod+2 {
		return nil
	}

	start := 1
	if len(candles) > od.scanWindow {
		start = len(candles) - od.scanWindow
	}

	var blocks []OrderBlock
	for i := start; i < len(candles); i++ {
		atr := market.ATR(candles[:i+1], od.atrPeriod)
		if atr == 0 {
			continue
		}
		cur := candles[i]
		prev := candles[i-1]
		if cur.Body() <= od.bodyMultiple*atr {
			continue
		}
		if cur.IsBullish() && prev.IsBearish() {
			blocks = append(blocks, OrderBlock{High: prev.High, Low: prev.Low, Bullish: true, Index: i - 1})
		} else if cur.IsBearish() && prev.IsBullish() {
			blocks = append(blocks, OrderBlock{High: prev.High, Low: prev.Low, Bullish: false, Index: i - 1})
		}
	}

	var live []OrderBlock
	for _, ob := range blocks {
		for j := ob.Index + 2; j < len(candles); j++ {
			c := candles[j]
			if ob.Bullish && c.Close < ob.Low {
				ob.Mitigated = true
				break
			}
			if !ob.Bullish && c.Close > ob.High {
				ob.Mitigated = true
				break
			}
		}
		if !ob.Mitigated {
			live = append(live, ob)
		}
	}

	if len(live) > od.maxBlocks*2 {
		live = live[len(live)-od.maxBlocks*2:]
	}
	return live
}

// Score rates the latest price interaction with order blocks aligned to the
// trade direction (0-100). A close inside an aligned block scores the base,
// a wick touch with the close back outside adds the rejection bonus.
func (od *OrderBlockDetector) Score(candles []market.Candle, dir market.Direction) int {
	blocks := od.Detect(candles)
	if len(blocks) == 0 || len(candles) == 0 {
		return 0
	}
	latest := candles[len(candles)-1]
	wantBullish := dir == market.Long

	score := 0
	for _, ob := range blocks {
		if ob.Bullish != wantBullish {
			continue
		}
		touched := latest.Low <= ob.High && latest.High >= ob.Low
		if !touched {
			continue
		}
		score = 70
		if wantBullish && latest.Close > ob.High {
			score = 100
		} else if !wantBullish && latest.Close < ob.Low {
			score = 100
		}
		break
	}
	return score
}
