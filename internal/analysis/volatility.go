package analysis

import (
	"swing-signal-bot/internal/market"
)

// VolatilityRegime buckets current volatility by the ATR to price ratio.
type VolatilityRegime string

const (
	VolatilityLow    VolatilityRegime = "low"
	VolatilityMedium VolatilityRegime = "medium"
	VolatilityHigh   VolatilityRegime = "high"
)

// VolatilityAnalyzer classifies volatility and scores its suitability for
// swing entries.
type VolatilityAnalyzer struct {
	atrPeriod int
	lowMax    float64
	mediumMax float64
}

// NewVolatilityAnalyzer creates a volatility analyzer. Defaults: ATR(14),
// low below 1% of price, medium below 3%, high above.
func NewVolatilityAnalyzer() *VolatilityAnalyzer {
	return &VolatilityAnalyzer{atrPeriod: 14, lowMax: 0.01, mediumMax: 0.03}
}

// Classify buckets the latest ATR to close ratio.
func (va *VolatilityAnalyzer) Classify(candles []market.Candle) VolatilityRegime {
	if len(candles) == 0 {
		return VolatilityLow
	}
	price := candles[len(candles)-1].Close
	atr := market.ATR(candles, va.atrPeriod)
	if price <= 0 || atr == 0 {
		return VolatilityLow
	}

	switch ratio := atr / price; {
	case ratio < va.lowMax:
		return VolatilityLow
	case ratio < va.mediumMax:
		return VolatilityMedium
	default:
		return VolatilityHigh
	}
}

// Score rates the regime for entry quality (0-100). Medium volatility is
// the sweet spot, high is tradeable but stops widen, low tends to chop.
func (va *VolatilityAnalyzer) Score(candles []market.Candle) int {
	switch va.Classify(candles) {
	case VolatilityMedium:
		return 100
	case VolatilityHigh:
		return 60
	default:
		return 40
	}
}
