package analysis

import (
	"swing-signal-bot/internal/market"
)

// VolumeProfile summarizes the latest candle's volume against its recent
// average.
type VolumeProfile struct {
	Current  float64
	Average  float64
	Ratio    float64
	Elevated bool // above the expansion threshold
	Climax   bool // above 3x average
}

// VolumeAnalyzer compares current volume to a trailing moving average.
type VolumeAnalyzer struct {
	avgPeriod int
	expansion float64
}

// NewVolumeAnalyzer creates a volume analyzer. Defaults: 20-period average,
// 1.2x expansion threshold.
func NewVolumeAnalyzer(avgPeriod int, expansion float64) *VolumeAnalyzer {
	if avgPeriod <= 0 {
		avgPeriod = 20
	}
	if expansion <= 0 {
		expansion = 1.2
	}
	return &VolumeAnalyzer{avgPeriod: avgPeriod, expansion: expansion}
}

// Analyze builds the volume profile for the latest candle.
func (va *VolumeAnalyzer) Analyze(candles []market.Candle) VolumeProfile {
	if len(candles) == 0 {
		return VolumeProfile{}
	}

	cur := candles[len(candles)-1].Volume
	avg := market.VolumeMA(candles[:len(candles)-1], va.avgPeriod)

	p := VolumeProfile{Current: cur, Average: avg}
	if avg > 0 {
		p.Ratio = cur / avg
		p.Elevated = p.Ratio > va.expansion
		p.Climax = p.Ratio > 3.0
	}
	return p
}

// Confirms reports whether volume backs the latest candle's move.
func (va *VolumeAnalyzer) Confirms(candles []market.Candle) bool {
	return va.Analyze(candles).Elevated
}
