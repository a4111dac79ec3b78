package analysis

import (
	"math"

	"swing-signal-bot/internal/market"
)

// SweepType distinguishes external from internal liquidity sweeps
type SweepType string

const (
	SweepExternal SweepType = "external"
	SweepInternal SweepType = "internal"
)

// Sweep describes a detected liquidity sweep.
type Sweep struct {
	Detected  bool
	Type      SweepType
	Direction string // "up" or "down"
	Level     float64
	Extreme   float64
}

// LiquidityPools are the structural levels resting liquidity clusters around.
type LiquidityPools struct {
	InternalHigh float64
	InternalLow  float64
	ExternalHigh float64
	ExternalLow  float64
}

// LiquidityDetector finds sweeps of prior extremes and identifies liquidity
// pools from swing structure.
type LiquidityDetector struct {
	lookback     int
	proximityPct float64
}

// NewLiquidityDetector creates a liquidity detector. Defaults: 20-bar prior
// extreme window, 0.2% internal-sweep proximity.
func NewLiquidityDetector(lookback int, proximityPct float64) *LiquidityDetector {
	if lookback <= 0 {
		lookback = 20
	}
	if proximityPct <= 0 {
		proximityPct = 0.002
	}
	return &LiquidityDetector{lookback: lookback, proximityPct: proximityPct}
}

// DetectSweep inspects the latest candle against the prior-window extremes.
// External: the extreme is exceeded and price closes back inside. Internal:
// price approaches within the proximity tolerance without breaking and
// closes away from its own extreme.
func (ld *LiquidityDetector) DetectSweep(candles []market.Candle) Sweep {
	if len(candles) < ld.lookback {
		return Sweep{}
	}

	prior := candles[len(candles)-ld.lookback : len(candles)-1]
	priorHigh := prior[0].High
	priorLow := prior[0].Low
	for _, c := range prior[1:] {
		priorHigh = math.Max(priorHigh, c.High)
		priorLow = math.Min(priorLow, c.Low)
	}

	latest := candles[len(candles)-1]

	switch {
	case latest.High > priorHigh && latest.Close < priorHigh:
		return Sweep{Detected: true, Type: SweepExternal, Direction: "up", Level: priorHigh, Extreme: latest.High}
	case latest.Low < priorLow && latest.Close > priorLow:
		return Sweep{Detected: true, Type: SweepExternal, Direction: "down", Level: priorLow, Extreme: latest.Low}
	case priorHigh > 0 && math.Abs(latest.High-priorHigh)/priorHigh < ld.proximityPct && latest.Close < latest.High:
		return Sweep{Detected: true, Type: SweepInternal, Direction: "up", Level: priorHigh}
	case priorLow > 0 && math.Abs(latest.Low-priorLow)/priorLow < ld.proximityPct && latest.Close > latest.Low:
		return Sweep{Detected: true, Type: SweepInternal, Direction: "down", Level: priorLow}
	}
	return Sweep{}
}

// IdentifyPools derives liquidity pool levels from swing structure.
// Internal liquidity sits at the latest swing points, external beyond the
// extreme of the last three.
func (ld *LiquidityDetector) IdentifyPools(structure StructureState) LiquidityPools {
	pools := LiquidityPools{}

	if high, ok := structure.RecentHigh(); ok {
		pools.InternalHigh = high.Price
	}
	if low, ok := structure.RecentLow(); ok {
		pools.InternalLow = low.Price
	}

	if n := len(structure.SwingHighs); n >= 3 {
		for _, sp := range structure.SwingHighs[n-3:] {
			pools.ExternalHigh = math.Max(pools.ExternalHigh, sp.Price)
		}
	}
	if n := len(structure.SwingLows); n >= 3 {
		pools.ExternalLow = structure.SwingLows[n-3].Price
		for _, sp := range structure.SwingLows[n-3:] {
			pools.ExternalLow = math.Min(pools.ExternalLow, sp.Price)
		}
	}
	return pools
}

// ScoreSweep scores a sweep against the type a setup requires (0-100).
// A sweep with a rejection extreme scores the clean-reversal bonus.
func (ld *LiquidityDetector) ScoreSweep(sweep Sweep, required SweepType) int {
	if !sweep.Detected {
		return 0
	}

	score := 0
	if sweep.Type == required {
		score += 60
	} else if sweep.Type == SweepExternal && required == SweepInternal {
		score += 30
	}
	if sweep.Extreme != 0 {
		score += 40
	}
	if score > 100 {
		score = 100
	}
	return score
}
