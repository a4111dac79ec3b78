package analysis

import (
	"swing-signal-bot/internal/market"
)

// Regime is the classified market condition governing which setup logic runs.
type Regime string

const (
	RegimeContinuation Regime = "continuation"
	RegimeReversal     Regime = "reversal"
	RegimeSideway      Regime = "sideway"
)

// RegimeContext is the per-scan aggregate of multi-timeframe structure and
// the derived regime. It is ephemeral: rebuilt on every evaluation.
type RegimeContext struct {
	Regime    Regime
	Slow      StructureState
	Anchor    StructureState
	Fast      StructureState
	Aligned   bool
	AnchorATR float64
	FastATR   float64
}

// RegimeConfig holds the classification thresholds.
type RegimeConfig struct {
	ATRPeriod            int
	SidewayATRThreshold  float64 // ATR/price below this is ranging
	DisplacementMultiple float64 // body vs ATR for a displacement candle
	ReversalMultiple     float64 // body vs ATR for a strong reversal move
	RecentWindow         int     // candles inspected for displacement
	MinCandles           int
}

// DefaultRegimeConfig returns the stock thresholds.
func DefaultRegimeConfig() RegimeConfig {
	return RegimeConfig{
		ATRPeriod:            14,
		SidewayATRThreshold:  0.005,
		DisplacementMultiple: 1.5,
		ReversalMultiple:     2.0,
		RecentWindow:         10,
		MinCandles:           50,
	}
}

// RegimeClassifier combines multi-timeframe structure into a regime.
type RegimeClassifier struct {
	structure *StructureAnalyzer
	cfg       RegimeConfig
}

// NewRegimeClassifier creates a regime classifier.
func NewRegimeClassifier(structure *StructureAnalyzer, cfg RegimeConfig) *RegimeClassifier {
	if cfg.ATRPeriod <= 0 {
		cfg = DefaultRegimeConfig()
	}
	return &RegimeClassifier{structure: structure, cfg: cfg}
}

// Classify evaluates slow/anchor/fast candle windows and returns the regime
// context. Precedence: the sideway gate short-circuits first, then reversal
// (rarer and higher value, so it must not be shadowed), then continuation;
// anything else is sideway.
func (rc *RegimeClassifier) Classify(slow, anchor, fast []market.Candle, slowTF, anchorTF, fastTF string) RegimeContext {
	ctx := RegimeContext{
		Regime:    RegimeSideway,
		Slow:      rc.structure.Analyze(slow, slowTF),
		Anchor:    rc.structure.Analyze(anchor, anchorTF),
		Fast:      rc.structure.Analyze(fast, fastTF),
		AnchorATR: market.ATR(anchor, rc.cfg.ATRPeriod),
		FastATR:   market.ATR(fast, rc.cfg.ATRPeriod),
	}
	ctx.Aligned = Aligned(ctx.Slow, ctx.Anchor)

	if rc.isSideway(anchor, ctx) {
		return ctx
	}
	if rc.isReversal(anchor, ctx) {
		ctx.Regime = RegimeReversal
		return ctx
	}
	if rc.isContinuation(ctx) {
		ctx.Regime = RegimeContinuation
	}
	return ctx
}

func (rc *RegimeClassifier) isSideway(anchor []market.Candle, ctx RegimeContext) bool {
	if len(anchor) < rc.cfg.MinCandles {
		return true // not enough data, assume ranging
	}

	lastClose := anchor[len(anchor)-1].Close
	if lastClose > 0 && ctx.AnchorATR/lastClose < rc.cfg.SidewayATRThreshold {
		return true
	}

	if !ctx.Anchor.HigherHighs && !ctx.Anchor.LowerLows {
		return true
	}

	return !hasBodyAbove(anchor, rc.cfg.RecentWindow, ctx.AnchorATR*rc.cfg.DisplacementMultiple)
}

func (rc *RegimeClassifier) isReversal(anchor []market.Candle, ctx RegimeContext) bool {
	if ctx.Anchor.LastBreak != BreakCHoCH {
		return false
	}
	if ctx.Anchor.Trend == TrendNeutral {
		return false
	}
	return hasBodyAbove(anchor, rc.cfg.RecentWindow, ctx.AnchorATR*rc.cfg.ReversalMultiple)
}

func (rc *RegimeClassifier) isContinuation(ctx RegimeContext) bool {
	if !ctx.Aligned {
		return false
	}
	if !ctx.Slow.Intact || !ctx.Anchor.Intact {
		return false
	}
	return ctx.Anchor.LastBreak != BreakCHoCH
}

// hasBodyAbove reports whether any of the trailing window candles has a body
// exceeding the threshold.
func hasBodyAbove(candles []market.Candle, window int, threshold float64) bool {
	if threshold <= 0 {
		return false
	}
	start := len(candles) - window
	if start < 0 {
		start = 0
	}
	for _, c := range candles[start:] {
		if c.Body() > threshold {
			return true
		}
	}
	return false
}
