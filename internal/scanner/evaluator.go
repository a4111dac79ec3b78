package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"swing-signal-bot/internal/analysis"
	"swing-signal-bot/internal/confluence"
	"swing-signal-bot/internal/dedup"
	"swing-signal-bot/internal/market"
	"swing-signal-bot/internal/memory"
	"swing-signal-bot/internal/patterns"
	"swing-signal-bot/internal/risk"
	"swing-signal-bot/internal/signal"
)

// stopFallbackPct places the stop when no structural level is available.
const stopFallbackPct = 0.02

// Evaluator runs the full decision chain for one symbol on candle close:
// data sufficiency, adaptive gates, regime classification, confluence
// scoring, risk validation and dedup, finally emitting a signal.
type Evaluator struct {
	cfg   Config
	store *market.Store

	regimes      *analysis.RegimeClassifier
	liquidity    *analysis.LiquidityDetector
	orderBlocks  *analysis.OrderBlockDetector
	fvgs         *analysis.FVGDetector
	displacement *analysis.DisplacementDetector
	zones        *analysis.ZoneAnalyzer
	volatility   *analysis.VolatilityAnalyzer
	trendlines   *analysis.TrendlineDetector
	levels       *analysis.LevelDetector
	patterns     *patterns.Detector

	continuation *confluence.Scorer
	reversal     *confluence.Scorer

	governor *dedup.Governor
	risk     *risk.Manager
	memory   *memory.AdaptiveMemory
	tracker  *signal.Tracker

	now    func() time.Time
	logger zerolog.Logger
}

// EvaluatorDeps bundles the shared components the evaluator coordinates.
type EvaluatorDeps struct {
	Store        *market.Store
	Regimes      *analysis.RegimeClassifier
	Continuation *confluence.Scorer
	Reversal     *confluence.Scorer
	Governor     *dedup.Governor
	Risk         *risk.Manager
	Memory       *memory.AdaptiveMemory
	Tracker      *signal.Tracker
	Clock        func() time.Time
}

// NewEvaluator creates an evaluator with detectors tuned from the analysis
// settings. A nil clock uses time.Now.
func NewEvaluator(cfg Config, deps EvaluatorDeps, logger zerolog.Logger) *Evaluator {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Evaluator{
		cfg:          cfg,
		store:        deps.Store,
		regimes:      deps.Regimes,
		liquidity:    analysis.NewLiquidityDetector(0, cfg.Analysis.SweepTolerancePct),
		orderBlocks:  analysis.NewOrderBlockDetector(),
		fvgs:         analysis.NewFVGDetector(cfg.Analysis.MinGapPct),
		displacement: analysis.NewDisplacementDetector(),
		zones:        analysis.NewZoneAnalyzer(cfg.Analysis.RangeLookback),
		volatility:   analysis.NewVolatilityAnalyzer(),
		trendlines:   analysis.NewTrendlineDetector(),
		levels:       analysis.NewLevelDetector(cfg.Analysis.LevelClusterPct),
		patterns:     patterns.NewDetector(),
		continuation: deps.Continuation,
		reversal:     deps.Reversal,
		governor:     deps.Governor,
		risk:         deps.Risk,
		memory:       deps.Memory,
		tracker:      deps.Tracker,
		now:          deps.Clock,
		logger:       logger.With().Str("component", "evaluator").Logger(),
	}
}

// Evaluate runs the decision chain for a symbol. It is called once per
// closed fast-timeframe candle and returns the decision together with the
// emitted signal, if any.
func (e *Evaluator) Evaluate(ctx context.Context, symbol string) (Decision, *signal.Signal) {
	dec := Decision{Symbol: symbol}

	slow := e.store.Closed(symbol, e.cfg.SlowTimeframe)
	anchor := e.store.Closed(symbol, e.cfg.AnchorTimeframe)
	fast := e.store.Closed(symbol, e.cfg.FastTimeframe)

	if len(fast) == 0 {
		dec.Reason = "no data"
		return dec, nil
	}
	latest := fast[len(fast)-1]
	dec.At = latest.CloseTime

	if len(slow) < 50 || len(anchor) < 50 || len(fast) < 50 {
		dec.Reason = "insufficient history"
		return dec, nil
	}

	if e.memory.TradingPaused() {
		dec.Reason = "trading paused"
		return dec, nil
	}
	if e.memory.SymbolOnCooldown(symbol) {
		dec.Reason = "symbol on cooldown"
		return dec, nil
	}

	regime := e.regimes.Classify(slow, anchor, fast,
		e.cfg.SlowTimeframe, e.cfg.AnchorTimeframe, e.cfg.FastTimeframe)
	dec.Regime = regime.Regime

	if regime.Regime == analysis.RegimeSideway {
		dec.Reason = "sideway regime"
		return dec, nil
	}
	if e.memory.ModelDisabled(regime.Regime) {
		dec.Reason = fmt.Sprintf("%s model disabled", regime.Regime)
		return dec, nil
	}

	dir, ok := e.direction(regime)
	if !ok {
		dec.Reason = "no directional bias"
		return dec, nil
	}
	dec.Direction = dir

	breakdown, baseMin := e.score(regime, dir, anchor, fast, latest.Close)
	dec.Breakdown = breakdown
	dec.Score = breakdown.Total

	threshold := e.memory.AdjustedThreshold(baseMin) + e.memory.SymbolAdjustment(symbol)
	if regime.Regime == analysis.RegimeReversal && e.memory.PrioritizeContinuation() {
		threshold += 5
	}
	dec.Threshold = threshold

	if breakdown.Total < threshold {
		dec.Reason = fmt.Sprintf("score %d below threshold %d", breakdown.Total, threshold)
		e.logger.Debug().
			Str("symbol", symbol).
			Str("regime", string(regime.Regime)).
			Int("score", breakdown.Total).
			Int("threshold", threshold).
			Msg("setup rejected")
		return dec, nil
	}

	if ok, reason := e.risk.CanSignal(e.memory.AdjustedMaxSignals(e.cfg.MaxSignalsPerDay)); !ok {
		dec.Reason = reason
		return dec, nil
	}

	window, _ := e.store.Window(symbol, e.cfg.FastTimeframe)
	if ok, reason := e.governor.CanSend(symbol, dir, string(regime.Regime), window); !ok {
		dec.Reason = reason
		return dec, nil
	}

	sig, reason := e.buildSignal(regime, dir, fast, latest, window)
	if sig == nil {
		dec.Reason = reason
		return dec, nil
	}
	sig.Breakdown = breakdown
	sig.Score = breakdown.Total

	e.tracker.Track(ctx, *sig)
	e.governor.Record(sig.ID, sig.Symbol, sig.Direction, string(sig.Setup), sig.Window)
	e.risk.RegisterSignal()

	dec.Emitted = true
	e.logger.Info().
		Str("symbol", symbol).
		Str("direction", string(dir)).
		Str("setup", string(regime.Regime)).
		Int("score", breakdown.Total).
		Float64("entry", sig.Entry).
		Float64("stop", sig.StopLoss).
		Msg("signal emitted")

	return dec, sig
}

// direction derives the trade side from the regime. Continuation trades
// with the anchor trend, reversal against the trend the CHoCH broke.
func (e *Evaluator) direction(regime analysis.RegimeContext) (market.Direction, bool) {
	switch regime.Anchor.Trend {
	case analysis.TrendBullish:
		if regime.Regime == analysis.RegimeReversal {
			return market.Short, true
		}
		return market.Long, true
	case analysis.TrendBearish:
		if regime.Regime == analysis.RegimeReversal {
			return market.Long, true
		}
		return market.Short, true
	}
	return "", false
}

// score computes the confluence breakdown for the active setup type and
// returns it with the base minimum score.
func (e *Evaluator) score(regime analysis.RegimeContext, dir market.Direction, anchor, fast []market.Candle, price float64) (confluence.Breakdown, int) {
	sweep := e.liquidity.DetectSweep(fast)

	if regime.Regime == analysis.RegimeContinuation {
		components := map[string]confluence.Component{
			"structure":        e.structureComponent(regime),
			"pullback":         component(e.trendlines.Score(regime.Anchor, anchor, dir), "trendline retest"),
			"premium_discount": component(e.zones.Score(fast, dir), "range position"),
			"liquidity":        component(e.liquidity.ScoreSweep(sweep, analysis.SweepInternal), "internal sweep"),
			"ob_fvg":           e.zoneRetestComponent(fast, dir),
			"displacement":     component(e.displacement.Score(fast, dir), "displacement"),
			"volatility":       component(e.volatility.Score(fast), "volatility regime"),
		}
		return e.continuation.Score(dir, components), e.cfg.ContinuationMin
	}

	conf := e.patterns.ScoreConfirmation(fast, dir, regime.FastATR, e.nearestLevelPrice(regime.Anchor, price, dir))
	components := map[string]confluence.Component{
		"external_sweep":   component(e.liquidity.ScoreSweep(sweep, analysis.SweepExternal), "external sweep"),
		"choch":            e.chochComponent(regime),
		"displacement":     component(e.displacement.Score(fast, dir), "displacement"),
		"sr_strength":      component(e.levels.Score(regime.Anchor, price, dir), "level strength"),
		"pattern":          component(conf.Score, patternRationale(conf)),
		"volatility":       component(e.volatility.Score(fast), "volatility regime"),
		"premium_discount": component(e.zones.Score(fast, dir), "range position"),
	}
	return e.reversal.Score(dir, components), e.cfg.ReversalMin
}

func component(score int, rationale string) confluence.Component {
	return confluence.Component{Score: score, Rationale: rationale}
}

// structureComponent scores multi-timeframe trend quality for continuation.
func (e *Evaluator) structureComponent(regime analysis.RegimeContext) confluence.Component {
	score := 0
	if regime.Aligned {
		score += 50
	}
	if regime.Anchor.Intact {
		score += 30
	}
	if regime.Slow.Intact {
		score += 20
	}
	return component(score, "trend alignment")
}

// chochComponent scores the structural break backing a reversal.
func (e *Evaluator) chochComponent(regime analysis.RegimeContext) confluence.Component {
	score := 0
	if regime.Anchor.LastBreak == analysis.BreakCHoCH {
		score = 100
	} else if regime.Fast.LastBreak == analysis.BreakCHoCH {
		score = 60
	}
	return component(score, "change of character")
}

// zoneRetestComponent takes the stronger of the order block and fair value
// gap retest reads.
func (e *Evaluator) zoneRetestComponent(fast []market.Candle, dir market.Direction) confluence.Component {
	ob := e.orderBlocks.Score(fast, dir)
	gap := e.fvgs.Score(fast, dir)
	if ob >= gap {
		return component(ob, "order block retest")
	}
	return component(gap, "fair value gap retest")
}

func (e *Evaluator) nearestLevelPrice(structure analysis.StructureState, price float64, dir market.Direction) float64 {
	lvls := e.levels.Detect(structure)
	if lvl, ok := e.levels.Nearest(lvls, price, dir.Opposite()); ok {
		return lvl.Price
	}
	return 0
}

func patternRationale(conf patterns.Confirmation) string {
	if len(conf.Patterns) == 0 {
		return "no confirmation pattern"
	}
	return string(conf.Patterns[0])
}

// buildSignal assembles the final signal: stop from structure with a fixed
// percentage fallback, targets anchored to liquidity pools, position sized
// from the adjusted risk budget. A nil signal carries the rejection reason.
func (e *Evaluator) buildSignal(regime analysis.RegimeContext, dir market.Direction, fast []market.Candle, latest market.Candle, window time.Time) (*signal.Signal, string) {
	entry := latest.Close
	stop := e.stopLevel(regime, dir, entry)

	pools := e.liquidity.IdentifyPools(regime.Anchor)
	targets, err := e.risk.CalculateTargets(entry, stop, dir, risk.StructuralLevels{
		InternalHigh: pools.InternalHigh,
		InternalLow:  pools.InternalLow,
		ExternalHigh: pools.ExternalHigh,
		ExternalLow:  pools.ExternalLow,
	})
	if err != nil {
		return nil, err.Error()
	}

	if ok, reason := e.risk.ValidateSetup(entry, stop, targets.TP3); !ok {
		return nil, reason
	}

	riskPct := e.memory.AdjustedRisk(e.cfg.RiskPerTrade)
	pos, err := e.risk.PositionSize(entry, stop, e.cfg.AccountBalance, riskPct)
	if err != nil {
		return nil, err.Error()
	}

	return &signal.Signal{
		ID:        signal.NewID(),
		Symbol:    latest.Symbol,
		Direction: dir,
		Setup:     regime.Regime,
		Entry:     entry,
		StopLoss:  stop,
		TP1:       targets.TP1,
		TP2:       targets.TP2,
		TP3:       targets.TP3,
		RiskPct:   pos.RiskPct,
		Size:      pos.Size,
		Window:    window,
		CreatedAt: e.now(),
		Status:    signal.StatusActive,
	}, ""
}

// stopLevel places the stop behind the most recent opposing fast swing,
// falling back to a fixed percentage when structure offers nothing usable.
func (e *Evaluator) stopLevel(regime analysis.RegimeContext, dir market.Direction, entry float64) float64 {
	if dir == market.Long {
		if low, ok := regime.Fast.RecentLow(); ok && low.Price < entry {
			return low.Price
		}
		return entry * (1 - stopFallbackPct)
	}
	if high, ok := regime.Fast.RecentHigh(); ok && high.Price > entry {
		return high.Price
	}
	return entry * (1 + stopFallbackPct)
}
