package memory

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"swing-signal-bot/internal/analysis"
)

// Config holds the adaptive rule thresholds.
type Config struct {
	RollingWindow        int     // trades in the global and per-model windows
	SymbolWindow         int     // trades in each per-symbol window
	LowWinrate           float64 // global winrate below this raises the score threshold
	ScoreIncrease        int     // threshold bump applied on low winrate
	ConsecutiveLossLimit int     // losses in a row that trigger a pause
	PauseDuration        time.Duration
	DrawdownModerate     float64 // equity drawdown fraction that cuts the daily signal cap
	DrawdownHigh         float64 // equity drawdown fraction that cuts risk per trade
	ReducedSignals       int
	ReducedRisk          float64
	SymbolLossLimit      int // consecutive losses that cool a symbol down
	SymbolCooldown       time.Duration
	SymbolLowWinrate     float64
	ReversalLowWinrate   float64 // reversal winrate below this disables the model
	ReversalDisable      time.Duration
	TrendingWinrate      float64 // continuation winrate above this marks it preferred
	BaseRiskPerTrade     float64
	BaseMaxSignals       int
}

// DefaultConfig returns the stock adaptive thresholds.
func DefaultConfig() Config {
	return Config{
		RollingWindow:        20,
		SymbolWindow:         10,
		LowWinrate:           0.55,
		ScoreIncrease:        5,
		ConsecutiveLossLimit: 3,
		PauseDuration:        12 * time.Hour,
		DrawdownModerate:     0.05,
		DrawdownHigh:         0.08,
		ReducedSignals:       2,
		ReducedRisk:          0.005,
		SymbolLossLimit:      2,
		SymbolCooldown:       24 * time.Hour,
		SymbolLowWinrate:     0.50,
		ReversalLowWinrate:   0.45,
		ReversalDisable:      48 * time.Hour,
		TrendingWinrate:      0.65,
		BaseRiskPerTrade:     0.01,
		BaseMaxSignals:       3,
	}
}

// window is a bounded FIFO of win/loss outcomes.
type window struct {
	outcomes []bool
	cap      int
}

func newWindow(cap int) *window {
	return &window{cap: cap}
}

func (w *window) push(win bool) {
	w.outcomes = append(w.outcomes, win)
	if len(w.outcomes) > w.cap {
		w.outcomes = w.outcomes[len(w.outcomes)-w.cap:]
	}
}

func (w *window) len() int { return len(w.outcomes) }

func (w *window) winrate() float64 {
	if len(w.outcomes) == 0 {
		return 0
	}
	wins := 0
	for _, win := range w.outcomes {
		if win {
			wins++
		}
	}
	return float64(wins) / float64(len(w.outcomes))
}

// lastAllLosses reports whether the last n outcomes exist and are all
// losses.
func (w *window) lastAllLosses(n int) bool {
	if len(w.outcomes) < n {
		return false
	}
	for _, win := range w.outcomes[len(w.outcomes)-n:] {
		if win {
			return false
		}
	}
	return true
}

// AdaptiveMemory adjusts signal gating from rolling trade outcomes using
// plain rules: no statistics beyond winrates, counters and R drawdown.
type AdaptiveMemory struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	global  *window
	symbols map[string]*window
	models  map[analysis.Regime]*window

	consecutiveLosses int
	drawdown          float64 // accumulated equity drawdown fraction, never negative
	pausedUntil       time.Time
	reversalOffUntil  time.Time
	symbolCooldowns   map[string]time.Time

	thresholdAdjustment int
	signalsAdjustment   int
	riskMultiplier      float64

	logger zerolog.Logger
}

// NewAdaptiveMemory creates an adaptive memory. A nil clock uses time.Now.
func NewAdaptiveMemory(cfg Config, clock func() time.Time, logger zerolog.Logger) *AdaptiveMemory {
	if clock == nil {
		clock = time.Now
	}
	return &AdaptiveMemory{
		cfg:     cfg,
		now:     clock,
		global:  newWindow(cfg.RollingWindow),
		symbols: make(map[string]*window),
		models: map[analysis.Regime]*window{
			analysis.RegimeContinuation: newWindow(cfg.RollingWindow),
			analysis.RegimeReversal:     newWindow(cfg.RollingWindow),
		},
		symbolCooldowns: make(map[string]time.Time),
		riskMultiplier:  1.0,
		logger:          logger.With().Str("component", "memory").Logger(),
	}
}

// RecordOutcome folds a closed trade into the rolling windows and
// re-evaluates every adaptive rule.
func (am *AdaptiveMemory) RecordOutcome(symbol string, model analysis.Regime, rMultiple float64) {
	am.mu.Lock()
	defer am.mu.Unlock()

	win := rMultiple > 0

	am.global.push(win)
	sw, ok := am.symbols[symbol]
	if !ok {
		sw = newWindow(am.cfg.SymbolWindow)
		am.symbols[symbol] = sw
	}
	sw.push(win)
	if mw, ok := am.models[model]; ok {
		mw.push(win)
	}

	// R multiples translate to equity fractions through the base risk per
	// trade. Wins reclaim at half weight, positions scale out at TP1.
	rEquity := rMultiple * am.cfg.BaseRiskPerTrade
	if win {
		am.consecutiveLosses = 0
		am.drawdown -= rEquity * 0.5
	} else {
		am.consecutiveLosses++
		am.drawdown += -rEquity
	}
	if am.drawdown < 0 {
		am.drawdown = 0
	}

	am.applyGlobalRules()
	am.applySymbolRules(symbol, sw)
	am.applyModelRules()

	am.logger.Info().
		Str("symbol", symbol).
		Str("model", string(model)).
		Bool("win", win).
		Float64("r_multiple", rMultiple).
		Float64("drawdown", am.drawdown).
		Msg("outcome recorded")
}

// applyGlobalRules re-evaluates the winrate, losing streak and drawdown
// rules. Caller holds the lock.
func (am *AdaptiveMemory) applyGlobalRules() {
	now := am.now()

	if am.global.len() >= 10 {
		if am.global.winrate() < am.cfg.LowWinrate {
			am.thresholdAdjustment = am.cfg.ScoreIncrease
		} else {
			am.thresholdAdjustment = 0
		}
	}

	// A running pause is never extended by further losses inside it.
	if am.consecutiveLosses >= am.cfg.ConsecutiveLossLimit && !now.Before(am.pausedUntil) {
		am.pausedUntil = now.Add(am.cfg.PauseDuration)
		am.logger.Warn().
			Int("consecutive_losses", am.consecutiveLosses).
			Time("paused_until", am.pausedUntil).
			Msg("losing streak pause")
	}

	if am.drawdown > am.cfg.DrawdownModerate {
		am.signalsAdjustment = am.cfg.ReducedSignals - am.cfg.BaseMaxSignals
	} else {
		am.signalsAdjustment = 0
	}

	if am.drawdown > am.cfg.DrawdownHigh {
		am.riskMultiplier = am.cfg.ReducedRisk / am.cfg.BaseRiskPerTrade
	} else {
		am.riskMultiplier = 1.0
	}
}

// applySymbolRules cools down symbols whose recent trades all lost. Caller
// holds the lock.
func (am *AdaptiveMemory) applySymbolRules(symbol string, sw *window) {
	if sw.lastAllLosses(am.cfg.SymbolLossLimit) {
		am.symbolCooldowns[symbol] = am.now().Add(am.cfg.SymbolCooldown)
		am.logger.Warn().Str("symbol", symbol).Msg("symbol cooldown applied")
	}
}

// applyModelRules disables the reversal model when its winrate sinks.
// Caller holds the lock.
func (am *AdaptiveMemory) applyModelRules() {
	rw := am.models[analysis.RegimeReversal]
	if rw.len() >= 10 && rw.winrate() < am.cfg.ReversalLowWinrate {
		am.reversalOffUntil = am.now().Add(am.cfg.ReversalDisable)
		am.logger.Warn().
			Float64("winrate", rw.winrate()).
			Msg("reversal model disabled")
	}
}

// TradingPaused reports whether the losing streak pause is in effect.
// Expired pauses clear lazily.
func (am *AdaptiveMemory) TradingPaused() bool {
	am.mu.Lock()
	defer am.mu.Unlock()

	if am.pausedUntil.IsZero() {
		return false
	}
	if am.now().After(am.pausedUntil) {
		am.pausedUntil = time.Time{}
		return false
	}
	return true
}

// SymbolOnCooldown reports whether the symbol is cooling down after
// consecutive losses.
func (am *AdaptiveMemory) SymbolOnCooldown(symbol string) bool {
	am.mu.Lock()
	defer am.mu.Unlock()

	until, ok := am.symbolCooldowns[symbol]
	if !ok {
		return false
	}
	if am.now().After(until) {
		delete(am.symbolCooldowns, symbol)
		return false
	}
	return true
}

// ModelDisabled reports whether signals for the model are suspended.
func (am *AdaptiveMemory) ModelDisabled(model analysis.Regime) bool {
	am.mu.Lock()
	defer am.mu.Unlock()

	if model != analysis.RegimeReversal {
		return false
	}
	if am.reversalOffUntil.IsZero() {
		return false
	}
	if am.now().After(am.reversalOffUntil) {
		am.reversalOffUntil = time.Time{}
		return false
	}
	return true
}

// AdjustedThreshold raises the base score threshold when the global
// winrate is poor.
func (am *AdaptiveMemory) AdjustedThreshold(base int) int {
	am.mu.Lock()
	defer am.mu.Unlock()
	return base + am.thresholdAdjustment
}

// AdjustedMaxSignals lowers the daily cap under drawdown, never below 1.
func (am *AdaptiveMemory) AdjustedMaxSignals(base int) int {
	am.mu.Lock()
	defer am.mu.Unlock()

	adjusted := base + am.signalsAdjustment
	if adjusted < 1 {
		adjusted = 1
	}
	return adjusted
}

// AdjustedRisk scales the base risk fraction under heavy drawdown.
func (am *AdaptiveMemory) AdjustedRisk(base float64) float64 {
	am.mu.Lock()
	defer am.mu.Unlock()
	return base * am.riskMultiplier
}

// SymbolAdjustment returns an extra score threshold bump for symbols with
// a full window of poor results.
func (am *AdaptiveMemory) SymbolAdjustment(symbol string) int {
	am.mu.Lock()
	defer am.mu.Unlock()

	sw, ok := am.symbols[symbol]
	if !ok || sw.len() < am.cfg.SymbolWindow {
		return 0
	}
	if sw.winrate() < am.cfg.SymbolLowWinrate {
		return am.cfg.ScoreIncrease
	}
	return 0
}

// PrioritizeContinuation reports whether continuation setups have been
// winning often enough to prefer them.
func (am *AdaptiveMemory) PrioritizeContinuation() bool {
	am.mu.Lock()
	defer am.mu.Unlock()

	cw := am.models[analysis.RegimeContinuation]
	return cw.len() >= 10 && cw.winrate() > am.cfg.TrendingWinrate
}

// Drawdown returns the current accumulated equity drawdown fraction.
func (am *AdaptiveMemory) Drawdown() float64 {
	am.mu.Lock()
	defer am.mu.Unlock()
	return am.drawdown
}

// ConsecutiveLosses returns the current losing streak length.
func (am *AdaptiveMemory) ConsecutiveLosses() int {
	am.mu.Lock()
	defer am.mu.Unlock()
	return am.consecutiveLosses
}
