package memory

import (
	"time"

	"swing-signal-bot/internal/analysis"
)

// Snapshot is the serializable adaptive memory state.
type Snapshot struct {
	GlobalOutcomes      []bool                       `json:"global_outcomes"`
	SymbolOutcomes      map[string][]bool            `json:"symbol_outcomes"`
	ModelOutcomes       map[analysis.Regime][]bool   `json:"model_outcomes"`
	ConsecutiveLosses   int                          `json:"consecutive_losses"`
	Drawdown            float64                      `json:"drawdown"`
	PausedUntil         time.Time                    `json:"paused_until"`
	ReversalOffUntil    time.Time                    `json:"reversal_off_until"`
	SymbolCooldowns     map[string]time.Time         `json:"symbol_cooldowns"`
	ThresholdAdjustment int                          `json:"threshold_adjustment"`
	SignalsAdjustment   int                          `json:"signals_adjustment"`
	RiskMultiplier      float64                      `json:"risk_multiplier"`
	UpdatedAt           time.Time                    `json:"updated_at"`
}

// Snapshot captures the current state for persistence.
func (am *AdaptiveMemory) Snapshot() Snapshot {
	am.mu.Lock()
	defer am.mu.Unlock()

	s := Snapshot{
		GlobalOutcomes:      append([]bool(nil), am.global.outcomes...),
		SymbolOutcomes:      make(map[string][]bool, len(am.symbols)),
		ModelOutcomes:       make(map[analysis.Regime][]bool, len(am.models)),
		ConsecutiveLosses:   am.consecutiveLosses,
		Drawdown:            am.drawdown,
		PausedUntil:         am.pausedUntil,
		ReversalOffUntil:    am.reversalOffUntil,
		SymbolCooldowns:     make(map[string]time.Time, len(am.symbolCooldowns)),
		ThresholdAdjustment: am.thresholdAdjustment,
		SignalsAdjustment:   am.signalsAdjustment,
		RiskMultiplier:      am.riskMultiplier,
		UpdatedAt:           am.now(),
	}
	for sym, w := range am.symbols {
		s.SymbolOutcomes[sym] = append([]bool(nil), w.outcomes...)
	}
	for model, w := range am.models {
		s.ModelOutcomes[model] = append([]bool(nil), w.outcomes...)
	}
	for sym, until := range am.symbolCooldowns {
		if until.After(am.now()) {
			s.SymbolCooldowns[sym] = until
		}
	}
	return s
}

// Restore replaces the in-memory state with a snapshot. Windows are
// re-trimmed to the configured capacities so a snapshot from a larger
// configuration cannot overflow them.
func (am *AdaptiveMemory) Restore(s Snapshot) {
	am.mu.Lock()
	defer am.mu.Unlock()

	am.global = newWindow(am.cfg.RollingWindow)
	for _, win := range s.GlobalOutcomes {
		am.global.push(win)
	}

	am.symbols = make(map[string]*window, len(s.SymbolOutcomes))
	for sym, outcomes := range s.SymbolOutcomes {
		w := newWindow(am.cfg.SymbolWindow)
		for _, win := range outcomes {
			w.push(win)
		}
		am.symbols[sym] = w
	}

	for model := range am.models {
		fresh := newWindow(am.cfg.RollingWindow)
		for _, win := range s.ModelOutcomes[model] {
			fresh.push(win)
		}
		am.models[model] = fresh
	}

	am.consecutiveLosses = s.ConsecutiveLosses
	am.drawdown = s.Drawdown
	am.pausedUntil = s.PausedUntil
	am.reversalOffUntil = s.ReversalOffUntil

	am.symbolCooldowns = make(map[string]time.Time, len(s.SymbolCooldowns))
	now := am.now()
	for sym, until := range s.SymbolCooldowns {
		if until.After(now) {
			am.symbolCooldowns[sym] = until
		}
	}

	am.thresholdAdjustment = s.ThresholdAdjustment
	am.signalsAdjustment = s.SignalsAdjustment
	am.riskMultiplier = s.RiskMultiplier
	if am.riskMultiplier == 0 {
		am.riskMultiplier = 1.0
	}
}
