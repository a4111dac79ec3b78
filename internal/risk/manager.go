package risk

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"swing-signal-bot/internal/market"
)

var (
	ErrStopAtEntry = errors.New("risk: stop loss equals entry price")
)

// Config holds risk management configuration.
type Config struct {
	RiskPerTrade     float64 // fraction of balance risked per trade
	MinRiskReward    float64 // minimum RR to the final target
	MaxSignalsPerDay int     // daily signal cap, zero or below means unlimited
	TP1Multiple      float64 // fallback R multiples for targets
	TP2Multiple      float64
	TP3Multiple      float64
}

// DefaultConfig returns the stock risk configuration.
func DefaultConfig() Config {
	return Config{
		RiskPerTrade:     0.01,
		MinRiskReward:    2.5,
		MaxSignalsPerDay: 3,
		TP1Multiple:      1.0,
		TP2Multiple:      2.0,
		TP3Multiple:      3.0,
	}
}

// Position is a sized trade derived from the risk budget.
type Position struct {
	Size       float64 // units of the base asset
	RiskAmount float64 // quote currency at risk
	RiskPct    float64
	PriceRisk  float64 // distance from entry to stop
}

// Targets are the three take profit levels with their RR multiples.
type Targets struct {
	TP1, TP2, TP3 float64
	RR1, RR2, RR3 float64
	StructuralTP2 bool // TP2 anchored to a structural level rather than an R multiple
	StructuralTP3 bool
}

// StructuralLevels carries liquidity levels used to anchor targets.
// Zero values mean no level is available on that side.
type StructuralLevels struct {
	InternalHigh float64
	InternalLow  float64
	ExternalHigh float64
	ExternalLow  float64
}

// Manager sizes positions, derives targets and enforces the daily signal
// cap.
type Manager struct {
	mu           sync.Mutex
	cfg          Config
	now          func() time.Time
	dailySignals int
	lastResetDay time.Time
	logger       zerolog.Logger
}

// NewManager creates a risk manager. A nil clock uses time.Now.
func NewManager(cfg Config, clock func() time.Time, logger zerolog.Logger) *Manager {
	if clock == nil {
		clock = time.Now
	}
	if cfg.TP1Multiple <= 0 {
		cfg.TP1Multiple = 1.0
	}
	if cfg.TP2Multiple <= 0 {
		cfg.TP2Multiple = 2.0
	}
	if cfg.TP3Multiple <= 0 {
		cfg.TP3Multiple = 3.0
	}
	m := &Manager{
		cfg:    cfg,
		now:    clock,
		logger: logger.With().Str("component", "risk").Logger(),
	}
	m.lastResetDay = m.utcDay()
	return m
}

func (m *Manager) utcDay() time.Time {
	return m.now().UTC().Truncate(24 * time.Hour)
}

// PositionSize sizes a position so the stop distance costs the configured
// fraction of the balance. A riskPct of zero or below falls back to the
// configured default.
func (m *Manager) PositionSize(entry, stop, balance, riskPct float64) (Position, error) {
	if riskPct <= 0 {
		riskPct = m.cfg.RiskPerTrade
	}

	priceRisk := math.Abs(entry - stop)
	if priceRisk == 0 {
		return Position{}, ErrStopAtEntry
	}

	riskAmount := balance * riskPct
	return Position{
		Size:       riskAmount / priceRisk,
		RiskAmount: riskAmount,
		RiskPct:    riskPct,
		PriceRisk:  priceRisk,
	}, nil
}

// CalculateTargets derives the three take profit levels. TP1 is always the
// first R multiple. TP2 and TP3 prefer internal and external liquidity
// levels when present. If the structural overrides break the monotonic
// ordering away from entry, all three targets fall back to plain R
// multiples.
func (m *Manager) CalculateTargets(entry, stop float64, dir market.Direction, levels StructuralLevels) (Targets, error) {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return Targets{}, ErrStopAtEntry
	}

	t := Targets{}
	if dir == market.Long {
		t.TP1 = entry + risk*m.cfg.TP1Multiple
		t.TP2 = entry + risk*m.cfg.TP2Multiple
		t.TP3 = entry + risk*m.cfg.TP3Multiple
		if levels.InternalHigh > 0 {
			t.TP2 = levels.InternalHigh
			t.StructuralTP2 = true
		}
		if levels.ExternalHigh > 0 {
			t.TP3 = levels.ExternalHigh
			t.StructuralTP3 = true
		}
		if !(t.TP1 < t.TP2 && t.TP2 < t.TP3) {
			t = m.rFallback(entry, risk, dir)
		}
	} else {
		t.TP1 = entry - risk*m.cfg.TP1Multiple
		t.TP2 = entry - risk*m.cfg.TP2Multiple
		t.TP3 = entry - risk*m.cfg.TP3Multiple
		if levels.InternalLow > 0 {
			t.TP2 = levels.InternalLow
			t.StructuralTP2 = true
		}
		if levels.ExternalLow > 0 {
			t.TP3 = levels.ExternalLow
			t.StructuralTP3 = true
		}
		if !(t.TP1 > t.TP2 && t.TP2 > t.TP3) {
			t = m.rFallback(entry, risk, dir)
		}
	}

	t.RR1 = riskReward(entry, stop, t.TP1)
	t.RR2 = riskReward(entry, stop, t.TP2)
	t.RR3 = riskReward(entry, stop, t.TP3)
	return t, nil
}

func (m *Manager) rFallback(entry, risk float64, dir market.Direction) Targets {
	sign := 1.0
	if dir == market.Short {
		sign = -1.0
	}
	return Targets{
		TP1: entry + sign*risk*m.cfg.TP1Multiple,
		TP2: entry + sign*risk*m.cfg.TP2Multiple,
		TP3: entry + sign*risk*m.cfg.TP3Multiple,
	}
}

func riskReward(entry, stop, target float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(target-entry) / risk
}

// ValidateSetup checks that the reward to the given target clears the
// minimum RR. The returned reason explains a rejection.
func (m *Manager) ValidateSetup(entry, stop, target float64) (bool, string) {
	rr := riskReward(entry, stop, target)
	if rr < m.cfg.MinRiskReward {
		return false, fmt.Sprintf("risk reward %.2f below minimum %.2f", rr, m.cfg.MinRiskReward)
	}
	return true, ""
}

// CanSignal reports whether the daily signal budget allows another signal.
// The counter resets lazily when the UTC day rolls over. maxOverride above
// zero replaces the configured cap for this check, a cap of zero or below
// means unlimited.
func (m *Manager) CanSignal(maxOverride int) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetIfNewDay()

	limit := m.cfg.MaxSignalsPerDay
	if maxOverride > 0 {
		limit = maxOverride
	}
	if limit <= 0 {
		return true, ""
	}
	if m.dailySignals >= limit {
		return false, fmt.Sprintf("daily signal limit reached (%d/%d)", m.dailySignals, limit)
	}
	return true, ""
}

// RegisterSignal counts an emitted signal against the daily budget.
func (m *Manager) RegisterSignal() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetIfNewDay()
	m.dailySignals++
	m.logger.Debug().Int("daily_signals", m.dailySignals).Msg("signal registered")
}

// DailySignals returns today's emitted signal count.
func (m *Manager) DailySignals() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetIfNewDay()
	return m.dailySignals
}

// resetIfNewDay zeroes the counter on UTC day rollover. Caller holds the
// lock.
func (m *Manager) resetIfNewDay() {
	day := m.utcDay()
	if !day.Equal(m.lastResetDay) {
		m.dailySignals = 0
		m.lastResetDay = day
	}
}
