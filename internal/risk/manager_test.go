package risk

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"swing-signal-bot/internal/market"
)

func newTestManager(clock func() time.Time) *Manager {
	return NewManager(DefaultConfig(), clock, zerolog.Nop())
}

func TestPositionSize(t *testing.T) {
	m := newTestManager(nil)

	pos, err := m.PositionSize(100, 98, 10000, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.RiskAmount != 100 {
		t.Errorf("expected risk amount 100, got %v", pos.RiskAmount)
	}
	if pos.Size != 50 {
		t.Errorf("expected size 50, got %v", pos.Size)
	}
	if pos.PriceRisk != 2 {
		t.Errorf("expected price risk 2, got %v", pos.PriceRisk)
	}
}

func TestPositionSizeDefaultsRiskPct(t *testing.T) {
	m := newTestManager(nil)

	pos, err := m.PositionSize(100, 95, 10000, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.RiskPct != 0.01 {
		t.Errorf("expected configured default risk, got %v", pos.RiskPct)
	}
	if pos.RiskAmount != 100 {
		t.Errorf("expected risk amount 100, got %v", pos.RiskAmount)
	}
}

func TestPositionSizeStopAtEntry(t *testing.T) {
	m := newTestManager(nil)

	if _, err := m.PositionSize(100, 100, 10000, 0.01); err != ErrStopAtEntry {
		t.Errorf("expected ErrStopAtEntry, got %v", err)
	}
}

func TestCalculateTargetsRMultiples(t *testing.T) {
	m := newTestManager(nil)

	targets, err := m.CalculateTargets(100, 98, market.Long, StructuralLevels{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets.TP1 != 102 || targets.TP2 != 104 || targets.TP3 != 106 {
		t.Errorf("unexpected targets: %+v", targets)
	}
	if targets.RR1 != 1 || targets.RR2 != 2 || targets.RR3 != 3 {
		t.Errorf("unexpected RR multiples: %+v", targets)
	}
	if targets.StructuralTP2 || targets.StructuralTP3 {
		t.Error("expected no structural anchoring without levels")
	}
}

func TestCalculateTargetsStructuralLevels(t *testing.T) {
	m := newTestManager(nil)

	levels := StructuralLevels{InternalHigh: 105, ExternalHigh: 110}
	targets, err := m.CalculateTargets(100, 98, market.Long, levels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets.TP2 != 105 || !targets.StructuralTP2 {
		t.Errorf("expected TP2 anchored at 105, got %+v", targets)
	}
	if targets.TP3 != 110 || !targets.StructuralTP3 {
		t.Errorf("expected TP3 anchored at 110, got %+v", targets)
	}
	if targets.RR2 != 2.5 || targets.RR3 != 5 {
		t.Errorf("unexpected RR multiples: %+v", targets)
	}
}

func TestCalculateTargetsShortStructural(t *testing.T) {
	m := newTestManager(nil)

	levels := StructuralLevels{InternalLow: 95, ExternalLow: 90}
	targets, err := m.CalculateTargets(100, 102, market.Short, levels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets.TP1 != 98 || targets.TP2 != 95 || targets.TP3 != 90 {
		t.Errorf("unexpected short targets: %+v", targets)
	}
}

func TestCalculateTargetsOrderingFallback(t *testing.T) {
	m := newTestManager(nil)

	// An internal level below TP1 breaks the ordering, so all targets
	// revert to R multiples.
	levels := StructuralLevels{InternalHigh: 101, ExternalHigh: 110}
	targets, err := m.CalculateTargets(100, 98, market.Long, levels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets.TP1 != 102 || targets.TP2 != 104 || targets.TP3 != 106 {
		t.Errorf("expected R fallback, got %+v", targets)
	}
	if targets.StructuralTP2 || targets.StructuralTP3 {
		t.Error("fallback targets must not report structural anchoring")
	}
}

func TestCalculateTargetsStopAtEntry(t *testing.T) {
	m := newTestManager(nil)

	if _, err := m.CalculateTargets(100, 100, market.Long, StructuralLevels{}); err != ErrStopAtEntry {
		t.Errorf("expected ErrStopAtEntry, got %v", err)
	}
}

func TestValidateSetup(t *testing.T) {
	m := newTestManager(nil)

	ok, _ := m.ValidateSetup(100, 98, 105)
	if !ok {
		t.Error("expected RR 2.5 to pass")
	}

	ok, reason := m.ValidateSetup(100, 98, 103)
	if ok {
		t.Error("expected RR 1.5 to fail")
	}
	if reason != "risk reward 1.50 below minimum 2.50" {
		t.Errorf("unexpected reason: %s", reason)
	}
}

func TestDailySignalCap(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if ok, reason := m.CanSignal(0); !ok {
			t.Fatalf("signal %d blocked: %s", i, reason)
		}
		m.RegisterSignal()
	}

	ok, reason := m.CanSignal(0)
	if ok {
		t.Fatal("expected daily cap to block")
	}
	if reason != "daily signal limit reached (3/3)" {
		t.Errorf("unexpected reason: %s", reason)
	}

	// A larger override lifts the cap for this check.
	if ok, _ := m.CanSignal(5); !ok {
		t.Error("expected override cap 5 to pass")
	}
	// A tighter override binds.
	m.RegisterSignal()
	if ok, _ := m.CanSignal(4); ok {
		t.Error("expected override cap 4 to block at 4 signals")
	}

	// UTC rollover resets the counter lazily.
	now = now.Add(24 * time.Hour)
	if ok, _ := m.CanSignal(0); !ok {
		t.Error("expected reset after day rollover")
	}
	if got := m.DailySignals(); got != 0 {
		t.Errorf("expected counter reset, got %d", got)
	}
}

func TestUnlimitedSignals(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSignalsPerDay = 0
	m := NewManager(cfg, nil, zerolog.Nop())

	for i := 0; i < 10; i++ {
		m.RegisterSignal()
	}
	if ok, _ := m.CanSignal(0); !ok {
		t.Error("expected unlimited signals with cap 0")
	}
}

func TestRiskReward(t *testing.T) {
	if got := riskReward(100, 98, 105); math.Abs(got-2.5) > 1e-9 {
		t.Errorf("expected RR 2.5, got %v", got)
	}
	if got := riskReward(100, 100, 105); got != 0 {
		t.Errorf("expected RR 0 at zero risk, got %v", got)
	}
}
