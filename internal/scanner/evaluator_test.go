package scanner

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"swing-signal-bot/internal/analysis"
	"swing-signal-bot/internal/confluence"
	"swing-signal-bot/internal/dedup"
	"swing-signal-bot/internal/market"
	"swing-signal-bot/internal/memory"
	"swing-signal-bot/internal/risk"
	"swing-signal-bot/internal/signal"
)

// trendingCandles builds a stair-stepping uptrend: waves of six up candles
// followed by two pullback candles, with one impulsive thrust near the end.
// Every wave prints a higher swing high and a higher swing low.
func trendingCandles(symbol, tf string, n int) []market.Candle {
	out := make([]market.Candle, 0, n)
	openTime := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0

	for i := 0; i < n; i++ {
		var c market.Candle
		switch {
		case i == n-3:
			// Impulsive thrust with expanded volume.
			c = market.Candle{Open: price, Close: price + 3, High: price + 3.2, Low: price, Volume: 2500}
		case i%8 < 6:
			c = market.Candle{Open: price, Close: price + 1, High: price + 1.2, Low: price, Volume: 1000}
		default:
			c = market.Candle{Open: price, Close: price - 1, High: price, Low: price - 1.2, Volume: 800}
		}
		c.Symbol = symbol
		c.Timeframe = tf
		c.OpenTime = openTime
		c.CloseTime = openTime.Add(30 * time.Minute)
		c.Closed = true

		out = append(out, c)
		price = c.Close
		openTime = c.CloseTime
	}
	return out
}

type evaluatorHarness struct {
	evaluator *Evaluator
	governor  *dedup.Governor
	risk      *risk.Manager
	tracker   *signal.Tracker
	store     *market.Store
}

func newEvaluatorHarness(t *testing.T, clock func() time.Time) *evaluatorHarness {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Symbols = []string{"BTCUSDT"}
	cfg.Analysis = AnalysisSettings{
		SweepTolerancePct: 0.002,
		MinGapPct:         0.001,
		RangeLookback:     40,
		LevelClusterPct:   0.01,
	}

	// Structure quality alone decides so the fixture stays deterministic.
	scorer, err := confluence.NewScorer(confluence.Weights{"structure": 100})
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}

	structure := analysis.NewStructureAnalyzer(2)
	store := market.NewStore(200)
	governor := dedup.NewGovernor(dedup.DefaultConfig(), clock)
	riskManager := risk.NewManager(risk.Config{
		RiskPerTrade:     0.01,
		MinRiskReward:    2.5,
		MaxSignalsPerDay: 3,
	}, clock, zerolog.Nop())
	tracker := signal.NewTracker(nil, clock, zerolog.Nop())

	evaluator := NewEvaluator(cfg, EvaluatorDeps{
		Store:        store,
		Regimes:      analysis.NewRegimeClassifier(structure, analysis.DefaultRegimeConfig()),
		Continuation: scorer,
		Reversal:     scorer,
		Governor:     governor,
		Risk:         riskManager,
		Memory:       memory.NewAdaptiveMemory(memory.DefaultConfig(), clock, zerolog.Nop()),
		Tracker:      tracker,
		Clock:        clock,
	}, zerolog.Nop())

	return &evaluatorHarness{
		evaluator: evaluator,
		governor:  governor,
		risk:      riskManager,
		tracker:   tracker,
		store:     store,
	}
}

func (h *evaluatorHarness) loadTrend(symbol string, n int) {
	for _, tf := range []string{"4h", "1h", "30m"} {
		for _, c := range trendingCandles(symbol, tf, n) {
			h.store.Apply(c)
		}
	}
}

func TestEvaluatorEmitsContinuationSignal(t *testing.T) {
	now := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	h := newEvaluatorHarness(t, func() time.Time { return now })
	h.loadTrend("BTCUSDT", 80)

	dec, sig := h.evaluator.Evaluate(context.Background(), "BTCUSDT")
	if !dec.Emitted || sig == nil {
		t.Fatalf("expected signal from trending market, got reason %q", dec.Reason)
	}

	if sig.Direction != market.Long {
		t.Errorf("expected long with the trend, got %s", sig.Direction)
	}
	if sig.Setup != analysis.RegimeContinuation {
		t.Errorf("expected continuation setup, got %s", sig.Setup)
	}
	if sig.StopLoss >= sig.Entry {
		t.Errorf("expected stop %f below entry %f", sig.StopLoss, sig.Entry)
	}
	if !(sig.Entry < sig.TP1 && sig.TP1 < sig.TP2 && sig.TP2 < sig.TP3) {
		t.Errorf("expected ascending targets, got %f/%f/%f around entry %f",
			sig.TP1, sig.TP2, sig.TP3, sig.Entry)
	}

	// The final target must clear the minimum reward to risk.
	rr := (sig.TP3 - sig.Entry) / (sig.Entry - sig.StopLoss)
	if rr < 2.5-1e-9 {
		t.Errorf("expected final target RR of at least 2.5, got %f", rr)
	}

	if got := len(h.tracker.ActiveForSymbol("BTCUSDT")); got != 1 {
		t.Errorf("expected 1 tracked signal, got %d", got)
	}
	if got := h.governor.ActiveCount("BTCUSDT"); got != 1 {
		t.Errorf("expected 1 governed signal, got %d", got)
	}
	if got := h.risk.DailySignals(); got != 1 {
		t.Errorf("expected 1 daily signal counted, got %d", got)
	}
}

func TestEvaluatorSetupSurvivesOneRTargets(t *testing.T) {
	// The first take profit sits at 1R. The reward gate must judge the
	// final target, not the first, or every setup dies here.
	now := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	h := newEvaluatorHarness(t, func() time.Time { return now })
	h.loadTrend("BTCUSDT", 80)

	dec, sig := h.evaluator.Evaluate(context.Background(), "BTCUSDT")
	if !dec.Emitted || sig == nil {
		t.Fatalf("expected emission, got reason %q", dec.Reason)
	}

	rr1 := (sig.TP1 - sig.Entry) / (sig.Entry - sig.StopLoss)
	if math.Abs(rr1-1) > 1e-9 {
		t.Fatalf("expected first target at 1R, got %f", rr1)
	}
}

func TestEvaluatorSecondPassHitsGlobalCooldown(t *testing.T) {
	now := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	h := newEvaluatorHarness(t, func() time.Time { return now })
	h.loadTrend("BTCUSDT", 80)

	if dec, _ := h.evaluator.Evaluate(context.Background(), "BTCUSDT"); !dec.Emitted {
		t.Fatalf("expected first evaluation to emit, got reason %q", dec.Reason)
	}

	dec, sig := h.evaluator.Evaluate(context.Background(), "BTCUSDT")
	if dec.Emitted || sig != nil {
		t.Fatal("expected second evaluation throttled")
	}
	if dec.Reason != "global cooldown active" {
		t.Errorf("expected global cooldown rejection, got %q", dec.Reason)
	}
}

func TestEvaluatorRejectsInsufficientHistory(t *testing.T) {
	now := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	h := newEvaluatorHarness(t, func() time.Time { return now })
	h.loadTrend("BTCUSDT", 40)

	dec, sig := h.evaluator.Evaluate(context.Background(), "BTCUSDT")
	if dec.Emitted || sig != nil {
		t.Fatal("expected no signal on short history")
	}
	if dec.Reason != "insufficient history" {
		t.Errorf("expected insufficient history rejection, got %q", dec.Reason)
	}
}
