package scanner

import (
	"time"

	"swing-signal-bot/internal/analysis"
	"swing-signal-bot/internal/confluence"
	"swing-signal-bot/internal/market"
)

// Config holds the orchestrator configuration.
type Config struct {
	Symbols         []string
	SlowTimeframe   string
	AnchorTimeframe string
	FastTimeframe   string
	Workers         int
	WarmupCandles   int

	AccountBalance float64
	RiskPerTrade   float64

	ContinuationMin  int
	ReversalMin      int
	MaxSignalsPerDay int

	Analysis AnalysisSettings

	// UniverseSize above the fixed symbol count enables volume-based
	// rotation of the extra slots.
	UniverseSize     int
	UniverseRefresh  time.Duration
	RotationInterval time.Duration

	SnapshotInterval time.Duration
}

// AnalysisSettings tunes the evaluator's detector set. Zero values select
// each detector's default.
type AnalysisSettings struct {
	SweepTolerancePct float64
	MinGapPct         float64
	RangeLookback     int
	LevelClusterPct   float64
}

// DefaultConfig returns the stock orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		SlowTimeframe:    "4h",
		AnchorTimeframe:  "1h",
		FastTimeframe:    "30m",
		Workers:          5,
		WarmupCandles:    200,
		AccountBalance:   10000,
		RiskPerTrade:     0.01,
		ContinuationMin:  80,
		ReversalMin:      85,
		MaxSignalsPerDay: 3,
		UniverseRefresh:  6 * time.Hour,
		RotationInterval: time.Hour,
		SnapshotInterval: time.Minute,
	}
}

// Decision records the outcome of one symbol evaluation. Evaluations that
// stop short of a signal carry the gate that rejected them.
type Decision struct {
	Symbol    string
	Regime    analysis.Regime
	Direction market.Direction
	Emitted   bool
	Reason    string
	Score     int
	Threshold int
	Breakdown confluence.Breakdown
	At        time.Time
}
