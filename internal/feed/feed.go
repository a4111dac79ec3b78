// Package feed abstracts the market data inputs: a live candle stream, a
// historical backfiller for warmup, and a source of trade outcomes.
package feed

import (
	"context"
	"time"

	"swing-signal-bot/internal/market"
	"swing-signal-bot/internal/signal"
)

// Event is one candle update from the live stream. Forming candles arrive
// repeatedly for the same window; Closed marks the sealing update.
type Event struct {
	Candle market.Candle
}

// Stream delivers live candle updates. Subscribe blocks until ctx is
// cancelled, invoking handler for every update in arrival order.
type Stream interface {
	Subscribe(ctx context.Context, symbols []string, timeframes []string, handler func(Event)) error
}

// Backfiller loads historical closed candles for warmup.
type Backfiller interface {
	Backfill(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error)
}

// UniverseSource lists tradeable symbols ranked by 24h quote volume,
// highest first, for universe rotation.
type UniverseSource interface {
	TopVolumeSymbols(ctx context.Context, limit int) ([]string, error)
}

// OutcomeEvent reports a resolved trade for a previously emitted signal.
type OutcomeEvent struct {
	SignalID string
	Outcome  signal.Outcome
	At       time.Time
}

// OutcomeSource delivers trade outcomes, e.g. from an exchange fill feed
// or a manual tracker.
type OutcomeSource interface {
	Outcomes(ctx context.Context, handler func(OutcomeEvent)) error
}
