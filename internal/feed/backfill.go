package feed

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"swing-signal-bot/internal/market"
)

// RetryingBackfiller wraps a Backfiller with exponential backoff so
// transient fetch failures during warmup do not abort the whole scanner.
type RetryingBackfiller struct {
	inner          Backfiller
	initialDelay   time.Duration
	maxDelay       time.Duration
	maxElapsedTime time.Duration
	logger         zerolog.Logger
}

// NewRetryingBackfiller wraps inner with retry. Defaults: 1s initial delay,
// 30s max delay, give up after 2 minutes.
func NewRetryingBackfiller(inner Backfiller, logger zerolog.Logger) *RetryingBackfiller {
	return &RetryingBackfiller{
		inner:          inner,
		initialDelay:   time.Second,
		maxDelay:       30 * time.Second,
		maxElapsedTime: 2 * time.Minute,
		logger:         logger.With().Str("component", "backfill").Logger(),
	}
}

// Backfill fetches history, retrying with jittered exponential backoff
// until success, context cancellation or the elapsed budget runs out.
func (rb *RetryingBackfiller) Backfill(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = rb.initialDelay
	bo.MaxInterval = rb.maxDelay
	bo.MaxElapsedTime = rb.maxElapsedTime

	var candles []market.Candle
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		var err error
		candles, err = rb.inner.Backfill(ctx, symbol, timeframe, limit)
		if err != nil {
			rb.logger.Warn().
				Err(err).
				Str("symbol", symbol).
				Str("timeframe", timeframe).
				Int("attempt", attempt).
				Msg("backfill retry")
		}
		return err
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, err
	}
	return candles, nil
}
