package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"swing-signal-bot/internal/feed"
)

// poolFetchMultiple oversizes the volume pool so rotation has enough
// symbols to cycle through between refreshes.
const poolFetchMultiple = 3

// UniverseRotator keeps the scan universe fresh: the configured symbols are
// pinned, the remaining slots up to the universe size rotate through the
// top-volume pool. The pool refreshes on its own slower cadence.
type UniverseRotator struct {
	scanner *Scanner
	source  feed.UniverseSource

	fixed        []string
	size         int
	refreshEvery time.Duration
	rotateEvery  time.Duration

	mu    sync.Mutex
	pool  []string
	index int

	logger zerolog.Logger
}

// NewUniverseRotator creates a rotator over the scanner's universe.
func NewUniverseRotator(sc *Scanner, source feed.UniverseSource, cfg Config, logger zerolog.Logger) *UniverseRotator {
	refresh := cfg.UniverseRefresh
	if refresh <= 0 {
		refresh = 6 * time.Hour
	}
	rotate := cfg.RotationInterval
	if rotate <= 0 {
		rotate = time.Hour
	}
	return &UniverseRotator{
		scanner:      sc,
		source:       source,
		fixed:        append([]string(nil), cfg.Symbols...),
		size:         cfg.UniverseSize,
		refreshEvery: refresh,
		rotateEvery:  rotate,
		logger:       logger.With().Str("component", "universe").Logger(),
	}
}

// Run refreshes the pool and rotates the universe until ctx is cancelled.
func (ur *UniverseRotator) Run(ctx context.Context) {
	if err := ur.refresh(ctx); err != nil {
		ur.logger.Error().Err(err).Msg("initial universe fetch failed")
	}
	ur.rotate(ctx)

	refreshTick := time.NewTicker(ur.refreshEvery)
	rotateTick := time.NewTicker(ur.rotateEvery)
	defer refreshTick.Stop()
	defer rotateTick.Stop()

	for {
		select {
		case <-refreshTick.C:
			if err := ur.refresh(ctx); err != nil {
				ur.logger.Error().Err(err).Msg("universe refresh failed")
			}
		case <-rotateTick.C:
			ur.rotate(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// refresh reloads the top-volume pool. The previous pool is kept on error so
// rotation keeps running on stale data rather than shrinking the universe.
func (ur *UniverseRotator) refresh(ctx context.Context) error {
	limit := ur.size * poolFetchMultiple
	if limit < ur.size {
		limit = ur.size
	}
	symbols, err := ur.source.TopVolumeSymbols(ctx, limit)
	if err != nil {
		return err
	}

	ur.mu.Lock()
	ur.pool = symbols
	if len(ur.pool) > 0 {
		ur.index = ur.index % len(ur.pool)
	} else {
		ur.index = 0
	}
	ur.mu.Unlock()

	ur.logger.Info().Int("pool", len(symbols)).Msg("universe pool refreshed")
	return nil
}

// rotate swaps the non-pinned slots to the next window of the pool and
// applies the resulting universe to the scanner.
func (ur *UniverseRotator) rotate(ctx context.Context) {
	ur.scanner.SetUniverse(ctx, ur.nextUniverse())
}

func (ur *UniverseRotator) nextUniverse() []string {
	ur.mu.Lock()
	defer ur.mu.Unlock()

	active := append([]string(nil), ur.fixed...)
	seen := make(map[string]bool, ur.size)
	for _, s := range active {
		seen[s] = true
	}

	extra := ur.size - len(ur.fixed)
	if extra <= 0 || len(ur.pool) == 0 {
		return active
	}

	for i := 0; i < extra; i++ {
		s := ur.pool[(ur.index+i)%len(ur.pool)]
		if seen[s] {
			continue
		}
		seen[s] = true
		active = append(active, s)
	}
	ur.index = (ur.index + extra) % len(ur.pool)

	return active
}
