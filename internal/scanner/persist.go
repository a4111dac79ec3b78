package scanner

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"swing-signal-bot/internal/memory"
	"swing-signal-bot/internal/storage"
)

const memoryStateKey = "adaptive_memory"

// StatePersister snapshots the adaptive memory to the state store on an
// interval and restores it at startup, so learned adjustments survive
// restarts.
type StatePersister struct {
	store    *storage.StateStore
	memory   *memory.AdaptiveMemory
	interval time.Duration
	logger   zerolog.Logger
}

// NewStatePersister creates a persister. interval <= 0 selects one minute.
func NewStatePersister(store *storage.StateStore, mem *memory.AdaptiveMemory, interval time.Duration, logger zerolog.Logger) *StatePersister {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StatePersister{
		store:    store,
		memory:   mem,
		interval: interval,
		logger:   logger.With().Str("component", "persist").Logger(),
	}
}

// Restore loads the last saved memory snapshot, if any.
func (p *StatePersister) Restore(ctx context.Context) error {
	var snap memory.Snapshot
	found, err := p.store.Load(ctx, memoryStateKey, &snap)
	if err != nil {
		return err
	}
	if !found {
		p.logger.Info().Msg("no saved memory state")
		return nil
	}
	p.memory.Restore(snap)
	p.logger.Info().Time("updated_at", snap.UpdatedAt).Msg("memory state restored")
	return nil
}

// Run saves snapshots until ctx is cancelled, with a final save on the way
// out.
func (p *StatePersister) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.save(ctx)
		case <-ctx.Done():
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			p.save(saveCtx)
			cancel()
			return
		}
	}
}

func (p *StatePersister) save(ctx context.Context) {
	if err := p.store.Save(ctx, memoryStateKey, p.memory.Snapshot()); err != nil {
		p.logger.Warn().Err(err).Msg("memory snapshot save failed")
	}
}
