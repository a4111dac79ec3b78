package signal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"swing-signal-bot/internal/market"
)

var (
	ErrNotFound        = errors.New("signal: not found")
	ErrAlreadyResolved = errors.New("signal: already resolved")
)

// Repository persists signals. Implemented by the postgres store.
type Repository interface {
	SaveSignal(ctx context.Context, s Signal) error
	ResolveSignal(ctx context.Context, id string, outcome Outcome, resolvedAt time.Time) error
}

// OutcomeSink receives resolved outcomes. Implemented by the adaptive
// memory and the dedup governor.
type OutcomeSink interface {
	SignalResolved(s Signal, outcome Outcome, rMultiple float64)
}

// OutcomeSinkFunc adapts a function to the OutcomeSink interface.
type OutcomeSinkFunc func(s Signal, outcome Outcome, rMultiple float64)

func (f OutcomeSinkFunc) SignalResolved(s Signal, outcome Outcome, rMultiple float64) {
	f(s, outcome, rMultiple)
}

// Tracker owns active signals from emission to resolution. A signal
// resolves exactly once; later resolutions for the same id are rejected.
type Tracker struct {
	mu     sync.Mutex
	active map[string]Signal
	repo   Repository
	sinks  []OutcomeSink
	now    func() time.Time
	logger zerolog.Logger
}

// NewTracker creates a tracker. The repository may be nil when persistence
// is disabled. A nil clock uses time.Now.
func NewTracker(repo Repository, clock func() time.Time, logger zerolog.Logger) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{
		active: make(map[string]Signal),
		repo:   repo,
		now:    clock,
		logger: logger.With().Str("component", "tracker").Logger(),
	}
}

// AddSink registers a recipient for resolved outcomes.
func (t *Tracker) AddSink(sink OutcomeSink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sinks = append(t.sinks, sink)
}

// Track registers an emitted signal and persists it. A persistence failure
// is logged but does not reject the signal: the in-memory lifecycle is the
// source of truth for gating.
func (t *Tracker) Track(ctx context.Context, s Signal) {
	t.mu.Lock()
	s.Status = StatusActive
	t.active[s.ID] = s
	t.mu.Unlock()

	if t.repo != nil {
		if err := t.repo.SaveSignal(ctx, s); err != nil {
			t.logger.Error().Err(err).Str("signal_id", s.ID).Msg("persist signal")
		}
	}

	t.logger.Info().
		Str("signal_id", s.ID).
		Str("symbol", s.Symbol).
		Str("direction", string(s.Direction)).
		Str("setup", string(s.Setup)).
		Int("score", s.Score).
		Msg("signal tracked")
}

// Restore reloads previously persisted active signals without writing them
// back. Non-active or already tracked entries are skipped. Returns the
// number restored.
func (t *Tracker) Restore(signals []Signal) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, s := range signals {
		if s.ID == "" || s.Status != StatusActive {
			continue
		}
		if _, ok := t.active[s.ID]; ok {
			continue
		}
		t.active[s.ID] = s
		n++
	}
	if n > 0 {
		t.logger.Info().Int("count", n).Msg("active signals restored")
	}
	return n
}

// Resolve closes a signal with its outcome and fans the realized R out to
// the registered sinks.
func (t *Tracker) Resolve(ctx context.Context, id string, outcome Outcome) error {
	t.mu.Lock()
	s, ok := t.active[id]
	if !ok {
		t.mu.Unlock()
		return ErrNotFound
	}
	if s.Status == StatusResolved {
		t.mu.Unlock()
		return ErrAlreadyResolved
	}

	s.Status = StatusResolved
	s.Outcome = outcome
	s.ResolvedAt = t.now()
	delete(t.active, id)
	sinks := append([]OutcomeSink(nil), t.sinks...)
	t.mu.Unlock()

	if t.repo != nil {
		if err := t.repo.ResolveSignal(ctx, id, outcome, s.ResolvedAt); err != nil {
			t.logger.Error().Err(err).Str("signal_id", id).Msg("persist resolution")
		}
	}

	r := outcome.RMultiple()
	for _, sink := range sinks {
		sink.SignalResolved(s, outcome, r)
	}

	t.logger.Info().
		Str("signal_id", id).
		Str("symbol", s.Symbol).
		Str("outcome", string(outcome)).
		Float64("r_multiple", r).
		Msg("signal resolved")
	return nil
}

// Active returns a copy of the currently tracked signals.
func (t *Tracker) Active() []Signal {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Signal, 0, len(t.active))
	for _, s := range t.active {
		out = append(out, s)
	}
	return out
}

// ActiveForSymbol returns the tracked signals for one symbol.
func (t *Tracker) ActiveForSymbol(symbol string) []Signal {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Signal
	for _, s := range t.active {
		if s.Symbol == symbol {
			out = append(out, s)
		}
	}
	return out
}

// CheckPrice resolves any active signals for the symbol whose stop or
// targets the price has crossed. The strongest hit target wins; the stop
// takes precedence when both sides are crossed within the same candle.
func (t *Tracker) CheckPrice(ctx context.Context, symbol string, high, low float64) {
	for _, s := range t.ActiveForSymbol(symbol) {
		outcome, hit := evaluate(s, high, low)
		if !hit {
			continue
		}
		if err := t.Resolve(ctx, s.ID, outcome); err != nil && !errors.Is(err, ErrNotFound) {
			t.logger.Error().Err(err).Str("signal_id", s.ID).Msg("resolve on price")
		}
	}
}

func evaluate(s Signal, high, low float64) (Outcome, bool) {
	if s.Direction == market.Long {
		if low <= s.StopLoss {
			return OutcomeSL, true
		}
		switch {
		case high >= s.TP3:
			return OutcomeTP3, true
		case high >= s.TP2:
			return OutcomeTP2, true
		case high >= s.TP1:
			return OutcomeTP1, true
		}
		return "", false
	}

	if high >= s.StopLoss {
		return OutcomeSL, true
	}
	switch {
	case low <= s.TP3:
		return OutcomeTP3, true
	case low <= s.TP2:
		return OutcomeTP2, true
	case low <= s.TP1:
		return OutcomeTP1, true
	}
	return "", false
}
