package signal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"swing-signal-bot/internal/analysis"
	"swing-signal-bot/internal/market"
)

type fakeRepo struct {
	mu       sync.Mutex
	saved    []Signal
	resolved map[string]Outcome
	saveErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{resolved: make(map[string]Outcome)}
}

func (r *fakeRepo) SaveSignal(_ context.Context, s Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, s)
	return r.saveErr
}

func (r *fakeRepo) ResolveSignal(_ context.Context, id string, outcome Outcome, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved[id] = outcome
	return nil
}

func testSignal(id, symbol string, dir market.Direction) Signal {
	s := Signal{
		ID:        id,
		Symbol:    symbol,
		Direction: dir,
		Setup:     analysis.RegimeContinuation,
		Entry:     100,
		StopLoss:  98,
		TP1:       102,
		TP2:       104,
		TP3:       106,
	}
	if dir == market.Short {
		s.StopLoss = 102
		s.TP1 = 98
		s.TP2 = 96
		s.TP3 = 94
	}
	return s
}

func TestTrackAndResolve(t *testing.T) {
	repo := newFakeRepo()
	tr := NewTracker(repo, nil, zerolog.Nop())

	var got []Outcome
	tr.AddSink(OutcomeSinkFunc(func(_ Signal, outcome Outcome, r float64) {
		got = append(got, outcome)
		if outcome == OutcomeTP2 && r != 2 {
			t.Errorf("expected r multiple 2, got %v", r)
		}
	}))

	tr.Track(context.Background(), testSignal("sig-1", "BTCUSDT", market.Long))
	if len(tr.Active()) != 1 {
		t.Fatalf("expected 1 active signal, got %d", len(tr.Active()))
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected signal persisted, got %d", len(repo.saved))
	}

	if err := tr.Resolve(context.Background(), "sig-1", OutcomeTP2); err != nil {
		t.Fatalf("unexpected resolve error: %v", err)
	}
	if len(tr.Active()) != 0 {
		t.Error("expected no active signals after resolve")
	}
	if repo.resolved["sig-1"] != OutcomeTP2 {
		t.Errorf("expected persisted outcome, got %v", repo.resolved["sig-1"])
	}
	if len(got) != 1 || got[0] != OutcomeTP2 {
		t.Errorf("expected sink notified once, got %v", got)
	}
}

func TestResolveOnlyOnce(t *testing.T) {
	tr := NewTracker(nil, nil, zerolog.Nop())
	tr.Track(context.Background(), testSignal("sig-1", "BTCUSDT", market.Long))

	if err := tr.Resolve(context.Background(), "sig-1", OutcomeSL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Resolve(context.Background(), "sig-1", OutcomeTP1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second resolve, got %v", err)
	}
	if err := tr.Resolve(context.Background(), "missing", OutcomeTP1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestTrackerWorksWithoutRepository(t *testing.T) {
	tr := NewTracker(nil, nil, zerolog.Nop())
	tr.Track(context.Background(), testSignal("sig-1", "BTCUSDT", market.Long))

	if err := tr.Resolve(context.Background(), "sig-1", OutcomeTP1); err != nil {
		t.Fatalf("unexpected error without repository: %v", err)
	}
}

func TestCheckPriceLong(t *testing.T) {
	tr := NewTracker(nil, nil, zerolog.Nop())

	var resolved Outcome
	tr.AddSink(OutcomeSinkFunc(func(_ Signal, outcome Outcome, _ float64) {
		resolved = outcome
	}))

	tr.Track(context.Background(), testSignal("sig-1", "BTCUSDT", market.Long))

	// No level touched.
	tr.CheckPrice(context.Background(), "BTCUSDT", 101, 99)
	if len(tr.Active()) != 1 {
		t.Fatal("expected signal still active")
	}

	// Other symbols do not resolve it.
	tr.CheckPrice(context.Background(), "ETHUSDT", 200, 90)
	if len(tr.Active()) != 1 {
		t.Fatal("expected signal unaffected by other symbol")
	}

	tr.CheckPrice(context.Background(), "BTCUSDT", 104.5, 99)
	if resolved != OutcomeTP2 {
		t.Errorf("expected TP2, got %v", resolved)
	}
}

func TestCheckPriceStopPrecedence(t *testing.T) {
	tr := NewTracker(nil, nil, zerolog.Nop())

	var resolved Outcome
	tr.AddSink(OutcomeSinkFunc(func(_ Signal, outcome Outcome, _ float64) {
		resolved = outcome
	}))

	tr.Track(context.Background(), testSignal("sig-1", "BTCUSDT", market.Long))

	// A candle that spans both the stop and all targets counts as a stop.
	tr.CheckPrice(context.Background(), "BTCUSDT", 110, 97)
	if resolved != OutcomeSL {
		t.Errorf("expected stop precedence, got %v", resolved)
	}
}

func TestCheckPriceShort(t *testing.T) {
	tr := NewTracker(nil, nil, zerolog.Nop())

	var resolved Outcome
	tr.AddSink(OutcomeSinkFunc(func(_ Signal, outcome Outcome, _ float64) {
		resolved = outcome
	}))

	tr.Track(context.Background(), testSignal("sig-1", "BTCUSDT", market.Short))

	tr.CheckPrice(context.Background(), "BTCUSDT", 100.5, 93.5)
	if resolved != OutcomeTP3 {
		t.Errorf("expected TP3 for short sweep, got %v", resolved)
	}
}

func TestRestoreReloadsActiveSignals(t *testing.T) {
	repo := newFakeRepo()
	tr := NewTracker(repo, nil, zerolog.Nop())

	active := testSignal("sig-1", "BTCUSDT", market.Long)
	active.Status = StatusActive
	stale := testSignal("sig-2", "ETHUSDT", market.Short)
	stale.Status = StatusResolved
	anonymous := testSignal("", "SOLUSDT", market.Long)
	anonymous.Status = StatusActive

	if got := tr.Restore([]Signal{active, stale, anonymous}); got != 1 {
		t.Fatalf("expected 1 signal restored, got %d", got)
	}
	if got := len(tr.ActiveForSymbol("BTCUSDT")); got != 1 {
		t.Fatalf("expected restored signal tracked, got %d", got)
	}
	// Restoring is a reload, not a new emission.
	if len(repo.saved) != 0 {
		t.Errorf("expected no save on restore, got %d", len(repo.saved))
	}

	// A second restore of the same batch changes nothing.
	if got := tr.Restore([]Signal{active}); got != 0 {
		t.Errorf("expected duplicate restore skipped, got %d", got)
	}

	// The restored signal lives a normal lifecycle from here.
	tr.CheckPrice(context.Background(), "BTCUSDT", 102.5, 99)
	if repo.resolved["sig-1"] != OutcomeTP1 {
		t.Errorf("expected restored signal resolved to TP1, got %v", repo.resolved["sig-1"])
	}
	if len(tr.Active()) != 0 {
		t.Error("expected no active signals after resolution")
	}
}

func TestOutcomeRMultiples(t *testing.T) {
	cases := []struct {
		outcome Outcome
		want    float64
	}{
		{OutcomeTP1, 1},
		{OutcomeTP2, 2},
		{OutcomeTP3, 3},
		{OutcomeSL, -1},
	}
	for _, tc := range cases {
		if got := tc.outcome.RMultiple(); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.outcome, tc.want, got)
		}
	}
}

func TestActiveForSymbol(t *testing.T) {
	tr := NewTracker(nil, nil, zerolog.Nop())
	tr.Track(context.Background(), testSignal("sig-1", "BTCUSDT", market.Long))
	tr.Track(context.Background(), testSignal("sig-2", "ETHUSDT", market.Long))
	tr.Track(context.Background(), testSignal("sig-3", "BTCUSDT", market.Short))

	if got := len(tr.ActiveForSymbol("BTCUSDT")); got != 2 {
		t.Errorf("expected 2 signals for BTCUSDT, got %d", got)
	}
	if got := len(tr.ActiveForSymbol("SOLUSDT")); got != 0 {
		t.Errorf("expected no signals for SOLUSDT, got %d", got)
	}
}
