package dedup

import (
	"fmt"
	"sync"
	"time"

	"swing-signal-bot/internal/market"
)

// Config holds the governor's throttling knobs.
type Config struct {
	GlobalCooldown time.Duration // minimum spacing between any two signals
	SetupCooldown  time.Duration // per symbol, direction and setup type
	MaxActive      int           // active signals allowed per symbol
	Retention      time.Duration // how long sent records are remembered
}

// DefaultConfig returns the stock throttling configuration.
func DefaultConfig() Config {
	return Config{
		GlobalCooldown: 60 * time.Second,
		SetupCooldown:  30 * time.Minute,
		MaxActive:      3,
		Retention:      2 * time.Hour,
	}
}

type record struct {
	id        string
	symbol    string
	direction market.Direction
	setup     string
	window    time.Time
	sentAt    time.Time
	active    bool
}

// Governor throttles signal emission. All checks are evaluated in a fixed
// order so a rejection always reports the first gate that failed.
type Governor struct {
	mu      sync.Mutex
	cfg     Config
	now     func() time.Time
	records []record
	lastAny time.Time
}

// NewGovernor creates a governor. A nil clock uses time.Now.
func NewGovernor(cfg Config, clock func() time.Time) *Governor {
	if clock == nil {
		clock = time.Now
	}
	if cfg.MaxActive <= 0 {
		cfg.MaxActive = DefaultConfig().MaxActive
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultConfig().Retention
	}
	return &Governor{cfg: cfg, now: clock}
}

// CanSend reports whether a signal for the symbol, direction and setup type
// may be emitted for the candle window. Gates are checked in order: global
// cooldown, per-symbol active cap, setup cooldown, duplicate direction in
// the same window. The returned reason names the failed gate.
func (g *Governor) CanSend(symbol string, dir market.Direction, setup string, window time.Time) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.purge(now)

	if !g.lastAny.IsZero() && now.Sub(g.lastAny) < g.cfg.GlobalCooldown {
		return false, "global cooldown active"
	}

	active := 0
	for _, r := range g.records {
		if r.symbol == symbol && r.active {
			active++
		}
	}
	if active >= g.cfg.MaxActive {
		return false, fmt.Sprintf("symbol at active signal cap (%d)", g.cfg.MaxActive)
	}

	for _, r := range g.records {
		if r.symbol == symbol && r.direction == dir && r.setup == setup &&
			now.Sub(r.sentAt) < g.cfg.SetupCooldown {
			return false, "setup cooldown active"
		}
	}

	for _, r := range g.records {
		if r.symbol == symbol && r.direction == dir && r.window.Equal(window) {
			return false, "duplicate signal for candle window"
		}
	}

	return true, ""
}

// Record registers an emitted signal. The id ties the record to its signal
// for later resolution.
func (g *Governor) Record(id, symbol string, dir market.Direction, setup string, window time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.lastAny = now
	g.records = append(g.records, record{
		id:        id,
		symbol:    symbol,
		direction: dir,
		setup:     setup,
		window:    window,
		sentAt:    now,
		active:    true,
	})
}

// Restore re-registers a signal that was active before a restart. The
// original send time keeps cooldown and duplicate checks accurate instead
// of restarting them from now.
func (g *Governor) Restore(id, symbol string, dir market.Direction, setup string, window, sentAt time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, r := range g.records {
		if r.id == id {
			return
		}
	}
	g.records = append(g.records, record{
		id:        id,
		symbol:    symbol,
		direction: dir,
		setup:     setup,
		window:    window,
		sentAt:    sentAt,
		active:    true,
	})
	if sentAt.After(g.lastAny) {
		g.lastAny = sentAt
	}
}

// Resolve marks a signal inactive once its outcome is known, freeing a slot
// under the per-symbol cap. The sent record stays for cooldown and
// duplicate checks until retention expires.
func (g *Governor) Resolve(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := range g.records {
		if g.records[i].id == id {
			g.records[i].active = false
			return
		}
	}
}

// ActiveCount returns the number of unresolved signals for the symbol.
func (g *Governor) ActiveCount(symbol string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.purge(g.now())
	n := 0
	for _, r := range g.records {
		if r.symbol == symbol && r.active {
			n++
		}
	}
	return n
}

// purge drops records older than retention. Caller holds the lock.
func (g *Governor) purge(now time.Time) {
	kept := g.records[:0]
	for _, r := range g.records {
		if now.Sub(r.sentAt) < g.cfg.Retention || r.active {
			kept = append(kept, r)
		}
	}
	g.records = kept
}
