package dedup

import (
	"testing"
	"time"

	"swing-signal-bot/internal/market"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func window(c *fakeClock) time.Time { return c.t.Truncate(30 * time.Minute) }

func TestGovernorGlobalCooldown(t *testing.T) {
	clock := newFakeClock()
	g := NewGovernor(DefaultConfig(), clock.now)

	ok, _ := g.CanSend("BTCUSDT", market.Long, "continuation", window(clock))
	if !ok {
		t.Fatal("first signal should pass")
	}
	g.Record("sig-1", "BTCUSDT", market.Long, "continuation", window(clock))

	clock.advance(10 * time.Second)
	ok, reason := g.CanSend("ETHUSDT", market.Short, "reversal", window(clock))
	if ok {
		t.Fatal("expected global cooldown to block unrelated symbol")
	}
	if reason != "global cooldown active" {
		t.Errorf("unexpected reason: %s", reason)
	}

	clock.advance(51 * time.Second)
	if ok, _ := g.CanSend("ETHUSDT", market.Short, "reversal", window(clock)); !ok {
		t.Error("expected pass after global cooldown elapsed")
	}
}

func TestGovernorActiveCap(t *testing.T) {
	clock := newFakeClock()
	g := NewGovernor(DefaultConfig(), clock.now)

	setups := []string{"continuation", "reversal", "continuation"}
	dirs := []market.Direction{market.Long, market.Short, market.Short}
	ids := []string{"sig-0", "sig-1", "sig-2"}
	for i := 0; i < 3; i++ {
		g.Record(ids[i], "BTCUSDT", dirs[i], setups[i], window(clock))
		clock.advance(time.Hour)
	}

	if got := g.ActiveCount("BTCUSDT"); got != 3 {
		t.Fatalf("expected 3 active signals, got %d", got)
	}

	ok, reason := g.CanSend("BTCUSDT", market.Long, "reversal", window(clock))
	if ok {
		t.Fatal("expected active cap to block")
	}
	if reason != "symbol at active signal cap (3)" {
		t.Errorf("unexpected reason: %s", reason)
	}

	// Other symbols are unaffected by the cap.
	if ok, _ := g.CanSend("ETHUSDT", market.Long, "continuation", window(clock)); !ok {
		t.Error("expected other symbol to pass")
	}

	// Resolving one signal frees a slot.
	g.Resolve(ids[0])
	if got := g.ActiveCount("BTCUSDT"); got != 2 {
		t.Fatalf("expected 2 active after resolve, got %d", got)
	}
	if ok, _ := g.CanSend("BTCUSDT", market.Long, "reversal", window(clock)); !ok {
		t.Error("expected pass after resolve freed a slot")
	}
}

func TestGovernorSetupCooldown(t *testing.T) {
	clock := newFakeClock()
	g := NewGovernor(DefaultConfig(), clock.now)

	g.Record("sig-1", "BTCUSDT", market.Long, "continuation", window(clock))
	g.Resolve("sig-1")

	clock.advance(10 * time.Minute)
	ok, reason := g.CanSend("BTCUSDT", market.Long, "continuation", window(clock))
	if ok {
		t.Fatal("expected setup cooldown to block")
	}
	if reason != "setup cooldown active" {
		t.Errorf("unexpected reason: %s", reason)
	}

	// A different setup type in a later window is not throttled.
	if ok, _ := g.CanSend("BTCUSDT", market.Long, "reversal", window(clock).Add(30*time.Minute)); !ok {
		t.Error("expected different setup to pass")
	}
	// Neither is the opposite direction on the same setup.
	if ok, _ := g.CanSend("BTCUSDT", market.Short, "continuation", window(clock)); !ok {
		t.Error("expected opposite direction to pass")
	}

	clock.advance(21 * time.Minute)
	if ok, _ := g.CanSend("BTCUSDT", market.Long, "continuation", window(clock)); !ok {
		t.Error("expected pass after setup cooldown elapsed")
	}
}

func TestGovernorDuplicateWindow(t *testing.T) {
	clock := newFakeClock()
	cfg := DefaultConfig()
	cfg.SetupCooldown = time.Minute
	g := NewGovernor(cfg, clock.now)

	w := window(clock)
	g.Record("sig-1", "BTCUSDT", market.Long, "continuation", w)
	g.Resolve("sig-1")

	// Past both cooldowns but still inside the same candle window.
	clock.advance(5 * time.Minute)
	ok, reason := g.CanSend("BTCUSDT", market.Long, "continuation", w)
	if ok {
		t.Fatal("expected duplicate window to block")
	}
	if reason != "duplicate signal for candle window" {
		t.Errorf("unexpected reason: %s", reason)
	}

	if ok, _ := g.CanSend("BTCUSDT", market.Long, "continuation", w.Add(30*time.Minute)); !ok {
		t.Error("expected next candle window to pass")
	}
}

func TestGovernorRestoreReinstatesRecords(t *testing.T) {
	clock := newFakeClock()
	g := NewGovernor(DefaultConfig(), clock.now)

	// Three signals emitted before a restart, ten minutes ago.
	sentAt := clock.t.Add(-10 * time.Minute)
	w := sentAt.Truncate(30 * time.Minute)
	g.Restore("sig-0", "BTCUSDT", market.Long, "continuation", w, sentAt)
	g.Restore("sig-1", "BTCUSDT", market.Short, "reversal", w, sentAt)
	g.Restore("sig-2", "BTCUSDT", market.Long, "reversal", w, sentAt)
	// Re-restoring an id is a no-op.
	g.Restore("sig-0", "BTCUSDT", market.Long, "continuation", w, sentAt)

	if got := g.ActiveCount("BTCUSDT"); got != 3 {
		t.Fatalf("expected 3 restored signals counted, got %d", got)
	}

	ok, reason := g.CanSend("BTCUSDT", market.Long, "continuation", window(clock))
	if ok {
		t.Fatal("expected restored signals to enforce the active cap")
	}
	if reason != "symbol at active signal cap (3)" {
		t.Errorf("unexpected reason: %s", reason)
	}

	// The setup cooldown runs from the original send time, not the restart.
	g.Resolve("sig-1")
	g.Resolve("sig-2")
	ok, reason = g.CanSend("BTCUSDT", market.Long, "continuation", window(clock))
	if ok {
		t.Fatal("expected setup cooldown from the original send time")
	}
	if reason != "setup cooldown active" {
		t.Errorf("unexpected reason: %s", reason)
	}

	clock.advance(21 * time.Minute)
	if ok, _ := g.CanSend("BTCUSDT", market.Long, "continuation", window(clock)); !ok {
		t.Error("expected pass once the restored cooldown elapsed")
	}
}

func TestGovernorRestoreKeepsGlobalCooldownFresh(t *testing.T) {
	clock := newFakeClock()
	g := NewGovernor(DefaultConfig(), clock.now)

	sentAt := clock.t.Add(-30 * time.Second)
	g.Restore("sig-1", "BTCUSDT", market.Long, "continuation", sentAt.Truncate(30*time.Minute), sentAt)

	ok, reason := g.CanSend("ETHUSDT", market.Short, "reversal", window(clock))
	if ok {
		t.Fatal("expected global cooldown carried over from the restored record")
	}
	if reason != "global cooldown active" {
		t.Errorf("unexpected reason: %s", reason)
	}

	clock.advance(31 * time.Second)
	if ok, _ := g.CanSend("ETHUSDT", market.Short, "reversal", window(clock)); !ok {
		t.Error("expected pass after the carried-over cooldown elapsed")
	}
}

func TestGovernorRetention(t *testing.T) {
	clock := newFakeClock()
	cfg := DefaultConfig()
	cfg.GlobalCooldown = 0
	g := NewGovernor(cfg, clock.now)

	w := window(clock)
	g.Record("sig-1", "BTCUSDT", market.Long, "continuation", w)
	g.Resolve("sig-1")

	// Resolved records fall out after retention, clearing the window check.
	clock.advance(3 * time.Hour)
	if ok, _ := g.CanSend("BTCUSDT", market.Long, "continuation", w); !ok {
		t.Error("expected expired record to be purged")
	}

	// Active records survive retention so the cap keeps counting them.
	g.Record("sig-2", "BTCUSDT", market.Long, "continuation", w)
	clock.advance(3 * time.Hour)
	if got := g.ActiveCount("BTCUSDT"); got != 1 {
		t.Errorf("expected active record kept past retention, got %d", got)
	}
}
