// Package notify delivers signal alerts to configured channels.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"swing-signal-bot/internal/confluence"
	"swing-signal-bot/internal/market"
	"swing-signal-bot/internal/signal"
)

// Alert is a formatted signal notification.
type Alert struct {
	Title     string
	Body      string
	Signal    signal.Signal
	CreatedAt time.Time
}

// Notifier delivers alerts to one channel.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
	Name() string
	Enabled() bool
}

// Manager fans alerts out to every enabled notifier. Delivery failures on
// one channel do not block the others.
type Manager struct {
	notifiers []Notifier
	logger    zerolog.Logger
}

// NewManager creates a notification manager.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{logger: logger.With().Str("component", "notify").Logger()}
}

// Add registers a notifier.
func (m *Manager) Add(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// SendSignal formats and delivers an alert for an emitted signal.
func (m *Manager) SendSignal(ctx context.Context, s signal.Signal) {
	alert := Alert{
		Title:     formatTitle(s),
		Body:      formatBody(s),
		Signal:    s,
		CreatedAt: s.CreatedAt,
	}

	for _, n := range m.notifiers {
		if !n.Enabled() {
			continue
		}
		if err := n.Send(ctx, alert); err != nil {
			m.logger.Error().Err(err).Str("notifier", n.Name()).Str("signal_id", s.ID).Msg("alert delivery")
		}
	}
}

func formatTitle(s signal.Signal) string {
	arrow := "LONG"
	if s.Direction == market.Short {
		arrow = "SHORT"
	}
	return fmt.Sprintf("%s %s %s (%s, grade %s)",
		arrow, s.Symbol, strings.ToUpper(string(s.Setup)), scorePct(s.Score), confluence.Grade(s.Score))
}

func formatBody(s signal.Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entry: %.6g\n", s.Entry)
	fmt.Fprintf(&b, "Stop: %.6g\n", s.StopLoss)
	fmt.Fprintf(&b, "TP1: %.6g | TP2: %.6g | TP3: %.6g\n", s.TP1, s.TP2, s.TP3)
	fmt.Fprintf(&b, "Risk: %.2f%% | Size: %.6g\n", s.RiskPct*100, s.Size)

	for _, c := range s.Breakdown.Components {
		if c.Raw == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: %d (w%d)", c.Name, c.Raw, c.Weight)
		if c.Rationale != "" {
			fmt.Fprintf(&b, " %s", c.Rationale)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func scorePct(score int) string {
	return fmt.Sprintf("%d/100", score)
}

// LogNotifier writes alerts to the structured log. Always enabled; it is
// the fallback channel when no external notifier is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alerts").Logger()}
}

func (l *LogNotifier) Name() string  { return "log" }
func (l *LogNotifier) Enabled() bool { return true }

func (l *LogNotifier) Send(_ context.Context, alert Alert) error {
	l.logger.Info().
		Str("signal_id", alert.Signal.ID).
		Str("symbol", alert.Signal.Symbol).
		Str("title", alert.Title).
		Str("body", alert.Body).
		Msg("signal alert")
	return nil
}
