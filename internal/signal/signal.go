package signal

import (
	"time"

	"github.com/google/uuid"

	"swing-signal-bot/internal/analysis"
	"swing-signal-bot/internal/confluence"
	"swing-signal-bot/internal/market"
)

// Status tracks the signal lifecycle.
type Status string

const (
	StatusActive   Status = "active"
	StatusResolved Status = "resolved"
)

// Outcome is how a resolved signal ended.
type Outcome string

const (
	OutcomeTP1 Outcome = "tp1"
	OutcomeTP2 Outcome = "tp2"
	OutcomeTP3 Outcome = "tp3"
	OutcomeSL  Outcome = "sl"
)

// RMultiple maps an outcome to its realized R.
func (o Outcome) RMultiple() float64 {
	switch o {
	case OutcomeTP1:
		return 1
	case OutcomeTP2:
		return 2
	case OutcomeTP3:
		return 3
	case OutcomeSL:
		return -1
	}
	return 0
}

// Signal is an emitted trade recommendation.
type Signal struct {
	ID         string               `json:"id"`
	Symbol     string               `json:"symbol"`
	Direction  market.Direction     `json:"direction"`
	Setup      analysis.Regime      `json:"setup"`
	Entry      float64              `json:"entry"`
	StopLoss   float64              `json:"stop_loss"`
	TP1        float64              `json:"tp1"`
	TP2        float64              `json:"tp2"`
	TP3        float64              `json:"tp3"`
	Score      int                  `json:"score"`
	Breakdown  confluence.Breakdown `json:"breakdown"`
	RiskPct    float64              `json:"risk_pct"`
	Size       float64              `json:"size"`
	Window     time.Time            `json:"window"`
	CreatedAt  time.Time            `json:"created_at"`
	Status     Status               `json:"status"`
	Outcome    Outcome              `json:"outcome,omitempty"`
	ResolvedAt time.Time            `json:"resolved_at,omitempty"`
}

// NewID returns a fresh signal identifier.
func NewID() string {
	return uuid.NewString()
}
