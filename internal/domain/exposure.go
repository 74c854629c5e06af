package domain

import "time"

// Result is the settled outcome of an exposure (or of the position it
// tracks). An exposure stays pending until its closed_at is set.
type Result string

const (
	ResultPending   Result = "pending"
	ResultWin       Result = "win"
	ResultLoss      Result = "loss"
	ResultBreakeven Result = "breakeven"
)

// Exposure is a subscriber's individual stake in a position, with its own
// risk sizing and outcome. RemainingRiskAmount starts equal to RiskAmount
// and is reduced by partial realizations; it never exceeds RiskAmount.
type Exposure struct {
	ID                  string     `json:"id"`
	PositionID          string     `json:"position_id"`
	UserID              string     `json:"user_id"`
	RiskPercent         float64    `json:"risk_percent"`
	RiskAmount          float64    `json:"risk_amount"`
	RemainingRiskAmount float64    `json:"remaining_risk_amount"`
	Result              Result     `json:"result"`
	PnL                 *float64   `json:"pnl"` // nil until closed
	CreatedAt           time.Time  `json:"created_at"`
	ClosedAt            *time.Time `json:"closed_at,omitempty"`
}

// Open reports whether the exposure is still pending settlement.
func (e Exposure) Open() bool {
	return e.ClosedAt == nil
}
