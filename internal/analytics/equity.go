package analytics

import (
	"math"
	"time"

	"github.com/akopyan/signaldesk/internal/domain"
)

// Outcome is one settled result in chronological order, carrying the
// realized reward:risk it closed at.
type Outcome struct {
	Label    string // display label, usually the close date
	Result   domain.Result
	RR       float64
	ClosedAt time.Time
}

// EquityPoint is a derived (label, balance) pair on the simulated curve. It
// is never a system of record; curves are recomputed on demand.
type EquityPoint struct {
	Label   string  `json:"label"`
	Balance float64 `json:"balance"`
}

// SimulateEquity replays a chronological outcome sequence against a starting
// balance, risking riskPercent percent of the *current* balance on each
// outcome (compounding). Wins add risk x RR, losses subtract risk,
// breakevens leave the balance untouched.
//
// The balance is rounded to 2 decimals after every step, not only at the
// end, so replays match displayed figures exactly. Empty input yields a
// single synthetic "start" point. The output is a pure function of the three
// inputs.
func SimulateEquity(outcomes []Outcome, startBalance, riskPercent float64) []EquityPoint {
	if len(outcomes) == 0 {
		return []EquityPoint{{Label: "start", Balance: round2(startBalance)}}
	}

	points := make([]EquityPoint, 0, len(outcomes))
	balance := startBalance
	for _, o := range outcomes {
		risk := balance * riskPercent / 100
		switch o.Result {
		case domain.ResultWin:
			balance += risk * o.RR
		case domain.ResultLoss:
			balance -= risk
		}
		balance = round2(balance)
		points = append(points, EquityPoint{Label: o.Label, Balance: balance})
	}
	return points
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
