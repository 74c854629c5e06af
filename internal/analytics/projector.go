package analytics

import "github.com/akopyan/signaldesk/internal/domain"

// RiskSummary is the live exposure picture across a subscriber's open
// exposures.
type RiskSummary struct {
	OpenCount            int     `json:"open_count"`
	TotalRisk            float64 `json:"total_risk"`
	TotalPotentialProfit float64 `json:"total_potential_profit"`
	AverageRiskPercent   float64 `json:"average_risk_percent"`
	UnrealizedPnL        float64 `json:"unrealized_pnl"`
}

// ProjectOpenRisk computes live exposure figures for the given open
// exposures. positions and updates are snapshot lookups keyed by position
// ID; livePrices (also keyed by position ID) is optional and enables the
// unrealized PnL figure, which is otherwise 0.
//
// An exposure whose stop has been moved to entry is a risk-free runner: it
// contributes 0 to total risk but its full risk amount still scales the
// potential profit. An exposure with a missing position contributes nothing
// beyond its configured risk percent.
func ProjectOpenRisk(exposures []domain.Exposure, positions map[string]domain.Position, updates map[string][]domain.TargetUpdate, livePrices map[string]float64) RiskSummary {
	var s RiskSummary

	var riskPctSum float64
	for _, e := range exposures {
		if !e.Open() {
			continue
		}
		s.OpenCount++
		riskPctSum += e.RiskPercent

		p, ok := positions[e.PositionID]
		if !ok || p.Entry == nil {
			continue
		}
		entry := *p.Entry
		stop := p.RRStop()

		if stop != entry {
			s.TotalRisk += e.RemainingRiskAmount
		}

		target := domain.EffectiveTarget(p, updates[p.ID])
		s.TotalPotentialProfit += e.RiskAmount * UnsignedRR(p.Direction, entry, stop, target)

		if price, have := livePrices[p.ID]; have {
			s.UnrealizedPnL += SignedRR(p.Direction, entry, stop, price) * e.RiskAmount
		}
	}

	if s.OpenCount > 0 {
		s.AverageRiskPercent = riskPctSum / float64(s.OpenCount)
	}
	return s
}
