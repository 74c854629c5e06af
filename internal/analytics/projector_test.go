package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/akopyan/signaldesk/internal/domain"
)

func openExposure(id, posID string, riskPct, riskAmt, remaining float64) domain.Exposure {
	return domain.Exposure{
		ID:                  id,
		PositionID:          posID,
		UserID:              "u1",
		RiskPercent:         riskPct,
		RiskAmount:          riskAmt,
		RemainingRiskAmount: remaining,
		Result:              domain.ResultPending,
		CreatedAt:           time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC),
	}
}

func TestProjectOpenRisk(t *testing.T) {
	positions := map[string]domain.Position{
		"p1": {ID: "p1", Direction: domain.DirectionBuy, Entry: fptr(100), Stop: fptr(90), Target: fptr(130), Status: domain.PositionStatusActive},
		"p2": {ID: "p2", Direction: domain.DirectionSell, Entry: fptr(200), Stop: fptr(210), Target: fptr(180), Status: domain.PositionStatusActive},
	}
	exposures := []domain.Exposure{
		openExposure("e1", "p1", 2, 100, 100),
		openExposure("e2", "p2", 4, 50, 25),
	}

	s := ProjectOpenRisk(exposures, positions, nil, nil)
	assert.Equal(t, 2, s.OpenCount)
	assert.InDelta(t, 125, s.TotalRisk, 1e-9)                   // 100 + 25 remaining
	assert.InDelta(t, 100*3+50*2, s.TotalPotentialProfit, 1e-9) // full risk x RR
	assert.InDelta(t, 3.0, s.AverageRiskPercent, 1e-9)
	assert.Zero(t, s.UnrealizedPnL, "no live prices supplied")
}

func TestProjectOpenRiskRunnerContributesNoRisk(t *testing.T) {
	// Stop moved to entry: a risk-free runner. Zero risk, but the full
	// risk amount still scales the potential profit.
	positions := map[string]domain.Position{
		"p1": {ID: "p1", Direction: domain.DirectionBuy, Entry: fptr(100), Stop: fptr(90), AltStop: fptr(100), Target: fptr(130), Status: domain.PositionStatusActive},
	}
	exposures := []domain.Exposure{openExposure("e1", "p1", 2, 100, 60)}

	s := ProjectOpenRisk(exposures, positions, nil, nil)
	assert.Zero(t, s.TotalRisk)
	// entry == stop clamps the RR to 0, so potential profit is 0 too.
	assert.Zero(t, s.TotalPotentialProfit)
	assert.InDelta(t, 2.0, s.AverageRiskPercent, 1e-9)
}

func TestProjectOpenRiskUnrealizedPnL(t *testing.T) {
	positions := map[string]domain.Position{
		"p1": {ID: "p1", Direction: domain.DirectionBuy, Entry: fptr(100), Stop: fptr(90), Target: fptr(130), Status: domain.PositionStatusActive},
	}
	exposures := []domain.Exposure{openExposure("e1", "p1", 2, 100, 100)}
	live := map[string]float64{"p1": 120} // +2R

	s := ProjectOpenRisk(exposures, positions, nil, live)
	assert.InDelta(t, 200, s.UnrealizedPnL, 1e-9)

	live["p1"] = 95 // -0.5R
	s = ProjectOpenRisk(exposures, positions, nil, live)
	assert.InDelta(t, -50, s.UnrealizedPnL, 1e-9)
}

func TestProjectOpenRiskMissingPosition(t *testing.T) {
	exposures := []domain.Exposure{openExposure("e1", "ghost", 5, 100, 100)}

	s := ProjectOpenRisk(exposures, map[string]domain.Position{}, nil, nil)
	assert.Equal(t, 1, s.OpenCount)
	assert.Zero(t, s.TotalRisk)
	assert.Zero(t, s.TotalPotentialProfit)
	assert.InDelta(t, 5.0, s.AverageRiskPercent, 1e-9)
}

func TestProjectOpenRiskEmpty(t *testing.T) {
	s := ProjectOpenRisk(nil, nil, nil, nil)
	assert.Zero(t, s.OpenCount)
	assert.Zero(t, s.AverageRiskPercent)
}

func TestProjectOpenRiskHonorsEffectiveTarget(t *testing.T) {
	positions := map[string]domain.Position{
		"p1": {ID: "p1", Direction: domain.DirectionSell, Entry: fptr(200), Stop: fptr(210), Target: fptr(180), Status: domain.PositionStatusActive},
	}
	updates := map[string][]domain.TargetUpdate{
		"p1": {{PositionID: "p1", Price: 190}, {PositionID: "p1", Price: 170}},
	}
	exposures := []domain.Exposure{openExposure("e1", "p1", 2, 100, 100)}

	s := ProjectOpenRisk(exposures, positions, updates, nil)
	// Most favorable SELL target is 170: (200-170)/(210-200) = 3R.
	assert.InDelta(t, 300, s.TotalPotentialProfit, 1e-9)
}
