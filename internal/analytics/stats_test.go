package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akopyan/signaldesk/internal/domain"
)

func fptr(f float64) *float64 { return &f }

func tptr(t time.Time) *time.Time { return &t }

func buyPosition(id string, entry, stop, target float64) domain.Position {
	return domain.Position{
		ID:        id,
		Pair:      "EURUSD",
		Category:  "forex",
		Direction: domain.DirectionBuy,
		Entry:     fptr(entry),
		Stop:      fptr(stop),
		Target:    fptr(target),
		Status:    domain.PositionStatusTPHit,
	}
}

func settledExposure(id, posID string, result domain.Result, pnl float64, closed time.Time) domain.Exposure {
	return domain.Exposure{
		ID:                  id,
		PositionID:          posID,
		UserID:              "u1",
		RiskPercent:         2,
		RiskAmount:          100,
		RemainingRiskAmount: 100,
		Result:              result,
		PnL:                 fptr(pnl),
		CreatedAt:           closed.Add(-48 * time.Hour),
		ClosedAt:            tptr(closed),
	}
}

func TestAggregateWinRate(t *testing.T) {
	day := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)

	var exposures []domain.Exposure
	for i := 0; i < 7; i++ {
		exposures = append(exposures, settledExposure(string(rune('a'+i)), "p", domain.ResultWin, 50, day.Add(time.Duration(i)*time.Hour)))
	}
	for i := 0; i < 3; i++ {
		exposures = append(exposures, settledExposure(string(rune('h'+i)), "p", domain.ResultLoss, -25, day.Add(time.Duration(7+i)*time.Hour)))
	}
	// Breakevens stay out of the win-rate denominator.
	exposures = append(exposures, settledExposure("k", "p", domain.ResultBreakeven, 0, day.Add(11*time.Hour)))

	s := Aggregate(nil, exposures, nil, Window{})
	assert.Equal(t, 11, s.ClosedCount)
	assert.InDelta(t, 70.0, s.WinRate, 1e-9)
}

func TestAggregateEmptyInput(t *testing.T) {
	s := Aggregate(nil, nil, nil, Window{})
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.AvgRR)
	assert.Zero(t, s.QualityScore)
	assert.Zero(t, s.TradesPerDay)
	assert.Zero(t, s.BestDayPnL)
	assert.Zero(t, s.WorstDayPnL)
}

func TestAggregateAvgRRSkipsDegenerate(t *testing.T) {
	day := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	positions := []domain.Position{
		buyPosition("p1", 100, 90, 130), // RR 3
		buyPosition("p2", 50, 45, 55),   // RR 1
	}
	exposures := []domain.Exposure{
		settledExposure("e1", "p1", domain.ResultWin, 300, day),
		settledExposure("e2", "p2", domain.ResultWin, 100, day.Add(time.Hour)),
		// Orphaned exposure: no position in the snapshot, RR contributes 0
		// and must not depress the average.
		settledExposure("e3", "missing", domain.ResultLoss, -100, day.Add(2*time.Hour)),
	}

	s := Aggregate(positions, exposures, nil, Window{})
	assert.InDelta(t, 2.0, s.AvgRR, 1e-9)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 1, s.Losses)
}

func TestAggregateHonorsTargetUpdates(t *testing.T) {
	day := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	positions := []domain.Position{buyPosition("p1", 100, 90, 130)}
	updates := map[string][]domain.TargetUpdate{
		"p1": {
			{PositionID: "p1", Price: 120},
			{PositionID: "p1", Price: 150}, // most favorable for BUY
		},
	}
	exposures := []domain.Exposure{settledExposure("e1", "p1", domain.ResultWin, 500, day)}

	s := Aggregate(positions, exposures, updates, Window{})
	assert.InDelta(t, 5.0, s.AvgRR, 1e-9)
}

func TestAggregateStreaksSkipBreakeven(t *testing.T) {
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	seq := []domain.Result{
		domain.ResultWin, domain.ResultWin,
		domain.ResultLoss,
		domain.ResultWin, domain.ResultBreakeven, domain.ResultWin,
		domain.ResultLoss, domain.ResultLoss,
	}

	var exposures []domain.Exposure
	for i, r := range seq {
		exposures = append(exposures, settledExposure(string(rune('a'+i)), "p", r, 0, day.Add(time.Duration(i)*time.Hour)))
	}

	s := Aggregate(nil, exposures, nil, Window{})
	// Win runs: [2, 2] (the breakeven bridges, not breaks, the second run).
	// Loss runs: [1, 2].
	assert.InDelta(t, 2.0, s.AvgWinStreak, 1e-9)
	assert.InDelta(t, 1.5, s.AvgLossStreak, 1e-9)
	assert.Equal(t, 2, s.BestWinStreak)
	assert.Equal(t, 2, s.WorstLossStreak)
}

func TestAggregateQualityScoreSampleGuard(t *testing.T) {
	day := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	positions := []domain.Position{buyPosition("p1", 100, 90, 130)}

	two := []domain.Exposure{
		settledExposure("e1", "p1", domain.ResultWin, 300, day),
		settledExposure("e2", "p1", domain.ResultWin, 300, day.Add(time.Hour)),
	}
	s := Aggregate(positions, two, nil, Window{})
	assert.Zero(t, s.QualityScore, "below 3 closed outcomes the score must be 0")

	three := append(two, settledExposure("e3", "p1", domain.ResultWin, 300, day.Add(2*time.Hour)))
	s = Aggregate(positions, three, nil, Window{})
	assert.Greater(t, s.QualityScore, 0.0)
	assert.LessOrEqual(t, s.QualityScore, 100.0)
}

func TestAggregateBestWorstDayClamp(t *testing.T) {
	day := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)

	losing := []domain.Exposure{
		settledExposure("e1", "p", domain.ResultLoss, -50, day),
		settledExposure("e2", "p", domain.ResultLoss, -80, day.AddDate(0, 0, 1)),
	}
	s := Aggregate(nil, losing, nil, Window{})
	assert.Zero(t, s.BestDayPnL, "all-losing window reports 0 on the best side")
	assert.Equal(t, -80.0, s.WorstDayPnL)

	winning := []domain.Exposure{
		settledExposure("e1", "p", domain.ResultWin, 40, day),
		settledExposure("e2", "p", domain.ResultWin, 90, day.AddDate(0, 0, 1)),
	}
	s = Aggregate(nil, winning, nil, Window{})
	assert.Equal(t, 90.0, s.BestDayPnL)
	assert.Zero(t, s.WorstDayPnL)
}

func TestAggregateFrequency(t *testing.T) {
	first := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	exposures := []domain.Exposure{
		settledExposure("e1", "p", domain.ResultWin, 10, first),
		settledExposure("e2", "p", domain.ResultWin, 10, first.AddDate(0, 0, 4)),
	}

	s := Aggregate(nil, exposures, nil, Window{})
	assert.InDelta(t, 2.0/5.0, s.TradesPerDay, 1e-9)
	assert.InDelta(t, s.TradesPerDay*7, s.TradesPerWeek, 1e-9)
	assert.InDelta(t, s.TradesPerDay*30, s.TradesPerMonth, 1e-9)

	// A single-day sample divides by the 1-day floor, not zero.
	single := exposures[:1]
	s = Aggregate(nil, single, nil, Window{})
	assert.InDelta(t, 1.0, s.TradesPerDay, 1e-9)
}

func TestAggregateWindowFiltering(t *testing.T) {
	now := time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC)
	w, err := ParseWindow(WindowToday, now)
	require.NoError(t, err)

	exposures := []domain.Exposure{
		settledExposure("in1", "p", domain.ResultWin, 10, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)),
		settledExposure("in2", "p", domain.ResultWin, 10, time.Date(2024, 3, 15, 23, 59, 59, 999_000_000, time.UTC)),
		settledExposure("out", "p", domain.ResultWin, 10, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)),
	}

	s := Aggregate(nil, exposures, nil, w)
	assert.Equal(t, 2, s.ClosedCount)
}

func TestAggregateDeterministic(t *testing.T) {
	day := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	positions := []domain.Position{buyPosition("p1", 100, 90, 130)}
	exposures := []domain.Exposure{
		settledExposure("e1", "p1", domain.ResultWin, 300, day),
		settledExposure("e2", "p1", domain.ResultLoss, -100, day.Add(time.Hour)),
		settledExposure("e3", "p1", domain.ResultWin, 300, day.Add(2*time.Hour)),
		settledExposure("e4", "p1", domain.ResultBreakeven, 0, day.Add(3*time.Hour)),
	}

	first := Aggregate(positions, exposures, nil, Window{})
	second := Aggregate(positions, exposures, nil, Window{})
	assert.Equal(t, first, second)
}

func TestConsistencyIndex(t *testing.T) {
	// Identical PnLs have zero deviation: perfectly consistent.
	assert.Equal(t, 100.0, consistencyIndex([]float64{50, 50, 50}))
	// Wild dispersion clamps at 0 rather than going negative.
	assert.Equal(t, 0.0, consistencyIndex([]float64{10000, -10000, 10000, -10000}))
	assert.Equal(t, 0.0, consistencyIndex(nil))
}
