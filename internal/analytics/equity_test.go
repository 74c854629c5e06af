package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akopyan/signaldesk/internal/domain"
)

func TestSimulateEquityCompounds(t *testing.T) {
	outcomes := []Outcome{
		{Label: "d1", Result: domain.ResultWin, RR: 2},
		{Label: "d2", Result: domain.ResultLoss},
		{Label: "d3", Result: domain.ResultBreakeven},
	}

	points := SimulateEquity(outcomes, 10000, 2)
	require.Len(t, points, 3)

	// Risk steps: 2% of 10000 = 200, then 2% of 10400 = 208.
	assert.Equal(t, 10400.00, points[0].Balance)
	assert.Equal(t, 10192.00, points[1].Balance)
	assert.Equal(t, 10192.00, points[2].Balance)
	assert.Equal(t, "d1", points[0].Label)
}

func TestSimulateEquityEmptyInput(t *testing.T) {
	points := SimulateEquity(nil, 2500, 1)
	require.Len(t, points, 1)
	assert.Equal(t, "start", points[0].Label)
	assert.Equal(t, 2500.00, points[0].Balance)
}

func TestSimulateEquityRoundsEachStep(t *testing.T) {
	// 1% of 1000 = 10; 0.333R win pays 3.33 after per-step rounding.
	outcomes := []Outcome{
		{Label: "a", Result: domain.ResultWin, RR: 0.333},
		{Label: "b", Result: domain.ResultWin, RR: 0.333},
	}
	points := SimulateEquity(outcomes, 1000, 1)
	require.Len(t, points, 2)
	assert.Equal(t, 1003.33, points[0].Balance)
	// Second step risks 1% of the rounded 1003.33.
	assert.Equal(t, 1006.67, points[1].Balance)
}

func TestSimulateEquityDeterministic(t *testing.T) {
	outcomes := []Outcome{
		{Label: "d1", Result: domain.ResultWin, RR: 1.5},
		{Label: "d2", Result: domain.ResultLoss},
		{Label: "d3", Result: domain.ResultWin, RR: 3},
	}
	first := SimulateEquity(outcomes, 5000, 3)
	second := SimulateEquity(outcomes, 5000, 3)
	assert.Equal(t, first, second)
}
