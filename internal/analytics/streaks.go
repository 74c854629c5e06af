package analytics

import "github.com/akopyan/signaldesk/internal/domain"

// streakSummary holds the run-length statistics of a chronological outcome
// scan.
type streakSummary struct {
	avgWin    float64
	avgLoss   float64
	bestWin   int
	worstLoss int
}

// scanStreaks walks outcomes in chronological order maintaining separate
// win-run and loss-run counters. A run closes when the opposite non-breakeven
// outcome occurs. Breakeven is skipped entirely: it neither extends nor
// resets a run. This is the documented contract; the historic variants that
// reset on breakeven are intentionally not reproduced.
func scanStreaks(results []domain.Result) streakSummary {
	var winRuns, lossRuns []int
	winRun, lossRun := 0, 0

	for _, r := range results {
		switch r {
		case domain.ResultWin:
			if lossRun > 0 {
				lossRuns = append(lossRuns, lossRun)
				lossRun = 0
			}
			winRun++
		case domain.ResultLoss:
			if winRun > 0 {
				winRuns = append(winRuns, winRun)
				winRun = 0
			}
			lossRun++
		}
	}
	if winRun > 0 {
		winRuns = append(winRuns, winRun)
	}
	if lossRun > 0 {
		lossRuns = append(lossRuns, lossRun)
	}

	return streakSummary{
		avgWin:    meanInt(winRuns),
		avgLoss:   meanInt(lossRuns),
		bestWin:   maxInt(winRuns),
		worstLoss: maxInt(lossRuns),
	}
}

func meanInt(runs []int) float64 {
	if len(runs) == 0 {
		return 0
	}
	sum := 0
	for _, r := range runs {
		sum += r
	}
	return float64(sum) / float64(len(runs))
}

func maxInt(runs []int) int {
	best := 0
	for _, r := range runs {
		if r > best {
			best = r
		}
	}
	return best
}
