package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/akopyan/signaldesk/internal/domain"
)

// Stats is the windowed performance rollup. Every field has a defined zero
// default for empty input; no field is ever NaN or Infinity.
type Stats struct {
	Window           string  `json:"window,omitempty"`
	ClosedCount      int     `json:"closed_count"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	Breakevens       int     `json:"breakevens"`
	WinRate          float64 `json:"win_rate"`
	AvgRR            float64 `json:"avg_rr"`
	TotalPnL         float64 `json:"total_pnl"`
	AvgWinStreak     float64 `json:"avg_win_streak"`
	AvgLossStreak    float64 `json:"avg_loss_streak"`
	BestWinStreak    int     `json:"best_win_streak"`
	WorstLossStreak  int     `json:"worst_loss_streak"`
	ConsistencyIndex float64 `json:"consistency_index"`
	QualityScore     float64 `json:"quality_score"`
	TradesPerDay     float64 `json:"trades_per_day"`
	TradesPerWeek    float64 `json:"trades_per_week"`
	TradesPerMonth   float64 `json:"trades_per_month"`
	BestDayPnL       float64 `json:"best_day_pnl"`
	WorstDayPnL      float64 `json:"worst_day_pnl"`
}

// record is one settled exposure flattened for aggregation.
type record struct {
	ts     time.Time
	result domain.Result
	pnl    float64
	rr     float64
}

// Aggregate computes the windowed rollup from a full ledger snapshot. It is
// deterministic: running it twice on the same input yields identical output.
//
// An exposure whose position is missing from the snapshot still counts
// toward win/loss/pnl figures but contributes zero RR, so dashboards stay
// available despite data gaps. Window filtering uses closed_at, falling back
// to created_at for records that never stamped a close time.
func Aggregate(positions []domain.Position, exposures []domain.Exposure, updates map[string][]domain.TargetUpdate, w Window) Stats {
	byID := make(map[string]domain.Position, len(positions))
	for _, p := range positions {
		byID[p.ID] = p
	}

	var records []record
	for _, e := range exposures {
		if e.Result == domain.ResultPending {
			continue
		}
		ts := e.CreatedAt
		if e.ClosedAt != nil {
			ts = *e.ClosedAt
		}
		if !w.Contains(ts) {
			continue
		}

		rec := record{ts: ts, result: e.Result}
		if e.PnL != nil {
			rec.pnl = *e.PnL
		}
		if p, ok := byID[e.PositionID]; ok && p.Entry != nil {
			rec.rr = UnsignedRR(p.Direction, *p.Entry, p.RRStop(), domain.EffectiveTarget(p, updates[p.ID]))
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].ts.Before(records[j].ts) })

	var s Stats
	s.ClosedCount = len(records)

	results := make([]domain.Result, 0, len(records))
	pnls := make([]float64, 0, len(records))
	var rrSum float64
	var rrCount int
	for _, r := range records {
		results = append(results, r.result)
		pnls = append(pnls, r.pnl)
		s.TotalPnL += r.pnl
		switch r.result {
		case domain.ResultWin:
			s.Wins++
		case domain.ResultLoss:
			s.Losses++
		default:
			s.Breakevens++
		}
		// Degenerate RR=0 entries are excluded so they do not silently
		// depress the average.
		if r.rr > 0 {
			rrSum += r.rr
			rrCount++
		}
	}

	if s.Wins+s.Losses > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Wins+s.Losses) * 100
	}
	if rrCount > 0 {
		s.AvgRR = rrSum / float64(rrCount)
	}

	streaks := scanStreaks(results)
	s.AvgWinStreak = streaks.avgWin
	s.AvgLossStreak = streaks.avgLoss
	s.BestWinStreak = streaks.bestWin
	s.WorstLossStreak = streaks.worstLoss

	s.ConsistencyIndex = consistencyIndex(pnls)

	// Quality score needs a minimum sample; below 3 closed outcomes the
	// blend is noise, so it reports 0 regardless of ratio favorability.
	if s.ClosedCount >= 3 {
		rrScore := math.Min(100, s.AvgRR/3*100)
		s.QualityScore = s.WinRate*0.4 + rrScore*0.3 + s.ConsistencyIndex*0.3
	}

	if len(records) > 0 {
		elapsed := elapsedCalendarDays(records[0].ts, records[len(records)-1].ts)
		s.TradesPerDay = float64(s.ClosedCount) / elapsed
		// Week/month figures are linear projections of the daily rate, not
		// independent recounts.
		s.TradesPerWeek = s.TradesPerDay * 7
		s.TradesPerMonth = s.TradesPerDay * 30
	}

	s.BestDayPnL, s.WorstDayPnL = bestWorstDay(records)

	return s
}

// consistencyIndex maps PnL dispersion to a 0-100 score. The +1 in the
// denominator guards the divide at zero mean PnL.
func consistencyIndex(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}

	var sum float64
	for _, p := range pnls {
		sum += p
	}
	mean := sum / float64(len(pnls))

	var variance float64
	for _, p := range pnls {
		d := p - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(pnls)))

	idx := 100 - (std/(math.Abs(mean)+1))*10
	return clamp(idx, 0, 100)
}

// elapsedCalendarDays counts whole days between the first and last close,
// with a floor of 1 so a single-day sample does not divide by zero.
func elapsedCalendarDays(first, last time.Time) float64 {
	days := endOfDay(last).Sub(startOfDay(first)).Hours() / 24
	days = math.Floor(days + 0.5) // boundary instants round to whole days
	if days < 1 {
		return 1
	}
	return days
}

// bestWorstDay returns the max and min per-calendar-day PnL sums, each
// clamped against 0 so an all-losing window still reports 0 on the best side
// and vice versa.
func bestWorstDay(records []record) (best, worst float64) {
	if len(records) == 0 {
		return 0, 0
	}

	days := make(map[string]float64)
	for _, r := range records {
		days[r.ts.Format("2006-01-02")] += r.pnl
	}

	for _, sum := range days {
		if sum > best {
			best = sum
		}
		if sum < worst {
			worst = sum
		}
	}
	return best, worst
}

func clamp(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}
