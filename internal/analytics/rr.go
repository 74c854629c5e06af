// Package analytics implements the settlement and performance math for the
// signal ledger: reward:risk calculation, outcome classification, equity
// curve simulation, windowed statistics, and open-position risk projection.
// Everything in this package is a pure function over already-fetched
// snapshots; there is no I/O and no hidden state.
package analytics

import (
	"math"

	"github.com/akopyan/signaldesk/internal/domain"
)

// SignedRR computes the directional reward:risk of a reference price
// relative to entry and stop. The sign encodes direction: positive means the
// price sits on the profit side of entry, negative on the loss side.
//
// Degenerate inputs (entry == stop, NaN, Inf) clamp to 0 rather than
// producing NaN or Infinity; this function sits on rendering-critical paths
// and must never blow up.
func SignedRR(dir domain.Direction, entry, stop, price float64) float64 {
	if !finite(entry) || !finite(stop) || !finite(price) {
		return 0
	}

	var rr float64
	switch dir {
	case domain.DirectionSell:
		risk := stop - entry
		if risk == 0 {
			return 0
		}
		rr = (entry - price) / risk
	default:
		risk := entry - stop
		if risk == 0 {
			return 0
		}
		rr = (price - entry) / risk
	}

	if !finite(rr) {
		return 0
	}
	return rr
}

// UnsignedRR computes the magnitude of the reward:risk ratio for a
// position's displayed RR and for aggregation. Same zero clamp as SignedRR.
func UnsignedRR(dir domain.Direction, entry, stop, target float64) float64 {
	return math.Abs(SignedRR(dir, entry, stop, target))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
