package analytics

import (
	"math"

	"github.com/akopyan/signaldesk/internal/domain"
)

// Epsilon guards the outcome classification against floating-point noise at
// the entry boundary: a signed RR within [-Epsilon, Epsilon] is breakeven.
const Epsilon = 1e-9

// Classify decides the terminal outcome of an active position against a
// reference price. The price may come from a manual admin settlement or a
// live market quote; the rule is agnostic to the source.
//
// A non-finite price is a hard error: it must never be silently classified
// as breakeven, since breakeven writes real money figures.
func Classify(dir domain.Direction, entry, stop, price float64) (domain.Result, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return "", domain.ErrNonFinitePrice
	}

	rr := SignedRR(dir, entry, stop, price)
	switch {
	case rr > Epsilon:
		return domain.ResultWin, nil
	case rr < -Epsilon:
		return domain.ResultLoss, nil
	default:
		return domain.ResultBreakeven, nil
	}
}

// StatusForResult maps a settled outcome to the position's terminal status.
func StatusForResult(r domain.Result) domain.PositionStatus {
	switch r {
	case domain.ResultWin:
		return domain.PositionStatusTPHit
	case domain.ResultLoss:
		return domain.PositionStatusSLHit
	default:
		return domain.PositionStatusBreakeven
	}
}
