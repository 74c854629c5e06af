package domain

import "time"

// Direction is the side of a published trade idea.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// PositionStatus tracks a position through its lifecycle. A position is
// created upcoming or active and transitions to exactly one terminal status.
type PositionStatus string

const (
	PositionStatusUpcoming  PositionStatus = "upcoming"
	PositionStatusActive    PositionStatus = "active"
	PositionStatusTPHit     PositionStatus = "tp_hit"
	PositionStatusSLHit     PositionStatus = "sl_hit"
	PositionStatusBreakeven PositionStatus = "breakeven"
	PositionStatusClosed    PositionStatus = "closed"
)

// Terminal reports whether the status is final. Once terminal, a position is
// immutable.
func (s PositionStatus) Terminal() bool {
	switch s {
	case PositionStatusTPHit, PositionStatusSLHit, PositionStatusBreakeven, PositionStatusClosed:
		return true
	default:
		return false
	}
}

// Position is a published trade idea with entry/stop/target prices and a
// direction. Entry, stop and target are nil while the position is still
// upcoming; they are populated when it goes active.
type Position struct {
	ID        string    `json:"id"`
	Pair      string    `json:"pair"`     // instrument pair, e.g. "EURUSD" or "BTC/USD"
	Category  string    `json:"category"` // e.g. "forex", "crypto", "indices", "commodities"
	Direction Direction `json:"direction"`
	Entry     *float64  `json:"entry"`
	Stop      *float64  `json:"stop"`
	Target    *float64  `json:"target"`
	// AltStop, when set, replaces the original stop for reward:risk
	// purposes after partial targets were taken and the stop moved.
	AltStop *float64 `json:"alt_stop,omitempty"`
	// QuoteSymbol is an optional provider symbol recorded at publish time.
	// It takes priority over mapping and heuristics during resolution.
	QuoteSymbol string         `json:"quote_symbol,omitempty"`
	Status      PositionStatus `json:"status"`
	CreatedBy   string         `json:"created_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ClosedAt    *time.Time     `json:"closed_at,omitempty"`
}

// Open reports whether the position is still awaiting settlement.
func (p Position) Open() bool {
	return p.Status == PositionStatusActive
}

// RRStop returns the stop price used for reward:risk math, preferring the
// alternate stop when one was recorded.
func (p Position) RRStop() float64 {
	if p.AltStop != nil {
		return *p.AltStop
	}
	if p.Stop != nil {
		return *p.Stop
	}
	return 0
}

// TargetUpdate is an append-only log entry recording a moved target.
type TargetUpdate struct {
	ID         int64     `json:"id"`
	PositionID string    `json:"position_id"`
	Price      float64   `json:"price"`
	CreatedAt  time.Time `json:"created_at"`
}

// EffectiveTarget returns the target to use for reward:risk: the most
// favorable logged update (highest for BUY, lowest for SELL), falling back
// to the position's original target when no updates exist.
func EffectiveTarget(p Position, updates []TargetUpdate) float64 {
	var orig float64
	if p.Target != nil {
		orig = *p.Target
	}
	if len(updates) == 0 {
		return orig
	}

	best := updates[0].Price
	for _, u := range updates[1:] {
		if p.Direction == DirectionSell {
			if u.Price < best {
				best = u.Price
			}
		} else if u.Price > best {
			best = u.Price
		}
	}
	return best
}
