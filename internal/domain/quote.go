package domain

import (
	"math"
	"time"
)

// QuoteFreshness is the maximum age of a cached quote snapshot that can be
// served without a refetch.
const QuoteFreshness = 5000 * time.Millisecond

// QuoteSnapshot is a single provider price observation for a symbol.
type QuoteSnapshot struct {
	Symbol   string    `json:"symbol"`
	Price    float64   `json:"price"`
	QuotedAt time.Time `json:"quoted_at"`
	Provider string    `json:"provider"`
}

// Fresh reports whether the snapshot is still usable without a refetch at
// the given instant.
func (q QuoteSnapshot) Fresh(now time.Time) bool {
	return now.Sub(q.QuotedAt) <= QuoteFreshness
}

// Valid reports whether the snapshot carries a usable finite price.
func (q QuoteSnapshot) Valid() bool {
	return !math.IsNaN(q.Price) && !math.IsInf(q.Price, 0)
}
