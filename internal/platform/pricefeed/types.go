package pricefeed

import (
	"math"
	"time"

	"github.com/akopyan/signaldesk/internal/domain"
)

// APIQuote is a single quote entry as returned by the provider.
type APIQuote struct {
	Symbol   string   `json:"symbol"`
	Price    *float64 `json:"price"`
	QuotedAt int64    `json:"quoted_at"` // unix milliseconds
}

// Valid reports whether the entry carries a usable finite price.
func (q APIQuote) Valid() bool {
	return q.Price != nil && !math.IsNaN(*q.Price) && !math.IsInf(*q.Price, 0)
}

// ToDomain converts the API entry to a domain snapshot. Call Valid first.
func (q APIQuote) ToDomain(provider string) domain.QuoteSnapshot {
	var price float64
	if q.Price != nil {
		price = *q.Price
	}
	quotedAt := time.UnixMilli(q.QuotedAt).UTC()
	if q.QuotedAt == 0 {
		quotedAt = time.Now().UTC()
	}
	return domain.QuoteSnapshot{
		Symbol:   q.Symbol,
		Price:    price,
		QuotedAt: quotedAt,
		Provider: provider,
	}
}

// APIBatchResponse is the provider's batch quote payload.
type APIBatchResponse struct {
	Quotes []APIQuote `json:"quotes"`
}

// APIError is the provider's error envelope; errors are provider-supplied
// text.
type APIError struct {
	Message string `json:"message"`
}
