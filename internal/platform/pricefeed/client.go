// Package pricefeed is the REST client for the market data provider. It
// serves single and batched quote lookups, bearer-token authenticated via an
// external session provider.
package pricefeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/akopyan/signaldesk/internal/domain"
)

// TokenSource supplies the bearer token for provider requests. The session
// lifecycle (login, refresh) is owned by an external collaborator.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource backed by a fixed token string.
type StaticToken string

// Token returns the fixed token.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Client is the REST client for the quote provider.
type Client struct {
	baseURL    string
	name       string
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient creates a provider client. baseURL is the API root, e.g.
// "https://api.pricefeed.example". name tags snapshots with their source.
// The transport carries an explicit timeout so a hung provider cannot stall
// a settlement pass.
func NewClient(baseURL, name string, tokens TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		name:    name,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		tokens: tokens,
	}
}

// Quote fetches the latest quote for one symbol. A missing or non-finite
// price in the response is a hard ErrQuoteUnavailable.
func (c *Client) Quote(ctx context.Context, symbol string) (domain.QuoteSnapshot, error) {
	path := "/v1/quote?symbol=" + url.QueryEscape(symbol)

	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return domain.QuoteSnapshot{}, fmt.Errorf("pricefeed: quote %s: %w", symbol, err)
	}

	var apiQuote APIQuote
	if err := json.Unmarshal(respBody, &apiQuote); err != nil {
		return domain.QuoteSnapshot{}, fmt.Errorf("pricefeed: decode quote %s: %w", symbol, err)
	}
	if !apiQuote.Valid() {
		return domain.QuoteSnapshot{}, fmt.Errorf("pricefeed: quote %s: %w", symbol, domain.ErrQuoteUnavailable)
	}
	if apiQuote.Symbol == "" {
		apiQuote.Symbol = symbol
	}

	return apiQuote.ToDomain(c.name), nil
}

// BatchQuotes fetches quotes for a symbol set in one provider call. Entries
// with missing or non-finite prices are dropped from the result rather than
// failing the batch; the caller backfills from cache.
func (c *Client) BatchQuotes(ctx context.Context, symbols []string) (map[string]domain.QuoteSnapshot, error) {
	body := map[string]any{"symbols": symbols}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/v1/quotes", body)
	if err != nil {
		return nil, fmt.Errorf("pricefeed: batch quotes: %w", err)
	}

	var batch APIBatchResponse
	if err := json.Unmarshal(respBody, &batch); err != nil {
		return nil, fmt.Errorf("pricefeed: decode batch response: %w", err)
	}

	out := make(map[string]domain.QuoteSnapshot, len(batch.Quotes))
	for _, q := range batch.Quotes {
		if q.Symbol == "" || !q.Valid() {
			continue
		}
		out[q.Symbol] = q.ToDomain(c.name)
	}
	return out, nil
}

// doRequest builds, authenticates, sends, and reads a provider request,
// returning the raw response body.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotAuthenticated, err)
	}
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors, surfacing the
// provider-supplied message text.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	msg := string(body)
	var apiErr APIError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrNotAuthenticated, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, msg)
	}
}
