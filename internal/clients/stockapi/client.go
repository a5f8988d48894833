// Package stockapi provides a client for Finnhub-compatible market-data APIs.
// It implements the marketdata provider port; every failure it returns is an
// *marketdata.UpstreamError so the gateway can keep validation failures and
// upstream failures distinct.
package stockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/marketdesk/quotegate/internal/marketdata"
	"github.com/rs/zerolog"
)

// Client is the upstream quote/search API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new stock API client.
// An empty apiKey is tolerated at construction; calls then fail with an
// upstream error rather than crashing startup.
func NewClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("client", "stockapi").Logger(),
	}
}

// Name identifies the provider in normalized payloads.
func (c *Client) Name() string {
	return "finnhub"
}

// quoteResponse is the provider's quote payload.
type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PrevClose     float64 `json:"pc"`
}

// searchResponse is the provider's symbol-search payload.
type searchResponse struct {
	Count  int `json:"count"`
	Result []struct {
		Symbol        string `json:"symbol"`
		DisplaySymbol string `json:"displaySymbol"`
		Description   string `json:"description"`
		Type          string `json:"type"`
	} `json:"result"`
}

// GetQuote fetches the current quote for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*marketdata.ProviderQuote, error) {
	var payload quoteResponse
	if err := c.get(ctx, "quote", url.Values{"symbol": {symbol}}, &payload); err != nil {
		return nil, err
	}

	return &marketdata.ProviderQuote{
		Current:       payload.Current,
		Change:        payload.Change,
		ChangePercent: payload.ChangePercent,
		High:          payload.High,
		Low:           payload.Low,
		Open:          payload.Open,
		PrevClose:     payload.PrevClose,
	}, nil
}

// Search looks up symbols matching a free-text query.
// Result order is the provider's ranking and is preserved.
func (c *Client) Search(ctx context.Context, query string) ([]marketdata.ProviderSearchItem, error) {
	var payload searchResponse
	if err := c.get(ctx, "search", url.Values{"q": {query}}, &payload); err != nil {
		return nil, err
	}

	items := make([]marketdata.ProviderSearchItem, 0, len(payload.Result))
	for _, r := range payload.Result {
		items = append(items, marketdata.ProviderSearchItem{
			Symbol:      r.Symbol,
			Description: r.Description,
			Exchange:    r.DisplaySymbol,
			Type:        r.Type,
		})
	}
	return items, nil
}

// get performs one provider call and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, op string, params url.Values, out any) error {
	if c.apiKey == "" {
		return &marketdata.UpstreamError{Op: op, Err: errors.New("provider API key not configured")}
	}

	params.Set("token", c.apiKey)
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, op, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &marketdata.UpstreamError{Op: op, Err: err}
	}

	c.log.Debug().Str("op", op).Msg("Calling upstream provider")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &marketdata.UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Status only; the raw body may carry provider internals and is not
		// propagated toward callers.
		return &marketdata.UpstreamError{
			Op:     op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("provider returned status %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &marketdata.UpstreamError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}
