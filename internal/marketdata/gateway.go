package marketdata

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/marketdesk/quotegate/internal/cache"
	"github.com/rs/zerolog"
)

// Gateway shields the upstream provider behind a short-TTL cache.
// Quotes and search results are cached under independent keys with
// independent TTLs; failures are never cached, so a failed fetch retries
// upstream on the next call instead of serving a poisoned negative entry.
type Gateway struct {
	store     cache.Store
	quotes    QuoteProvider
	logos     LogoProvider
	quoteTTL  time.Duration
	searchTTL time.Duration
	log       zerolog.Logger
}

// Config holds gateway construction parameters.
type Config struct {
	Store     cache.Store
	Quotes    QuoteProvider
	Logos     LogoProvider // optional - nil disables enrichment
	QuoteTTL  time.Duration
	SearchTTL time.Duration
	Log       zerolog.Logger
}

// NewGateway creates a market-data gateway.
func NewGateway(cfg Config) *Gateway {
	return &Gateway{
		store:     cfg.Store,
		quotes:    cfg.Quotes,
		logos:     cfg.Logos,
		quoteTTL:  cfg.QuoteTTL,
		searchTTL: cfg.SearchTTL,
		log:       cfg.Log.With().Str("component", "marketdata_gateway").Logger(),
	}
}

// GetQuote returns the normalized quote for a symbol, serving from cache
// when a fresh entry exists and calling upstream exactly once otherwise.
func (g *Gateway) GetQuote(ctx context.Context, rawSymbol string) (*Quote, error) {
	symbol, err := ValidateSymbol(rawSymbol)
	if err != nil {
		return nil, err
	}

	key := "quote:" + symbol

	if data, ok := g.cacheGet(ctx, key); ok {
		var quote Quote
		if err := json.Unmarshal(data, &quote); err == nil {
			g.log.Debug().Str("symbol", symbol).Msg("Quote cache hit")
			return &quote, nil
		}
		g.log.Warn().Str("key", key).Msg("Failed to unmarshal cached quote, refetching")
	}

	raw, err := g.quotes.GetQuote(ctx, symbol)
	if err != nil {
		// Not cached: the next call must retry upstream.
		return nil, err
	}

	quote := normalizeQuote(symbol, g.quotes.Name(), raw)
	g.cacheSet(ctx, key, quote, g.quoteTTL)

	g.log.Debug().Str("symbol", symbol).Str("source", quote.Source).Msg("Fetched quote")
	return quote, nil
}

// SearchSymbols returns symbol-search results in upstream order, enriched
// with logo URLs when the enrichment provider is configured.
func (g *Gateway) SearchSymbols(ctx context.Context, rawQuery string) ([]SearchResult, error) {
	query, err := ValidateQuery(rawQuery)
	if err != nil {
		return nil, err
	}

	key := "search:" + strings.ToLower(query)

	if data, ok := g.cacheGet(ctx, key); ok {
		var results []SearchResult
		if err := json.Unmarshal(data, &results); err == nil {
			g.log.Debug().Str("query", query).Msg("Search cache hit")
			return results, nil
		}
		g.log.Warn().Str("key", key).Msg("Failed to unmarshal cached search results, refetching")
	}

	items, err := g.quotes.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(items))
	for _, item := range items {
		result := SearchResult{
			Symbol:   item.Symbol,
			Name:     item.Description,
			Exchange: item.Exchange,
			Type:     item.Type,
		}
		if logoURL, ok := g.logoFor(item.Symbol); ok {
			result.LogoURL = &logoURL
		}
		results = append(results, result)
	}

	g.cacheSet(ctx, key, results, g.searchTTL)

	g.log.Debug().Str("query", query).Int("results", len(results)).Msg("Fetched search results")
	return results, nil
}

// logoFor returns a logo URL for symbol, best-effort. Enrichment failure is
// logged and skipped; logos are decoration, not core data.
func (g *Gateway) logoFor(symbol string) (string, bool) {
	if g.logos == nil || !g.logos.Enabled() {
		return "", false
	}

	logoURL, err := g.logos.LogoURL(symbol)
	if err != nil {
		g.log.Debug().Err(err).Str("symbol", symbol).Msg("Logo enrichment skipped")
		return "", false
	}
	return logoURL, true
}

// cacheGet reads the store, treating store errors as misses.
func (g *Gateway) cacheGet(ctx context.Context, key string) (json.RawMessage, bool) {
	data, ok, err := g.store.Get(ctx, key)
	if err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, treating as miss")
		return nil, false
	}
	return data, ok
}

// cacheSet writes the store, logging failures. A failed cache write only
// costs an extra upstream call later.
func (g *Gateway) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	if err := g.store.Set(ctx, key, value, ttl); err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("Failed to cache value")
	}
}

// normalizeQuote maps a raw provider quote onto the caller-facing shape.
// Non-finite upstream numbers become nil rather than corrupting a displayed
// price.
func normalizeQuote(symbol, source string, raw *ProviderQuote) *Quote {
	return &Quote{
		Symbol:        symbol,
		Price:         finite(raw.Current),
		Change:        finite(raw.Change),
		ChangePercent: finite(raw.ChangePercent),
		High:          finite(raw.High),
		Low:           finite(raw.Low),
		Open:          finite(raw.Open),
		PrevClose:     finite(raw.PrevClose),
		Source:        source,
	}
}

// finite returns a pointer to v, or nil for NaN/Inf.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
