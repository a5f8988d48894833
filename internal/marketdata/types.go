package marketdata

import "context"

// Quote is the normalized snapshot returned to callers. Numeric fields are
// pointers: a nil field means the upstream value was missing or non-finite,
// never a silently corrupted zero.
type Quote struct {
	Symbol        string   `json:"symbol"`
	Price         *float64 `json:"price"`
	Change        *float64 `json:"change"`
	ChangePercent *float64 `json:"change_percent"`
	High          *float64 `json:"high"`
	Low           *float64 `json:"low"`
	Open          *float64 `json:"open"`
	PrevClose     *float64 `json:"prev_close"`
	Source        string   `json:"source"`
	IsDelayed     bool     `json:"is_delayed"`
}

// SearchResult is one normalized symbol-search hit. LogoURL is decoration:
// absent when enrichment is unavailable, never a reason to fail the search.
type SearchResult struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Exchange string  `json:"exchange,omitempty"`
	Type     string  `json:"type,omitempty"`
	LogoURL  *string `json:"logo_url,omitempty"`
}

// ProviderQuote is the raw quote shape delivered by an upstream provider
// before normalization.
type ProviderQuote struct {
	Current       float64
	Change        float64
	ChangePercent float64
	High          float64
	Low           float64
	Open          float64
	PrevClose     float64
}

// ProviderSearchItem is one raw search hit from an upstream provider,
// in upstream order.
type ProviderSearchItem struct {
	Symbol      string
	Description string
	Exchange    string
	Type        string
}

// QuoteProvider is the upstream market-data port implemented by provider
// clients. Errors returned from these calls must be *UpstreamError.
type QuoteProvider interface {
	Name() string
	GetQuote(ctx context.Context, symbol string) (*ProviderQuote, error)
	Search(ctx context.Context, query string) ([]ProviderSearchItem, error)
}

// LogoProvider is the optional enrichment port for search results.
type LogoProvider interface {
	// Enabled reports whether the provider has the credential it needs.
	Enabled() bool
	// LogoURL returns a logo URL for the symbol.
	LogoURL(symbol string) (string, error)
}
