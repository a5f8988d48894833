// Package logodev builds logo CDN URLs for ticker symbols.
// The CDN serves images directly from a templated URL carrying a publishable
// key, so enrichment needs no request of its own - just the credential.
package logodev

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://img.logo.dev/ticker"

// Client builds logo URLs for search-result enrichment.
type Client struct {
	baseURL string
	apiKey  string
	log     zerolog.Logger
}

// NewClient creates a logo client. An empty apiKey produces a disabled
// client; search proceeds without logos in that case.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		log:     log.With().Str("client", "logodev").Logger(),
	}
}

// Enabled reports whether the publishable key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// LogoURL returns the CDN URL for a symbol's logo.
func (c *Client) LogoURL(symbol string) (string, error) {
	if !c.Enabled() {
		return "", errors.New("logo API key not configured")
	}

	symbol = strings.ToLower(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", errors.New("empty symbol")
	}

	return fmt.Sprintf("%s/%s?token=%s", c.baseURL, symbol, c.apiKey), nil
}
