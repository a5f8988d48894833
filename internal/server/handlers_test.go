package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/marketdesk/quotegate/internal/cache"
	"github.com/marketdesk/quotegate/internal/entitlement"
	"github.com/marketdesk/quotegate/internal/marketdata"
)

// stubProvider is a canned upstream for handler tests.
type stubProvider struct {
	quote     *marketdata.ProviderQuote
	quoteErr  error
	results   []marketdata.ProviderSearchItem
	searchErr error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) GetQuote(ctx context.Context, symbol string) (*marketdata.ProviderQuote, error) {
	if p.quoteErr != nil {
		return nil, p.quoteErr
	}
	return p.quote, nil
}

func (p *stubProvider) Search(ctx context.Context, query string) ([]marketdata.ProviderSearchItem, error) {
	if p.searchErr != nil {
		return nil, p.searchErr
	}
	return p.results, nil
}

const testSchema = `
CREATE TABLE account_tiers (
    account_id TEXT PRIMARY KEY,
    tier       TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE TABLE tier_changes (
    id         TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    old_tier   TEXT NOT NULL,
    new_tier   TEXT NOT NULL,
    changed_at INTEGER NOT NULL
);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

type serverOptions struct {
	provider *stubProvider
	adminKey string
	db       *sql.DB
}

func newTestServer(t *testing.T, opts serverOptions) *Server {
	if opts.provider == nil {
		opts.provider = &stubProvider{quote: &marketdata.ProviderQuote{Current: 150.0}}
	}
	if opts.db == nil {
		opts.db = setupTestDB(t)
	}

	store := cache.NewMemory()
	gateway := marketdata.NewGateway(marketdata.Config{
		Store:     store,
		Quotes:    opts.provider,
		QuoteTTL:  10 * time.Second,
		SearchTTL: 5 * time.Minute,
		Log:       zerolog.Nop(),
	})

	return New(Config{
		Log:       zerolog.Nop(),
		Port:      0,
		DevMode:   true,
		AdminKey:  opts.adminKey,
		Gateway:   gateway,
		TierStore: entitlement.NewStore(opts.db, zerolog.Nop()),
		Cache:     store,
	})
}

func doRequest(s *Server, method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHandleQuote_ObserverGetsDelayedQuote(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := doRequest(s, http.MethodGet, "/api/quote/AAPL", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "AAPL", body["symbol"])
	assert.Equal(t, 150.0, body["price"])
	assert.Equal(t, true, body["is_delayed"])
	assert.Equal(t, float64(900), body["delay_seconds"])
}

func TestHandleQuote_ProGetsRealtimeQuote(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := doRequest(s, http.MethodGet, "/api/quote/AAPL", "", map[string]string{
		"X-Caller-Tier": "pro",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["is_delayed"])
	assert.Equal(t, float64(0), body["delay_seconds"])
}

func TestHandleQuote_InvalidSymbolIs400(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := doRequest(s, http.MethodGet, "/api/quote/AA_PL", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["error"])
}

func TestHandleQuote_UpstreamFailureIsGeneric502(t *testing.T) {
	provider := &stubProvider{quoteErr: &marketdata.UpstreamError{
		Op:     "quote",
		Status: 500,
		Err:    errors.New("secret provider detail"),
	}}
	s := newTestServer(t, serverOptions{provider: provider})

	rec := doRequest(s, http.MethodGet, "/api/quote/AAPL", "", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "upstream market-data provider unavailable", body["error"])
	assert.NotContains(t, rec.Body.String(), "secret provider detail")
}

func TestHandleSearch_TruncatesToTierLimit(t *testing.T) {
	var items []marketdata.ProviderSearchItem
	for i := 0; i < 15; i++ {
		items = append(items, marketdata.ProviderSearchItem{Symbol: fmt.Sprintf("SYM%d", i)})
	}
	s := newTestServer(t, serverOptions{provider: &stubProvider{results: items}})

	// Observer callers are capped at 10 items.
	rec := doRequest(s, http.MethodGet, "/api/search?q=sym", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(10), body["count"])
	assert.Equal(t, float64(10), body["limit"])
	results := body["results"].([]any)
	require.Len(t, results, 10)
	assert.Equal(t, "SYM0", results[0].(map[string]any)["symbol"])

	// Pro callers see all 15.
	rec = doRequest(s, http.MethodGet, "/api/search?q=sym", "", map[string]string{
		"X-Caller-Tier": "pro",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body = decodeBody(t, rec)
	assert.Equal(t, float64(15), body["count"])
	assert.Equal(t, float64(200), body["limit"])
}

func TestHandleSearch_MissingQueryIs400(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := doRequest(s, http.MethodGet, "/api/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEntitlements_DefaultsToObserver(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := doRequest(s, http.MethodGet, "/api/entitlements", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "observer", body["tier"])
}

func TestHandleEntitlements_HeaderTier(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := doRequest(s, http.MethodGet, "/api/entitlements", "", map[string]string{
		"X-Caller-Tier": "signals",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "signals", body["tier"])

	features := body["features"].([]any)
	assert.Contains(t, features, "alerts")
	assert.NotContains(t, features, "realtime_signals")
}

func TestHandleEntitlements_LegacyAliasAccepted(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := doRequest(s, http.MethodGet, "/api/entitlements", "", map[string]string{
		"X-Caller-Tier": "standard",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "signals", decodeBody(t, rec)["tier"])
}

func TestHandleEntitlements_StoreOverridesHeader(t *testing.T) {
	db := setupTestDB(t)
	tierStore := entitlement.NewStore(db, zerolog.Nop())
	require.NoError(t, tierStore.SetTier("acct-1", entitlement.TierPro))

	s := newTestServer(t, serverOptions{db: db})

	rec := doRequest(s, http.MethodGet, "/api/entitlements", "", map[string]string{
		"X-Account-ID":  "acct-1",
		"X-Caller-Tier": "observer",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pro", decodeBody(t, rec)["tier"])
}

func TestHandleSetTier_RequiresAdminKey(t *testing.T) {
	s := newTestServer(t, serverOptions{adminKey: "secret"})

	rec := doRequest(s, http.MethodPut, "/api/admin/accounts/acct-1/tier", `{"tier":"pro"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(s, http.MethodPut, "/api/admin/accounts/acct-1/tier", `{"tier":"pro"}`, map[string]string{
		"X-Admin-Key": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleSetTier_DisabledWithoutConfiguredKey(t *testing.T) {
	s := newTestServer(t, serverOptions{adminKey: ""})

	rec := doRequest(s, http.MethodPut, "/api/admin/accounts/acct-1/tier", `{"tier":"pro"}`, map[string]string{
		"X-Admin-Key": "",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleSetTier_Success(t *testing.T) {
	db := setupTestDB(t)
	s := newTestServer(t, serverOptions{adminKey: "secret", db: db})

	rec := doRequest(s, http.MethodPut, "/api/admin/accounts/acct-1/tier", `{"tier":"pro"}`, map[string]string{
		"X-Admin-Key": "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "acct-1", body["account_id"])
	assert.Equal(t, "pro", body["tier"])

	// Subsequent calls for that account gate at the new tier.
	rec = doRequest(s, http.MethodGet, "/api/entitlements", "", map[string]string{
		"X-Account-ID": "acct-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pro", decodeBody(t, rec)["tier"])
}

func TestHandleSetTier_UnknownTierIs400(t *testing.T) {
	s := newTestServer(t, serverOptions{adminKey: "secret"})

	rec := doRequest(s, http.MethodPut, "/api/admin/accounts/acct-1/tier", `{"tier":"platinum"}`, map[string]string{
		"X-Admin-Key": "secret",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "platinum")
}

func TestHandleSetTier_MalformedBodyIs400(t *testing.T) {
	s := newTestServer(t, serverOptions{adminKey: "secret"})

	rec := doRequest(s, http.MethodPut, "/api/admin/accounts/acct-1/tier", `not json`, map[string]string{
		"X-Admin-Key": "secret",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	for _, path := range []string{"/health", "/api/health"} {
		rec := doRequest(s, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, path)

		body := decodeBody(t, rec)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "quotegate", body["service"])
		assert.Contains(t, body, "cache_entries")
	}
}
