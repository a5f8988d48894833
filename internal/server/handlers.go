package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/marketdesk/quotegate/internal/entitlement"
	"github.com/marketdesk/quotegate/internal/marketdata"
)

// callerTier resolves the caller's tier for gating decisions.
// The fronting auth layer injects X-Caller-Tier for authenticated requests;
// when an account id is present the tier store is authoritative over the
// header. Anything unresolvable gates as the lowest tier.
func (s *Server) callerTier(r *http.Request) entitlement.Tier {
	if accountID := r.Header.Get("X-Account-ID"); accountID != "" && s.tierStore != nil {
		tier, err := s.tierStore.GetTier(accountID)
		if err == nil {
			return tier
		}
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("Tier lookup failed, falling back to header")
	}
	return entitlement.ParseTier(r.Header.Get("X-Caller-Tier"))
}

// quoteResponse adds the tier-derived delay window to the normalized quote.
type quoteResponse struct {
	marketdata.Quote
	DelaySeconds int `json:"delay_seconds"`
}

// handleQuote handles GET /api/quote/{symbol}
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := s.gateway.GetQuote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeGatewayError(w, err)
		return
	}

	limits := entitlement.FeaturesFor(s.callerTier(r)).Limits

	resp := quoteResponse{Quote: *quote, DelaySeconds: limits.SignalDelaySeconds}
	resp.IsDelayed = limits.SignalDelaySeconds > 0

	s.writeJSON(w, http.StatusOK, resp)
}

// searchResponse caps the result list at the caller tier's item limit.
type searchResponse struct {
	Results []marketdata.SearchResult `json:"results"`
	Count   int                       `json:"count"`
	Limit   int                       `json:"limit"`
}

// handleSearch handles GET /api/search?q=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := s.gateway.SearchSymbols(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeGatewayError(w, err)
		return
	}

	limits := entitlement.FeaturesFor(s.callerTier(r)).Limits
	if len(results) > limits.MaxItemsPerResponse {
		results = results[:limits.MaxItemsPerResponse]
	}

	s.writeJSON(w, http.StatusOK, searchResponse{
		Results: results,
		Count:   len(results),
		Limit:   limits.MaxItemsPerResponse,
	})
}

// handleEntitlements handles GET /api/entitlements
func (s *Server) handleEntitlements(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, entitlement.FeaturesFor(s.callerTier(r)))
}

// tierUpdate is the request body for the privileged tier-change endpoint.
type tierUpdate struct {
	Tier string `json:"tier"`
}

// handleSetTier handles PUT /api/admin/accounts/{id}/tier
func (s *Server) handleSetTier(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		s.writeError(w, http.StatusBadRequest, "account id is required")
		return
	}

	var update tierUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The admin surface does not silently downgrade typos to observer:
	// an unrecognized label here is an input error, not an untrusted caller.
	tier, ok := entitlement.ParseTierStrict(update.Tier)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown tier: "+update.Tier)
		return
	}

	if err := s.tierStore.SetTier(accountID, tier); err != nil {
		s.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to set tier")
		s.writeError(w, http.StatusInternalServerError, "failed to set tier")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"account_id": accountID,
		"tier":       string(tier),
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cacheEntries := 0
	if s.cache != nil {
		if n, err := s.cache.Len(r.Context()); err == nil {
			cacheEntries = n
		} else {
			s.log.Warn().Err(err).Msg("Failed to read cache size")
		}
	}

	cpuAvg := 0.0
	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	} else if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	}

	memPercent := 0.0
	if memStat, err := mem.VirtualMemory(); err == nil {
		memPercent = memStat.UsedPercent
	} else {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"service":       "quotegate",
		"cache_entries": cacheEntries,
		"cpu_percent":   cpuAvg,
		"mem_percent":   memPercent,
	})
}

// writeGatewayError maps gateway errors onto HTTP statuses: validation
// failures are client errors quoting the violated constraint; upstream
// failures are a generic 502 that never leaks provider internals.
func (s *Server) writeGatewayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, marketdata.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case marketdata.IsUpstream(err):
		s.log.Error().Err(err).Msg("Upstream provider call failed")
		s.writeError(w, http.StatusBadGateway, "upstream market-data provider unavailable")
	default:
		s.log.Error().Err(err).Msg("Unexpected gateway error")
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
