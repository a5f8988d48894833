// Package entitlement resolves subscription tiers to feature sets and limits.
// Every gating decision in the service routes through MeetsMinimum so there is
// a single tier ordering, never re-derived elsewhere.
package entitlement

import "strings"

// Tier is a subscription level. The set is closed and totally ordered:
// Observer < Signals < Pro.
type Tier string

const (
	// TierObserver - the lowest tier, delayed data only
	TierObserver Tier = "observer"
	// TierSignals - paid tier with alerts and reduced delay
	TierSignals Tier = "signals"
	// TierPro - highest tier, real-time data and full history
	TierPro Tier = "pro"
)

// tierRanks fixes the total order. Higher rank = more privilege.
var tierRanks = map[Tier]int{
	TierObserver: 0,
	TierSignals:  1,
	TierPro:      2,
}

// tierAliases maps legacy billing labels onto canonical tiers.
var tierAliases = map[string]Tier{
	"free":     TierObserver,
	"standard": TierSignals,
}

// AllTiers lists tiers in ascending rank order.
var AllTiers = []Tier{TierObserver, TierSignals, TierPro}

// ParseTier decodes a tier label. Labels arrive as untrusted input (client
// headers, stored profile fields), so anything unrecognized resolves to the
// lowest tier instead of failing the request.
func ParseTier(raw string) Tier {
	tier, _ := ParseTierStrict(raw)
	return tier
}

// ParseTierStrict decodes a tier label without the lowest-tier fallback.
// Privileged writers use it so a typo is rejected instead of silently
// downgrading an account.
func ParseTierStrict(raw string) (Tier, bool) {
	label := strings.ToLower(strings.TrimSpace(raw))

	if alias, ok := tierAliases[label]; ok {
		return alias, true
	}

	tier := Tier(label)
	if _, ok := tierRanks[tier]; ok {
		return tier, true
	}

	return TierObserver, false
}

// Rank returns the tier's position in the fixed total order.
// Unknown tiers rank as Observer.
func Rank(tier Tier) int {
	if rank, ok := tierRanks[tier]; ok {
		return rank
	}
	return tierRanks[TierObserver]
}

// MeetsMinimum reports whether tier is at or above required in the fixed
// total order. This is the single comparison all gating must go through.
func MeetsMinimum(tier, required Tier) bool {
	return Rank(tier) >= Rank(required)
}
