package entitlement

// Feature is a named capability gated by tier.
type Feature string

const (
	FeatureDelayedSignals  Feature = "delayed_signals"
	FeatureBasicCharts     Feature = "basic_charts"
	FeatureWatchlists      Feature = "watchlists"
	FeatureAlerts          Feature = "alerts"
	FeatureRealtimeSignals Feature = "realtime_signals"
	FeatureFullHistory     Feature = "full_history"
	FeatureAPIAccess       Feature = "api_access"
)

// Limits holds the numeric caps for a tier. Invariant across the order:
// SignalDelaySeconds never increases with rank, the others never decrease.
type Limits struct {
	SignalDelaySeconds  int  `json:"signal_delay_seconds"`
	MaxItemsPerResponse int  `json:"max_items_per_response"`
	HistoryDays         int  `json:"history_days"`
	AlertsEnabled       bool `json:"alerts_enabled"`
}

// FeatureSet is the resolved capabilities and limits for a tier.
type FeatureSet struct {
	Tier     Tier      `json:"tier"`
	Features []Feature `json:"features"`
	Limits   Limits    `json:"limits"`
}

// featureTable is defined once at process start and never mutated.
// Each tier's features are a strict superset of the tier below.
var featureTable = map[Tier]FeatureSet{
	TierObserver: {
		Tier: TierObserver,
		Features: []Feature{
			FeatureDelayedSignals,
			FeatureBasicCharts,
		},
		Limits: Limits{
			SignalDelaySeconds:  900,
			MaxItemsPerResponse: 10,
			HistoryDays:         30,
			AlertsEnabled:       false,
		},
	},
	TierSignals: {
		Tier: TierSignals,
		Features: []Feature{
			FeatureDelayedSignals,
			FeatureBasicCharts,
			FeatureWatchlists,
			FeatureAlerts,
		},
		Limits: Limits{
			SignalDelaySeconds:  300,
			MaxItemsPerResponse: 50,
			HistoryDays:         365,
			AlertsEnabled:       true,
		},
	},
	TierPro: {
		Tier: TierPro,
		Features: []Feature{
			FeatureDelayedSignals,
			FeatureBasicCharts,
			FeatureWatchlists,
			FeatureAlerts,
			FeatureRealtimeSignals,
			FeatureFullHistory,
			FeatureAPIAccess,
		},
		Limits: Limits{
			SignalDelaySeconds:  0,
			MaxItemsPerResponse: 200,
			HistoryDays:         1825,
			AlertsEnabled:       true,
		},
	},
}

// FeaturesFor resolves a tier to its feature set. Pure and total: unknown
// tiers resolve to the Observer set, so this never fails on a read path.
func FeaturesFor(tier Tier) FeatureSet {
	if fs, ok := featureTable[tier]; ok {
		return copySet(fs)
	}
	return copySet(featureTable[TierObserver])
}

// HasFeature reports whether the tier's feature set contains feature.
func HasFeature(tier Tier, feature Feature) bool {
	for _, f := range FeaturesFor(tier).Features {
		if f == feature {
			return true
		}
	}
	return false
}

// copySet returns a feature set whose slice is detached from the static table.
func copySet(fs FeatureSet) FeatureSet {
	out := fs
	out.Features = append([]Feature(nil), fs.Features...)
	return out
}
