package validation

import (
	"sort"

	"github.com/goliatone/go-formguard/pkg/cache"
	"github.com/goliatone/go-formguard/pkg/risk"
	"github.com/goliatone/go-formguard/pkg/threat"
)

const topThreatLimit = 5

// ThreatCount pairs a threat category with the number of cached results that
// reported it.
type ThreatCount struct {
	Category threat.Category `json:"category"`
	Count    int             `json:"count"`
}

// Stats summarises the cached field results.
type Stats struct {
	Entries          int                `json:"entries"`
	Valid            int                `json:"valid"`
	Invalid          int                `json:"invalid"`
	FailureRate      float64            `json:"failureRate"`
	RiskDistribution map[risk.Level]int `json:"riskDistribution"`
	TopThreats       []ThreatCount      `json:"topThreats,omitempty"`
	Cache            cache.Counters     `json:"cache"`
}

// Stats derives counts from the cache contents.
func (v *Validator) Stats() Stats {
	results := v.cache.Values()
	out := Stats{
		Entries:          len(results),
		RiskDistribution: make(map[risk.Level]int, len(risk.Levels())),
		Cache:            v.cache.Counters(),
	}
	for _, level := range risk.Levels() {
		out.RiskDistribution[level] = 0
	}

	counts := make(map[threat.Category]int)
	for _, result := range results {
		if result.Valid {
			out.Valid++
		} else {
			out.Invalid++
		}
		out.RiskDistribution[result.RiskLevel]++
		for _, category := range result.Threats {
			counts[category]++
		}
	}
	if out.Entries > 0 {
		out.FailureRate = float64(out.Invalid) / float64(out.Entries)
	}
	out.TopThreats = topThreats(counts, topThreatLimit)
	return out
}

func topThreats(counts map[threat.Category]int, limit int) []ThreatCount {
	if len(counts) == 0 {
		return nil
	}
	out := make([]ThreatCount, 0, len(counts))
	for category, count := range counts {
		out = append(out, ThreatCount{Category: category, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Category < out[j].Category
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
