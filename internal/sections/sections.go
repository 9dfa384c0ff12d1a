// Package sections buckets scored markets into newspaper-style editorial
// sections and derives the ranked views that feed the report surfaces.
package sections

import (
	"sort"
	"strings"

	"github.com/marketpress/marketpress/internal/models"
)

// Section names. CategoryNames is the fixed evaluation order of the keyword
// rules; the order is significant because the first matching section wins.
const (
	SectionTopStories = "Top Stories"
	SectionPolitics   = "Politics"
	SectionBusiness   = "Business"
	SectionTech       = "Tech"
	SectionCulture    = "Culture"
	SectionSports     = "Sports"
	SectionDeveloping = "Developing"
	SectionMostRead   = "Most Read"
	SectionOther      = "Other"
)

// CategoryNames lists the keyword-matched category sections in rule order.
var CategoryNames = []string{SectionPolitics, SectionBusiness, SectionTech, SectionCulture, SectionSports}

type categoryRule struct {
	name     string
	keywords []string
}

// Keyword tables are the classification boundary: case-insensitive substring
// containment, no stemming, first match wins.
var categoryRules = []categoryRule{
	{SectionPolitics, []string{"politics", "elections", "government", "policy", "congress", "senate", "president"}},
	{SectionBusiness, []string{"business", "economics", "finance", "markets", "stocks", "economy", "trade"}},
	{SectionTech, []string{"technology", "tech", "ai", "crypto", "innovation", "science", "space"}},
	{SectionCulture, []string{"culture", "entertainment", "sports", "arts", "music", "movies", "tv"}},
	{SectionSports, []string{"sports", "football", "basketball", "baseball", "soccer", "olympics"}},
}

// Config holds section sizing and developing-story thresholds.
type Config struct {
	TopStories          int
	SectionSize         int
	MostRead            int
	Developing          int
	VolatilityThreshold float64
	DeltaThreshold      float64
}

// DefaultConfig returns the standard section configuration.
func DefaultConfig() Config {
	return Config{
		TopStories:          10,
		SectionSize:         15,
		MostRead:            10,
		Developing:          10,
		VolatilityThreshold: 0.05,
		DeltaThreshold:      0.05,
	}
}

// Categorize maps a market to exactly one category section by scanning the
// ordered keyword table against category + title + subtitle.
func Categorize(m models.Market) string {
	blob := strings.ToLower(m.Category + " " + m.Title + " " + m.Subtitle)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(blob, kw) {
				return rule.name
			}
		}
	}
	return SectionOther
}

// Organize assigns a section to every market and builds the full set of
// ranked views. A market may appear both in its category section and in Top
// Stories; the overlap is deliberate.
func Organize(markets []models.Market, cfg Config) map[string][]models.Market {
	out := map[string][]models.Market{
		SectionTopStories: {},
		SectionDeveloping: {},
		SectionMostRead:   {},
	}
	for _, name := range CategoryNames {
		out[name] = []models.Market{}
	}
	if len(markets) == 0 {
		return out
	}

	tagged := make([]models.Market, len(markets))
	copy(tagged, markets)
	for i := range tagged {
		tagged[i].Section = Categorize(tagged[i])
	}

	out[SectionTopStories] = TopStories(tagged, cfg.TopStories)

	for _, name := range CategoryNames {
		var bucket []models.Market
		for _, m := range tagged {
			if m.Section == name {
				bucket = append(bucket, m)
			}
		}
		sortByNewsworthiness(bucket)
		out[name] = truncate(bucket, cfg.SectionSize)
	}

	out[SectionDeveloping] = Developing(tagged, cfg.VolatilityThreshold, cfg.DeltaThreshold, cfg.Developing)
	out[SectionMostRead] = MostRead(tagged, cfg.MostRead)

	return out
}

// Developing flags markets with recent instability or disproportionate
// attention. Membership is a three-clause OR, each clause independently
// sufficient; lowering either threshold never shrinks the set. Rows are
// ranked by 0.5*attention + 0.5*normalized volatility, capped at limit.
func Developing(markets []models.Market, volThreshold, deltaThreshold float64, limit int) []models.Market {
	var developing []models.Market
	for _, m := range markets {
		vol := fill(m.Volatility, 0)
		delta := fill(m.Delta24h, 0)
		attention := fill(m.AttentionScore, 0)

		if vol > volThreshold ||
			abs(delta) > deltaThreshold ||
			(attention > 0.7 && abs(delta) > 0.02) {
			developing = append(developing, m)
		}
	}
	if len(developing) == 0 {
		return []models.Market{}
	}

	maxVol := 0.0
	for _, m := range developing {
		if v := fill(m.Volatility, 0); v > maxVol {
			maxVol = v
		}
	}
	score := func(m models.Market) float64 {
		volScore := 0.0
		if maxVol > 0 {
			volScore = fill(m.Volatility, 0) / maxVol
		}
		return 0.5*fill(m.AttentionScore, 0) + 0.5*volScore
	}
	sort.SliceStable(developing, func(i, j int) bool {
		return score(developing[i]) > score(developing[j])
	})

	return truncate(developing, limit)
}

// LeadStory returns the single most newsworthy market, or false for an
// empty table.
func LeadStory(markets []models.Market) (models.Market, bool) {
	top := TopStories(markets, 1)
	if len(top) == 0 {
		return models.Market{}, false
	}
	return top[0], true
}

// TopStories returns the global top n by newsworthiness, independent of
// section assignment.
func TopStories(markets []models.Market, n int) []models.Market {
	if len(markets) == 0 || n <= 0 {
		return []models.Market{}
	}
	ranked := make([]models.Market, len(markets))
	copy(ranked, markets)
	sortByNewsworthiness(ranked)
	return truncate(ranked, n)
}

// SectionMarkets returns the view for a named section, empty when absent.
func SectionMarkets(sections map[string][]models.Market, name string) []models.Market {
	if rows, ok := sections[name]; ok {
		return rows
	}
	return []models.Market{}
}

// MostRead returns the top n by raw volume.
func MostRead(markets []models.Market, n int) []models.Market {
	if len(markets) == 0 || n <= 0 {
		return []models.Market{}
	}
	ranked := make([]models.Market, len(markets))
	copy(ranked, markets)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Volume > ranked[j].Volume
	})
	return truncate(ranked, n)
}

// sortByNewsworthiness orders descending, falling back to attention when a
// row has no newsworthiness score. Stable: ties keep input order.
func sortByNewsworthiness(markets []models.Market) {
	key := func(m models.Market) float64 {
		if !models.IsMissing(m.Newsworthiness) {
			return m.Newsworthiness
		}
		return fill(m.AttentionScore, 0)
	}
	sort.SliceStable(markets, func(i, j int) bool {
		return key(markets[i]) > key(markets[j])
	})
}

func truncate(markets []models.Market, n int) []models.Market {
	if len(markets) > n {
		return markets[:n]
	}
	return markets
}

func fill(v, fallback float64) float64 {
	if models.IsMissing(v) {
		return fallback
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
