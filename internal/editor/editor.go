// Package editor derives a digest of the current market table and answers
// simple keyword-routed questions about it.
package editor

import (
	"fmt"
	"strings"

	"github.com/marketpress/marketpress/internal/models"
	"github.com/marketpress/marketpress/internal/sections"
)

// Highlight points at one market and the value that earned it the slot.
type Highlight struct {
	Ticker      string
	Title       string
	Probability float64
	Value       float64
}

// Digest aggregates the published table into the facts the summary and the
// query router draw on. Built once per publish, never mutated after.
type Digest struct {
	TotalMarkets      int
	ActiveSections    int
	TotalVolume       int64
	TotalOpenInterest int64
	AvgProbability    float64
	MarketsUp         int
	MarketsDown       int

	HighestConfidence *Highlight
	HighestAttention  *Highlight
	BiggestMoverUp    *Highlight
	BiggestMoverDown  *Highlight
}

// Editor answers questions against one published table and its sections.
type Editor struct {
	markets  []models.Market
	sections map[string][]models.Market
	digest   Digest
}

// New builds an editor over a published table. The table is not copied; the
// caller hands over an already-copied view.
func New(markets []models.Market, secs map[string][]models.Market) *Editor {
	return &Editor{
		markets:  markets,
		sections: secs,
		digest:   buildDigest(markets),
	}
}

// Digest returns the aggregate view of the table.
func (e *Editor) Digest() Digest {
	return e.digest
}

func buildDigest(markets []models.Market) Digest {
	d := Digest{TotalMarkets: len(markets)}
	if len(markets) == 0 {
		return d
	}

	seen := map[string]bool{}
	probSum, probN := 0.0, 0
	for _, m := range markets {
		if m.Section != "" {
			seen[m.Section] = true
		}
		d.TotalVolume += m.Volume
		d.TotalOpenInterest += m.OpenInterest
		if !models.IsMissing(m.YesPrice) {
			probSum += m.YesPrice
			probN++
		}
		if !models.IsMissing(m.Delta24h) {
			if m.Delta24h > 0 {
				d.MarketsUp++
			} else if m.Delta24h < 0 {
				d.MarketsDown++
			}
		}
	}
	d.ActiveSections = len(seen)
	if probN > 0 {
		d.AvgProbability = probSum / float64(probN)
	} else {
		d.AvgProbability = models.Missing()
	}

	d.HighestConfidence = pick(markets, func(m models.Market) float64 { return m.ConfidenceScore })
	d.HighestAttention = pick(markets, func(m models.Market) float64 { return m.AttentionScore })
	d.BiggestMoverUp = pick(markets, func(m models.Market) float64 {
		if models.IsMissing(m.Delta24h) || m.Delta24h <= 0 {
			return models.Missing()
		}
		return m.Delta24h
	})
	d.BiggestMoverDown = pick(markets, func(m models.Market) float64 {
		if models.IsMissing(m.Delta24h) || m.Delta24h >= 0 {
			return models.Missing()
		}
		return -m.Delta24h
	})
	return d
}

// pick returns the market maximizing key, skipping missing keys. Nil when no
// market has a present key.
func pick(markets []models.Market, key func(models.Market) float64) *Highlight {
	best := -1
	for i, m := range markets {
		v := key(m)
		if models.IsMissing(v) {
			continue
		}
		if best < 0 || v > key(markets[best]) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	m := markets[best]
	return &Highlight{Ticker: m.Ticker, Title: m.Title, Probability: m.YesPrice, Value: key(m)}
}

// Summary renders the editor's front page digest as text.
func (e *Editor) Summary() string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	b.WriteString("📰 MARKETPRESS EDITOR'S SUMMARY\n")
	b.WriteString(rule + "\n\n")

	d := e.digest
	fmt.Fprintf(&b, "Tracking %d active prediction markets today.\n", d.TotalMarkets)
	if d.MarketsUp > 0 || d.MarketsDown > 0 {
		upPct, downPct := 0.0, 0.0
		if d.TotalMarkets > 0 {
			upPct = float64(d.MarketsUp) / float64(d.TotalMarkets) * 100
			downPct = float64(d.MarketsDown) / float64(d.TotalMarkets) * 100
		}
		fmt.Fprintf(&b, "Market sentiment: %d markets up (%.0f%%), %d down (%.0f%%).\n",
			d.MarketsUp, upPct, d.MarketsDown, downPct)
	}
	b.WriteString("\n")

	if top := e.sections[sections.SectionTopStories]; len(top) > 0 {
		b.WriteString("TOP HEADLINES:\n")
		for i, m := range top {
			if i == 3 {
				break
			}
			prob := formatPct(m.YesPrice)
			if models.IsMissing(m.Delta24h) {
				fmt.Fprintf(&b, "  • %s: %s\n", m.Title, prob)
				continue
			}
			dir := "up"
			if m.Delta24h < 0 {
				dir = "down"
			}
			fmt.Fprintf(&b, "  • %s: %s (%s %.0f%%)\n", m.Title, prob, dir, abs(m.Delta24h)*100)
		}
		b.WriteString("\n")
	}

	if d.BiggestMoverUp != nil || d.BiggestMoverDown != nil {
		b.WriteString("NOTABLE MOVEMENTS:\n")
		if h := d.BiggestMoverUp; h != nil {
			fmt.Fprintf(&b, "  ↑ Biggest gain: %s (+%.0f%% to %s)\n", h.Title, h.Value*100, formatPct(h.Probability))
		}
		if h := d.BiggestMoverDown; h != nil {
			fmt.Fprintf(&b, "  ↓ Biggest drop: %s (-%.0f%% to %s)\n", h.Title, h.Value*100, formatPct(h.Probability))
		}
		b.WriteString("\n")
	}

	if h := d.HighestAttention; h != nil {
		fmt.Fprintf(&b, "MOST WATCHED: %s\n\n", h.Title)
	}

	b.WriteString("SECTION HIGHLIGHTS:\n")
	for _, name := range sections.CategoryNames {
		if rows := e.sections[name]; len(rows) > 0 {
			fmt.Fprintf(&b, "  %s: %d active markets\n", name, len(rows))
		}
	}

	b.WriteString("\n" + rule)
	return b.String()
}

// Answer routes a free-text question to a canned responder by keyword.
// Unrecognized questions get a help message listing what the editor knows.
func (e *Editor) Answer(query string) string {
	q := strings.ToLower(query)

	switch {
	case strings.Contains(q, "how many") || strings.Contains(q, "count"):
		return e.answerCount(q)
	case strings.Contains(q, "biggest") || strings.Contains(q, "largest") || strings.Contains(q, "top"):
		return e.answerBiggest(q)
	case strings.Contains(q, "what") || strings.Contains(q, "which"):
		return e.answerWhat(q)
	case strings.Contains(q, "average") || strings.Contains(q, "mean"):
		return fmt.Sprintf("The average market probability across all markets is %s.", formatPct(e.digest.AvgProbability))
	default:
		return "I can help you understand the market data. Try asking about: the biggest movers, most watched markets, top headlines, or market counts by category."
	}
}

func (e *Editor) answerCount(q string) string {
	type bucket struct {
		keywords []string
		section  string
		label    string
	}
	buckets := []bucket{
		{[]string{"politics", "political"}, sections.SectionPolitics, "political"},
		{[]string{"business", "economic"}, sections.SectionBusiness, "business/economic"},
		{[]string{"tech"}, sections.SectionTech, "technology"},
		{[]string{"culture", "entertainment"}, sections.SectionCulture, "culture"},
		{[]string{"sport"}, sections.SectionSports, "sports"},
	}
	for _, bk := range buckets {
		for _, kw := range bk.keywords {
			if strings.Contains(q, kw) {
				return fmt.Sprintf("There are %d %s markets currently active.", len(e.sections[bk.section]), bk.label)
			}
		}
	}
	return fmt.Sprintf("There are %d total markets currently active across all categories.", e.digest.TotalMarkets)
}

func (e *Editor) answerBiggest(q string) string {
	if strings.Contains(q, "mover") || strings.Contains(q, "change") || strings.Contains(q, "gain") || strings.Contains(q, "drop") {
		up, down := e.digest.BiggestMoverUp, e.digest.BiggestMoverDown
		if strings.Contains(q, "up") || strings.Contains(q, "gain") {
			if up != nil {
				return fmt.Sprintf("The biggest gainer is '%s', up %.1f%% in 24 hours.", up.Title, up.Value*100)
			}
		}
		if strings.Contains(q, "down") || strings.Contains(q, "drop") {
			if down != nil {
				return fmt.Sprintf("The biggest decliner is '%s', down %.1f%% in 24 hours.", down.Title, down.Value*100)
			}
		}
		if up != nil && down != nil {
			return fmt.Sprintf("Biggest gain: '%s' (+%.1f%%). Biggest drop: '%s' (-%.1f%%).",
				up.Title, up.Value*100, down.Title, down.Value*100)
		}
	}
	if strings.Contains(q, "attention") || strings.Contains(q, "watched") || strings.Contains(q, "popular") {
		if h := e.digest.HighestAttention; h != nil {
			return fmt.Sprintf("The most watched market is '%s' with the highest trading activity.", h.Title)
		}
	}
	return "I can tell you about the biggest movers, most watched markets, or highest confidence predictions. What would you like to know?"
}

func (e *Editor) answerWhat(q string) string {
	if strings.Contains(q, "top") || strings.Contains(q, "headline") || strings.Contains(q, "main") {
		if top := e.sections[sections.SectionTopStories]; len(top) > 0 {
			return fmt.Sprintf("The top headline is: '%s' at %s.", top[0].Title, formatPct(top[0].YesPrice))
		}
	}
	return e.Summary()
}

func formatPct(v float64) string {
	if models.IsMissing(v) {
		return "N/A"
	}
	return fmt.Sprintf("%.0f%%", v*100)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
