// Package report renders the assembled front page: text layout, headlines,
// sparklines, and the small display formatters shared by every surface.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/marketpress/marketpress/internal/models"
	"github.com/marketpress/marketpress/internal/sections"
)

// Below this absolute change a market displays as flat.
const trendArrowThreshold = 0.005

var sectionIcons = map[string]string{
	sections.SectionPolitics: "🏛️",
	sections.SectionBusiness: "💼",
	sections.SectionTech:     "💻",
	sections.SectionCulture:  "🎭",
	sections.SectionSports:   "⚽",
}

// FormatProbability renders a probability as a whole percent, "N/A" when
// missing.
func FormatProbability(prob float64) string {
	if models.IsMissing(prob) {
		return "N/A"
	}
	return fmt.Sprintf("%.0f%%", prob*100)
}

// FormatDelta renders a signed probability change, an em dash when missing.
func FormatDelta(delta float64) string {
	if models.IsMissing(delta) {
		return "—"
	}
	sign := ""
	if delta >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.0f%%", sign, delta*100)
}

// TrendArrow indicates direction of change between two probabilities.
// Missing inputs and sub-threshold moves both render flat.
func TrendArrow(current, previous float64) string {
	if models.IsMissing(current) || models.IsMissing(previous) {
		return "→"
	}
	diff := current - previous
	switch {
	case diff > -trendArrowThreshold && diff < trendArrowThreshold:
		return "→"
	case diff > 0:
		return "↑"
	default:
		return "↓"
	}
}

// TrendColor maps a delta to a display color name. Moves under one percent
// are neutral.
func TrendColor(delta float64) string {
	if models.IsMissing(delta) {
		return "gray"
	}
	switch {
	case delta > -0.01 && delta < 0.01:
		return "gray"
	case delta > 0:
		return "green"
	default:
		return "red"
	}
}

// Headline builds a newspaper-style one-liner for a market, such as
// "Fed raises rates in June ↑ 62% (+5% 24h)".
func Headline(m models.Market) string {
	prev := models.Missing()
	if !models.IsMissing(m.YesPrice) && !models.IsMissing(m.Delta24h) {
		prev = m.YesPrice - m.Delta24h
	}

	h := fmt.Sprintf("%s %s %s", m.Title, TrendArrow(m.YesPrice, prev), FormatProbability(m.YesPrice))
	if !models.IsMissing(m.Delta24h) {
		h += fmt.Sprintf(" (%s 24h)", FormatDelta(m.Delta24h))
	}
	return h
}

// FormatTimestamp renders the front page update stamp.
func FormatTimestamp(t time.Time) string {
	return t.Format("Updated: Jan 02, 3:04 PM")
}

// FrontPage renders the full text front page from organized sections.
func FrontPage(secs map[string][]models.Market, demoMode bool, updatedAt time.Time) string {
	var b strings.Builder
	rule := strings.Repeat("=", 80)
	thin := strings.Repeat("-", 80)

	b.WriteString(rule + "\n")
	b.WriteString("MARKETPRESS: PREDICTION MARKET NEWS\n")
	b.WriteString(FormatTimestamp(updatedAt) + "\n")
	if demoMode {
		b.WriteString("(demo data)\n")
	}
	b.WriteString(rule + "\n\n")

	b.WriteString("📰 TOP STORIES\n")
	b.WriteString(thin + "\n")
	top := secs[sections.SectionTopStories]
	if len(top) == 0 {
		b.WriteString("  No stories available\n\n")
	} else {
		for _, m := range head(top, 5) {
			fmt.Fprintf(&b, "  • %s\n", clip(m.Title, 70))
			fmt.Fprintf(&b, "    %s (%s 24h)\n\n", FormatProbability(m.YesPrice), FormatDelta(m.Delta24h))
		}
	}

	for _, name := range sections.CategoryNames {
		icon := sectionIcons[name]
		if icon == "" {
			icon = "📌"
		}
		fmt.Fprintf(&b, "%s %s\n", icon, strings.ToUpper(name))
		b.WriteString(thin + "\n")

		rows := secs[name]
		if len(rows) == 0 {
			fmt.Fprintf(&b, "  No %s stories\n", strings.ToLower(name))
		} else {
			for _, m := range head(rows, 3) {
				fmt.Fprintf(&b, "  • %s (%s)\n", clip(m.Title, 70), FormatProbability(m.YesPrice))
			}
		}
		b.WriteString("\n")
	}

	if developing := secs[sections.SectionDeveloping]; len(developing) > 0 {
		b.WriteString("🚨 DEVELOPING STORIES\n")
		b.WriteString(thin + "\n")
		for _, m := range head(developing, 3) {
			fmt.Fprintf(&b, "  • %s (%s)\n", clip(m.Title, 70), FormatProbability(m.YesPrice))
		}
		b.WriteString("\n")
	}

	b.WriteString(rule)
	return b.String()
}

func head(markets []models.Market, n int) []models.Market {
	if len(markets) > n {
		return markets[:n]
	}
	return markets
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
