package report

import (
	"fmt"
	"strings"

	"github.com/marketpress/marketpress/internal/models"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

const flatLine = "─"

// SparklineText renders prices as a fixed-width unicode block sparkline.
// Fewer than two prices render as a flat dash line.
func SparklineText(prices []float64, width int) string {
	if width <= 0 {
		width = 10
	}
	if len(prices) < 2 {
		return strings.Repeat(flatLine, width)
	}

	minP, maxP := prices[0], prices[0]
	for _, p := range prices {
		if p < minP {
			minP = p
		}
		if p > maxP {
			maxP = p
		}
	}
	if maxP == minP {
		return strings.Repeat(string(sparkBlocks[4]), width)
	}

	sampled := make([]float64, width)
	if len(prices) > width {
		step := float64(len(prices)) / float64(width)
		for i := 0; i < width; i++ {
			sampled[i] = prices[int(float64(i)*step)]
		}
	} else {
		copy(sampled, prices)
		for i := len(prices); i < width; i++ {
			sampled[i] = prices[len(prices)-1]
		}
	}

	var b strings.Builder
	for _, p := range sampled {
		idx := int((p - minP) / (maxP - minP) * 7)
		if idx > 7 {
			idx = 7
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

// SparklineSVG renders prices as an SVG polyline, colored by trend
// (blue up or flat, red down). Degenerate series render a flat line.
func SparklineSVG(prices []float64, width, height int) string {
	if len(prices) < 2 {
		return fmt.Sprintf(`<svg width="%d" height="%d"><line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#ccc" stroke-width="1"/></svg>`,
			width, height, float64(height)/2, width, float64(height)/2)
	}

	minP, maxP := prices[0], prices[0]
	for _, p := range prices {
		if p < minP {
			minP = p
		}
		if p > maxP {
			maxP = p
		}
	}
	if maxP == minP {
		y := float64(height) / 2
		return fmt.Sprintf(`<svg width="%d" height="%d"><line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#666" stroke-width="2"/></svg>`,
			width, height, y, width, y)
	}

	points := make([]string, 0, len(prices))
	for i, p := range prices {
		x := float64(i) / float64(len(prices)-1) * float64(width)
		y := float64(height) - (p-minP)/(maxP-minP)*float64(height)
		points = append(points, fmt.Sprintf("%.1f,%.1f", x, y))
	}

	color := "#0066cc"
	if prices[len(prices)-1] < prices[0] {
		color = "#cc0000"
	}

	return fmt.Sprintf(`<svg width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg"><polyline points="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round"/></svg>`,
		width, height, width, height, strings.Join(points, " "), color)
}

// SparklineFromSnapshots renders the recent price path of one ticker.
// Snapshots are assumed time-ordered, as storage returns them.
func SparklineFromSnapshots(snapshots []models.Snapshot, width int) string {
	var prices []float64
	for _, s := range snapshots {
		if !models.IsMissing(s.YesPrice) {
			prices = append(prices, s.YesPrice)
		}
	}
	return SparklineText(prices, width)
}
