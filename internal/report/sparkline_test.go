package report

import (
	"strings"
	"testing"
	"time"

	"github.com/marketpress/marketpress/internal/models"
)

func TestSparklineTextShortSeries(t *testing.T) {
	if got := SparklineText(nil, 10); got != strings.Repeat("─", 10) {
		t.Errorf("Expected flat dash line for empty series, got %s", got)
	}
	if got := SparklineText([]float64{0.5}, 5); got != strings.Repeat("─", 5) {
		t.Errorf("Expected flat dash line for one point, got %s", got)
	}
}

func TestSparklineTextFlatSeries(t *testing.T) {
	got := SparklineText([]float64{0.5, 0.5, 0.5}, 6)
	if got != strings.Repeat("▅", 6) {
		t.Errorf("Expected middle blocks for flat series, got %s", got)
	}
}

func TestSparklineTextRampHitsExtremes(t *testing.T) {
	got := []rune(SparklineText([]float64{0.1, 0.3, 0.5, 0.7, 0.9}, 5))
	if len(got) != 5 {
		t.Fatalf("Expected width 5, got %d", len(got))
	}
	if got[0] != '▁' {
		t.Errorf("Expected lowest block first, got %c", got[0])
	}
	if got[4] != '█' {
		t.Errorf("Expected highest block last, got %c", got[4])
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Errorf("Ramp should be monotone, got %s", string(got))
		}
	}
}

func TestSparklineTextPadsShortSeries(t *testing.T) {
	got := []rune(SparklineText([]float64{0.2, 0.8}, 6))
	if len(got) != 6 {
		t.Fatalf("Expected width 6, got %d", len(got))
	}
	// Last value repeats into the padding.
	for i := 1; i < 6; i++ {
		if got[i] != '█' {
			t.Errorf("Expected padding with last value's block, got %s", string(got))
		}
	}
}

func TestSparklineSVG(t *testing.T) {
	svg := SparklineSVG([]float64{0.3, 0.5, 0.7}, 100, 30)
	if !strings.Contains(svg, "<polyline") || !strings.Contains(svg, "#0066cc") {
		t.Errorf("Rising series should render a blue polyline: %s", svg)
	}

	svg = SparklineSVG([]float64{0.7, 0.5, 0.3}, 100, 30)
	if !strings.Contains(svg, "#cc0000") {
		t.Errorf("Falling series should render red: %s", svg)
	}

	svg = SparklineSVG([]float64{0.5}, 100, 30)
	if !strings.Contains(svg, "<line") {
		t.Errorf("Degenerate series should render a flat line: %s", svg)
	}
}

func TestSparklineFromSnapshotsSkipsMissing(t *testing.T) {
	now := time.Now()
	snaps := []models.Snapshot{
		{Ticker: "A", SnapshotTime: now.Add(-3 * time.Hour), YesPrice: 0.4},
		{Ticker: "A", SnapshotTime: now.Add(-2 * time.Hour), YesPrice: models.Missing()},
		{Ticker: "A", SnapshotTime: now.Add(-1 * time.Hour), YesPrice: 0.6},
	}
	got := SparklineFromSnapshots(snaps, 4)
	if got == strings.Repeat("─", 4) {
		t.Errorf("Two present prices should render a real sparkline, got %s", got)
	}

	allMissing := []models.Snapshot{
		{Ticker: "A", SnapshotTime: now, YesPrice: models.Missing()},
		{Ticker: "A", SnapshotTime: now, YesPrice: models.Missing()},
	}
	if got := SparklineFromSnapshots(allMissing, 4); got != strings.Repeat("─", 4) {
		t.Errorf("All-missing series should render flat, got %s", got)
	}
}
