// Package signals computes per-market ranking signals: probability deltas,
// volatility, attention, confidence, and the composite newsworthiness score.
// Every function is a pure transform; inputs are copied, never mutated.
package signals

import (
	"math"
	"sort"
	"time"

	"github.com/marketpress/marketpress/internal/models"
)

// Confidence policies. Both are monotonically decreasing in spread; exactly
// one is applied per run.
const (
	PolicyLinear      = "linear"      // max(0, 1 - 10*spread), zero at a 10% spread
	PolicyExponential = "exponential" // exp(-15*spread)
)

// Newsworthiness composite weights. Changing these is a behavior change,
// not a bug fix.
const (
	weightDelta      = 0.4
	weightAttention  = 0.3
	weightConfidence = 0.2
	weightVolatility = 0.1
)

// Config holds signal-computation tunables.
type Config struct {
	WindowHours      int
	ConfidencePolicy string
}

// DefaultConfig returns the standard signal configuration.
func DefaultConfig() Config {
	return Config{
		WindowHours:      24,
		ConfidencePolicy: PolicyLinear,
	}
}

// ProbabilityChanges fills Delta24h and Delta7d on a copy of markets.
//
// With no history the 24h delta falls back to yes_price - previous_yes_price
// as a one-step proxy and the 7d delta stays missing. With history, the
// reference is the latest snapshot at or before now-24h (nearest-before, not
// nearest-overall); symmetric for 7d. Markets listed more recently than the
// horizon keep a missing delta.
func ProbabilityChanges(markets []models.Market, history []models.Snapshot, now time.Time) []models.Market {
	out := make([]models.Market, len(markets))
	copy(out, markets)

	if len(history) == 0 {
		for i := range out {
			out[i].Delta24h = out[i].YesPrice - out[i].PreviousYesPrice // NaN-propagating
			out[i].Delta7d = models.Missing()
		}
		return out
	}

	byTicker := groupSorted(history)
	h24 := now.Add(-24 * time.Hour)
	d7 := now.Add(-7 * 24 * time.Hour)

	for i := range out {
		snaps := byTicker[out[i].Ticker]
		out[i].Delta24h = deltaAgainst(out[i].YesPrice, snaps, h24)
		out[i].Delta7d = deltaAgainst(out[i].YesPrice, snaps, d7)
	}
	return out
}

// deltaAgainst returns current minus the latest snapshot price at or before
// cutoff, or the missing marker if no qualifying snapshot exists.
func deltaAgainst(current float64, snaps []models.Snapshot, cutoff time.Time) float64 {
	if models.IsMissing(current) {
		return models.Missing()
	}
	ref := models.Missing()
	for _, s := range snaps {
		if s.SnapshotTime.After(cutoff) {
			break
		}
		if !models.IsMissing(s.YesPrice) {
			ref = s.YesPrice
		}
	}
	if models.IsMissing(ref) {
		return models.Missing()
	}
	return current - ref
}

// Volatility computes the sample standard deviation of yes prices per ticker
// over the last windowHours. Tickers with fewer than two observed prices are
// omitted; the caller default-fills them.
func Volatility(history []models.Snapshot, now time.Time, windowHours int) map[string]float64 {
	cutoff := now.Add(-time.Duration(windowHours) * time.Hour)

	prices := make(map[string][]float64)
	for _, s := range history {
		if s.SnapshotTime.Before(cutoff) || models.IsMissing(s.YesPrice) {
			continue
		}
		prices[s.Ticker] = append(prices[s.Ticker], s.YesPrice)
	}

	vol := make(map[string]float64, len(prices))
	for ticker, ps := range prices {
		if len(ps) < 2 {
			continue
		}
		vol[ticker] = stddev(ps)
	}
	return vol
}

// VolatilityProxy is the deterministic fallback 2*p*(1-p) used when no
// history exists at all. The parabola peaks at p=0.5, treating coin-flip
// markets as inherently volatile. This is a proxy, not a measured quantity.
func VolatilityProxy(p float64) float64 {
	if models.IsMissing(p) {
		return models.Missing()
	}
	return 2 * p * (1 - p)
}

// Attention fills AttentionScore on a copy of markets:
// 0.6*(volume/maxVolume) + 0.4*(openInterest/maxOI), maxima taken over the
// current batch. Scores are only comparable within one fetch cycle. A zero
// maximum contributes 0, never a division by zero.
func Attention(markets []models.Market) []models.Market {
	out := make([]models.Market, len(markets))
	copy(out, markets)

	var maxVolume, maxOI int64
	for i := range out {
		if out[i].Volume > maxVolume {
			maxVolume = out[i].Volume
		}
		if out[i].OpenInterest > maxOI {
			maxOI = out[i].OpenInterest
		}
	}

	for i := range out {
		volScore := safeRatio(out[i].Volume, maxVolume)
		oiScore := safeRatio(out[i].OpenInterest, maxOI)
		out[i].AttentionScore = 0.6*volScore + 0.4*oiScore
	}
	return out
}

// Confidence fills ConfidenceScore on a copy of markets using the configured
// policy. A missing spread yields the neutral default 0.5.
func Confidence(markets []models.Market, policy string) []models.Market {
	out := make([]models.Market, len(markets))
	copy(out, markets)

	for i := range out {
		spread := out[i].Spread
		if models.IsMissing(spread) {
			out[i].ConfidenceScore = 0.5
			continue
		}
		switch policy {
		case PolicyExponential:
			out[i].ConfidenceScore = math.Exp(-15 * spread)
		default:
			out[i].ConfidenceScore = math.Max(0, 1.0-10*spread)
		}
	}
	return out
}

// ComputeAll runs the full signal pass: deltas, volatility (left-joined on
// ticker; unmatched tickers stay missing), attention, then confidence.
func ComputeAll(markets []models.Market, history []models.Snapshot, now time.Time, cfg Config) []models.Market {
	out := ProbabilityChanges(markets, history, now)

	if len(history) == 0 {
		for i := range out {
			out[i].Volatility = VolatilityProxy(out[i].YesPrice)
		}
	} else {
		vol := Volatility(history, now, cfg.WindowHours)
		for i := range out {
			if v, ok := vol[out[i].Ticker]; ok {
				out[i].Volatility = v
			} else {
				out[i].Volatility = models.Missing()
			}
		}
	}

	out = Attention(out)
	out = Confidence(out, cfg.ConfidencePolicy)
	return out
}

// ScoreNewsworthiness fills the composite score on a copy of markets:
// 0.4*norm(|delta24h|) + 0.3*attention + 0.2*confidence + 0.1*norm(volatility),
// where norm(x) = x/max(x) over the batch (0 if the max is 0). Missing values
// fall back to 0, except confidence which falls back to neutral 0.5.
func ScoreNewsworthiness(markets []models.Market) []models.Market {
	out := make([]models.Market, len(markets))
	copy(out, markets)

	var maxDelta, maxVol float64
	for i := range out {
		if d := math.Abs(fill(out[i].Delta24h, 0)); d > maxDelta {
			maxDelta = d
		}
		if v := fill(out[i].Volatility, 0); v > maxVol {
			maxVol = v
		}
	}

	for i := range out {
		deltaScore := 0.0
		if maxDelta > 0 {
			deltaScore = math.Abs(fill(out[i].Delta24h, 0)) / maxDelta
		}
		volScore := 0.0
		if maxVol > 0 {
			volScore = fill(out[i].Volatility, 0) / maxVol
		}
		attention := fill(out[i].AttentionScore, 0)
		confidence := fill(out[i].ConfidenceScore, 0.5)

		out[i].Newsworthiness = weightDelta*deltaScore +
			weightAttention*attention +
			weightConfidence*confidence +
			weightVolatility*volScore
	}
	return out
}

// RankTopStories returns the min(n, len) highest-newsworthiness rows, ties
// broken by input order (stable sort, first seen wins). Rows without a score
// are scored first.
func RankTopStories(markets []models.Market, n int) []models.Market {
	if len(markets) == 0 || n <= 0 {
		return []models.Market{}
	}

	scored := markets
	if anyMissingScore(markets) {
		scored = ScoreNewsworthiness(markets)
	}

	ranked := make([]models.Market, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Newsworthiness > ranked[j].Newsworthiness
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func anyMissingScore(markets []models.Market) bool {
	for i := range markets {
		if models.IsMissing(markets[i].Newsworthiness) {
			return true
		}
	}
	return false
}

// groupSorted buckets snapshots by ticker, each bucket ordered by time.
func groupSorted(history []models.Snapshot) map[string][]models.Snapshot {
	byTicker := make(map[string][]models.Snapshot)
	for _, s := range history {
		byTicker[s.Ticker] = append(byTicker[s.Ticker], s)
	}
	for _, snaps := range byTicker {
		sort.Slice(snaps, func(i, j int) bool {
			return snaps[i].SnapshotTime.Before(snaps[j].SnapshotTime)
		})
	}
	return byTicker
}

func stddev(xs []float64) float64 {
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var m2 float64
	for _, x := range xs {
		d := x - mean
		m2 += d * d
	}
	return math.Sqrt(m2 / float64(len(xs)-1))
}

func safeRatio(v, max int64) float64 {
	if max <= 0 {
		return 0
	}
	return float64(v) / float64(max)
}

func fill(v, fallback float64) float64 {
	if models.IsMissing(v) {
		return fallback
	}
	return v
}
