// Package normalize converts raw market listings into uniform tables:
// normalized markets, append-only snapshots, and orderbook liquidity metrics.
// A malformed record is skipped and logged; it never aborts the batch.
package normalize

import (
	"time"

	"github.com/marketpress/marketpress/internal/logger"
	"github.com/marketpress/marketpress/internal/models"
)

// centsToProb rescales an integer cents price in [0,100] to a probability.
// Zero is the upstream absent sentinel and maps to the missing marker.
func centsToProb(cents int) float64 {
	if cents == 0 {
		return models.Missing()
	}
	return float64(cents) / 100.0
}

// parseTime parses an ISO8601 timestamp. Absent or unparseable values yield
// the zero time; unparseable ones are logged so the record is still kept.
func parseTime(ticker, field, value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		logger.Warn("Unparseable %s for market %s: %v", field, ticker, err)
		return time.Time{}
	}
	return t
}

// Markets normalizes raw listings into Market rows stamped with fetchedAt.
// Invalid records (missing ticker, out-of-range price) are skipped.
func Markets(raw []models.RawMarket, fetchedAt time.Time) []models.Market {
	markets := make([]models.Market, 0, len(raw))
	for i := range raw {
		r := &raw[i]
		if err := r.Validate(); err != nil {
			logger.Warn("Skipping malformed market %q: %v", r.Ticker, err)
			continue
		}

		markets = append(markets, models.Market{
			Ticker:           r.Ticker,
			Title:            r.Title,
			Subtitle:         r.Subtitle,
			EventTicker:      r.EventTicker,
			SeriesTicker:     r.SeriesTicker,
			Category:         defaultString(r.Category, "Other"),
			Status:           defaultString(r.Status, "unknown"),
			Result:           r.Result,
			YesPrice:         centsToProb(r.YesPrice),
			NoPrice:          centsToProb(r.NoPrice),
			LastPrice:        centsToProb(r.LastPrice),
			PreviousYesPrice: centsToProb(r.PreviousYesPrice),
			OpenTime:         parseTime(r.Ticker, "open_time", r.OpenTime),
			CloseTime:        parseTime(r.Ticker, "close_time", r.CloseTime),
			ExpirationTime:   parseTime(r.Ticker, "expiration_time", r.ExpirationTime),
			FetchedAt:        fetchedAt,
			Volume:           r.Volume,
			OpenInterest:     r.OpenInterest,
			Liquidity:        r.Liquidity,
			Spread:           models.Missing(),
			MidPrice:         models.Missing(),
			Delta24h:         models.Missing(),
			Delta7d:          models.Missing(),
			Volatility:       models.Missing(),
			AttentionScore:   models.Missing(),
			ConfidenceScore:  models.Missing(),
			Newsworthiness:   models.Missing(),
		})
	}
	return markets
}

// Snapshots produces one append-only Snapshot per valid record. Every
// snapshot in the batch shares the single `at` instant.
func Snapshots(raw []models.RawMarket, at time.Time) []models.Snapshot {
	snapshots := make([]models.Snapshot, 0, len(raw))
	for i := range raw {
		r := &raw[i]
		if err := r.Validate(); err != nil {
			logger.Warn("Skipping snapshot for malformed market %q: %v", r.Ticker, err)
			continue
		}
		snapshots = append(snapshots, models.Snapshot{
			Ticker:       r.Ticker,
			SnapshotTime: at,
			YesPrice:     centsToProb(r.YesPrice),
			NoPrice:      centsToProb(r.NoPrice),
			LastPrice:    centsToProb(r.LastPrice),
			Volume:       r.Volume,
			OpenInterest: r.OpenInterest,
		})
	}
	return snapshots
}

// Liquidity walks each record's orderbook with an O(levels) min/max scan per
// side. Spread and mid price are derived from the yes side only.
func Liquidity(raw []models.RawMarket, at time.Time) []models.LiquidityMetrics {
	metrics := make([]models.LiquidityMetrics, 0, len(raw))
	for i := range raw {
		r := &raw[i]
		if r.Ticker == "" || r.Orderbook == nil {
			continue
		}

		yesBestBid, yesBestAsk, yesBidVol, yesAskVol := scanSide(r.Orderbook.Yes)
		noBestBid, noBestAsk, noBidVol, noAskVol := scanSide(r.Orderbook.No)

		spread := models.Missing()
		mid := models.Missing()
		if !models.IsMissing(yesBestBid) && !models.IsMissing(yesBestAsk) {
			spread = yesBestAsk - yesBestBid
			mid = (yesBestBid + yesBestAsk) / 2
		}

		metrics = append(metrics, models.LiquidityMetrics{
			Ticker:         r.Ticker,
			Timestamp:      at,
			YesBestBid:     yesBestBid,
			YesBestAsk:     yesBestAsk,
			YesBidVolume:   yesBidVol,
			YesAskVolume:   yesAskVol,
			NoBestBid:      noBestBid,
			NoBestAsk:      noBestAsk,
			NoBidVolume:    noBidVol,
			NoAskVolume:    noAskVol,
			Spread:         spread,
			MidPrice:       mid,
			TotalLiquidity: yesBidVol + yesAskVol + noBidVol + noAskVol,
		})
	}
	return metrics
}

// scanSide tracks the maximum bid and minimum ask over one side's levels.
func scanSide(levels []models.OrderLevel) (bestBid, bestAsk float64, bidVol, askVol int64) {
	bestBid = models.Missing()
	bestAsk = models.Missing()
	for _, level := range levels {
		price := float64(level.Price) / 100.0
		switch level.Type {
		case "bid":
			bidVol += int64(level.Quantity)
			if models.IsMissing(bestBid) || price > bestBid {
				bestBid = price
			}
		case "ask":
			askVol += int64(level.Quantity)
			if models.IsMissing(bestAsk) || price < bestAsk {
				bestAsk = price
			}
		}
	}
	return bestBid, bestAsk, bidVol, askVol
}

// MergeLiquidity left-joins liquidity metrics into market rows on ticker.
// Markets without a matching row keep their missing spread/mid values.
func MergeLiquidity(markets []models.Market, liq []models.LiquidityMetrics) []models.Market {
	byTicker := make(map[string]models.LiquidityMetrics, len(liq))
	for _, m := range liq {
		byTicker[m.Ticker] = m
	}

	merged := make([]models.Market, len(markets))
	copy(merged, markets)
	for i := range merged {
		if lm, ok := byTicker[merged[i].Ticker]; ok {
			merged[i].Spread = lm.Spread
			merged[i].MidPrice = lm.MidPrice
			merged[i].TotalLiquidity = lm.TotalLiquidity
		}
	}
	return merged
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
