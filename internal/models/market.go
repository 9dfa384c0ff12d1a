// Package models defines the core domain entities: raw market listings,
// normalized markets, snapshots, and liquidity metrics.
package models

import (
	"errors"
	"math"
	"time"
)

// OrderLevel is a single orderbook level on one side of a market.
type OrderLevel struct {
	Type     string `json:"type"` // "bid" or "ask"
	Price    int    `json:"price"`
	Quantity int    `json:"quantity"`
}

// Orderbook holds bid/ask levels for the yes and no sides.
type Orderbook struct {
	Yes []OrderLevel `json:"yes"`
	No  []OrderLevel `json:"no"`
}

// Trade is a recent trade attached to an enriched market record.
type Trade struct {
	Price       int    `json:"price"`
	Quantity    int    `json:"quantity"`
	Side        string `json:"side"`
	CreatedTime string `json:"created_time"`
}

// RawMarket is a market listing as delivered by the Kalshi API (or the demo
// generator). Prices are integer cents in [0,100]; 0 doubles as the absent
// sentinel upstream.
type RawMarket struct {
	Ticker           string     `json:"ticker"`
	Title            string     `json:"title"`
	Subtitle         string     `json:"subtitle"`
	EventTicker      string     `json:"event_ticker"`
	SeriesTicker     string     `json:"series_ticker"`
	Category         string     `json:"category"`
	Status           string     `json:"status"`
	YesPrice         int        `json:"yes_price"`
	NoPrice          int        `json:"no_price"`
	LastPrice        int        `json:"last_price"`
	PreviousYesPrice int        `json:"previous_yes_price"`
	OpenTime         string     `json:"open_time"`
	CloseTime        string     `json:"close_time"`
	ExpirationTime   string     `json:"expiration_time"`
	Volume           int64      `json:"volume"`
	OpenInterest     int64      `json:"open_interest"`
	Liquidity        int64      `json:"liquidity"`
	Result           string     `json:"result"`
	Orderbook        *Orderbook `json:"orderbook,omitempty"`
	RecentTrades     []Trade    `json:"recent_trades,omitempty"`
}

// Validate checks raw market field constraints. Records failing validation
// are skipped by the normalizer, not fatal to the batch.
func (r *RawMarket) Validate() error {
	if r.Ticker == "" {
		return errors.New("market ticker must not be empty")
	}
	if r.YesPrice < 0 || r.YesPrice > 100 {
		return errors.New("yes price must be between 0 and 100 cents")
	}
	if r.NoPrice < 0 || r.NoPrice > 100 {
		return errors.New("no price must be between 0 and 100 cents")
	}
	if r.LastPrice < 0 || r.LastPrice > 100 {
		return errors.New("last price must be between 0 and 100 cents")
	}
	if r.PreviousYesPrice < 0 || r.PreviousYesPrice > 100 {
		return errors.New("previous yes price must be between 0 and 100 cents")
	}
	if r.Volume < 0 {
		return errors.New("volume must not be negative")
	}
	if r.OpenInterest < 0 {
		return errors.New("open interest must not be negative")
	}
	if r.Liquidity < 0 {
		return errors.New("liquidity must not be negative")
	}
	return nil
}

// Market is a normalized market row. Prices are probabilities in [0,1];
// NaN marks any optional numeric field that is absent or not yet computed,
// so downstream min/max normalization is never corrupted by silent zeros.
type Market struct {
	Ticker       string
	Title        string
	Subtitle     string
	EventTicker  string
	SeriesTicker string
	Category     string
	Status       string
	Result       string

	YesPrice         float64
	NoPrice          float64
	LastPrice        float64
	PreviousYesPrice float64

	OpenTime       time.Time
	CloseTime      time.Time
	ExpirationTime time.Time
	FetchedAt      time.Time

	Volume       int64
	OpenInterest int64
	Liquidity    int64

	// Merged from LiquidityMetrics (yes side).
	Spread         float64
	MidPrice       float64
	TotalLiquidity int64

	// Computed signals. Recomputed in full every refresh cycle.
	Delta24h        float64
	Delta7d         float64
	Volatility      float64
	AttentionScore  float64
	ConfidenceScore float64
	Newsworthiness  float64

	Section string
}

// Snapshot is an append-only time-series fact used for deltas and volatility.
// All snapshots from one fetch share one SnapshotTime.
type Snapshot struct {
	ID           string
	Ticker       string
	SnapshotTime time.Time
	YesPrice     float64
	NoPrice      float64
	LastPrice    float64
	Volume       int64
	OpenInterest int64
}

// LiquidityMetrics holds per-market orderbook aggregates, derived once per
// fetch. Spread and mid price come from the yes side only; both are NaN when
// either side of the yes book is missing.
type LiquidityMetrics struct {
	Ticker         string
	Timestamp      time.Time
	YesBestBid     float64
	YesBestAsk     float64
	YesBidVolume   int64
	YesAskVolume   int64
	NoBestBid      float64
	NoBestAsk      float64
	NoBidVolume    int64
	NoAskVolume    int64
	Spread         float64
	MidPrice       float64
	TotalLiquidity int64
}

// IsMissing reports whether v is the missing-value marker.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Missing returns the missing-value marker.
func Missing() float64 {
	return math.NaN()
}
