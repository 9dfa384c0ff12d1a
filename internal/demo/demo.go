// Package demo generates synthetic market listings used when the live data
// source is unavailable. Output is shaped exactly like Kalshi API records so
// the rest of the pipeline cannot tell the difference; the press layer keeps
// a mode flag so the report surfaces can.
package demo

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/marketpress/marketpress/internal/models"
)

var categories = []string{"Politics", "Business", "Tech", "Sports", "Culture"}

var templates = map[string][]string{
	"Politics": {
		"Will {party} win {state} in 2028?",
		"Will {candidate} lead in {state} polls by {date}?",
		"{bill} passes Congress by {date}",
		"Presidential approval rating above {num}% by {date}",
	},
	"Business": {
		"S&P 500 above {num} by {date}",
		"{company} stock reaches ${num} by {date}",
		"Fed raises rates in {month}",
		"Inflation below {num}% by {date}",
	},
	"Tech": {
		"{company} launches {product} by {date}",
		"AI model exceeds {num} benchmarks by {date}",
		"{tech} adoption reaches {num}% by {date}",
		"{company} market cap above ${num}B by {date}",
	},
	"Sports": {
		"{team} wins {championship}",
		"{player} MVP by {date}",
		"{team} makes playoffs in {year}",
		"{sport} season starts by {date}",
	},
	"Culture": {
		"{movie} wins Oscar for {award}",
		"{artist} releases album by {date}",
		"{show} renewed for season {num}",
		"{event} attendance exceeds {num} by {date}",
	},
}

var replacements = map[string][]string{
	"party":        {"Democratic", "Republican", "Independent"},
	"state":        {"Pennsylvania", "Georgia", "Arizona", "Wisconsin", "Nevada"},
	"candidate":    {"the incumbent", "the challenger", "a third-party candidate"},
	"bill":         {"Infrastructure Bill", "Healthcare Reform", "Tax Reform"},
	"company":      {"Apple", "Microsoft", "Google", "Amazon", "Tesla", "Meta"},
	"product":      {"new phone", "AI assistant", "electric vehicle", "VR headset"},
	"tech":         {"5G", "AI", "Blockchain", "Quantum Computing"},
	"team":         {"Lakers", "Yankees", "Patriots", "Cowboys", "Warriors"},
	"championship": {"NBA Finals", "World Series", "Super Bowl"},
	"player":       {"the point guard", "the slugger", "the quarterback"},
	"sport":        {"NFL", "NBA", "MLB", "NHL"},
	"movie":        {"The Sequel", "New Blockbuster", "Indie Film"},
	"award":        {"Best Picture", "Best Director", "Best Actor"},
	"artist":       {"the headliner", "the newcomer", "the duo"},
	"show":         {"Hit Series", "Popular Drama", "Comedy Show"},
	"event":        {"Music Festival", "Conference", "Convention"},
	"month":        {"March", "June", "September", "December"},
	"year":         {"2026", "2027"},
}

// Generator produces deterministic demo batches for a given seed.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator. Use a fixed seed for reproducible
// batches in tests.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Markets generates count synthetic market records.
func (g *Generator) Markets(count int) []models.RawMarket {
	now := time.Now()
	markets := make([]models.RawMarket, 0, count)

	for i := 0; i < count; i++ {
		category := categories[g.rng.Intn(len(categories))]
		title := g.fillTemplate(category, now)

		basePrice := 20 + g.rng.Intn(61)
		delta := g.rng.Intn(31) - 15
		prev := basePrice - delta
		if prev < 1 {
			prev = 1
		}
		if prev > 100 {
			prev = 100
		}

		closeTime := now.AddDate(0, 0, 30+g.rng.Intn(336))

		m := models.RawMarket{
			Ticker:           fmt.Sprintf("DEMO-%03d", i+1),
			Title:            title,
			Subtitle:         "Market closes " + closeTime.Format("January 2, 2006"),
			EventTicker:      fmt.Sprintf("EVENT-%d", 1+g.rng.Intn(20)),
			SeriesTicker:     "SERIES-" + strings.ToUpper(category),
			Category:         category,
			Status:           "open",
			YesPrice:         basePrice,
			NoPrice:          100 - basePrice,
			LastPrice:        basePrice,
			PreviousYesPrice: prev,
			OpenTime:         now.AddDate(0, 0, -(1 + g.rng.Intn(90))).Format(time.RFC3339),
			CloseTime:        closeTime.Format(time.RFC3339),
			ExpirationTime:   closeTime.AddDate(0, 0, 1).Format(time.RFC3339),
			Volume:           int64(100 + g.rng.Intn(49900)),
			OpenInterest:     int64(50 + g.rng.Intn(9950)),
			Liquidity:        int64(100 + g.rng.Intn(4900)),
		}

		m.Orderbook = g.orderbook(basePrice)
		m.RecentTrades = g.trades(basePrice, now)

		markets = append(markets, m)
	}
	return markets
}

func (g *Generator) fillTemplate(category string, now time.Time) string {
	ts := templates[category]
	title := ts[g.rng.Intn(len(ts))]

	for key, values := range replacements {
		placeholder := "{" + key + "}"
		if strings.Contains(title, placeholder) {
			title = strings.ReplaceAll(title, placeholder, values[g.rng.Intn(len(values))])
		}
	}
	title = strings.ReplaceAll(title, "{num}", fmt.Sprintf("%d", 50+g.rng.Intn(101)))
	future := now.AddDate(0, 0, 30+g.rng.Intn(336))
	title = strings.ReplaceAll(title, "{date}", future.Format("Jan 2006"))

	return title
}

func (g *Generator) orderbook(basePrice int) *models.Orderbook {
	spread := 1 + g.rng.Intn(10) // cents
	bid := clampCents(basePrice - spread/2 - spread%2)
	ask := clampCents(basePrice + spread/2)

	return &models.Orderbook{
		Yes: []models.OrderLevel{
			{Type: "bid", Price: bid, Quantity: 10 + g.rng.Intn(491)},
			{Type: "ask", Price: ask, Quantity: 10 + g.rng.Intn(491)},
		},
		No: []models.OrderLevel{
			{Type: "bid", Price: clampCents(100 - ask), Quantity: 10 + g.rng.Intn(491)},
			{Type: "ask", Price: clampCents(100 - bid), Quantity: 10 + g.rng.Intn(491)},
		},
	}
}

func (g *Generator) trades(basePrice int, now time.Time) []models.Trade {
	n := 3 + g.rng.Intn(8)
	trades := make([]models.Trade, 0, n)
	for i := 0; i < n; i++ {
		side := "yes"
		if g.rng.Intn(2) == 0 {
			side = "no"
		}
		trades = append(trades, models.Trade{
			Price:       clampCents(basePrice + g.rng.Intn(11) - 5),
			Quantity:    1 + g.rng.Intn(100),
			Side:        side,
			CreatedTime: now.Add(-time.Duration(1+g.rng.Intn(120)) * time.Minute).Format(time.RFC3339),
		})
	}
	return trades
}

func clampCents(v int) int {
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}
