// Package press runs the refresh pipeline and publishes the resulting market
// table and section views. Publication is by replacement: a refresh builds
// the whole edition off to the side and swaps it in under one lock, so
// readers always see one coherent edition and never a half-updated one.
package press

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marketpress/marketpress/internal/demo"
	"github.com/marketpress/marketpress/internal/instrumentation"
	"github.com/marketpress/marketpress/internal/logger"
	"github.com/marketpress/marketpress/internal/models"
	"github.com/marketpress/marketpress/internal/normalize"
	"github.com/marketpress/marketpress/internal/sections"
	"github.com/marketpress/marketpress/internal/signals"
)

// MarketSource fetches raw market listings. Satisfied by kalshi.Client.
type MarketSource interface {
	FetchMarkets(ctx context.Context, limit int, enrich bool) ([]models.RawMarket, error)
}

// SnapshotStore persists and serves the snapshot history. Satisfied by
// storage.Storage.
type SnapshotStore interface {
	AddSnapshots(snapshots []models.Snapshot) error
	SnapshotsSince(t time.Time) ([]models.Snapshot, error)
	TickerSnapshots(ticker string, since time.Time) ([]models.Snapshot, error)
}

// Config controls one press instance.
type Config struct {
	FetchLimit   int
	Enrich       bool
	DemoFallback bool
	DemoOnly     bool

	// HistoryWindow bounds how much snapshot history feeds signal
	// computation. Normally equal to the storage retention.
	HistoryWindow time.Duration

	Signals  signals.Config
	Sections sections.Config
}

// Press owns the published edition.
type Press struct {
	cfg    Config
	source MarketSource
	store  SnapshotStore
	demo   *demo.Generator

	mu          sync.RWMutex
	markets     []models.Market
	sections    map[string][]models.Market
	demoMode    bool
	lastRefresh time.Time
}

// New creates a press. The demo generator is required even when DemoOnly is
// off; it backs the fallback path.
func New(cfg Config, source MarketSource, store SnapshotStore, gen *demo.Generator) *Press {
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = 100
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 7 * 24 * time.Hour
	}
	if cfg.Signals.WindowHours <= 0 {
		cfg.Signals.WindowHours = signals.DefaultConfig().WindowHours
	}
	return &Press{
		cfg:      cfg,
		source:   source,
		store:    store,
		demo:     gen,
		sections: map[string][]models.Market{},
	}
}

// Refresh runs one full cycle: fetch, normalize, snapshot, score, organize,
// publish. On failure the previous edition stays published untouched.
func (p *Press) Refresh(ctx context.Context) error {
	raw, demoMode, err := p.fetch(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	markets := normalize.Markets(raw, now)
	markets = normalize.MergeLiquidity(markets, normalize.Liquidity(raw, now))

	if err := p.store.AddSnapshots(normalize.Snapshots(raw, now)); err != nil {
		return fmt.Errorf("failed to persist snapshots: %w", err)
	}

	history, err := p.store.SnapshotsSince(now.Add(-p.cfg.HistoryWindow))
	if err != nil {
		return fmt.Errorf("failed to load snapshot history: %w", err)
	}

	markets = signals.ComputeAll(markets, history, now, p.cfg.Signals)
	markets = signals.ScoreNewsworthiness(markets)
	for i := range markets {
		markets[i].Section = sections.Categorize(markets[i])
	}
	secs := sections.Organize(markets, p.cfg.Sections)

	p.mu.Lock()
	p.markets = markets
	p.sections = secs
	p.demoMode = demoMode
	p.lastRefresh = now
	p.mu.Unlock()

	logger.Info("Published edition with %d markets (demo=%t)", len(markets), demoMode)
	return nil
}

// fetch returns the raw batch and whether it came from the demo generator.
func (p *Press) fetch(ctx context.Context) ([]models.RawMarket, bool, error) {
	if p.cfg.DemoOnly {
		return p.demo.Markets(p.cfg.FetchLimit), true, nil
	}

	raw, err := p.source.FetchMarkets(ctx, p.cfg.FetchLimit, p.cfg.Enrich)
	if err == nil && len(raw) == 0 {
		err = errors.New("live source returned no markets")
	}
	if err == nil {
		return raw, false, nil
	}
	instrumentation.FetchFailuresTotal.Inc()

	if !p.cfg.DemoFallback {
		return nil, false, fmt.Errorf("failed to fetch markets: %w", err)
	}
	logger.Warn("Live fetch failed, falling back to demo data: %v", err)
	return p.demo.Markets(p.cfg.FetchLimit), true, nil
}

// Markets returns a copy of the published table.
func (p *Press) Markets() []models.Market {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Market, len(p.markets))
	copy(out, p.markets)
	return out
}

// Sections returns a copy of every published section view.
func (p *Press) Sections() map[string][]models.Market {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string][]models.Market, len(p.sections))
	for name, rows := range p.sections {
		cp := make([]models.Market, len(rows))
		copy(cp, rows)
		out[name] = cp
	}
	return out
}

// Section returns a copy of one section view, empty when the name is unknown.
func (p *Press) Section(name string) []models.Market {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rows := p.sections[name]
	cp := make([]models.Market, len(rows))
	copy(cp, rows)
	return cp
}

// Market looks up one published market by ticker.
func (p *Press) Market(ticker string) (models.Market, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, m := range p.markets {
		if m.Ticker == ticker {
			return m, true
		}
	}
	return models.Market{}, false
}

// History returns one ticker's snapshot trail over the last window.
func (p *Press) History(ticker string, window time.Duration) ([]models.Snapshot, error) {
	return p.store.TickerSnapshots(ticker, time.Now().Add(-window))
}

// DemoMode reports whether the published edition was built from demo data.
func (p *Press) DemoMode() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.demoMode
}

// LastRefresh returns the publish time of the current edition, zero before
// the first refresh.
func (p *Press) LastRefresh() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastRefresh
}
