package press

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marketpress/marketpress/internal/demo"
	"github.com/marketpress/marketpress/internal/models"
	"github.com/marketpress/marketpress/internal/sections"
)

type fakeSource struct {
	markets []models.RawMarket
	err     error
	calls   int
}

func (f *fakeSource) FetchMarkets(ctx context.Context, limit int, enrich bool) ([]models.RawMarket, error) {
	f.calls++
	return f.markets, f.err
}

type memStore struct {
	snapshots []models.Snapshot
	addErr    error
}

func (s *memStore) AddSnapshots(snaps []models.Snapshot) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.snapshots = append(s.snapshots, snaps...)
	return nil
}

func (s *memStore) SnapshotsSince(t time.Time) ([]models.Snapshot, error) {
	var out []models.Snapshot
	for _, snap := range s.snapshots {
		if !snap.SnapshotTime.Before(t) {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (s *memStore) TickerSnapshots(ticker string, since time.Time) ([]models.Snapshot, error) {
	var out []models.Snapshot
	for _, snap := range s.snapshots {
		if snap.Ticker == ticker && !snap.SnapshotTime.Before(since) {
			out = append(out, snap)
		}
	}
	return out, nil
}

func rawBatch() []models.RawMarket {
	return []models.RawMarket{
		{Ticker: "POL-1", Title: "Congress passes the budget", Category: "Politics", Status: "open",
			YesPrice: 55, NoPrice: 45, LastPrice: 55, PreviousYesPrice: 45, Volume: 1000, OpenInterest: 100},
		{Ticker: "TEC-1", Title: "AI model sets a new record", Category: "Tech", Status: "open",
			YesPrice: 70, NoPrice: 30, LastPrice: 70, PreviousYesPrice: 72, Volume: 500, OpenInterest: 50},
	}
}

func newTestPress(source MarketSource, store SnapshotStore, cfg Config) *Press {
	cfg.Sections = sections.DefaultConfig()
	return New(cfg, source, store, demo.NewGenerator(1))
}

func TestRefreshPublishesEdition(t *testing.T) {
	source := &fakeSource{markets: rawBatch()}
	store := &memStore{}
	p := newTestPress(source, store, Config{FetchLimit: 10})

	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	markets := p.Markets()
	if len(markets) != 2 {
		t.Fatalf("Expected 2 published markets, got %d", len(markets))
	}
	if p.DemoMode() {
		t.Error("Live refresh should not set demo mode")
	}
	if p.LastRefresh().IsZero() {
		t.Error("LastRefresh should be set after a publish")
	}
	if len(store.snapshots) != 2 {
		t.Errorf("Expected 2 persisted snapshots, got %d", len(store.snapshots))
	}

	for _, m := range markets {
		if m.Section == "" {
			t.Errorf("Market %s published without a section", m.Ticker)
		}
		if models.IsMissing(m.Newsworthiness) {
			t.Errorf("Market %s published without a newsworthiness score", m.Ticker)
		}
	}

	secs := p.Sections()
	if len(secs[sections.SectionTopStories]) == 0 {
		t.Error("Top Stories should not be empty")
	}
	if len(secs[sections.SectionPolitics]) != 1 {
		t.Errorf("Expected 1 politics market, got %d", len(secs[sections.SectionPolitics]))
	}
}

func TestRefreshDemoFallback(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	p := newTestPress(source, &memStore{}, Config{FetchLimit: 20, DemoFallback: true})

	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh should fall back to demo data, got %v", err)
	}
	if !p.DemoMode() {
		t.Error("Fallback edition should set demo mode")
	}
	if len(p.Markets()) != 20 {
		t.Errorf("Expected 20 demo markets, got %d", len(p.Markets()))
	}
}

func TestRefreshEmptyBatchTriggersFallback(t *testing.T) {
	source := &fakeSource{markets: nil}
	p := newTestPress(source, &memStore{}, Config{FetchLimit: 5, DemoFallback: true})

	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Empty live batch should fall back, got %v", err)
	}
	if !p.DemoMode() {
		t.Error("Empty batch fallback should set demo mode")
	}
}

func TestRefreshFailsWithoutFallback(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	p := newTestPress(source, &memStore{}, Config{FetchLimit: 5})

	if err := p.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh should fail when fallback is disabled")
	}
	if len(p.Markets()) != 0 {
		t.Error("Failed refresh must not publish anything")
	}
}

func TestFailedRefreshKeepsPreviousEdition(t *testing.T) {
	source := &fakeSource{markets: rawBatch()}
	store := &memStore{}
	p := newTestPress(source, store, Config{FetchLimit: 10})

	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	before := p.LastRefresh()

	store.addErr = errors.New("disk full")
	if err := p.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh should surface the storage error")
	}

	if len(p.Markets()) != 2 {
		t.Error("Previous edition should survive a failed refresh")
	}
	if !p.LastRefresh().Equal(before) {
		t.Error("Failed refresh must not advance the publish time")
	}
}

func TestDemoOnlySkipsSource(t *testing.T) {
	source := &fakeSource{markets: rawBatch()}
	p := newTestPress(source, &memStore{}, Config{FetchLimit: 5, DemoOnly: true})

	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if source.calls != 0 {
		t.Error("Demo-only press must not call the live source")
	}
	if !p.DemoMode() {
		t.Error("Demo-only edition should set demo mode")
	}
}

func TestReadersReturnCopies(t *testing.T) {
	p := newTestPress(&fakeSource{markets: rawBatch()}, &memStore{}, Config{FetchLimit: 10})
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	got := p.Markets()
	got[0].Title = "mutated"
	if fresh := p.Markets(); fresh[0].Title == "mutated" {
		t.Error("Markets must return a copy")
	}

	secs := p.Sections()
	secs[sections.SectionTopStories][0].Title = "mutated"
	if fresh := p.Sections(); fresh[sections.SectionTopStories][0].Title == "mutated" {
		t.Error("Sections must return copies")
	}
}

func TestSectionUnknownName(t *testing.T) {
	p := newTestPress(&fakeSource{markets: rawBatch()}, &memStore{}, Config{FetchLimit: 10})
	if got := p.Section("Obituaries"); len(got) != 0 {
		t.Errorf("Unknown section should be empty, got %d rows", len(got))
	}
}

func TestMarketLookup(t *testing.T) {
	p := newTestPress(&fakeSource{markets: rawBatch()}, &memStore{}, Config{FetchLimit: 10})
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	m, ok := p.Market("POL-1")
	if !ok || m.Title != "Congress passes the budget" {
		t.Errorf("Market lookup failed: %+v ok=%t", m, ok)
	}
	if _, ok := p.Market("NOPE"); ok {
		t.Error("Unknown ticker should not be found")
	}
}

func TestHistoryReadsStore(t *testing.T) {
	store := &memStore{}
	p := newTestPress(&fakeSource{markets: rawBatch()}, store, Config{FetchLimit: 10})
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	snaps, err := p.History("POL-1", 24*time.Hour)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(snaps) != 1 {
		t.Errorf("Expected 1 snapshot for POL-1, got %d", len(snaps))
	}
}
