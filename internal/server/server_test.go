package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marketpress/marketpress/internal/demo"
	"github.com/marketpress/marketpress/internal/models"
	"github.com/marketpress/marketpress/internal/press"
	"github.com/marketpress/marketpress/internal/sections"
)

type fakeSource struct {
	markets []models.RawMarket
}

func (f *fakeSource) FetchMarkets(ctx context.Context, limit int, enrich bool) ([]models.RawMarket, error) {
	return f.markets, nil
}

type memStore struct {
	snapshots []models.Snapshot
}

func (s *memStore) AddSnapshots(snaps []models.Snapshot) error {
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

func newTestServer(t *testing.T) *Server {
	t.Helper()
	source := &fakeSource{markets: []models.RawMarket{
		{Ticker: "POL-1", Title: "Congress passes the budget", Category: "Politics", Status: "open",
			YesPrice: 55, NoPrice: 45, LastPrice: 55, PreviousYesPrice: 45, Volume: 1000, OpenInterest: 100},
		{Ticker: "TEC-1", Title: "AI model sets a new record", Category: "Tech", Status: "open",
			YesPrice: 70, NoPrice: 30, LastPrice: 70, PreviousYesPrice: 72, Volume: 500, OpenInterest: 50},
	}}
	p := press.New(press.Config{
		FetchLimit: 10,
		Sections:   sections.DefaultConfig(),
	}, source, &memStore{}, demo.NewGenerator(1))
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	return New(":0", p)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(t), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected ok status, got %v", body["status"])
	}
	if body["demo_mode"] != false {
		t.Errorf("Expected live mode, got %v", body["demo_mode"])
	}
}

func TestFrontPageIsText(t *testing.T) {
	rec := get(t, newTestServer(t), "/frontpage")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Expected text/plain, got %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "MARKETPRESS") {
		t.Errorf("Front page missing masthead:\n%s", rec.Body.String())
	}
}

func TestSectionsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t), "/sections")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body struct {
		DemoMode bool                         `json:"demo_mode"`
		Sections map[string][]json.RawMessage `json:"sections"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if len(body.Sections["Top Stories"]) == 0 {
		t.Error("Expected non-empty Top Stories")
	}
	if _, ok := body.Sections["Politics"]; !ok {
		t.Error("Expected Politics section present")
	}
}

func TestSectionByName(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/sections/Politics")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body struct {
		Section string `json:"section"`
		Markets []struct {
			Ticker string `json:"ticker"`
		} `json:"markets"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if body.Section != "Politics" || len(body.Markets) != 1 || body.Markets[0].Ticker != "POL-1" {
		t.Errorf("Unexpected section payload: %+v", body)
	}

	rec = get(t, s, "/sections/Obituaries")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Unknown section should 404, got %d", rec.Code)
	}
}

func TestMarketEndpointMissingValuesAreNull(t *testing.T) {
	rec := get(t, newTestServer(t), "/markets/POL-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body struct {
		Market struct {
			Ticker   string   `json:"ticker"`
			YesPrice *float64 `json:"yes_price"`
			Delta7d  *float64 `json:"delta_7d"`
		} `json:"market"`
		Headline string `json:"headline"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if body.Market.YesPrice == nil || *body.Market.YesPrice != 0.55 {
		t.Errorf("Expected yes_price 0.55, got %v", body.Market.YesPrice)
	}
	// No 7d history in this fixture, so the field must be null.
	if body.Market.Delta7d != nil {
		t.Errorf("Expected null delta_7d, got %v", *body.Market.Delta7d)
	}
	if !strings.Contains(body.Headline, "Congress passes the budget") {
		t.Errorf("Unexpected headline: %s", body.Headline)
	}
}

func TestMarketNotFound(t *testing.T) {
	rec := get(t, newTestServer(t), "/markets/NOPE")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Error body should be JSON: %v", err)
	}
	if !strings.Contains(body["error"], "NOPE") {
		t.Errorf("Error should name the ticker: %v", body)
	}
}

func TestSparklineEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/markets/POL-1/sparkline")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body sparklineResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if body.Ticker != "POL-1" || body.Text == "" || !strings.Contains(body.SVG, "<svg") {
		t.Errorf("Unexpected sparkline payload: %+v", body)
	}

	rec = get(t, s, "/markets/POL-1/sparkline?hours=bogus")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Bad hours should 400, got %d", rec.Code)
	}

	rec = get(t, s, "/markets/NOPE/sparkline")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Unknown ticker should 404, got %d", rec.Code)
	}
}

func TestEditorEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/editor/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body editorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if !strings.Contains(body.Text, "Tracking 2 active prediction markets") {
		t.Errorf("Unexpected summary: %s", body.Text)
	}

	rec = get(t, s, "/editor/ask?q=how+many+markets")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if !strings.Contains(body.Text, "2 total markets") {
		t.Errorf("Unexpected answer: %s", body.Text)
	}

	rec = get(t, s, "/editor/ask")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Missing query should 400, got %d", rec.Code)
	}
}
