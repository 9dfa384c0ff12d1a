// Package server exposes the published edition over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/marketpress/marketpress/internal/editor"
	"github.com/marketpress/marketpress/internal/logger"
	"github.com/marketpress/marketpress/internal/press"
	"github.com/marketpress/marketpress/internal/report"
)

// Server serves front page, section, market, and editor endpoints off a
// press instance.
type Server struct {
	press *press.Press
	http  *http.Server
}

// New creates a server bound to addr.
func New(addr string, p *press.Press) *Server {
	s := &Server{press: p}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Get("/frontpage", s.handleFrontPage)
	r.Get("/sections", s.handleSections)
	r.Get("/sections/{name}", s.handleSection)
	r.Get("/markets", s.handleMarkets)
	r.Get("/markets/{ticker}", s.handleMarket)
	r.Get("/markets/{ticker}/sparkline", s.handleSparkline)
	r.Get("/editor/summary", s.handleEditorSummary)
	r.Get("/editor/ask", s.handleEditorAsk)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until Shutdown. Blocks.
func (s *Server) Start() error {
	logger.Info("HTTP server listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"demo_mode":    s.press.DemoMode(),
		"last_refresh": s.press.LastRefresh(),
	})
}

func (s *Server) handleFrontPage(w http.ResponseWriter, r *http.Request) {
	page := report.FrontPage(s.press.Sections(), s.press.DemoMode(), s.press.LastRefresh())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(page)) //nolint:errcheck
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	secs := s.press.Sections()
	out := make(map[string][]marketDTO, len(secs))
	for name, rows := range secs {
		out[name] = toDTOs(rows)
	}
	writeJSON(w, http.StatusOK, editionResponse{
		DemoMode:  s.press.DemoMode(),
		UpdatedAt: s.press.LastRefresh(),
		Sections:  out,
	})
}

func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rows := s.press.Section(name)
	if len(rows) == 0 {
		if all := s.press.Sections(); all[name] == nil {
			writeError(w, http.StatusNotFound, "unknown section: "+name)
			return
		}
	}
	writeJSON(w, http.StatusOK, sectionResponse{
		DemoMode:  s.press.DemoMode(),
		UpdatedAt: s.press.LastRefresh(),
		Section:   name,
		Markets:   toDTOs(rows),
	})
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, editionResponse{
		DemoMode:  s.press.DemoMode(),
		UpdatedAt: s.press.LastRefresh(),
		Markets:   toDTOs(s.press.Markets()),
	})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	m, ok := s.press.Market(ticker)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown market: "+ticker)
		return
	}
	dto := toDTO(m)
	writeJSON(w, http.StatusOK, marketResponse{
		DemoMode:  s.press.DemoMode(),
		UpdatedAt: s.press.LastRefresh(),
		Market:    &dto,
		Headline:  report.Headline(m),
	})
}

func (s *Server) handleSparkline(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if _, ok := s.press.Market(ticker); !ok {
		writeError(w, http.StatusNotFound, "unknown market: "+ticker)
		return
	}

	window := 24 * time.Hour
	if h := r.URL.Query().Get("hours"); h != "" {
		hours, err := strconv.Atoi(h)
		if err != nil || hours <= 0 {
			writeError(w, http.StatusBadRequest, "invalid hours parameter")
			return
		}
		window = time.Duration(hours) * time.Hour
	}

	snaps, err := s.press.History(ticker, window)
	if err != nil {
		logger.Error("Failed to load history for %s: %v", ticker, err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	prices := make([]float64, 0, len(snaps))
	for _, snap := range snaps {
		if !isMissing(snap.YesPrice) {
			prices = append(prices, snap.YesPrice)
		}
	}

	writeJSON(w, http.StatusOK, sparklineResponse{
		Ticker: ticker,
		Text:   report.SparklineText(prices, 10),
		SVG:    report.SparklineSVG(prices, 100, 30),
		Points: len(prices),
	})
}

func (s *Server) handleEditorSummary(w http.ResponseWriter, r *http.Request) {
	ed := editor.New(s.press.Markets(), s.press.Sections())
	writeJSON(w, http.StatusOK, editorResponse{
		DemoMode:  s.press.DemoMode(),
		UpdatedAt: s.press.LastRefresh(),
		Text:      ed.Summary(),
	})
}

func (s *Server) handleEditorAsk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	ed := editor.New(s.press.Markets(), s.press.Sections())
	writeJSON(w, http.StatusOK, editorResponse{
		DemoMode:  s.press.DemoMode(),
		UpdatedAt: s.press.LastRefresh(),
		Query:     q,
		Text:      ed.Answer(q),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
