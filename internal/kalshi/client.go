// Package kalshi provides a client for Kalshi's public trade API.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/marketpress/marketpress/internal/logger"
	"github.com/marketpress/marketpress/internal/models"
)

// Client accesses the Kalshi trade-api/v2 endpoints.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// ClientConfig holds client tuning options.
type ClientConfig struct {
	MaxRetries     int
	RetryDelayBase time.Duration
}

// NewClient creates a new Kalshi client.
func NewClient(baseURL string, timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	return &Client{
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: timeout},
		maxRetries:     cfg.MaxRetries,
		retryDelayBase: cfg.RetryDelayBase,
	}
}

type marketsResponse struct {
	Markets []models.RawMarket `json:"markets"`
}

type orderbookResponse struct {
	Orderbook *models.Orderbook `json:"orderbook"`
}

type tradesResponse struct {
	Trades []models.Trade `json:"trades"`
}

// GetMarkets fetches up to limit open markets.
func (c *Client) GetMarkets(ctx context.Context, limit int, status string) ([]models.RawMarket, error) {
	u, err := url.Parse(c.baseURL + "/markets")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("status", status)
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch markets: %w", err)
	}
	defer resp.Body.Close()

	var body marketsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode markets: %w", err)
	}
	return body.Markets, nil
}

// GetOrderbook fetches the orderbook for one market.
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (*models.Orderbook, error) {
	resp, err := c.doRequest(ctx, c.baseURL+"/markets/"+url.PathEscape(ticker)+"/orderbook")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orderbook for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	var body orderbookResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode orderbook for %s: %w", ticker, err)
	}
	return body.Orderbook, nil
}

// GetTrades fetches recent trades for one market.
func (c *Client) GetTrades(ctx context.Context, ticker string, limit int) ([]models.Trade, error) {
	u, err := url.Parse(c.baseURL + "/markets/" + url.PathEscape(ticker) + "/trades")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("limit", fmt.Sprintf("%d", limit))
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trades for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	var body tradesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode trades for %s: %w", ticker, err)
	}
	return body.Trades, nil
}

// FetchMarkets fetches open markets, optionally enriching each with its
// orderbook and recent trades. Enrichment failures degrade that record, not
// the batch.
func (c *Client) FetchMarkets(ctx context.Context, limit int, enrich bool) ([]models.RawMarket, error) {
	markets, err := c.GetMarkets(ctx, limit, "open")
	if err != nil {
		return nil, err
	}
	if !enrich {
		return markets, nil
	}

	for i := range markets {
		if markets[i].Ticker == "" {
			continue
		}
		if ob, err := c.GetOrderbook(ctx, markets[i].Ticker); err != nil {
			logger.Debug("Orderbook unavailable for %s: %v", markets[i].Ticker, err)
		} else {
			markets[i].Orderbook = ob
		}
		if trades, err := c.GetTrades(ctx, markets[i].Ticker, 10); err != nil {
			logger.Debug("Trades unavailable for %s: %v", markets[i].Ticker, err)
		} else {
			markets[i].RecentTrades = trades
		}
	}
	return markets, nil
}

// doRequest performs a GET with linear-backoff retry on transport errors and
// 5xx responses.
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		} else if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("client error: %d", resp.StatusCode)
		} else {
			return resp, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
