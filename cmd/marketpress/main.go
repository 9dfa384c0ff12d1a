package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marketpress/marketpress/internal/config"
	"github.com/marketpress/marketpress/internal/demo"
	"github.com/marketpress/marketpress/internal/editor"
	"github.com/marketpress/marketpress/internal/instrumentation"
	"github.com/marketpress/marketpress/internal/kalshi"
	"github.com/marketpress/marketpress/internal/logger"
	"github.com/marketpress/marketpress/internal/press"
	"github.com/marketpress/marketpress/internal/report"
	"github.com/marketpress/marketpress/internal/sections"
	"github.com/marketpress/marketpress/internal/server"
	"github.com/marketpress/marketpress/internal/signals"
	"github.com/marketpress/marketpress/internal/storage"
	"github.com/marketpress/marketpress/internal/telegram"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	once       = flag.Bool("once", false, "Run one refresh, print the front page, and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.DBPath, cfg.Storage.Retention)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	kalshiClient := kalshi.NewClient(
		cfg.Kalshi.BaseURL,
		cfg.Kalshi.Timeout,
		kalshi.ClientConfig{
			MaxRetries:     cfg.Kalshi.MaxRetries,
			RetryDelayBase: cfg.Kalshi.RetryDelayBase,
		},
	)

	p := press.New(press.Config{
		FetchLimit:    cfg.Kalshi.Limit,
		Enrich:        cfg.Kalshi.Enrich,
		DemoFallback:  cfg.Kalshi.DemoFallback,
		DemoOnly:      cfg.Kalshi.DemoOnly,
		HistoryWindow: cfg.Storage.Retention,
		Signals: signals.Config{
			WindowHours:      cfg.Signals.WindowHours,
			ConfidencePolicy: cfg.Signals.ConfidencePolicy,
		},
		Sections: sections.Config{
			TopStories:          cfg.Sections.TopStories,
			SectionSize:         cfg.Sections.SectionSize,
			MostRead:            cfg.Sections.MostRead,
			Developing:          cfg.Sections.Developing,
			VolatilityThreshold: cfg.Sections.VolatilityThreshold,
			DeltaThreshold:      cfg.Sections.DeltaThreshold,
		},
	}, kalshiClient, store, demo.NewGenerator(time.Now().UnixNano()))

	if *once {
		if err := p.Refresh(context.Background()); err != nil {
			logger.Fatal("Refresh failed: %v", err)
		}
		fmt.Println(report.FrontPage(p.Sections(), p.DemoMode(), p.LastRefresh()))
		fmt.Println()
		fmt.Println(editor.New(p.Markets(), p.Sections()).Summary())
		return
	}

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if cfg.Metrics.Enabled {
		metricsServer := instrumentation.Serve(cfg.Metrics.Addr)
		defer metricsServer.Close()
		logger.Info("Metrics endpoint listening on %s", cfg.Metrics.Addr)
	}

	if cfg.Server.Enabled {
		httpServer := server.New(cfg.Server.Addr, p)
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error("HTTP server failed: %v", err)
				cancel()
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown failed: %v", err)
			}
		}()
	}

	logger.Info("Starting refresh loop (interval: %v, limit: %d, demo_only: %t)",
		cfg.Kalshi.PollInterval, cfg.Kalshi.Limit, cfg.Kalshi.DemoOnly)

	ticker := time.NewTicker(cfg.Kalshi.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Refresh cycle failed: %v", err)
			instrumentation.RefreshesTotal.WithLabelValues("error").Inc()
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
			return
		}
		instrumentation.RefreshesTotal.WithLabelValues("ok").Inc()
		instrumentation.RecordEdition(len(p.Markets()), p.DemoMode())
		if consecutiveFailures > 0 && telegramClient != nil {
			if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
			}
		}
		consecutiveFailures = 0
	}

	logger.Debug("Running initial refresh cycle")
	handleCycleResult(runRefreshCycle(ctx, p, telegramClient))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled refresh cycle")
			handleCycleResult(runRefreshCycle(ctx, p, telegramClient))
			if err := store.Rotate(time.Now()); err != nil {
				logger.Warn("Failed to rotate snapshots: %v", err)
			}
		}
	}
}

func runRefreshCycle(ctx context.Context, p *press.Press, telegramClient *telegram.Client) error {
	startTime := time.Now()
	logger.Info("Starting refresh cycle")

	if err := p.Refresh(ctx); err != nil {
		return err
	}

	if telegramClient != nil {
		secs := p.Sections()
		if len(secs[sections.SectionDeveloping]) > 0 {
			if err := telegramClient.SendDigest(secs, p.DemoMode(), p.LastRefresh()); err != nil {
				logger.Error("Failed to send Telegram digest: %v", err)
			} else {
				logger.Info("Sent Telegram digest")
			}
		} else {
			logger.Debug("No developing stories, skipping Telegram digest")
		}
	}

	duration := time.Since(startTime)
	instrumentation.RefreshDuration.Observe(duration.Seconds())
	logger.Info("Refresh cycle completed in %v", duration)

	return nil
}
