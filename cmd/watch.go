package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adelaroche/bosswatch/internal/api"
	"github.com/adelaroche/bosswatch/internal/boss"
	"github.com/adelaroche/bosswatch/internal/clock/system"
	"github.com/adelaroche/bosswatch/internal/config"
	"github.com/adelaroche/bosswatch/internal/expedition"
	"github.com/adelaroche/bosswatch/internal/logging"
	"github.com/adelaroche/bosswatch/internal/metrics"
	"github.com/adelaroche/bosswatch/internal/monitor"
	"github.com/adelaroche/bosswatch/internal/notify"
	"github.com/adelaroche/bosswatch/internal/scrape"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Starts the poll loop and the dashboard server",
		Long: `Polls the world boss page on the configured interval and serves the
dashboard until interrupted. Telegram notifications fire on phase
transitions when a bot token is configured.`,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("bosswatch.yaml"); err == nil {
			path = "bosswatch.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher, err := scrape.NewFetcher(scrape.FetcherConfig{
		URL:            cfg.Scrape.BossURL,
		Cookie:         cfg.Scrape.Cookie,
		UserAgent:      cfg.Scrape.UserAgent,
		RequestTimeout: time.Duration(cfg.Scrape.TimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		return fmt.Errorf("build fetcher: %w", err)
	}

	parser := scrape.NewParser(scrape.ParserConfig{
		ApproachThreshold: cfg.ApproachThreshold(),
		BaseURL:           cfg.Scrape.BossURL,
	})

	dumper := scrape.NewDumper(
		cfg.Diagnostics.DumpDir,
		int64(cfg.Diagnostics.DumpMaxBytes),
		cfg.Diagnostics.DumpEnabled,
		logger,
	)

	var details *scrape.DetailFetcher
	if cfg.Scrape.FetchDetails {
		details = scrape.NewDetailFetcher(fetcher, cfg.Scrape.BossViewURL, logger)
	}

	clk := system.New()
	tracker := boss.NewTracker(boss.TrackerConfig{
		FailureThreshold: cfg.Alerts.FailureThreshold,
		ActiveCooldown:   cfg.ActiveCooldown(),
	}, clk)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Telegram.Token != "" {
		notifier = notify.NewTelegram(notify.TelegramConfig{
			Token:   cfg.Telegram.Token,
			ChatID:  cfg.Telegram.ChatID,
			Timeout: time.Duration(cfg.Telegram.TimeoutSeconds) * time.Second,
		}, logger)
		logger.Info("telegram notifications enabled", zap.String("chat_id", cfg.Telegram.ChatID))
	} else {
		logger.Info("no telegram token configured, notifications disabled")
	}

	cell := monitor.NewCell()
	mon := monitor.New(
		monitor.Config{
			Interval:     cfg.PollInterval(),
			FetchDetails: cfg.Scrape.FetchDetails,
			TestPing:     cfg.Alerts.TestPing,
		},
		fetcher, parser, detailsOrNil(details), tracker, notifier, dumper, cell, clk,
		cfg.Alerts.FailureThreshold, logger,
	)

	var exped api.Expeditioner
	var expedCtrl *expedition.Controller
	if cfg.Expedition.Enabled {
		expedCtrl = expedition.NewController(expedition.Config{
			QuestsURL:     cfg.Expedition.QuestsURL,
			Cookie:        cfg.Scrape.Cookie,
			UserAgent:     cfg.Scrape.UserAgent,
			NavTimeout:    time.Duration(cfg.Expedition.NavTimeoutSeconds) * time.Second,
			ClickInterval: time.Duration(cfg.Expedition.ClickIntervalSeconds) * time.Second,
		}, logger)
		exped = expedCtrl
	}

	srv := api.NewServer(cell, exped, clk, ctx, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go mon.Run(ctx)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("dashboard listening", zap.Int("port", cfg.Server.Port))
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	if expedCtrl != nil {
		if err := expedCtrl.Close(shutdownCtx); err != nil {
			logger.Warn("expedition shutdown failed", zap.Error(err))
		}
	}
	return nil
}

// detailsOrNil keeps the monitor's StatsFetcher interface nil when stat
// enrichment is disabled, instead of a typed nil pointer.
func detailsOrNil(d *scrape.DetailFetcher) monitor.StatsFetcher {
	if d == nil {
		return nil
	}
	return d
}
