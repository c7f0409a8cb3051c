package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/trendsentry/service/internal/ai"
	"github.com/trendsentry/service/internal/analysis"
	"github.com/trendsentry/service/internal/api"
	"github.com/trendsentry/service/internal/api/handler"
	mw "github.com/trendsentry/service/internal/api/middleware"
	"github.com/trendsentry/service/internal/cache"
	"github.com/trendsentry/service/internal/config"
	"github.com/trendsentry/service/internal/feedback"
	"github.com/trendsentry/service/internal/monitor"
	"github.com/trendsentry/service/internal/notify"
	"github.com/trendsentry/service/internal/report"
	"github.com/trendsentry/service/internal/scoring"
	"github.com/trendsentry/service/internal/sources"
	"github.com/trendsentry/service/internal/sources/alphavantage"
	"github.com/trendsentry/service/internal/sources/newsapi"
	"github.com/trendsentry/service/internal/sources/uspto"
	"github.com/trendsentry/service/internal/store"
	"github.com/trendsentry/service/pkg/models"
)

const (
	migrationsDir   = "migrations"
	requestsPerMin  = 60
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Missing .env is fine in production; env vars come from the deployment.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watchlist, err := config.LoadWatchlist(cfg.Sources.WatchlistPath)
	if err != nil {
		return fmt.Errorf("load watchlist: %w", err)
	}
	org := watchlist.OrgContext()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := store.RunMigrations(cfg.Database.URL, migrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	st := store.NewPostgresStore(pool)

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	notifier := notify.NewRedisNotifier(redisCache.Client())

	provider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		return fmt.Errorf("init AI provider: %w", err)
	}
	slog.Info("AI provider ready", "provider", provider.Name())

	srcs := buildSources(cfg, watchlist)
	scoringEngine := scoring.NewEngine(watchlist.Keywords, watchlist.Company)
	scanner := monitor.NewScanner(srcs, scoringEngine, st, notifier,
		cfg.Pipeline.AlertThreshold, cfg.Sources.Timeout, watchlist.ScanQuery,
		time.Duration(cfg.Pipeline.AlertRetentionDays)*24*time.Hour)

	loop, err := feedback.NewLoop(ctx, st, cfg.Pipeline.LearningRate)
	if err != nil {
		return fmt.Errorf("init feedback loop: %w", err)
	}

	engine := analysis.NewEngine(provider, analysis.DefaultSignals{}, st, notifier,
		loop, cfg.Pipeline.ApprovalThreshold, cfg.AI.MaxTokens, cfg.AI.Temperature,
		cfg.AI.InferenceTimeout)

	generator := report.NewGenerator(st)
	scheduler := report.NewScheduler(generator, redisCache)

	// Alerts that require action get analyzed as soon as the scan cycle
	// that produced them finishes.
	onAlerts := func(ctx context.Context, alerts []models.Alert) {
		for i := range alerts {
			if !alerts[i].RequiresAction {
				continue
			}
			if _, err := engine.Analyze(ctx, &alerts[i], org); err != nil {
				slog.Error("auto-analysis failed", "alert_id", alerts[i].ID, "error", err)
			}
		}
	}

	go scanner.Run(ctx, cfg.Pipeline.ScanInterval, onAlerts)
	go scheduler.Run(ctx)

	deps := api.Dependencies{
		Auth:      mw.NewAuth(cfg.Server.APITokenHash),
		RateLimit: mw.NewRateLimit(redisCache, requestsPerMin),

		HealthHandler: handler.NewHealthHandler(st, redisCache),

		ListAlertsHandler:  handler.NewListAlertsHandler(st),
		CreateAlertHandler: handler.NewCreateAlertHandler(scanner),
		TriggerScanHandler: handler.NewTriggerScanHandler(scanner),

		AnalyzeHandler:         handler.NewAnalyzeHandler(st, engine, org),
		PendingAnalysesHandler: handler.NewPendingAnalysesHandler(engine),
		ApproveHandler:         handler.NewApprovalHandler(engine, true),
		RejectHandler:          handler.NewApprovalHandler(engine, false),

		RecordFeedbackHandler: handler.NewRecordFeedbackHandler(loop, redisCache),
		InsightsHandler:       handler.NewInsightsHandler(loop, redisCache),

		GenerateReportHandler: handler.NewGenerateReportHandler(generator, redisCache),
		LatestReportHandler:   handler.NewLatestReportHandler(generator, redisCache),
		ReportHistoryHandler:  handler.NewReportHistoryHandler(generator),
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildSources assembles the configured source list. Sources without an API
// key are still registered; they degrade to empty fetches rather than
// blocking startup.
func buildSources(cfg *config.Config, watchlist *config.Watchlist) []sources.Source {
	srcs := []sources.Source{
		newsapi.New("tech_news", cfg.Sources.NewsAPIKey, cfg.Sources.Timeout),
		uspto.New("patent_filings", watchlist.PatentKeywords, cfg.Sources.Timeout),
	}
	if cfg.Sources.AlphaVantageKey != "" && len(watchlist.MarketSymbols) > 0 {
		srcs = append(srcs, alphavantage.New("market_movements",
			cfg.Sources.AlphaVantageKey, watchlist.MarketSymbols, cfg.Sources.Timeout))
	}
	return srcs
}
