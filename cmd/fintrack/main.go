package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"fintrack/internal/advisor"
	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := applog.New(applog.DefaultConfig())
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	logger.Info("Starting fintrack API", "port", cfg.Port, "timezone", cfg.Timezone)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	m := metrics.New()

	analyticsCache := cache.NewLRUCache[any](cfg.AnalyticsCacheSize, cfg.AnalyticsCacheTTL)
	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	cacheManager.Register(analyticsCache)
	cacheManager.StartCleanup(cfg.AnalyticsCacheTTL)
	defer cacheManager.Stop()

	var publisher services.Publisher = services.NopPublisher{}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.Logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("Ledger events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Ledger events disabled - no AMQP_URL provided")
	}

	var model advisor.Model
	if cfg.GeminiAPIKey != "" {
		gm, err := advisor.NewGeminiModel(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini model", applog.FieldError, err)
			os.Exit(1)
		}
		model = gm
		logger.Info("AI advisor enabled", "model", cfg.GeminiModel)
	} else {
		logger.Info("AI advisor disabled - no GEMINI_API_KEY provided")
	}

	accounts := auth.NewPasswordAuthenticator(repo)
	analytics := services.NewAnalyticsService(repo, analyticsCache, cfg.Location(), m)
	base := logger.Logger

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
		Metrics:            m,
		Store:              repo,
	}, apphttp.Services{
		Accounts:     accounts,
		Tokens:       auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL),
		Transactions: services.NewTransactionService(repo, analytics, publisher, m, base),
		Categories:   services.NewCategoryService(repo, analytics),
		Budgets:      services.NewBudgetService(repo, analytics),
		Analytics:    analytics,
		Households:   services.NewHouseholdService(repo),
		Imports:      services.NewImportService(repo, analytics, publisher, m, base),
		Advisor:      services.NewAdvisorService(repo, analytics, model, m, base),
	})

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}

	cli.GracefulShutdown(logger, srv.Shutdown)
	logger.Info("Server stopped gracefully")
}
