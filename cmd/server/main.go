package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/praktika-app/praktika/internal"
	"github.com/praktika-app/praktika/internal/ai"
	"github.com/praktika-app/praktika/internal/ai/anthropic"
	aimock "github.com/praktika-app/praktika/internal/ai/mock"
	"github.com/praktika-app/praktika/internal/handler"
	"github.com/praktika-app/praktika/internal/metrics"
	"github.com/praktika-app/praktika/internal/middleware"
	"github.com/praktika-app/praktika/internal/repository"
	"github.com/praktika-app/praktika/internal/service"
	"github.com/praktika-app/praktika/internal/storage"
	"github.com/praktika-app/praktika/internal/voucher"
	"github.com/praktika-app/praktika/internal/worker"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	store := repository.NewStore(db)

	// Initialize report storage
	files, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// Initialize AI provider
	provider, err := newAIProvider(cfg, store.Queries, logger)
	if err != nil {
		return fmt.Errorf("ai provider initialization failed: %w", err)
	}

	// Initialize services
	pricing := service.PlanPricing{
		MonthlyIDR: cfg.PlanMonthlyPrice,
		YearlyIDR:  cfg.PlanYearlyPrice,
	}
	vouchers := voucher.New(cfg.VoucherCodes)

	userService := service.NewUserService(store, logger)
	quotaService := service.NewQuotaService(store, logger)
	entitlementService := service.NewEntitlementService(store, vouchers, pricing, logger)
	paymentService := service.NewPaymentService(store, cfg.GatewayServerKey, pricing, logger)
	reportService := service.NewReportService(store, quotaService, provider, files, logger)

	// Initialize middleware
	isSecure := cfg.Env != "development"
	authMw := middleware.NewAuthMiddleware(userService, cfg.IsAdminEmail, logger, isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	authLimiter := middleware.NewAuthRateLimiter(logger)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService, authLimiter, logger, isSecure)
	reportHandler := handler.NewReportHandler(reportService, quotaService, logger)
	billingHandler := handler.NewBillingHandler(paymentService, entitlementService, pricing, logger)
	webhookHandler := handler.NewWebhookHandler(paymentService, logger)

	// Create router and register routes
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Metrics (basic auth when configured)
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// Payment gateway notifications (public; signature-authenticated)
	mux.HandleFunc("POST /webhooks/payment", webhookHandler.HandlePaymentNotification)

	// Auth (public, rate-limited)
	mux.Handle("POST /api/auth/register", authLimiter.LimitRegister(http.HandlerFunc(authHandler.HandleRegister)))
	mux.Handle("POST /api/auth/login", authLimiter.LimitLogin(http.HandlerFunc(authHandler.HandleLogin)))
	mux.HandleFunc("POST /api/auth/logout", authHandler.HandleLogout)

	// Plan listing is public
	mux.HandleFunc("GET /api/billing/plans", billingHandler.HandlePlans)

	// Authenticated routes
	requireUser := middleware.Stack(authMw.WithUser, authMw.RequireUser)
	mux.Handle("GET /api/auth/me", requireUser(http.HandlerFunc(authHandler.HandleMe)))
	mux.Handle("POST /api/reports", requireUser(http.HandlerFunc(reportHandler.HandleGenerate)))
	mux.Handle("GET /api/reports", requireUser(http.HandlerFunc(reportHandler.HandleList)))
	mux.Handle("GET /api/reports/{id}", requireUser(http.HandlerFunc(reportHandler.HandleGet)))
	mux.Handle("GET /api/reports/{id}/download", requireUser(http.HandlerFunc(reportHandler.HandleDownload)))
	mux.Handle("GET /api/usage", requireUser(http.HandlerFunc(reportHandler.HandleUsage)))
	mux.Handle("POST /api/billing/checkout", requireUser(http.HandlerFunc(billingHandler.HandleCheckout)))
	mux.Handle("POST /api/billing/voucher", requireUser(http.HandlerFunc(billingHandler.HandleVoucher)))

	// Admin routes
	requireAdmin := middleware.Stack(authMw.WithUser, authMw.RequireUser, authMw.RequireAdmin)
	mux.Handle("POST /api/admin/activate", requireAdmin(http.HandlerFunc(billingHandler.HandleAdminActivate)))

	// Background maintenance
	maintenance := worker.New(cfg.CleanupInterval, logger)
	maintenance.Register(worker.TaskFunc{
		TaskName: "session_cleanup",
		Fn:       userService.DeleteExpiredSessions,
	})
	maintenance.Start(ctx)
	defer maintenance.Stop()

	// Start server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: middleware.Stack(loggingMw.Handler, metrics.Middleware)(mux),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newStorage selects the report document store from configuration.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case storage.ProviderR2:
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	default:
		return storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
}

// newAIProvider selects the report generator from configuration.
func newAIProvider(cfg *internal.Config, queries *repository.Queries, logger *slog.Logger) (ai.Provider, error) {
	if cfg.AIProvider == "anthropic" {
		return anthropic.New(anthropic.Config{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
			ProviderConfig: ai.ProviderConfig{
				MaxRetries:     cfg.AIMaxRetries,
				RetryBaseDelay: cfg.AIRetryBaseDelay,
				RequestTimeout: cfg.AIRequestTimeout,
			},
		}, queries, logger)
	}
	return aimock.New(logger), nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
