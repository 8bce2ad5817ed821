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

	"github.com/shopspring/decimal"

	"account_ledger/internal/api"
	"account_ledger/internal/config"
	"account_ledger/internal/domain"
	"account_ledger/internal/processor"
	"account_ledger/internal/repository/memory"
	"account_ledger/internal/service"
	"account_ledger/pkg/crypto"
	"account_ledger/pkg/metrics"
)

const (
	appName = "account_ledger"
)

func main() {
	logger := setupLogger()
	logger.Info("Starting application",
		slog.String("name", appName))

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	metricsCollector := metrics.NewMetricsCollector(logger)
	signer := crypto.NewSigner(cfg.SigningKey, logger)
	accountRepo := memory.NewAccountRepository()
	entryRepo := memory.NewEntryRepository()
	alertService := setupAlertService(cfg, logger)
	ledger := processor.NewLedgerService(accountRepo, entryRepo, metricsCollector, alertService, logger)

	runDemonstrationBatch(cfg, accountRepo, entryRepo, metricsCollector, alertService, logger)

	apiHandler := api.NewAPIHandler(ledger, signer, logger)
	metricsServer := metricsCollector.StartMetricsServer(cfg.MetricsAddr)
	httpServer := startHTTPServer(cfg.ServerAddr, apiHandler, logger)
	waitForShutdown(cfg, logger, httpServer, metricsServer, alertService, metricsCollector)
	logger.Info("Application shutdown complete")
}

func setupLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

func setupAlertService(cfg config.Config, logger *slog.Logger) *service.AlertService {
	emailSender := &service.MockEmailSender{}
	webhookSender := &service.MockWebhookSender{}

	return service.NewAlertService(
		emailSender,
		webhookSender,
		cfg.AlertEmail,
		cfg.AlertWebhookTarget,
		cfg.AlertWorkers,
		logger,
	)
}

// runDemonstrationBatch seeds one account per variant and runs the batch
// client over them: deposits and withdrawals on the withdraw-capable
// accounts, deposits only on the fixed-term account.
func runDemonstrationBatch(
	cfg config.Config,
	accountRepo *memory.AccountRepository,
	entryRepo *memory.EntryRepository,
	collector *metrics.MetricsCollector,
	alertService *service.AlertService,
	logger *slog.Logger,
) {
	ctx := context.Background()

	opening := mustDecimal(cfg.DemoOpeningBalance, logger)
	depositAmount := mustDecimal(cfg.DemoDepositAmount, logger)
	withdrawAmount := mustDecimal(cfg.DemoWithdrawAmount, logger)
	fixedDepositAmount := mustDecimal(cfg.DemoFixedDepositAmount, logger)

	savings, err := domain.NewSavingsAccount("demo-user", opening)
	if err != nil {
		logger.Error("Failed to open savings account", slog.String("error", err.Error()))
		os.Exit(1)
	}
	current, err := domain.NewCurrentAccount("demo-user", opening)
	if err != nil {
		logger.Error("Failed to open current account", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fixed, err := domain.NewFixedTermAccount("demo-user", opening, 90*24*time.Hour)
	if err != nil {
		logger.Error("Failed to open fixed term account", slog.String("error", err.Error()))
		os.Exit(1)
	}

	for _, account := range []domain.Depositor{savings, current, fixed} {
		if err := accountRepo.Save(ctx, account); err != nil {
			logger.Error("Failed to save account", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	client := processor.NewBatchClient(
		[]domain.Withdrawer{savings, current},
		[]domain.Depositor{fixed},
		entryRepo,
		collector,
		alertService,
		logger,
		depositAmount,
		withdrawAmount,
		fixedDepositAmount,
	)

	result, err := client.ProcessTransactions(ctx)
	if err != nil {
		logger.Error("Demonstration batch failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Demonstration batch finished",
		slog.Int("deposits", result.Deposits),
		slog.Int("withdrawals", result.Withdrawals),
		slog.Int("failures", result.Failures))
}

func mustDecimal(s string, logger *slog.Logger) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		logger.Error("Invalid decimal in config", slog.String("value", s))
		os.Exit(1)
	}
	return d
}

func startHTTPServer(addr string, apiHandler *api.APIHandler, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()

	apiHandler.RegisterRoutes(mux)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name": "%s", "status": "ok"}`, appName)
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	return server
}

func waitForShutdown(
	cfg config.Config,
	logger *slog.Logger,
	httpServer *http.Server,
	metricsServer *http.Server,
	alertService *service.AlertService,
	metricsCollector *metrics.MetricsCollector,
) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}

	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("Metrics server shutdown failed", slog.String("error", err.Error()))
	}

	if err := alertService.Shutdown(ctx); err != nil {
		logger.Error("Alert service shutdown failed", slog.String("error", err.Error()))
	}

	if err := metricsCollector.Shutdown(ctx); err != nil {
		logger.Error("Metrics collector shutdown failed", slog.String("error", err.Error()))
	}
}
