package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsCollector struct {
	registry          *prometheus.Registry
	depositsTotal     prometheus.Counter
	withdrawalsTotal  prometheus.Counter
	operationsFailed  *prometheus.CounterVec
	operationDuration prometheus.Histogram
	anomalyScores     prometheus.Histogram
	accountBalance    *prometheus.GaugeVec
	logger            *slog.Logger
}

func NewMetricsCollector(logger *slog.Logger) *MetricsCollector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()

	collector := &MetricsCollector{
		registry: registry,
		depositsTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "ledger_deposits_total",
			Help: "Total number of completed deposits",
		}),
		withdrawalsTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "ledger_withdrawals_total",
			Help: "Total number of completed withdrawals",
		}),
		operationsFailed: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_failed_total",
			Help: "Total number of failed operations",
		}, []string{"type", "reason"}),
		operationDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Time taken to execute a ledger operation",
			Buckets: prometheus.DefBuckets,
		}),
		anomalyScores: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_anomaly_score_distribution",
			Help:    "Distribution of operation anomaly scores",
			Buckets: []float64{0, 20, 40, 60, 80, 100},
		}),
		accountBalance: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_account_balance",
			Help: "Current account balance",
		}, []string{"account_id", "kind"}),
		logger: logger,
	}

	return collector
}

func (m *MetricsCollector) RecordDeposit(duration time.Duration) {
	m.depositsTotal.Inc()
	m.operationDuration.Observe(duration.Seconds())
}

func (m *MetricsCollector) RecordWithdrawal(duration time.Duration) {
	m.withdrawalsTotal.Inc()
	m.operationDuration.Observe(duration.Seconds())
}

func (m *MetricsCollector) RecordFailure(operationType, reason string) {
	m.operationsFailed.WithLabelValues(operationType, reason).Inc()
}

func (m *MetricsCollector) RecordAnomalyScore(score int) {
	m.anomalyScores.Observe(float64(score))
}

func (m *MetricsCollector) UpdateAccountBalance(accountID, kind string, balance float64) {
	m.accountBalance.WithLabelValues(accountID, kind).Set(balance)
}

func (m *MetricsCollector) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsCollector) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.GetHandler())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		m.logger.Info("Starting metrics server", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return server
}

func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	m.logger.Info("Metrics collector shutdown complete")
	return nil
}
