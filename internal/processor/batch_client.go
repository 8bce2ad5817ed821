package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"account_ledger/internal/domain"
	"account_ledger/internal/repository"
	"account_ledger/pkg/metrics"
	"account_ledger/pkg/validator"
)

// Alerter receives escalations for failed or suspicious operations.
type Alerter interface {
	Alert(ctx context.Context, severity, subject, message string, metadata map[string]string) error
}

// alertScoreThreshold is the anomaly score above which an operation is
// escalated to the alert service.
const alertScoreThreshold = 60

// BatchClient drives a transaction batch over two disjoint collections of
// accounts: those that can be withdrawn from and those that only accept
// deposits. It relies solely on the capability interfaces and never inspects
// the concrete account type, so any variant within a capability group can be
// swapped in without changing this code path.
type BatchClient struct {
	withdrawable []domain.Withdrawer
	depositOnly  []domain.Depositor

	entryRepo repository.EntryRepository
	detector  *AnomalyDetector
	validator *validator.OperationValidator
	metrics   *metrics.MetricsCollector
	alerter   Alerter
	logger    *slog.Logger

	depositAmount     decimal.Decimal
	withdrawAmount    decimal.Decimal
	depositOnlyAmount decimal.Decimal
}

type BatchResult struct {
	Deposits    int
	Withdrawals int
	Failures    int
}

func NewBatchClient(
	withdrawable []domain.Withdrawer,
	depositOnly []domain.Depositor,
	entryRepo repository.EntryRepository,
	collector *metrics.MetricsCollector,
	alerter Alerter,
	logger *slog.Logger,
	depositAmount, withdrawAmount, depositOnlyAmount decimal.Decimal,
) *BatchClient {
	if logger == nil {
		logger = slog.Default()
	}

	return &BatchClient{
		withdrawable:      withdrawable,
		depositOnly:       depositOnly,
		entryRepo:         entryRepo,
		detector:          NewAnomalyDetector(),
		validator:         validator.NewOperationValidator(),
		metrics:           collector,
		alerter:           alerter,
		logger:            logger,
		depositAmount:     depositAmount,
		withdrawAmount:    withdrawAmount,
		depositOnlyAmount: depositOnlyAmount,
	}
}

// ProcessTransactions runs the batch: a deposit followed by a withdrawal on
// every withdraw-capable account, and a deposit on every deposit-only account.
// Operations run sequentially; account mutations are immediate in-memory
// updates. Insufficient funds is a recoverable outcome, recorded and reported
// without aborting the batch.
func (c *BatchClient) ProcessTransactions(ctx context.Context) (*BatchResult, error) {
	result := &BatchResult{}

	for _, acc := range c.withdrawable {
		if err := c.deposit(ctx, acc, c.depositAmount, result); err != nil {
			return result, err
		}
		if err := c.withdraw(ctx, acc, c.withdrawAmount, result); err != nil {
			return result, err
		}
	}

	for _, acc := range c.depositOnly {
		if err := c.deposit(ctx, acc, c.depositOnlyAmount, result); err != nil {
			return result, err
		}
	}

	c.logger.InfoContext(ctx, "Batch completed",
		slog.Int("deposits", result.Deposits),
		slog.Int("withdrawals", result.Withdrawals),
		slog.Int("failures", result.Failures))

	return result, nil
}

func (c *BatchClient) deposit(ctx context.Context, acc domain.Depositor, amount decimal.Decimal, result *BatchResult) error {
	entry := domain.NewEntry(acc.ID(), domain.EntryDeposit, amount)

	if err := c.validator.ValidateDeposit(acc.Kind(), amount); err != nil {
		return c.recordFailure(ctx, entry, acc, err, result)
	}

	start := time.Now()
	balance, err := acc.Deposit(amount)
	if err != nil {
		return c.recordFailure(ctx, entry, acc, err, result)
	}

	entry.Completed(balance)
	c.analyze(ctx, entry)

	if err := c.entryRepo.Save(ctx, entry); err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}

	c.metrics.RecordDeposit(time.Since(start))
	c.metrics.UpdateAccountBalance(acc.ID(), string(acc.Kind()), balance.InexactFloat64())
	result.Deposits++

	c.logger.InfoContext(ctx, "Deposit completed",
		slog.String("account_id", acc.ID()),
		slog.String("kind", string(acc.Kind())),
		slog.String("amount", amount.String()),
		slog.String("balance", balance.String()))

	return nil
}

func (c *BatchClient) withdraw(ctx context.Context, acc domain.Withdrawer, amount decimal.Decimal, result *BatchResult) error {
	entry := domain.NewEntry(acc.ID(), domain.EntryWithdrawal, amount)

	if err := c.validator.ValidateAmount(amount); err != nil {
		return c.recordFailure(ctx, entry, acc, err, result)
	}

	start := time.Now()
	balance, err := acc.Withdraw(amount)
	if err != nil {
		return c.recordFailure(ctx, entry, acc, err, result)
	}

	entry.Completed(balance)
	c.analyze(ctx, entry)

	if err := c.entryRepo.Save(ctx, entry); err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}

	c.metrics.RecordWithdrawal(time.Since(start))
	c.metrics.UpdateAccountBalance(acc.ID(), string(acc.Kind()), balance.InexactFloat64())
	result.Withdrawals++

	c.logger.InfoContext(ctx, "Withdrawal completed",
		slog.String("account_id", acc.ID()),
		slog.String("kind", string(acc.Kind())),
		slog.String("amount", amount.String()),
		slog.String("balance", balance.String()))

	return nil
}

// recordFailure persists the failed entry and keeps the batch going for
// recoverable outcomes. Only entry storage errors abort the batch.
func (c *BatchClient) recordFailure(ctx context.Context, entry *domain.Entry, acc domain.Depositor, opErr error, result *BatchResult) error {
	entry.Failed(opErr.Error(), acc.Balance())

	if err := c.entryRepo.Save(ctx, entry); err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}

	c.metrics.RecordFailure(string(entry.Type), failureReason(opErr))
	result.Failures++

	c.logger.WarnContext(ctx, "Operation failed",
		slog.String("account_id", acc.ID()),
		slog.String("type", string(entry.Type)),
		slog.String("amount", entry.Amount.String()),
		slog.String("error", opErr.Error()))

	if errors.Is(opErr, domain.ErrInsufficientFunds) && c.alerter != nil {
		_ = c.alerter.Alert(ctx, "warning", "Insufficient funds",
			fmt.Sprintf("withdrawal of %s rejected, balance %s", entry.Amount, entry.BalanceAfter),
			map[string]string{"account_id": acc.ID(), "entry_id": entry.ID})
	}

	return nil
}

func (c *BatchClient) analyze(ctx context.Context, entry *domain.Entry) {
	score, flags := c.detector.AnalyzeEntry(entry)
	entry.RiskScore = score
	for _, flag := range flags {
		entry.AddFlag(flag)
	}

	c.metrics.RecordAnomalyScore(score)

	if score >= alertScoreThreshold && c.alerter != nil {
		_ = c.alerter.Alert(ctx, "critical", "Anomalous operation",
			fmt.Sprintf("%s of %s scored %d", entry.Type, entry.Amount, score),
			map[string]string{"account_id": entry.AccountID, "entry_id": entry.ID})
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, validator.ErrNonPositiveAmount):
		return "invalid_amount"
	case errors.Is(err, validator.ErrAmountTooLarge):
		return "amount_too_large"
	default:
		return "error"
	}
}
