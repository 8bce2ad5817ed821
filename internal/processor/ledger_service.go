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

// ErrNotWithdrawable marks a withdrawal addressed to an account whose type
// does not carry the withdraw capability. Inside the process the type system
// makes this unrepresentable; at the API boundary accounts arrive as opaque
// ids, so the lookup has to report it.
var ErrNotWithdrawable = errors.New("account does not support withdrawals")

// LedgerService executes repo-addressed account operations on behalf of the
// HTTP API: open, deposit, withdraw, statement. Every operation is recorded
// as a ledger entry and analyzed for anomalies.
type LedgerService struct {
	accountRepo repository.AccountRepository
	entryRepo   repository.EntryRepository
	detector    *AnomalyDetector
	validator   *validator.OperationValidator
	metrics     *metrics.MetricsCollector
	alerter     Alerter
	logger      *slog.Logger
}

func NewLedgerService(
	accountRepo repository.AccountRepository,
	entryRepo repository.EntryRepository,
	collector *metrics.MetricsCollector,
	alerter Alerter,
	logger *slog.Logger,
) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}

	return &LedgerService{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		detector:    NewAnomalyDetector(),
		validator:   validator.NewOperationValidator(),
		metrics:     collector,
		alerter:     alerter,
		logger:      logger,
	}
}

// OpenAccount constructs an account of the requested kind. The capability of
// the returned account is fixed here, by the constructor that runs, and never
// changes afterwards.
func (s *LedgerService) OpenAccount(ctx context.Context, kind domain.Kind, ownerID string, opening decimal.Decimal) (domain.Depositor, error) {
	if err := s.validator.ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}

	var account domain.Depositor
	var err error

	switch kind {
	case domain.KindSavings:
		account, err = domain.NewSavingsAccount(ownerID, opening)
	case domain.KindCurrent:
		account, err = domain.NewCurrentAccount(ownerID, opening)
	case domain.KindFixedTerm:
		account, err = domain.NewFixedTermAccount(ownerID, opening, 90*24*time.Hour)
	default:
		return nil, fmt.Errorf("%w: %q", validator.ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	s.metrics.UpdateAccountBalance(account.ID(), string(account.Kind()), account.Balance().InexactFloat64())
	s.logger.InfoContext(ctx, "Account opened",
		slog.String("account_id", account.ID()),
		slog.String("kind", string(kind)),
		slog.String("owner_id", ownerID),
		slog.String("balance", account.Balance().String()))

	return account, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, id string) (domain.Depositor, error) {
	return s.accountRepo.GetByID(ctx, id)
}

func (s *LedgerService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Entry, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	entry := domain.NewEntry(accountID, domain.EntryDeposit, amount)

	if err := s.validator.ValidateDeposit(account.Kind(), amount); err != nil {
		return s.finishFailed(ctx, entry, account, err)
	}

	start := time.Now()
	balance, err := account.Deposit(amount)
	if err != nil {
		return s.finishFailed(ctx, entry, account, err)
	}

	s.metrics.RecordDeposit(time.Since(start))
	return s.finishCompleted(ctx, entry, account, balance)
}

func (s *LedgerService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Entry, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	withdrawer, ok := account.(domain.Withdrawer)
	if !ok {
		return nil, fmt.Errorf("%w: account %s is %s", ErrNotWithdrawable, accountID, account.Kind())
	}

	entry := domain.NewEntry(accountID, domain.EntryWithdrawal, amount)

	if err := s.validator.ValidateAmount(amount); err != nil {
		return s.finishFailed(ctx, entry, account, err)
	}

	start := time.Now()
	balance, err := withdrawer.Withdraw(amount)
	if err != nil {
		return s.finishFailed(ctx, entry, account, err)
	}

	s.metrics.RecordWithdrawal(time.Since(start))
	return s.finishCompleted(ctx, entry, account, balance)
}

func (s *LedgerService) Statement(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	entries, err := s.entryRepo.GetByAccountID(ctx, accountID, limit, offset)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []*domain.Entry{}, nil
		}
		return nil, err
	}
	return entries, nil
}

// DailyWithdrawalVolume sums the completed withdrawals of one account on the
// given calendar day.
func (s *LedgerService) DailyWithdrawalVolume(ctx context.Context, accountID string, date time.Time) (decimal.Decimal, error) {
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return decimal.Zero, err
	}
	return s.entryRepo.DailyVolume(ctx, accountID, domain.EntryWithdrawal, date)
}

func (s *LedgerService) finishCompleted(ctx context.Context, entry *domain.Entry, account domain.Depositor, balance decimal.Decimal) (*domain.Entry, error) {
	entry.Completed(balance)

	score, flags := s.detector.AnalyzeEntry(entry)
	entry.RiskScore = score
	for _, flag := range flags {
		entry.AddFlag(flag)
	}
	s.metrics.RecordAnomalyScore(score)

	if err := s.entryRepo.Save(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save entry: %w", err)
	}

	s.metrics.UpdateAccountBalance(account.ID(), string(account.Kind()), balance.InexactFloat64())

	if score >= alertScoreThreshold && s.alerter != nil {
		_ = s.alerter.Alert(ctx, "critical", "Anomalous operation",
			fmt.Sprintf("%s of %s scored %d", entry.Type, entry.Amount, score),
			map[string]string{"account_id": entry.AccountID, "entry_id": entry.ID})
	}

	s.logger.InfoContext(ctx, "Operation completed",
		slog.String("account_id", account.ID()),
		slog.String("type", string(entry.Type)),
		slog.String("amount", entry.Amount.String()),
		slog.String("balance", balance.String()))

	return entry, nil
}

// finishFailed records the failed attempt and returns both the entry and the
// operation error so the API can map it to a status code.
func (s *LedgerService) finishFailed(ctx context.Context, entry *domain.Entry, account domain.Depositor, opErr error) (*domain.Entry, error) {
	entry.Failed(opErr.Error(), account.Balance())

	if err := s.entryRepo.Save(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save entry: %w", err)
	}

	s.metrics.RecordFailure(string(entry.Type), failureReason(opErr))

	if errors.Is(opErr, domain.ErrInsufficientFunds) && s.alerter != nil {
		_ = s.alerter.Alert(ctx, "warning", "Insufficient funds",
			fmt.Sprintf("withdrawal of %s rejected, balance %s", entry.Amount, entry.BalanceAfter),
			map[string]string{"account_id": entry.AccountID, "entry_id": entry.ID})
	}

	s.logger.WarnContext(ctx, "Operation failed",
		slog.String("account_id", account.ID()),
		slog.String("type", string(entry.Type)),
		slog.String("amount", entry.Amount.String()),
		slog.String("error", opErr.Error()))

	return entry, opErr
}
