package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"account_ledger/internal/domain"
)

type AccountRepository interface {
	Save(ctx context.Context, account domain.Depositor) error
	GetByID(ctx context.Context, id string) (domain.Depositor, error)
	GetByOwnerID(ctx context.Context, ownerID string) ([]domain.Depositor, error)
	GetByKind(ctx context.Context, kind domain.Kind) ([]domain.Depositor, error)
	All(ctx context.Context) ([]domain.Depositor, error)
	Withdrawable(ctx context.Context) ([]domain.Withdrawer, error)
}

type EntryRepository interface {
	Save(ctx context.Context, entry *domain.Entry) error
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	GetByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
	GetByStatus(ctx context.Context, status domain.EntryStatus) ([]*domain.Entry, error)
	GetByPeriod(ctx context.Context, from, to time.Time) ([]*domain.Entry, error)
	DailyVolume(ctx context.Context, accountID string, entryType domain.EntryType, date time.Time) (decimal.Decimal, error)
}

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)
