package validator

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"account_ledger/internal/domain"
)

var (
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrAmountTooLarge    = errors.New("amount exceeds maximum")
	ErrInvalidOwnerID    = errors.New("invalid owner id")
	ErrUnknownKind       = errors.New("unknown account kind")
)

// OperationValidator checks API-level hygiene of operations before they reach
// an account. Ceilings here are per-operation sanity limits, not part of the
// account contract.
type OperationValidator struct {
	ownerIDRegex *regexp.Regexp
	maxDeposit   map[domain.Kind]decimal.Decimal
}

func NewOperationValidator() *OperationValidator {
	return &OperationValidator{
		ownerIDRegex: regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`),
		maxDeposit: map[domain.Kind]decimal.Decimal{
			domain.KindSavings:   decimal.NewFromInt(100000),
			domain.KindCurrent:   decimal.NewFromInt(250000),
			domain.KindFixedTerm: decimal.NewFromInt(1000000),
		},
	}
}

func (v *OperationValidator) ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrNonPositiveAmount, amount)
	}
	return nil
}

func (v *OperationValidator) ValidateDeposit(kind domain.Kind, amount decimal.Decimal) error {
	if err := v.ValidateAmount(amount); err != nil {
		return err
	}

	if max, exists := v.maxDeposit[kind]; exists && amount.GreaterThan(max) {
		return fmt.Errorf("%w for %s: %s > %s", ErrAmountTooLarge, kind, amount, max)
	}

	return nil
}

func (v *OperationValidator) ValidateOwnerID(ownerID string) error {
	if !v.ownerIDRegex.MatchString(ownerID) {
		return fmt.Errorf("%w: %q", ErrInvalidOwnerID, ownerID)
	}
	return nil
}

func (v *OperationValidator) ParseKind(s string) (domain.Kind, error) {
	switch domain.Kind(s) {
	case domain.KindSavings:
		return domain.KindSavings, nil
	case domain.KindCurrent:
		return domain.KindCurrent, nil
	case domain.KindFixedTerm:
		return domain.KindFixedTerm, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}
