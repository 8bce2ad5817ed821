package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindSavings   Kind = "savings"
	KindCurrent   Kind = "current"
	KindFixedTerm Kind = "fixed_term"
)

// Depositor is the capability every account has: funds can always be added.
type Depositor interface {
	ID() string
	OwnerID() string
	Kind() Kind
	Balance() decimal.Decimal
	Deposit(amount decimal.Decimal) (decimal.Decimal, error)
}

// Withdrawer is the capability of accounts that also allow taking funds out.
// Every implementation honors the same contract: a withdrawal of amount a
// succeeds exactly when balance >= a, and the balance never goes negative.
// An account type that cannot honor that contract must not implement this
// interface; it stays a plain Depositor.
type Withdrawer interface {
	Depositor
	Withdraw(amount decimal.Decimal) (decimal.Decimal, error)
}

// account carries the state shared by all variants. The mutex serializes
// balance mutations so the invariant balance >= 0 holds at all observable
// times, including under concurrent API calls.
type account struct {
	id             string
	ownerID        string
	kind           Kind
	mu             sync.Mutex
	balance        decimal.Decimal
	createdAt      time.Time
	lastActivityAt time.Time
}

// init populates the embedded base in place. The struct carries a mutex and
// must never be copied, so constructors allocate first and fill afterwards.
func (a *account) init(ownerID string, kind Kind, opening decimal.Decimal) error {
	if opening.IsNegative() {
		return fmt.Errorf("%w: opening balance %s", ErrInvalidConstruction, opening)
	}

	now := time.Now()
	a.id = uuid.NewString()
	a.ownerID = ownerID
	a.kind = kind
	a.balance = opening
	a.createdAt = now
	a.lastActivityAt = now
	return nil
}

func (a *account) ID() string      { return a.id }
func (a *account) OwnerID() string { return a.ownerID }
func (a *account) Kind() Kind      { return a.kind }

func (a *account) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

func (a *account) CreatedAt() time.Time { return a.createdAt }

func (a *account) LastActivityAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastActivityAt
}

// Deposit adds amount to the balance and returns the new balance. It succeeds
// for any positive amount and never decreases the balance.
func (a *account) Deposit(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return a.Balance(), fmt.Errorf("%w: deposit of %s", ErrInvalidAmount, amount)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.balance = a.balance.Add(amount)
	a.lastActivityAt = time.Now()
	return a.balance, nil
}

// SavingsAccount supports deposits and withdrawals.
type SavingsAccount struct {
	account
}

func NewSavingsAccount(ownerID string, opening decimal.Decimal) (*SavingsAccount, error) {
	a := &SavingsAccount{}
	if err := a.init(ownerID, KindSavings, opening); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *SavingsAccount) Withdraw(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return a.Balance(), fmt.Errorf("%w: withdrawal of %s", ErrInvalidAmount, amount)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.balance.LessThan(amount) {
		return a.balance, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, a.balance, amount)
	}

	a.balance = a.balance.Sub(amount)
	a.lastActivityAt = time.Now()
	return a.balance, nil
}

// CurrentAccount supports deposits and withdrawals under the same contract as
// SavingsAccount. The implementations differ; the observable behavior must not.
type CurrentAccount struct {
	account
}

func NewCurrentAccount(ownerID string, opening decimal.Decimal) (*CurrentAccount, error) {
	a := &CurrentAccount{}
	if err := a.init(ownerID, KindCurrent, opening); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *CurrentAccount) Withdraw(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return a.Balance(), fmt.Errorf("%w: withdrawal of %s", ErrInvalidAmount, amount)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	remaining := a.balance.Sub(amount)
	if remaining.IsNegative() {
		return a.balance, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, a.balance, amount)
	}

	a.balance = remaining
	a.lastActivityAt = time.Now()
	return a.balance, nil
}

// FixedTermAccount only accepts deposits. The type does not implement
// Withdrawer, so it can never enter a withdraw-capable collection.
type FixedTermAccount struct {
	account
	maturesAt time.Time
}

func NewFixedTermAccount(ownerID string, opening decimal.Decimal, term time.Duration) (*FixedTermAccount, error) {
	a := &FixedTermAccount{}
	if err := a.init(ownerID, KindFixedTerm, opening); err != nil {
		return nil, err
	}
	a.maturesAt = a.createdAt.Add(term)
	return a, nil
}

func (a *FixedTermAccount) MaturesAt() time.Time { return a.maturesAt }
