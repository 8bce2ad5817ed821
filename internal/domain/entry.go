package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryType string
type EntryStatus string

const (
	EntryDeposit    EntryType = "deposit"
	EntryWithdrawal EntryType = "withdrawal"

	EntryCompleted EntryStatus = "completed"
	EntryFailed    EntryStatus = "failed"
)

// Entry is the ledger record of a single deposit or withdrawal attempt.
type Entry struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	Type          EntryType       `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Status        EntryStatus     `json:"status"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Flags         []string        `json:"flags,omitempty"`
	RiskScore     int             `json:"risk_score"`
	CreatedAt     time.Time       `json:"created_at"`
}

func NewEntry(accountID string, entryType EntryType, amount decimal.Decimal) *Entry {
	return &Entry{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Type:      entryType,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
}

func (e *Entry) Completed(balanceAfter decimal.Decimal) *Entry {
	e.Status = EntryCompleted
	e.BalanceAfter = balanceAfter
	return e
}

func (e *Entry) Failed(reason string, balance decimal.Decimal) *Entry {
	e.Status = EntryFailed
	e.FailureReason = reason
	e.BalanceAfter = balance
	return e
}

func (e *Entry) AddFlag(flag string) {
	e.Flags = append(e.Flags, flag)
}
