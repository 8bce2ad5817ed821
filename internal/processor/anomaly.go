package processor

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"account_ledger/internal/domain"
)

type AnomalyDetector struct {
	patterns []AnomalyPattern
	mu       sync.Mutex
	lastSeen map[string]time.Time
}

type AnomalyPattern struct {
	Name        string
	Description string
	Detect      func(*domain.Entry) (bool, string)
	Weight      int
}

func NewAnomalyDetector() *AnomalyDetector {
	ad := &AnomalyDetector{
		lastSeen: make(map[string]time.Time),
	}
	ad.patterns = []AnomalyPattern{
		{
			Name:        "large_amount",
			Description: "Operation amount exceeds threshold",
			Detect: func(e *domain.Entry) (bool, string) {
				return e.Amount.GreaterThan(decimal.NewFromInt(10000)), "large_amount"
			},
			Weight: 30,
		},
		{
			Name:        "balance_drain",
			Description: "Withdrawal empties the account",
			Detect:      ad.detectBalanceDrain,
			Weight:      35,
		},
		{
			Name:        "rapid_operations",
			Description: "Operations on the same account in quick succession",
			Detect:      ad.detectRapidOperations,
			Weight:      25,
		},
	}
	return ad
}

func (ad *AnomalyDetector) AnalyzeEntry(entry *domain.Entry) (int, []string) {
	var score int
	var flags []string

	for _, pattern := range ad.patterns {
		if detected, flag := pattern.Detect(entry); detected {
			score += pattern.Weight
			flags = append(flags, flag)
		}
	}

	if score > 0 {
		score = ad.applyTimeBasedModifiers(entry, score)
	}

	return min(score, 100), flags
}

func (ad *AnomalyDetector) detectBalanceDrain(entry *domain.Entry) (bool, string) {
	drained := entry.Type == domain.EntryWithdrawal &&
		entry.Status == domain.EntryCompleted &&
		entry.BalanceAfter.IsZero() &&
		entry.Amount.GreaterThanOrEqual(decimal.NewFromInt(1000))
	return drained, "balance_drain"
}

func (ad *AnomalyDetector) detectRapidOperations(entry *domain.Entry) (bool, string) {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	last, seen := ad.lastSeen[entry.AccountID]
	ad.lastSeen[entry.AccountID] = entry.CreatedAt

	return seen && entry.CreatedAt.Sub(last) < time.Second, "rapid_operations"
}

func (ad *AnomalyDetector) applyTimeBasedModifiers(entry *domain.Entry, baseScore int) int {
	hour := entry.CreatedAt.Hour()
	if hour >= 23 || hour <= 5 {
		return baseScore + 15
	}
	return baseScore
}
