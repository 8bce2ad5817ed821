package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"account_ledger/internal/domain"
	"account_ledger/internal/repository"
)

type EntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.Entry
	index   map[string][]string
}

func NewEntryRepository() *EntryRepository {
	return &EntryRepository{
		entries: make(map[string]*domain.Entry),
		index:   make(map[string][]string),
	}
}

func (r *EntryRepository) Save(ctx context.Context, entry *domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.ID]; exists {
		return fmt.Errorf("%w: entry %s", repository.ErrDuplicate, entry.ID)
	}

	r.entries[entry.ID] = entry
	r.index[entry.AccountID] = append(r.index[entry.AccountID], entry.ID)

	return nil
}

func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[id]
	if !exists {
		return nil, fmt.Errorf("%w: entry %s", repository.ErrNotFound, id)
	}
	return entry, nil
}

func (r *EntryRepository) GetByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	if limit < 0 || offset < 0 {
		return []*domain.Entry{}, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, exists := r.index[accountID]
	if !exists {
		return nil, fmt.Errorf("%w: account %s", repository.ErrNotFound, accountID)
	}

	entryIDs := append([]string(nil), ids...)
	sort.Slice(entryIDs, func(i, j int) bool {
		return r.entries[entryIDs[i]].CreatedAt.After(r.entries[entryIDs[j]].CreatedAt)
	})

	start := offset
	end := offset + limit
	if end > len(entryIDs) {
		end = len(entryIDs)
	}
	if start >= len(entryIDs) {
		return []*domain.Entry{}, nil
	}

	var result []*domain.Entry
	for _, id := range entryIDs[start:end] {
		result = append(result, r.entries[id])
	}

	return result, nil
}

func (r *EntryRepository) GetByStatus(ctx context.Context, status domain.EntryStatus) ([]*domain.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Entry
	for _, entry := range r.entries {
		if entry.Status == status {
			result = append(result, entry)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (r *EntryRepository) GetByPeriod(ctx context.Context, from, to time.Time) ([]*domain.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Entry
	for _, entry := range r.entries {
		if !entry.CreatedAt.Before(from) && !entry.CreatedAt.After(to) {
			result = append(result, entry)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (r *EntryRepository) DailyVolume(ctx context.Context, accountID string, entryType domain.EntryType, date time.Time) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	total := decimal.Zero
	for _, entry := range r.entries {
		if entry.AccountID == accountID && entry.Type == entryType &&
			!entry.CreatedAt.Before(startOfDay) && entry.CreatedAt.Before(endOfDay) &&
			entry.Status == domain.EntryCompleted {
			total = total.Add(entry.Amount)
		}
	}

	return total, nil
}
