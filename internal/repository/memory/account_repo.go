package memory

import (
	"context"
	"fmt"
	"sync"

	"account_ledger/internal/domain"
	"account_ledger/internal/repository"
)

type AccountRepository struct {
	mu         sync.RWMutex
	accounts   map[string]domain.Depositor
	ownerIndex map[string][]string
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts:   make(map[string]domain.Depositor),
		ownerIndex: make(map[string][]string),
	}
}

func (r *AccountRepository) Save(ctx context.Context, account domain.Depositor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.ID()]; exists {
		return fmt.Errorf("%w: account %s", repository.ErrDuplicate, account.ID())
	}

	r.accounts[account.ID()] = account
	r.ownerIndex[account.OwnerID()] = append(r.ownerIndex[account.OwnerID()], account.ID())

	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (domain.Depositor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return nil, fmt.Errorf("%w: account %s", repository.ErrNotFound, id)
	}
	return account, nil
}

func (r *AccountRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]domain.Depositor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accountIDs, exists := r.ownerIndex[ownerID]
	if !exists {
		return nil, fmt.Errorf("%w: owner %s", repository.ErrNotFound, ownerID)
	}

	var result []domain.Depositor
	for _, id := range accountIDs {
		if account, exists := r.accounts[id]; exists {
			result = append(result, account)
		}
	}

	return result, nil
}

func (r *AccountRepository) GetByKind(ctx context.Context, kind domain.Kind) ([]domain.Depositor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Depositor
	for _, account := range r.accounts {
		if account.Kind() == kind {
			result = append(result, account)
		}
	}

	return result, nil
}

func (r *AccountRepository) All(ctx context.Context) ([]domain.Depositor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Depositor, 0, len(r.accounts))
	for _, account := range r.accounts {
		result = append(result, account)
	}

	return result, nil
}

// Withdrawable returns the subset of accounts whose type carries the withdraw
// capability. The check is a type assertion: capability is a property of the
// account's type, fixed at construction.
func (r *AccountRepository) Withdrawable(ctx context.Context) ([]domain.Withdrawer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Withdrawer
	for _, account := range r.accounts {
		if w, ok := account.(domain.Withdrawer); ok {
			result = append(result, w)
		}
	}

	return result, nil
}
