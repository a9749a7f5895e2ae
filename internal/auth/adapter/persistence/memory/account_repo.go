package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"gym-assistant/internal/auth/domain/model"
	"gym-assistant/internal/auth/domain/repository"
	apperrors "gym-assistant/internal/shared/errors"
)

// AccountRepository keeps accounts in process memory.
type AccountRepository struct {
	mu      sync.RWMutex
	byID    map[string]*model.Account
	byEmail map[string]string
}

// NewAccountRepository creates an empty repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:    make(map[string]*model.Account),
		byEmail: make(map[string]string),
	}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	if account == nil {
		return errors.New("account cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	account.Email = normalizeEmail(account.Email)
	if _, taken := r.byEmail[account.Email]; taken {
		return apperrors.ErrConflict
	}
	if _, taken := r.byID[account.ID]; taken {
		return apperrors.ErrConflict
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	stored := *account
	r.byID[account.ID] = &stored
	r.byEmail[account.Email] = account.ID
	return nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, apperrors.ErrAccountNotFound
	}
	return r.copyOf(id)
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(id)
}

func (r *AccountRepository) copyOf(id string) (*model.Account, error) {
	account, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (r *AccountRepository) Update(ctx context.Context, account *model.Account) error {
	if account == nil {
		return errors.New("account cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[account.ID]
	if !ok {
		return apperrors.ErrAccountNotFound
	}
	account.UpdatedAt = time.Now().UTC()
	stored := *account
	stored.Email = existing.Email
	stored.CreatedAt = existing.CreatedAt
	r.byID[account.ID] = &stored
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
