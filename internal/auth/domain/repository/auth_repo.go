package repository

import (
	"context"

	"gym-assistant/internal/auth/domain/model"
)

// AccountRepository stores the accounts of the local identity provider.
type AccountRepository interface {
	// Create fails with errors.ErrConflict when the email is taken.
	Create(ctx context.Context, account *model.Account) error
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
	Update(ctx context.Context, account *model.Account) error
}
