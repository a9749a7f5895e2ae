package repository

import (
	"context"

	"gym-assistant/internal/auth/domain/model"
)

// IdentityProvider is the external authority for accounts and the current
// sign-in. Failures are reported as *model.ProviderError.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, email, password string) (*model.Account, error)
	SetDisplayName(ctx context.Context, account *model.Account, name string) error
	SignIn(ctx context.Context, email, password string) (*model.Account, error)
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error

	// OnAuthStateChanged calls fn with the current account (nil when signed
	// out) once at registration and again after every change, in order.
	// The returned func removes fn.
	OnAuthStateChanged(fn func(*model.Account)) (cancel func())
}
