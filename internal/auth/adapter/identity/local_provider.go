package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gym-assistant/internal/auth/config"
	"gym-assistant/internal/auth/domain/model"
	"gym-assistant/internal/auth/domain/repository"
	apperrors "gym-assistant/internal/shared/errors"
	"gym-assistant/internal/shared/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ResetSender delivers a password reset token out of band.
type ResetSender func(ctx context.Context, email, token string) error

// LocalProvider is an identity provider backed by an AccountRepository.
// It keeps one signed-in account per process, like a client SDK.
type LocalProvider struct {
	accounts repository.AccountRepository
	tokens   repository.TokenService
	logger   logger.Logger

	bcryptCost        int
	minPasswordLength int
	signInRate        rate.Limit
	signInBurst       int
	sendReset         ResetSender

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter

	mu           sync.RWMutex
	current      *model.Account
	sessionToken string

	listeners *listeners
}

// LocalOption configures a LocalProvider.
type LocalOption func(*LocalProvider)

// WithResetSender replaces the default reset delivery, which only logs.
func WithResetSender(send ResetSender) LocalOption {
	return func(p *LocalProvider) { p.sendReset = send }
}

// NewLocalProvider creates a provider with nobody signed in.
func NewLocalProvider(accounts repository.AccountRepository, tokens repository.TokenService, cfg *config.Config, log logger.Logger, opts ...LocalOption) *LocalProvider {
	p := &LocalProvider{
		accounts:          accounts,
		tokens:            tokens,
		logger:            logger.OrNop(log).WithComponent("identity"),
		bcryptCost:        cfg.BcryptCost,
		minPasswordLength: cfg.MinPasswordLength,
		signInRate:        rate.Limit(cfg.SignInRate),
		signInBurst:       cfg.SignInBurst,
		limiters:          make(map[string]*rate.Limiter),
		listeners:         newListeners(),
	}
	p.sendReset = func(ctx context.Context, email, token string) error {
		p.logger.Infof("password reset requested for %s", email)
		return nil
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *LocalProvider) currentAccount() *model.Account {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *LocalProvider) setCurrent(account *model.Account, token string) {
	p.mu.Lock()
	p.current = copyAccount(account)
	p.sessionToken = token
	p.mu.Unlock()
	p.listeners.notify(p.currentAccount)
}

// SessionToken returns the token of the signed-in account, or "".
func (p *LocalProvider) SessionToken() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sessionToken
}

// CreateAccount registers an account and signs it in.
func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string) (*model.Account, error) {
	email = normalizeEmail(email)
	if !emailRegex.MatchString(email) {
		return nil, model.NewProviderError(model.ProviderCodeInvalidEmail, "The email address is badly formatted.")
	}
	if len(password) < p.minPasswordLength {
		return nil, model.NewProviderError(model.ProviderCodeWeakPassword,
			fmt.Sprintf("Password should be at least %d characters.", p.minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.bcryptCost)
	if err != nil {
		return nil, internalError("hash password", err)
	}
	account := &model.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, model.NewProviderError(model.ProviderCodeEmailInUse, "The email address is already in use by another account.")
		}
		return nil, internalError("create account", err)
	}

	token, err := p.tokens.GenerateToken(ctx, account.ID, account.Email, repository.PurposeSession)
	if err != nil {
		return nil, internalError("issue session token", err)
	}
	p.logger.Infof("account created: %s", account.ID)
	p.setCurrent(account, token)
	return copyAccount(account), nil
}

// SetDisplayName renames account. The signed-in state is re-announced when
// account is the current one.
func (p *LocalProvider) SetDisplayName(ctx context.Context, account *model.Account, name string) error {
	if account == nil {
		return model.NewProviderError(model.ProviderCodeUserNotFound, "No account to update.")
	}
	stored, err := p.accounts.GetByID(ctx, account.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			return model.NewProviderError(model.ProviderCodeUserNotFound, "There is no user record corresponding to this identifier.")
		}
		return internalError("load account", err)
	}
	stored.DisplayName = name
	if err := p.accounts.Update(ctx, stored); err != nil {
		return internalError("update account", err)
	}
	account.DisplayName = name

	if cur := p.currentAccount(); cur != nil && cur.ID == stored.ID {
		p.setCurrent(stored, p.SessionToken())
	}
	return nil
}

// SignIn checks the credentials and makes the account current.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*model.Account, error) {
	email = normalizeEmail(email)
	if !emailRegex.MatchString(email) {
		return nil, model.NewProviderError(model.ProviderCodeInvalidEmail, "The email address is badly formatted.")
	}
	if !p.limiter(email).Allow() {
		return nil, model.NewProviderError(model.ProviderCodeTooManyRequests,
			"Access to this account has been temporarily disabled due to many failed login attempts.")
	}

	account, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			return nil, model.NewProviderError(model.ProviderCodeUserNotFound, "There is no user record corresponding to this identifier.")
		}
		return nil, internalError("load account", err)
	}
	if account.Disabled {
		return nil, model.NewProviderError(model.ProviderCodeUserDisabled, "The user account has been disabled by an administrator.")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewProviderError(model.ProviderCodeWrongPassword, "The password is invalid.")
	}

	token, err := p.tokens.GenerateToken(ctx, account.ID, account.Email, repository.PurposeSession)
	if err != nil {
		return nil, internalError("issue session token", err)
	}
	p.forgetLimiter(email)
	p.setCurrent(account, token)
	return copyAccount(account), nil
}

// SignOut clears the current account.
func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.setCurrent(nil, "")
	return nil
}

// SendPasswordReset issues a reset token for a known address. Unknown
// addresses succeed silently.
func (p *LocalProvider) SendPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if !emailRegex.MatchString(email) {
		return model.NewProviderError(model.ProviderCodeInvalidEmail, "The email address is badly formatted.")
	}
	account, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			p.logger.Debugf("password reset for unknown address %s ignored", email)
			return nil
		}
		return internalError("load account", err)
	}

	token, err := p.tokens.GenerateToken(ctx, account.ID, account.Email, repository.PurposePasswordReset)
	if err != nil {
		return internalError("issue reset token", err)
	}
	if err := p.sendReset(ctx, account.Email, token); err != nil {
		return internalError("send reset", err)
	}
	return nil
}

// ConfirmPasswordReset sets a new password using a token from
// SendPasswordReset.
func (p *LocalProvider) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	claims, err := p.tokens.ValidateToken(ctx, token, repository.PurposePasswordReset)
	if err != nil {
		return model.NewProviderError("auth/invalid-action-code", "The password reset link is invalid or has expired.")
	}
	if len(newPassword) < p.minPasswordLength {
		return model.NewProviderError(model.ProviderCodeWeakPassword,
			fmt.Sprintf("Password should be at least %d characters.", p.minPasswordLength))
	}
	account, err := p.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		return model.NewProviderError(model.ProviderCodeUserNotFound, "There is no user record corresponding to this identifier.")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.bcryptCost)
	if err != nil {
		return internalError("hash password", err)
	}
	account.PasswordHash = string(hash)
	if err := p.accounts.Update(ctx, account); err != nil {
		return internalError("update account", err)
	}
	p.forgetLimiter(account.Email)
	return nil
}

// Restore makes the account behind a session token current, as after an
// application restart.
func (p *LocalProvider) Restore(ctx context.Context, token string) error {
	claims, err := p.tokens.ValidateToken(ctx, token, repository.PurposeSession)
	if err != nil {
		return model.NewProviderError(model.ProviderCodeInvalidCredential, "The session has expired. Please sign in again.")
	}
	account, err := p.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		return model.NewProviderError(model.ProviderCodeUserNotFound, "There is no user record corresponding to this identifier.")
	}
	if account.Disabled {
		return model.NewProviderError(model.ProviderCodeUserDisabled, "The user account has been disabled by an administrator.")
	}
	p.setCurrent(account, token)
	return nil
}

// OnAuthStateChanged registers fn and calls it with the current account.
func (p *LocalProvider) OnAuthStateChanged(fn func(*model.Account)) func() {
	return p.listeners.add(fn, p.currentAccount)
}

func (p *LocalProvider) limiter(email string) *rate.Limiter {
	p.limitersMu.Lock()
	defer p.limitersMu.Unlock()
	l, ok := p.limiters[email]
	if !ok {
		l = rate.NewLimiter(p.signInRate, p.signInBurst)
		p.limiters[email] = l
	}
	return l
}

func (p *LocalProvider) forgetLimiter(email string) {
	p.limitersMu.Lock()
	defer p.limitersMu.Unlock()
	delete(p.limiters, email)
}

func internalError(op string, err error) *model.ProviderError {
	return &model.ProviderError{
		Code:    model.ProviderCodeInternal,
		Message: fmt.Sprintf("%s: %v", op, err),
		Err:     err,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ repository.IdentityProvider = (*LocalProvider)(nil)
