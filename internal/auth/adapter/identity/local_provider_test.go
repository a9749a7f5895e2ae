package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gym-assistant/internal/auth/adapter/persistence/memory"
	"gym-assistant/internal/auth/adapter/security"
	"gym-assistant/internal/auth/config"
	"gym-assistant/internal/auth/domain/model"
	"gym-assistant/internal/auth/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type recorder struct {
	mu     sync.Mutex
	states []*model.Account
}

func (r *recorder) record(a *model.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, a)
}

func (r *recorder) last() *model.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[len(r.states)-1]
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

type LocalProviderSuite struct {
	suite.Suite
	cfg      *config.Config
	accounts *memory.AccountRepository
	provider *LocalProvider
	resets   map[string]string
}

func (s *LocalProviderSuite) SetupTest() {
	s.cfg = config.DefaultConfig()
	s.cfg.BcryptCost = bcrypt.MinCost
	s.accounts = memory.NewAccountRepository()
	tokens, err := security.NewJWTokenService(s.cfg)
	s.Require().NoError(err)

	s.resets = make(map[string]string)
	s.provider = NewLocalProvider(s.accounts, tokens, s.cfg, nil,
		WithResetSender(func(_ context.Context, email, token string) error {
			s.resets[email] = token
			return nil
		}))
}

func TestLocalProviderSuite(t *testing.T) {
	suite.Run(t, new(LocalProviderSuite))
}

func providerCode(err error) string {
	var perr *model.ProviderError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return ""
}

func (s *LocalProviderSuite) TestCreateAccountSignsIn() {
	rec := &recorder{}
	stop := s.provider.OnAuthStateChanged(rec.record)
	defer stop()
	s.Equal(1, rec.len())
	s.Nil(rec.last())

	account, err := s.provider.CreateAccount(context.Background(), "Lifter@Example.com", "secret1")
	s.Require().NoError(err)
	s.Equal("lifter@example.com", account.Email)
	s.Empty(account.PasswordHash)
	s.NotEmpty(s.provider.SessionToken())

	s.Equal(2, rec.len())
	s.Equal(account.ID, rec.last().ID)
	s.Empty(rec.last().PasswordHash)
}

func (s *LocalProviderSuite) TestCreateAccountErrors() {
	ctx := context.Background()
	_, err := s.provider.CreateAccount(ctx, "not-an-email", "secret1")
	s.Equal(model.ProviderCodeInvalidEmail, providerCode(err))

	_, err = s.provider.CreateAccount(ctx, "a@example.com", "12345")
	s.Equal(model.ProviderCodeWeakPassword, providerCode(err))

	_, err = s.provider.CreateAccount(ctx, "a@example.com", "secret1")
	s.Require().NoError(err)
	_, err = s.provider.CreateAccount(ctx, "A@example.com", "secret2")
	s.Equal(model.ProviderCodeEmailInUse, providerCode(err))
}

func (s *LocalProviderSuite) TestSignInErrors() {
	ctx := context.Background()
	_, err := s.provider.SignIn(ctx, "nobody@example.com", "secret1")
	s.Equal(model.ProviderCodeUserNotFound, providerCode(err))

	account, err := s.provider.CreateAccount(ctx, "a@example.com", "secret1")
	s.Require().NoError(err)
	s.Require().NoError(s.provider.SignOut(ctx))

	_, err = s.provider.SignIn(ctx, "a@example.com", "wrong-pass")
	s.Equal(model.ProviderCodeWrongPassword, providerCode(err))

	stored, err := s.accounts.GetByID(ctx, account.ID)
	s.Require().NoError(err)
	stored.Disabled = true
	s.Require().NoError(s.accounts.Update(ctx, stored))
	_, err = s.provider.SignIn(ctx, "a@example.com", "secret1")
	s.Equal(model.ProviderCodeUserDisabled, providerCode(err))
}

func (s *LocalProviderSuite) TestSignInRateLimited() {
	ctx := context.Background()
	_, err := s.provider.CreateAccount(ctx, "a@example.com", "secret1")
	s.Require().NoError(err)

	for i := 0; i < s.cfg.SignInBurst; i++ {
		_, err = s.provider.SignIn(ctx, "a@example.com", "wrong-pass")
		s.Equal(model.ProviderCodeWrongPassword, providerCode(err))
	}
	_, err = s.provider.SignIn(ctx, "a@example.com", "secret1")
	s.Equal(model.ProviderCodeTooManyRequests, providerCode(err))
}

func (s *LocalProviderSuite) TestSignOutNotifiesAnonymous() {
	ctx := context.Background()
	_, err := s.provider.CreateAccount(ctx, "a@example.com", "secret1")
	s.Require().NoError(err)

	rec := &recorder{}
	defer s.provider.OnAuthStateChanged(rec.record)()
	s.NotNil(rec.last())

	s.Require().NoError(s.provider.SignOut(ctx))
	s.Nil(rec.last())
	s.Empty(s.provider.SessionToken())
}

func (s *LocalProviderSuite) TestPasswordResetFlow() {
	ctx := context.Background()
	_, err := s.provider.CreateAccount(ctx, "a@example.com", "secret1")
	s.Require().NoError(err)
	s.Require().NoError(s.provider.SignOut(ctx))

	s.NoError(s.provider.SendPasswordReset(ctx, "unknown@example.com"))
	s.Empty(s.resets)

	s.Require().NoError(s.provider.SendPasswordReset(ctx, "a@example.com"))
	token := s.resets["a@example.com"]
	s.Require().NotEmpty(token)

	err = s.provider.ConfirmPasswordReset(ctx, s.provider.SessionToken()+"x", "newsecret")
	s.Equal("auth/invalid-action-code", providerCode(err))

	s.Require().NoError(s.provider.ConfirmPasswordReset(ctx, token, "newsecret"))
	_, err = s.provider.SignIn(ctx, "a@example.com", "secret1")
	s.Equal(model.ProviderCodeWrongPassword, providerCode(err))
	_, err = s.provider.SignIn(ctx, "a@example.com", "newsecret")
	s.NoError(err)
}

func (s *LocalProviderSuite) TestRestoreSession() {
	ctx := context.Background()
	account, err := s.provider.CreateAccount(ctx, "a@example.com", "secret1")
	s.Require().NoError(err)
	token := s.provider.SessionToken()
	s.Require().NoError(s.provider.SignOut(ctx))

	s.Require().NoError(s.provider.Restore(ctx, token))
	s.Equal(account.ID, s.provider.currentAccount().ID)

	err = s.provider.Restore(ctx, "garbage")
	s.Equal(model.ProviderCodeInvalidCredential, providerCode(err))
}

func (s *LocalProviderSuite) TestCancelStopsDelivery() {
	rec := &recorder{}
	stop := s.provider.OnAuthStateChanged(rec.record)
	stop()
	stop()
	s.Equal(0, s.provider.listeners.count())

	_, err := s.provider.CreateAccount(context.Background(), "a@example.com", "secret1")
	s.Require().NoError(err)
	s.Equal(1, rec.len())
}

func TestLocalProviderWithSessionStore(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost
	tokens, err := security.NewJWTokenService(cfg)
	require.NoError(t, err)
	provider := NewLocalProvider(memory.NewAccountRepository(), tokens, cfg, nil)

	store, err := usecase.NewSessionStore(provider)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	snap, err := store.WaitInitialized(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap.CurrentUser)

	result := store.SignUp(ctx, "lifter@example.com", "secret1", "Lifter")
	require.True(t, result.Success)
	snap = store.Snapshot()
	require.NotNil(t, snap.CurrentUser)
	assert.Equal(t, "Lifter", snap.CurrentUser.DisplayName)

	result = store.SignUp(ctx, "lifter@example.com", "secret1", "")
	require.False(t, result.Success)
	assert.Equal(t, "This email is already registered. Please login instead.", result.Error.Message)

	require.True(t, store.SignOut(ctx).Success)
	assert.False(t, store.IsAuthenticated())

	result = store.SignIn(ctx, "lifter@example.com", "wrong-pass")
	assert.Equal(t, model.ErrorBadCredential, result.Error.Code)
	assert.Equal(t, "Incorrect password.", store.Snapshot().Error)

	require.True(t, store.SignIn(ctx, "lifter@example.com", "secret1").Success)
	assert.True(t, store.IsAuthenticated())
	assert.Empty(t, store.Snapshot().Error)
}
