package http_test

import (
	"context"

	"gym-assistant/internal/auth/domain/model"
	"gym-assistant/internal/auth/domain/repository"

	"github.com/stretchr/testify/mock"
)

type mockSession struct {
	mock.Mock
}

func (m *mockSession) SignUp(ctx context.Context, email, password, displayName string) model.Result {
	return m.Called(ctx, email, password, displayName).Get(0).(model.Result)
}

func (m *mockSession) SignIn(ctx context.Context, email, password string) model.Result {
	return m.Called(ctx, email, password).Get(0).(model.Result)
}

func (m *mockSession) SignOut(ctx context.Context) model.Result {
	return m.Called(ctx).Get(0).(model.Result)
}

func (m *mockSession) ResetPassword(ctx context.Context, email string) model.Result {
	return m.Called(ctx, email).Get(0).(model.Result)
}

func (m *mockSession) ClearError() {
	m.Called()
}

func (m *mockSession) Snapshot() model.Session {
	return m.Called().Get(0).(model.Session)
}

func (m *mockSession) WaitInitialized(ctx context.Context) (model.Session, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.Session), args.Error(1)
}

type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) GenerateToken(ctx context.Context, userID, email, purpose string) (string, error) {
	args := m.Called(ctx, userID, email, purpose)
	return args.String(0), args.Error(1)
}

func (m *mockTokens) ValidateToken(ctx context.Context, token, purpose string) (*repository.Claims, error) {
	args := m.Called(ctx, token, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Claims), args.Error(1)
}

type staticToken string

func (s staticToken) SessionToken() string { return string(s) }

type mockResets struct {
	mock.Mock
}

func (m *mockResets) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	return m.Called(ctx, token, newPassword).Error(0)
}
