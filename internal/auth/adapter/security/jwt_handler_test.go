package security

import (
	"context"
	"testing"
	"time"

	"gym-assistant/internal/auth/config"
	"gym-assistant/internal/auth/domain/repository"
	apperrors "gym-assistant/internal/shared/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type JWTTestSuite struct {
	suite.Suite
	config  *config.Config
	service *JWTokenService
}

func (suite *JWTTestSuite) SetupTest() {
	suite.config = config.DefaultConfig()
	suite.config.JWTSecretKey = "test-secret-key-32-characters-long-12345"
	suite.config.JWTIssuer = "test-issuer"

	service, err := NewJWTokenService(suite.config)
	require.NoError(suite.T(), err)
	suite.service = service
}

func TestJWTTestSuite(t *testing.T) {
	suite.Run(t, new(JWTTestSuite))
}

func (suite *JWTTestSuite) TestNewJWTokenService_ValidationErrors() {
	testCases := []struct {
		name         string
		modifyConfig func(*config.Config)
		expectedErr  string
	}{
		{"empty secret key", func(cfg *config.Config) { cfg.JWTSecretKey = "" }, "jwt secret key cannot be empty"},
		{"empty issuer", func(cfg *config.Config) { cfg.JWTIssuer = "" }, "jwt issuer cannot be empty"},
		{"zero session TTL", func(cfg *config.Config) { cfg.SessionTokenTTL = 0 }, "jwt token TTL must be positive"},
		{"negative reset TTL", func(cfg *config.Config) { cfg.ResetTokenTTL = -time.Minute }, "jwt token TTL must be positive"},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			cfg := *suite.config
			tc.modifyConfig(&cfg)
			service, err := NewJWTokenService(&cfg)
			assert.Nil(suite.T(), service)
			assert.EqualError(suite.T(), err, tc.expectedErr)
		})
	}
}

func (suite *JWTTestSuite) TestGenerateAndValidate() {
	ctx := context.Background()
	token, err := suite.service.GenerateToken(ctx, "user-1", "a@example.com", repository.PurposeSession)
	require.NoError(suite.T(), err)

	claims, err := suite.service.ValidateToken(ctx, token, repository.PurposeSession)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "user-1", claims.UserID)
	assert.Equal(suite.T(), "a@example.com", claims.Email)
	assert.Equal(suite.T(), "test-issuer", claims.Issuer)
	assert.Equal(suite.T(), repository.PurposeSession, claims.Purpose)
}

func (suite *JWTTestSuite) TestPurposeMismatch() {
	ctx := context.Background()
	token, err := suite.service.GenerateToken(ctx, "user-1", "a@example.com", repository.PurposePasswordReset)
	require.NoError(suite.T(), err)

	_, err = suite.service.ValidateToken(ctx, token, repository.PurposeSession)
	assert.ErrorIs(suite.T(), err, ErrTokenPurpose)

	_, err = suite.service.GenerateToken(ctx, "user-1", "a@example.com", "refresh")
	assert.ErrorIs(suite.T(), err, ErrTokenPurpose)
}

func (suite *JWTTestSuite) TestExpiredToken() {
	ctx := context.Background()
	issued := time.Now().Add(-2 * time.Hour)
	suite.service.now = func() time.Time { return issued }
	token, err := suite.service.GenerateToken(ctx, "user-1", "a@example.com", repository.PurposePasswordReset)
	require.NoError(suite.T(), err)

	suite.service.now = time.Now
	_, err = suite.service.ValidateToken(ctx, token, repository.PurposePasswordReset)
	assert.ErrorIs(suite.T(), err, ErrTokenExpired)
}

func (suite *JWTTestSuite) TestInvalidTokens() {
	ctx := context.Background()

	_, err := suite.service.ValidateToken(ctx, "", repository.PurposeSession)
	assert.ErrorIs(suite.T(), err, ErrTokenInvalid)

	_, err = suite.service.ValidateToken(ctx, "not.a.token", repository.PurposeSession)
	assert.ErrorIs(suite.T(), err, ErrTokenInvalid)

	other := *suite.config
	other.JWTSecretKey = "another-secret-key-32-characters-long-1"
	otherService, err := NewJWTokenService(&other)
	require.NoError(suite.T(), err)
	token, err := otherService.GenerateToken(ctx, "user-1", "a@example.com", repository.PurposeSession)
	require.NoError(suite.T(), err)
	_, err = suite.service.ValidateToken(ctx, token, repository.PurposeSession)
	assert.ErrorIs(suite.T(), err, ErrTokenSignatureInvalid)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &repository.Claims{Purpose: repository.PurposeSession})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(suite.T(), err)
	_, err = suite.service.ValidateToken(ctx, unsigned, repository.PurposeSession)
	assert.Error(suite.T(), err)
}

func (suite *JWTTestSuite) TestValidationErrorsAreAuthenticationFailures() {
	for _, err := range []error{ErrTokenInvalid, ErrTokenSignatureInvalid, ErrTokenPurpose} {
		assert.ErrorIs(suite.T(), err, apperrors.ErrInvalidToken)
		assert.True(suite.T(), apperrors.IsAuthentication(err))
	}
	assert.ErrorIs(suite.T(), ErrTokenExpired, apperrors.ErrTokenExpired)
	assert.Equal(suite.T(), 401, apperrors.HTTPStatus(ErrTokenExpired))
}
