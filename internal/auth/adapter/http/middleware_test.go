package http_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	authhttp "gym-assistant/internal/auth/adapter/http"
	"gym-assistant/internal/auth/adapter/security"
	"gym-assistant/internal/auth/domain/model"
	"gym-assistant/internal/auth/domain/repository"
	"gym-assistant/internal/shared/contextkeys"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MiddlewareTestSuite struct {
	suite.Suite
	app     *fiber.App
	session *mockSession
	tokens  *mockTokens
}

func (suite *MiddlewareTestSuite) SetupTest() {
	suite.session = &mockSession{}
	suite.tokens = &mockTokens{}
	suite.app = fiber.New()
}

func TestMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareTestSuite))
}

func signedIn(uid string) model.Session {
	return model.Session{
		CurrentUser: &model.AuthUser{UID: uid, Email: uid + "@example.com"},
		Initialized: true,
		State:       model.StateAuthenticated,
	}
}

func (suite *MiddlewareTestSuite) protectedApp(tokens repository.TokenService) {
	middleware := authhttp.NewAuthMiddleware(suite.session, tokens, "gym_session")
	suite.app.Get("/protected", middleware.Protect(), func(c *fiber.Ctx) error {
		userID, ok := authhttp.GetUserID(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{
			"user_id": userID,
			"ctx_uid": contextkeys.StringValue(c.UserContext(), contextkeys.UserIDKey),
			"auth":    authhttp.IsAuthenticated(c),
		})
	})
}

func (suite *MiddlewareTestSuite) get(header, value string) *http.Response {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	resp, err := suite.app.Test(req)
	require.NoError(suite.T(), err)
	return resp
}

func (suite *MiddlewareTestSuite) TestProtectWithoutTokens() {
	suite.protectedApp(nil)
	suite.session.On("WaitInitialized", mock.Anything).Return(signedIn("u1"), nil)

	resp := suite.get("", "")
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
}

func (suite *MiddlewareTestSuite) TestProtectAnonymous() {
	suite.protectedApp(nil)
	suite.session.On("WaitInitialized", mock.Anything).Return(model.Session{Initialized: true, State: model.StateAnonymous}, nil)

	resp := suite.get("", "")
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)
}

func (suite *MiddlewareTestSuite) TestProtectNotReady() {
	suite.protectedApp(nil)
	suite.session.On("WaitInitialized", mock.Anything).Return(model.Session{}, context.DeadlineExceeded)

	resp := suite.get("", "")
	assert.Equal(suite.T(), http.StatusServiceUnavailable, resp.StatusCode)
}

func (suite *MiddlewareTestSuite) TestProtectRequiresMatchingToken() {
	suite.protectedApp(suite.tokens)
	suite.session.On("WaitInitialized", mock.Anything).Return(signedIn("u1"), nil)
	suite.tokens.On("ValidateToken", mock.Anything, "good", repository.PurposeSession).
		Return(&repository.Claims{UserID: "u1"}, nil)
	suite.tokens.On("ValidateToken", mock.Anything, "other-user", repository.PurposeSession).
		Return(&repository.Claims{UserID: "u2"}, nil)
	suite.tokens.On("ValidateToken", mock.Anything, "expired", repository.PurposeSession).
		Return(nil, security.ErrTokenExpired)

	assert.Equal(suite.T(), http.StatusUnauthorized, suite.get("", "").StatusCode)
	assert.Equal(suite.T(), http.StatusOK, suite.get("Authorization", "Bearer good").StatusCode)
	assert.Equal(suite.T(), http.StatusOK, suite.get("Cookie", "gym_session=good").StatusCode)
	assert.Equal(suite.T(), http.StatusUnauthorized, suite.get("Authorization", "Bearer other-user").StatusCode)
	assert.Equal(suite.T(), http.StatusUnauthorized, suite.get("Authorization", "Bearer expired").StatusCode)
}

func (suite *MiddlewareTestSuite) TestProtectPropagatesUser() {
	suite.protectedApp(nil)
	suite.session.On("WaitInitialized", mock.Anything).Return(signedIn("u7"), nil)

	resp := suite.get("", "")
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(suite.T(), decodeJSON(resp, &body))
	assert.Equal(suite.T(), "u7", body["user_id"])
	assert.Equal(suite.T(), "u7", body["ctx_uid"])
	assert.Equal(suite.T(), true, body["auth"])
}

func (suite *MiddlewareTestSuite) TestOptionalAuth() {
	middleware := authhttp.NewAuthMiddleware(suite.session, nil, "gym_session")
	suite.app.Get("/open", middleware.OptionalAuth(), func(c *fiber.Ctx) error {
		user, ok := authhttp.GetUser(c)
		if !ok {
			return c.SendString("anonymous")
		}
		return c.SendString(user.UID)
	})
	suite.session.On("Snapshot").Return(model.Session{Initialized: true}).Once()
	suite.session.On("Snapshot").Return(signedIn("u3")).Once()

	for _, want := range []string{"anonymous", "u3"} {
		resp, err := suite.app.Test(httptest.NewRequest(http.MethodGet, "/open", nil))
		require.NoError(suite.T(), err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), want, string(body))
	}
}

func (suite *MiddlewareTestSuite) TestRequestID() {
	middleware := authhttp.NewAuthMiddleware(suite.session, nil, "gym_session")
	suite.app.Use(middleware.RequestID(), middleware.WithRequestContext())
	suite.app.Get("/id", func(c *fiber.Ctx) error {
		return c.SendString(contextkeys.StringValue(c.UserContext(), contextkeys.RequestIDKey))
	})

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := suite.app.Test(req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "req-42", resp.Header.Get("X-Request-ID"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "req-42", string(body))
}
