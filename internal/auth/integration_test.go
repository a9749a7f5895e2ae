package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gym-assistant/internal/auth"
	authhttp "gym-assistant/internal/auth/adapter/http"
	"gym-assistant/internal/auth/config"
	"gym-assistant/internal/shared/eventbus"
	"gym-assistant/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type AuthIntegrationTestSuite struct {
	suite.Suite
	app    *fiber.App
	module *auth.AuthModule
	bus    *eventbus.EventBus
}

func (suite *AuthIntegrationTestSuite) SetupTest() {
	cfg := config.DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost

	suite.bus = eventbus.NewEventBus(logger.NewNopLogger())
	module, err := auth.NewAuthModule(context.Background(), cfg, nil, suite.bus, logger.NewNopLogger())
	require.NoError(suite.T(), err)
	suite.module = module

	suite.app = fiber.New()
	suite.module.RegisterRoutes(suite.app.Group("/auth"))
	suite.app.Get("/private", module.GetMiddleware().Protect(), func(c *fiber.Ctx) error {
		userID, _ := authhttp.GetUserID(c)
		return c.SendString(userID)
	})
}

func (suite *AuthIntegrationTestSuite) TearDownTest() {
	require.NoError(suite.T(), suite.module.Stop())
}

func TestAuthIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(AuthIntegrationTestSuite))
}

func (suite *AuthIntegrationTestSuite) do(method, path string, body interface{}, cookies ...*http.Cookie) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(suite.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := suite.app.Test(req, -1)
	require.NoError(suite.T(), err)
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "gym_session" {
			return c
		}
	}
	return nil
}

func (suite *AuthIntegrationTestSuite) sessionState() string {
	resp := suite.do(http.MethodGet, "/auth/session", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(suite.T(), json.NewDecoder(resp.Body).Decode(&body))
	return body["state"].(string)
}

func (suite *AuthIntegrationTestSuite) TestSignUpSignOutFlow() {
	t := suite.T()
	assert.Equal(t, "anonymous", suite.sessionState())

	signedIn := make(chan eventbus.Event, 1)
	unsubscribe := suite.bus.Subscribe(eventbus.EventTypeUserSignedIn, func(ctx context.Context, e eventbus.Event) error {
		signedIn <- e
		return nil
	})
	defer unsubscribe()

	resp := suite.do(http.MethodPost, "/auth/signup", map[string]string{
		"email":       "lifter@example.com",
		"password":    "secret1",
		"displayName": "Lifter",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.Equal(t, "authenticated", suite.sessionState())

	event := <-signedIn
	assert.Equal(t, "session", event.Source())

	session := suite.module.Session().Snapshot()
	require.NotNil(t, session.CurrentUser)
	assert.Equal(t, "Lifter", session.CurrentUser.DisplayName)

	resp = suite.do(http.MethodGet, "/private", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = suite.do(http.MethodGet, "/private", nil, cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = suite.do(http.MethodPost, "/auth/signout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "anonymous", suite.sessionState())

	resp = suite.do(http.MethodGet, "/private", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func (suite *AuthIntegrationTestSuite) TestDuplicateSignUpAndBadSignIn() {
	t := suite.T()
	creds := map[string]string{"email": "dup@example.com", "password": "secret1"}

	resp := suite.do(http.MethodPost, "/auth/signup", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = suite.do(http.MethodPost, "/auth/signup", creds)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "This email is already registered. Please login instead.", suite.module.Session().Snapshot().Error)

	resp = suite.do(http.MethodDelete, "/auth/session/error", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, suite.module.Session().Snapshot().Error)

	resp = suite.do(http.MethodPost, "/auth/signin", map[string]string{"email": "dup@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, false, result["success"])
	assert.Equal(t, "Incorrect password.", result["error"].(map[string]interface{})["message"])
}

func (suite *AuthIntegrationTestSuite) TestResetPasswordUnknownEmail() {
	resp := suite.do(http.MethodPost, "/auth/reset-password", map[string]string{"email": "nobody@example.com"})
	assert.Equal(suite.T(), http.StatusAccepted, resp.StatusCode)
}

func TestNewAuthModuleRejectsMongoWithoutDatabase(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AccountStore = config.AccountStoreMongoDB

	_, err := auth.NewAuthModule(context.Background(), cfg, nil, nil, nil)
	assert.Error(t, err)
}
