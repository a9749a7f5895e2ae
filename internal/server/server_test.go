package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authconfig "gym-assistant/internal/auth/config"
	"gym-assistant/internal/di"
	docconfig "gym-assistant/internal/docstore/config"
	"gym-assistant/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type ServerTestSuite struct {
	suite.Suite
	container *di.Container
	app       *fiber.App
}

func (s *ServerTestSuite) SetupTest() {
	authCfg := authconfig.DefaultConfig()
	authCfg.BcryptCost = bcrypt.MinCost

	s.container = di.NewContainer(logger.NewNopLogger())
	require.NoError(s.T(), s.container.Initialize(context.Background(), docconfig.DefaultConfig(), authCfg))
	s.app = NewApp(&Config{CORSOrigins: "*"}, s.container)
}

func (s *ServerTestSuite) TearDownTest() {
	require.NoError(s.T(), s.container.Close())
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) do(method, path, body string, cookies ...*http.Cookie) *http.Response {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.T(), err)
	return resp
}

func (s *ServerTestSuite) TestHealth() {
	resp := s.do(http.MethodGet, "/health", "")
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	assert.NotEmpty(s.T(), resp.Header.Get("X-Request-ID"))

	var body map[string]interface{}
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(s.T(), "HEALTHY", body["status"])
	assert.Equal(s.T(), "memory", body["provider"])
}

func (s *ServerTestSuite) TestMetrics() {
	s.do(http.MethodGet, "/health", "")
	resp := s.do(http.MethodGet, "/metrics", "")
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)
	assert.Contains(s.T(), string(raw), "gym_assistant_http_requests_total")
}

func (s *ServerTestSuite) TestGuardedNavigation() {
	resp := s.do(http.MethodGet, "/tabs/workouts", "")
	assert.Equal(s.T(), http.StatusFound, resp.StatusCode)
	assert.Equal(s.T(), "/login", resp.Header.Get("Location"))

	resp = s.do(http.MethodGet, "/login", "")
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/collections/workouts", "")
	assert.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode)
}

func (s *ServerTestSuite) TestSignedInFlow() {
	resp := s.do(http.MethodPost, "/api/auth/signup", `{"email":"lifter@example.com","password":"secret1"}`)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "gym_session" {
			cookie = c
		}
	}
	require.NotNil(s.T(), cookie)

	resp = s.do(http.MethodGet, "/login", "")
	assert.Equal(s.T(), http.StatusFound, resp.StatusCode)
	assert.Equal(s.T(), "/tabs/workouts", resp.Header.Get("Location"))

	resp = s.do(http.MethodPost, "/api/collections/workouts", `{"status":"Planned"}`, cookie)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/collections/workouts", "", cookie)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	var body struct {
		Documents []map[string]interface{} `json:"documents"`
	}
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&body))
	require.Len(s.T(), body.Documents, 1)
	assert.Equal(s.T(), s.container.AuthModule.Session().Snapshot().CurrentUser.UID, body.Documents[0]["userId"])
}
