package http

import (
	"strings"
	"time"

	"gym-assistant/internal/auth/domain/model"
	"gym-assistant/internal/auth/domain/repository"
	"gym-assistant/internal/shared/contextkeys"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const (
	localsUser          = "user"
	localsUserID        = "user_id"
	localsAuthenticated = "authenticated"
)

// AuthMiddleware provides authentication middleware for Fiber
type AuthMiddleware struct {
	session    SessionService
	tokens     repository.TokenService
	cookieName string
}

// NewAuthMiddleware creates a new authentication middleware. When tokens is
// non-nil, protected requests must also carry the session token of the
// signed-in user.
func NewAuthMiddleware(session SessionService, tokens repository.TokenService, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{
		session:    session,
		tokens:     tokens,
		cookieName: cookieName,
	}
}

// CORS middleware for the given comma separated origins.
func (m *AuthMiddleware) CORS(origins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With",
		AllowCredentials: origins != "*",
		MaxAge:           86400, // 24 hours
	})
}

// SecurityHeaders adds security headers
func (m *AuthMiddleware) SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	}
}

// RateLimiter creates rate limiting middleware for auth endpoints
func (m *AuthMiddleware) RateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               10,              // 10 requests
		Expiration:        1 * time.Minute, // per minute
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Get("X-Forwarded-For", c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	})
}

// RequestID tags each request and its user context with an id.
func (m *AuthMiddleware) RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     "X-Request-ID",
		ContextKey: string(contextkeys.RequestIDKey),
	})
}

// WithRequestContext copies the request id into the user context so loggers
// pick it up.
func (m *AuthMiddleware) WithRequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals(string(contextkeys.RequestIDKey)).(string); ok && id != "" {
			c.SetUserContext(contextkeys.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}

// Protect returns middleware that requires a signed-in session.
func (m *AuthMiddleware) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := m.session.WaitInitialized(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Session is not ready",
			})
		}
		if !session.IsAuthenticated() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		if m.tokens != nil {
			token, ok := m.extractToken(c)
			if !ok {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Authentication required",
				})
			}
			claims, err := m.tokens.ValidateToken(c.UserContext(), token, repository.PurposeSession)
			if err != nil || claims.UserID != session.CurrentUser.UID {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid token",
				})
			}
		}

		setUser(c, session.CurrentUser)
		return c.Next()
	}
}

// OptionalAuth attaches the signed-in user when there is one.
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if session := m.session.Snapshot(); session.IsAuthenticated() {
			setUser(c, session.CurrentUser)
		}
		return c.Next()
	}
}

func setUser(c *fiber.Ctx, user *model.AuthUser) {
	c.Locals(localsUser, user)
	c.Locals(localsUserID, user.UID)
	c.Locals(localsAuthenticated, true)
	c.SetUserContext(contextkeys.WithUserID(c.UserContext(), user.UID))
}

// extractToken extracts the token from Authorization header or cookie
func (m *AuthMiddleware) extractToken(c *fiber.Ctx) (string, bool) {
	if authHeader := c.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer "), true
	}
	if token := c.Cookies(m.cookieName); token != "" {
		return token, true
	}
	// WebSocket clients cannot set headers from browsers.
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

// GetUser returns the user attached by Protect or OptionalAuth.
func GetUser(c *fiber.Ctx) (*model.AuthUser, bool) {
	user, ok := c.Locals(localsUser).(*model.AuthUser)
	return user, ok && user != nil
}

// GetUserID helper function to get user ID from context
func GetUserID(c *fiber.Ctx) (string, bool) {
	userID, ok := c.Locals(localsUserID).(string)
	return userID, ok
}

// IsAuthenticated helper function to check if user is authenticated
func IsAuthenticated(c *fiber.Ctx) bool {
	auth, ok := c.Locals(localsAuthenticated).(bool)
	return ok && auth
}
