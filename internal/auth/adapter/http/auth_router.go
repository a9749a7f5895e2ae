package http

import (
	"context"
	"errors"
	"time"

	"gym-assistant/internal/auth/domain/model"

	"github.com/gofiber/fiber/v2"
)

// SessionService is the session surface the HTTP layer needs.
type SessionService interface {
	SignUp(ctx context.Context, email, password, displayName string) model.Result
	SignIn(ctx context.Context, email, password string) model.Result
	SignOut(ctx context.Context) model.Result
	ResetPassword(ctx context.Context, email string) model.Result
	ClearError()
	Snapshot() model.Session
	WaitInitialized(ctx context.Context) (model.Session, error)
}

// SessionTokenSource is implemented by providers that issue session tokens.
type SessionTokenSource interface {
	SessionToken() string
}

// ResetConfirmer is implemented by providers that complete password resets.
type ResetConfirmer interface {
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

// CookieSettings describes the session cookie.
type CookieSettings struct {
	Name     string
	Path     string
	Domain   string
	MaxAge   int
	Secure   bool
	HTTPOnly bool
	SameSite string
}

// AuthHTTPHandler handles HTTP requests for authentication
type AuthHTTPHandler struct {
	session SessionService
	tokens  SessionTokenSource
	resets  ResetConfirmer
	cookie  CookieSettings
}

// NewAuthHTTPHandler creates a new authentication HTTP handler. tokens and
// resets may be nil.
func NewAuthHTTPHandler(session SessionService, tokens SessionTokenSource, resets ResetConfirmer, cookie CookieSettings) *AuthHTTPHandler {
	return &AuthHTTPHandler{
		session: session,
		tokens:  tokens,
		resets:  resets,
		cookie:  cookie,
	}
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type confirmResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// SetupAuthRoutesWithMiddleware sets up authentication routes with middleware
func (h *AuthHTTPHandler) SetupAuthRoutesWithMiddleware(router fiber.Router, middleware *AuthMiddleware) {
	router.Get("/session", h.GetSession)
	router.Delete("/session/error", h.ClearError)

	limit := middleware.RateLimiter()
	router.Post("/signup", limit, h.SignUp)
	router.Post("/signin", limit, h.SignIn)
	router.Post("/reset-password", limit, h.ResetPassword)
	router.Post("/reset-password/confirm", limit, h.ConfirmReset)

	router.Post("/signout", h.SignOut)
}

// GetSession returns the current session once it is initialized.
func (h *AuthHTTPHandler) GetSession(c *fiber.Ctx) error {
	session, err := h.session.WaitInitialized(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Session is not ready",
		})
	}
	return c.JSON(session)
}

// SignUp handles account registration
func (h *AuthHTTPHandler) SignUp(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result := h.session.SignUp(c.UserContext(), req.Email, req.Password, req.DisplayName)
	if !result.Success {
		return c.Status(statusFor(result.Error)).JSON(result)
	}
	h.issueCookie(c)
	return c.Status(fiber.StatusCreated).JSON(result)
}

// SignIn handles user login
func (h *AuthHTTPHandler) SignIn(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result := h.session.SignIn(c.UserContext(), req.Email, req.Password)
	if !result.Success {
		return c.Status(statusFor(result.Error)).JSON(result)
	}
	h.issueCookie(c)
	return c.JSON(result)
}

// SignOut handles user logout
func (h *AuthHTTPHandler) SignOut(c *fiber.Ctx) error {
	result := h.session.SignOut(c.UserContext())
	if !result.Success {
		return c.Status(statusFor(result.Error)).JSON(result)
	}
	h.clearCookie(c)
	return c.JSON(result)
}

// ResetPassword starts a password reset.
func (h *AuthHTTPHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result := h.session.ResetPassword(c.UserContext(), req.Email)
	if !result.Success {
		return c.Status(statusFor(result.Error)).JSON(result)
	}
	return c.Status(fiber.StatusAccepted).JSON(result)
}

// ConfirmReset completes a password reset with the emailed token.
func (h *AuthHTTPHandler) ConfirmReset(c *fiber.Ctx) error {
	if h.resets == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
			"error": "Password resets are handled by the identity provider",
		})
	}
	var req confirmResetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.resets.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword); err != nil {
		var perr *model.ProviderError
		message := err.Error()
		if errors.As(err, &perr) && perr.Message != "" {
			message = perr.Message
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": message,
		})
	}
	return c.JSON(fiber.Map{
		"message": "Password updated",
	})
}

// ClearError clears the session's recorded error.
func (h *AuthHTTPHandler) ClearError(c *fiber.Ctx) error {
	h.session.ClearError()
	return c.SendStatus(fiber.StatusNoContent)
}

func statusFor(err *model.AuthError) int {
	if err == nil {
		return fiber.StatusInternalServerError
	}
	switch err.Code {
	case model.ErrorAccountAlreadyExists:
		return fiber.StatusConflict
	case model.ErrorInvalidEmail, model.ErrorWeakCredential:
		return fiber.StatusBadRequest
	case model.ErrorAccountNotFound, model.ErrorBadCredential:
		return fiber.StatusUnauthorized
	case model.ErrorAccountDisabled, model.ErrorOperationDisabled:
		return fiber.StatusForbidden
	case model.ErrorRateLimited:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusBadGateway
	}
}

// Helper methods

func (h *AuthHTTPHandler) issueCookie(c *fiber.Ctx) {
	if h.tokens == nil {
		return
	}
	if token := h.tokens.SessionToken(); token != "" {
		h.setCookie(c, token)
	}
}

func (h *AuthHTTPHandler) setCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		MaxAge:   h.cookie.MaxAge,
		Secure:   h.cookie.Secure,
		HTTPOnly: h.cookie.HTTPOnly,
		SameSite: h.cookie.SameSite,
		Expires:  time.Now().Add(time.Duration(h.cookie.MaxAge) * time.Second),
	})
}

func (h *AuthHTTPHandler) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		MaxAge:   -1,
		Secure:   h.cookie.Secure,
		HTTPOnly: h.cookie.HTTPOnly,
		SameSite: h.cookie.SameSite,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
}
