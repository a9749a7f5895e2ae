package navigation

import (
	"github.com/gofiber/fiber/v2"
)

const localsDecision = "navigation"

// Middleware applies the guard to GET requests. Redirects are answered
// with 302; paths outside the table fall through to the next handler.
func (g *Guard) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet && c.Method() != fiber.MethodHead {
			return c.Next()
		}
		decision, err := g.Resolve(c.UserContext(), c.Path())
		if err != nil {
			g.logger.WithContext(c.UserContext()).Warnf("navigation failed: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Session is not ready",
			})
		}
		switch decision.Outcome {
		case NotFound:
			return c.Next()
		case Redirect:
			return c.Redirect(decision.Target, fiber.StatusFound)
		}
		c.Locals(localsDecision, decision)
		return c.Next()
	}
}

// Render describes the allowed view. It must run after Middleware.
func Render(c *fiber.Ctx) error {
	decision, ok := GetDecision(c)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Page not found",
		})
	}
	return c.JSON(fiber.Map{
		"view":   decision.Match.Name,
		"route":  decision.Match.Pattern,
		"params": decision.Match.Params,
	})
}

// GetDecision returns the decision Middleware attached to the request.
func GetDecision(c *fiber.Ctx) (Decision, bool) {
	decision, ok := c.Locals(localsDecision).(Decision)
	return decision, ok
}
