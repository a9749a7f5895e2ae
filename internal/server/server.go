package server

import (
	"context"
	"time"

	"gym-assistant/internal/di"
	"gym-assistant/internal/navigation"
	apperrors "gym-assistant/internal/shared/errors"
	"gym-assistant/internal/shared/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp builds the HTTP application over an initialized container.
//
//	/health, /metrics      operational endpoints
//	/api/auth/...          session API
//	/api/collections/...   collection API for the signed-in user
//	/api/ws/collections/:name  live collection feed
//	everything else        guarded application routes
func NewApp(cfg *Config, container *di.Container) *fiber.App {
	log := container.Logger.WithComponent("server")

	app := fiber.New(fiber.Config{
		AppName:      "Gym Assistant API",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(fiber.Map{
					"error": fe.Message,
				})
			}
			log.WithContext(c.UserContext()).Errorf("HTTP Error: %v", err)
			return c.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		},
	})

	middleware := container.AuthModule.GetMiddleware()
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.WithRequestContext())
	app.Use(metrics.FiberMiddleware())
	app.Use(middleware.CORS(cfg.CORSOrigins))
	app.Use(middleware.SecurityHeaders())

	app.Get("/health", func(c *fiber.Ctx) error {
		healthCtx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()

		if err := container.HealthCheck(healthCtx); err != nil {
			log.Errorf("Health check failed: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "UNHEALTHY",
				"error":  err.Error(),
			})
		}
		session := container.AuthModule.Session().Snapshot()
		return c.JSON(fiber.Map{
			"status":    "HEALTHY",
			"timestamp": time.Now().UTC(),
			"session":   session.State,
			"provider":  container.DocstoreConfig.Provider,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Auth routes are registered first so they match before Protect.
	container.AuthModule.RegisterRoutes(app.Group("/api/auth"))
	container.WorkoutModule.RegisterRoutes(app.Group("/api", middleware.Protect()))

	app.Get("/*", container.Guard.Middleware(), navigation.Render)
	return app
}
