package workout

import (
	"gym-assistant/internal/docstore/domain/repository"
	"gym-assistant/internal/shared/eventbus"
	"gym-assistant/internal/shared/logger"
	workouthttp "gym-assistant/internal/workout/adapter/http"
	"gym-assistant/internal/workout/usecase"

	"github.com/gofiber/fiber/v2"
)

// WorkoutModule exposes the workout collections over HTTP and WebSocket.
type WorkoutModule struct {
	service     *usecase.Service
	collections *workouthttp.CollectionHandler
	live        *workouthttp.LiveHandler
}

// NewWorkoutModule creates a new workout module over provider. bus may be
// nil; when set, live subscriptions end when their user signs out.
func NewWorkoutModule(provider repository.DocumentProvider, bus eventbus.Bus, log logger.Logger) *WorkoutModule {
	service := usecase.NewService(provider, log)
	return &WorkoutModule{
		service:     service,
		collections: workouthttp.NewCollectionHandler(service, log),
		live:        workouthttp.NewLiveHandler(service, bus, log),
	}
}

// RegisterRoutes registers the collection API and live endpoint. router
// must authenticate requests.
func (m *WorkoutModule) RegisterRoutes(router fiber.Router) {
	m.collections.RegisterRoutes(router)
	m.live.RegisterRoutes(router)
}

// Service returns the collection service.
func (m *WorkoutModule) Service() *usecase.Service {
	return m.service
}

// Close stops the live handler's event subscription.
func (m *WorkoutModule) Close() {
	m.live.Close()
}
