package usecase

import (
	"sort"

	"gym-assistant/internal/docstore/domain/repository"
	"gym-assistant/internal/shared/logger"
	"gym-assistant/internal/workout/domain/model"
)

// Service exposes the application's collections by name.
type Service struct {
	resources map[string]Resource
}

// NewService registers the exercise catalog and the user-owned
// collections over provider.
func NewService(provider repository.DocumentProvider, log logger.Logger) *Service {
	log = logger.OrNop(log).WithComponent("workout")
	s := &Service{resources: make(map[string]Resource)}
	s.register(newResource[model.Exercise](model.CollectionExercises, false, provider, log))
	s.register(newResource[model.Workout](model.CollectionWorkouts, true, provider, log))
	s.register(newResource[model.WeekPlan](model.CollectionWeekPlans, true, provider, log))
	s.register(newResource[model.Progress](model.CollectionProgress, true, provider, log))
	s.register(newResource[model.UserProfile](model.CollectionUsers, true, provider, log))
	return s
}

func (s *Service) register(r Resource) {
	s.resources[r.Name()] = r
}

// Resource returns the named collection.
func (s *Service) Resource(name string) (Resource, bool) {
	r, ok := s.resources[name]
	return r, ok
}

// Names lists the exposed collections.
func (s *Service) Names() []string {
	names := make([]string, 0, len(s.resources))
	for name := range s.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
