package collection

import (
	"sync"
	"sync/atomic"

	"gym-assistant/internal/docstore/domain/repository"

	"github.com/google/uuid"
)

// Subscription is the handle of a live query or document binding.
// Cancel is idempotent; once it returns no new callback is started.
type Subscription struct {
	id         string
	collection string

	cancelled atomic.Bool
	once      sync.Once
	done      chan struct{}

	mu       sync.Mutex
	stop     repository.CancelFunc
	err      error
	onFinish func()
}

func newSubscription(collection string, onFinish func()) *Subscription {
	return &Subscription{
		id:         uuid.NewString(),
		collection: collection,
		done:       make(chan struct{}),
		onFinish:   onFinish,
	}
}

// ID identifies the subscription.
func (s *Subscription) ID() string { return s.id }

// Collection names the observed collection.
func (s *Subscription) Collection() string { return s.collection }

// Active reports whether pushes are still delivered.
func (s *Subscription) Active() bool {
	return !s.cancelled.Load()
}

// Done is closed when the subscription is cancelled or dropped by the provider.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns the error that ended the subscription, if the provider dropped it.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel releases the provider observation.
func (s *Subscription) Cancel() {
	s.finish(nil)
}

// attach stores the provider's cancel function. If the subscription already
// ended, stop is invoked right away.
func (s *Subscription) attach(stop repository.CancelFunc) {
	s.mu.Lock()
	if s.cancelled.Load() {
		s.mu.Unlock()
		stop()
		return
	}
	s.stop = stop
	s.mu.Unlock()
}

func (s *Subscription) finish(err error) {
	s.once.Do(func() {
		s.cancelled.Store(true)

		s.mu.Lock()
		s.err = err
		stop := s.stop
		s.mu.Unlock()

		if stop != nil {
			stop()
		}
		close(s.done)
		if s.onFinish != nil {
			s.onFinish()
		}
	})
}
