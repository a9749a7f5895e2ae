package identity

import (
	"sync"

	"gym-assistant/internal/auth/domain/model"

	"github.com/google/uuid"
)

// listeners fans auth state out to registered callbacks. Deliveries are
// serialized so every listener sees states in the order they happened.
type listeners struct {
	mu      sync.Mutex
	fns     map[string]func(*model.Account)
	deliver sync.Mutex
}

func newListeners() *listeners {
	return &listeners{fns: make(map[string]func(*model.Account))}
}

// add registers fn and immediately delivers current to it alone.
func (l *listeners) add(fn func(*model.Account), current func() *model.Account) func() {
	id := uuid.NewString()

	l.deliver.Lock()
	l.mu.Lock()
	l.fns[id] = fn
	l.mu.Unlock()
	fn(copyAccount(current()))
	l.deliver.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

// notify delivers the state returned by current to every listener.
func (l *listeners) notify(current func() *model.Account) {
	l.deliver.Lock()
	defer l.deliver.Unlock()

	account := current()
	l.mu.Lock()
	fns := make([]func(*model.Account), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(copyAccount(account))
	}
}

func (l *listeners) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

func copyAccount(a *model.Account) *model.Account {
	if a == nil {
		return nil
	}
	cp := *a
	cp.PasswordHash = ""
	return &cp
}
