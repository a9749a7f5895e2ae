package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	"gym-assistant/internal/auth/domain/model"

	"github.com/google/uuid"
)

// fakeIdentity is a scriptable identity provider. Operations emit the new
// auth state synchronously unless silent is set.
type fakeIdentity struct {
	mu        sync.Mutex
	accounts  map[string]*model.Account
	passwords map[string]string
	current   *model.Account
	listeners map[int]func(*model.Account)
	next      int

	attachCount atomic.Int32
	holdInitial bool
	silent      bool
	failures    map[string]error
	gate        chan struct{}
	entered     chan struct{}
	displayName string
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		accounts:  make(map[string]*model.Account),
		passwords: make(map[string]string),
		listeners: make(map[int]func(*model.Account)),
		failures:  make(map[string]error),
	}
}

func (f *fakeIdentity) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

func (f *fakeIdentity) enter(op string) error {
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	err := f.failures[op]
	delete(f.failures, op)
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeIdentity) CreateAccount(ctx context.Context, email, password string) (*model.Account, error) {
	if err := f.enter("create"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	acct := &model.Account{ID: uuid.NewString(), Email: email}
	f.accounts[email] = acct
	f.passwords[email] = password
	f.current = acct
	f.mu.Unlock()
	f.emitCurrent()
	return acct, nil
}

func (f *fakeIdentity) SetDisplayName(ctx context.Context, account *model.Account, name string) error {
	if err := f.enter("display_name"); err != nil {
		return err
	}
	f.mu.Lock()
	f.displayName = name
	account.DisplayName = name
	f.mu.Unlock()
	return nil
}

func (f *fakeIdentity) SignIn(ctx context.Context, email, password string) (*model.Account, error) {
	if err := f.enter("sign_in"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	acct, ok := f.accounts[email]
	if !ok {
		acct = &model.Account{ID: uuid.NewString(), Email: email}
		f.accounts[email] = acct
	}
	f.current = acct
	f.mu.Unlock()
	f.emitCurrent()
	return acct, nil
}

func (f *fakeIdentity) SignOut(ctx context.Context) error {
	if err := f.enter("sign_out"); err != nil {
		return err
	}
	f.mu.Lock()
	f.current = nil
	f.mu.Unlock()
	f.emitCurrent()
	return nil
}

func (f *fakeIdentity) SendPasswordReset(ctx context.Context, email string) error {
	return f.enter("reset")
}

func (f *fakeIdentity) OnAuthStateChanged(fn func(*model.Account)) func() {
	f.attachCount.Add(1)
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	current, hold := f.current, f.holdInitial
	f.mu.Unlock()

	if !hold {
		fn(current)
	}
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeIdentity) emitCurrent() {
	f.mu.Lock()
	silent, current := f.silent, f.current
	f.mu.Unlock()
	if !silent {
		f.emit(current)
	}
}

// emit delivers account to every listener, as the provider would.
func (f *fakeIdentity) emit(account *model.Account) {
	f.mu.Lock()
	fns := make([]func(*model.Account), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(account)
	}
}

func (f *fakeIdentity) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}
