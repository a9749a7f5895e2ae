package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"gym-assistant/internal/auth/domain/model"
	"gym-assistant/internal/auth/domain/repository"
	"gym-assistant/internal/shared/eventbus"
	"gym-assistant/internal/shared/logger"
	"gym-assistant/internal/shared/metrics"
)

// ErrSessionClosed is returned by WaitInitialized after Close.
var ErrSessionClosed = errors.New("session store closed")

// sessionState is owned by the store's loop goroutine.
type sessionState struct {
	user        *model.AuthUser
	state       model.State
	initialized bool
	pending     int
	err         string
}

type sessionMessage struct {
	apply func(*sessionState)
	ack   chan struct{}
}

// SessionStore is the single source of truth for who is signed in. It
// holds exactly one listener on the identity provider; only that listener
// changes CurrentUser. Operations report through Loading and Error.
type SessionStore struct {
	provider repository.IdentityProvider
	bus      eventbus.Bus
	logger   logger.Logger

	inbox     chan sessionMessage
	done      chan struct{}
	closeOnce sync.Once
	snapshot  atomic.Pointer[model.Session]

	attachOnce  sync.Once
	detach      func()
	initialized chan struct{}

	watchMu     sync.Mutex
	watchers    map[int]chan model.Session
	nextWatcher int
}

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithSessionLogger sets the store's logger.
func WithSessionLogger(log logger.Logger) SessionOption {
	return func(s *SessionStore) { s.logger = log }
}

// WithEventBus publishes sign-in and sign-out transitions on bus.
func WithEventBus(bus eventbus.Bus) SessionOption {
	return func(s *SessionStore) { s.bus = bus }
}

// NewSessionStore creates a store over provider. The provider listener is
// attached on first use.
func NewSessionStore(provider repository.IdentityProvider, opts ...SessionOption) (*SessionStore, error) {
	if provider == nil {
		return nil, errors.New("session store requires an identity provider")
	}
	s := &SessionStore{
		provider:    provider,
		inbox:       make(chan sessionMessage),
		done:        make(chan struct{}),
		initialized: make(chan struct{}),
		watchers:    make(map[int]chan model.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.OrNop(s.logger).WithComponent("session")
	s.snapshot.Store(&model.Session{State: model.StateUninitialized})
	go s.loop()
	return s, nil
}

func (s *SessionStore) loop() {
	st := &sessionState{state: model.StateUninitialized}
	initClosed := false
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.inbox:
			msg.apply(st)
			s.publish(st)
			if st.initialized && !initClosed {
				close(s.initialized)
				initClosed = true
			}
			close(msg.ack)
		}
	}
}

func (s *SessionStore) publish(st *sessionState) {
	snap := &model.Session{
		CurrentUser: copyUser(st.user),
		Loading:     st.pending > 0 || st.state == model.StateInitializing,
		Initialized: st.initialized,
		Error:       st.err,
		State:       st.state,
	}
	s.snapshot.Store(snap)

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, ch := range s.watchers {
		offer(ch, *snap)
	}
}

// offer replaces any undelivered value in ch with snap.
func offer(ch chan model.Session, snap model.Session) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func (s *SessionStore) send(fn func(*sessionState)) {
	msg := sessionMessage{apply: fn, ack: make(chan struct{})}
	select {
	case s.inbox <- msg:
		<-msg.ack
	case <-s.done:
	}
}

// ensureListener attaches the provider listener at most once.
func (s *SessionStore) ensureListener() {
	s.attachOnce.Do(func() {
		select {
		case <-s.done:
			return
		default:
		}
		s.send(func(st *sessionState) {
			if st.state == model.StateUninitialized {
				st.state = model.StateInitializing
			}
		})
		s.detach = s.provider.OnAuthStateChanged(s.onAuthStateChanged)
		s.logger.Debug("auth state listener attached")
	})
}

func (s *SessionStore) onAuthStateChanged(account *model.Account) {
	user := account.User()
	s.send(func(st *sessionState) {
		previous := st.user
		st.user = user
		st.initialized = true
		if user != nil {
			st.state = model.StateAuthenticated
		} else {
			st.state = model.StateAnonymous
		}
		s.announce(previous, user)
	})
}

func (s *SessionStore) announce(previous, current *model.AuthUser) {
	switch {
	case previous == nil && current != nil:
		s.logger.Infof("user signed in: %s", current.UID)
		if s.bus != nil {
			s.bus.PublishAndForget(context.Background(), eventbus.NewEvent(eventbus.EventTypeUserSignedIn, copyUser(current), "session"))
		}
	case previous != nil && current == nil:
		s.logger.Infof("user signed out: %s", previous.UID)
		if s.bus != nil {
			s.bus.PublishAndForget(context.Background(), eventbus.NewEvent(eventbus.EventTypeUserSignedOut, previous.UID, "session"))
		}
	}
}

// run brackets an operation: Loading is raised and Error cleared on entry,
// and on every exit Loading drops and a failure's message is recorded.
func (s *SessionStore) run(ctx context.Context, operation string, fn func(context.Context) error) model.Result {
	s.ensureListener()
	s.send(func(st *sessionState) {
		st.pending++
		st.err = ""
	})

	var (
		authErr  *model.AuthError
		finished bool
	)
	defer func() {
		s.send(func(st *sessionState) {
			st.pending--
			if finished && authErr != nil {
				st.err = authErr.Message
			}
		})
	}()

	err := fn(ctx)
	finished = true
	if err != nil {
		authErr = ClassifyError(err)
		s.logger.WithContext(ctx).Warnf("%s failed: %v", operation, err)
		metrics.RecordAuthOp(operation, string(authErr.Code))
		return model.Result{Error: authErr}
	}
	metrics.RecordAuthOp(operation, "ok")
	return model.Result{Success: true}
}

// SignUp creates an account and, when displayName is set, names it.
func (s *SessionStore) SignUp(ctx context.Context, email, password, displayName string) model.Result {
	return s.run(ctx, "sign_up", func(ctx context.Context) error {
		account, err := s.provider.CreateAccount(ctx, email, password)
		if err != nil {
			return err
		}
		if displayName != "" {
			return s.provider.SetDisplayName(ctx, account, displayName)
		}
		return nil
	})
}

// SignIn authenticates an existing account. CurrentUser changes when the
// provider reports the new state, not when SignIn returns.
func (s *SessionStore) SignIn(ctx context.Context, email, password string) model.Result {
	return s.run(ctx, "sign_in", func(ctx context.Context) error {
		_, err := s.provider.SignIn(ctx, email, password)
		return err
	})
}

// SignOut ends the provider session.
func (s *SessionStore) SignOut(ctx context.Context) model.Result {
	return s.run(ctx, "sign_out", s.provider.SignOut)
}

// ResetPassword starts the provider's reset flow. Success does not mean the
// address has an account.
func (s *SessionStore) ResetPassword(ctx context.Context, email string) model.Result {
	return s.run(ctx, "reset_password", func(ctx context.Context) error {
		return s.provider.SendPasswordReset(ctx, email)
	})
}

// ClearError clears the recorded error.
func (s *SessionStore) ClearError() {
	s.ensureListener()
	s.send(func(st *sessionState) { st.err = "" })
}

// Snapshot returns the current session.
func (s *SessionStore) Snapshot() model.Session {
	s.ensureListener()
	return s.current()
}

func (s *SessionStore) current() model.Session {
	snap := *s.snapshot.Load()
	snap.CurrentUser = copyUser(snap.CurrentUser)
	return snap
}

// State returns the lifecycle state.
func (s *SessionStore) State() model.State {
	return s.Snapshot().State
}

// IsAuthenticated reports whether a user is signed in.
func (s *SessionStore) IsAuthenticated() bool {
	return s.Snapshot().IsAuthenticated()
}

// WaitInitialized blocks until the provider has reported the first auth
// state, ctx is done or the store is closed.
func (s *SessionStore) WaitInitialized(ctx context.Context) (model.Session, error) {
	s.ensureListener()
	select {
	case <-s.initialized:
		return s.Snapshot(), nil
	default:
	}
	select {
	case <-s.initialized:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	case <-s.done:
		return s.Snapshot(), ErrSessionClosed
	}
}

// Watch delivers the current session and then every change. Slow readers
// only see the latest value. The returned func stops delivery and closes
// the channel.
func (s *SessionStore) Watch() (<-chan model.Session, func()) {
	s.ensureListener()
	ch := make(chan model.Session, 1)

	s.watchMu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = ch
	ch <- s.current()
	s.watchMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.watchMu.Lock()
			defer s.watchMu.Unlock()
			if _, ok := s.watchers[id]; ok {
				delete(s.watchers, id)
				close(ch)
			}
		})
	}
}

// Close detaches the provider listener, stops the loop and closes all
// watch channels.
func (s *SessionStore) Close() {
	s.closeOnce.Do(func() {
		s.attachOnce.Do(func() {})
		if s.detach != nil {
			s.detach()
		}
		close(s.done)

		s.watchMu.Lock()
		for id, ch := range s.watchers {
			delete(s.watchers, id)
			close(ch)
		}
		s.watchMu.Unlock()
	})
}

func copyUser(u *model.AuthUser) *model.AuthUser {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
