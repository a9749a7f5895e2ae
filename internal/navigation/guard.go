package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gym-assistant/internal/auth/domain/model"
	"gym-assistant/internal/shared/logger"
	"gym-assistant/internal/shared/metrics"
)

// maxRedirects bounds chains of route-level redirects.
const maxRedirects = 8

// ErrRedirectLoop is returned when route-level redirects do not settle.
var ErrRedirectLoop = errors.New("navigation: too many redirects")

// SessionSource is the part of the session the guard consumes.
type SessionSource interface {
	WaitInitialized(ctx context.Context) (model.Session, error)
}

// Outcome is what the guard decided for a navigation.
type Outcome int

const (
	Allow Outcome = iota
	Redirect
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	default:
		return "not_found"
	}
}

// Decision describes where a navigation ends up.
type Decision struct {
	Outcome Outcome
	// Target is the path to navigate to when Outcome is Redirect.
	Target string
	Match  Match
}

// Guard gates navigations on the session state.
type Guard struct {
	table       *Table
	session     SessionSource
	logger      logger.Logger
	initTimeout time.Duration
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the guard's logger.
func WithLogger(log logger.Logger) Option {
	return func(g *Guard) { g.logger = logger.OrNop(log).WithComponent("navigation") }
}

// WithRoutes replaces the default route table.
func WithRoutes(routes []Route) Option {
	return func(g *Guard) { g.table = NewTable(routes) }
}

// WithInitTimeout bounds how long a decision waits for the session to
// initialize. Zero waits for as long as the caller's context allows.
func WithInitTimeout(d time.Duration) Option {
	return func(g *Guard) { g.initTimeout = d }
}

// NewGuard creates a guard over session.
func NewGuard(session SessionSource, opts ...Option) *Guard {
	g := &Guard{
		table:       NewTable(DefaultRoutes()),
		session:     session,
		logger:      logger.NewNopLogger(),
		initTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Resolve decides the navigation to p. Route-level redirects are followed
// first; the requirements of the final route are then checked once the
// session has initialized.
func (g *Guard) Resolve(ctx context.Context, p string) (Decision, error) {
	requested := CleanPath(p)
	current := requested

	var (
		match Match
		ok    bool
	)
	for hops := 0; ; hops++ {
		if hops > maxRedirects {
			return Decision{}, fmt.Errorf("%w: %s", ErrRedirectLoop, requested)
		}
		match, ok = g.table.Match(current)
		if !ok {
			metrics.RecordNavigation("unmatched", NotFound.String())
			return Decision{Outcome: NotFound}, nil
		}
		if match.Redirect == "" {
			break
		}
		current = CleanPath(match.Redirect)
	}

	session, err := g.wait(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("navigation to %s: %w", requested, err)
	}

	decision := Decision{Outcome: Allow, Match: match}
	switch {
	case match.RequiresAuth && session.CurrentUser == nil:
		decision.Outcome, decision.Target = Redirect, LoginPath
	case match.RequiresGuest && session.CurrentUser != nil:
		decision.Outcome, decision.Target = Redirect, HomePath
	case current != requested:
		decision.Outcome, decision.Target = Redirect, current
	}
	if decision.Target != "" {
		if m, ok := g.table.Match(decision.Target); ok {
			decision.Match = m
		}
		g.logger.WithContext(ctx).Debugf("redirecting %s to %s", requested, decision.Target)
	}
	metrics.RecordNavigation(match.Pattern, decision.Outcome.String())
	return decision, nil
}

func (g *Guard) wait(ctx context.Context) (model.Session, error) {
	if g.initTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.initTimeout)
		defer cancel()
	}
	return g.session.WaitInitialized(ctx)
}
