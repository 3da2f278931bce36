// Package guard decides whether a protected view may render. A local session
// marker is only an optimistic hint; the who-am-I probe is the authority.
package guard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"admin-console/internal/model"
)

type State int

const (
	StateChecking State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var ErrUnauthenticated = errors.New("guard: not authenticated")

// SessionHint is the part of the session store the guard reads and annotates.
type SessionHint interface {
	IsKnown() bool
	SetUser(model.CurrentUser) error
}

type Prober interface {
	Me(ctx context.Context) (model.CurrentUser, error)
}

// Decision is the terminal outcome of one navigation attempt.
type Decision struct {
	State  State
	User   *model.CurrentUser
	Err    error
	Probed bool
}

func (d Decision) Allowed() bool {
	return d.State == StateAuthenticated
}

type Guard struct {
	hint        SessionHint
	prober      Prober
	observer    func(State)
	loginView   string
	placeholder string
	logger      *slog.Logger
}

type Option func(*Guard)

// WithObserver receives StateChecking before any probe and then the terminal
// state of every check.
func WithObserver(fn func(State)) Option {
	return func(g *Guard) { g.observer = fn }
}

func WithLoginView(name string) Option {
	return func(g *Guard) { g.loginView = name }
}

func WithPlaceholder(text string) Option {
	return func(g *Guard) { g.placeholder = text }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

func New(hint SessionHint, prober Prober, opts ...Option) *Guard {
	g := &Guard{
		hint:        hint,
		prober:      prober,
		loginView:   "login",
		placeholder: "Checking session...",
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "guard")
	return g
}

func (g *Guard) Check(ctx context.Context) Decision {
	g.notify(StateChecking)

	if !g.hint.IsKnown() {
		return g.finish(Decision{State: StateUnauthenticated})
	}

	user, err := g.prober.Me(ctx)
	if err != nil {
		// The gateway already cleared the session if the probe was unauthorized.
		g.logger.Debug("who-am-I probe failed", "error", err)
		return g.finish(Decision{State: StateUnauthenticated, Err: err, Probed: true})
	}

	if err := g.hint.SetUser(user); err != nil {
		g.logger.Warn("record current user", "error", err)
	}
	return g.finish(Decision{State: StateAuthenticated, User: &user, Probed: true})
}

func (g *Guard) finish(d Decision) Decision {
	g.notify(d.State)
	return d
}

func (g *Guard) notify(s State) {
	if g.observer != nil {
		g.observer(s)
	}
}

// View is a screen that writes itself to the terminal.
type View interface {
	Name() string
	Render(ctx context.Context, w io.Writer) error
}

type Navigator interface {
	RedirectToLogin(from string)
}

// Protect wraps v so it renders only after a successful check. The login view
// is returned unwrapped.
func (g *Guard) Protect(v View, nav Navigator) View {
	if v.Name() == g.loginView {
		return v
	}
	return &protectedView{inner: v, guard: g, nav: nav}
}

type protectedView struct {
	inner View
	guard *Guard
	nav   Navigator
}

func (p *protectedView) Name() string {
	return p.inner.Name()
}

func (p *protectedView) Render(ctx context.Context, w io.Writer) error {
	if _, err := fmt.Fprintln(w, p.guard.placeholder); err != nil {
		return err
	}

	d := p.guard.Check(ctx)
	if !d.Allowed() {
		p.nav.RedirectToLogin(p.inner.Name())
		return ErrUnauthenticated
	}
	return p.inner.Render(ctx, w)
}
