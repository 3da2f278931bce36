package console

import (
	"fmt"
	"io"
	"sync"

	"admin-console/internal/event"
)

// Navigator tracks the current view and moves to the login view when the
// session ends. It never redirects to login from login.
type Navigator struct {
	mu        sync.Mutex
	loginView string
	current   string
	returnTo  string
	out       io.Writer
}

func NewNavigator(loginView string, out io.Writer) *Navigator {
	return &Navigator{loginView: loginView, out: out}
}

func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *Navigator) Go(view string) {
	n.mu.Lock()
	n.current = view
	n.mu.Unlock()
}

// RedirectToLogin is called by the guard when a protected view is refused.
func (n *Navigator) RedirectToLogin(from string) {
	n.toLogin(from, fmt.Sprintf("Please log in to open %s.", from))
}

// Handle reacts to bus events. It reports whether it printed a notice.
func (n *Navigator) Handle(e event.Event) bool {
	if e.Type != event.TypeSessionExpired {
		return false
	}
	return n.toLogin(n.Current(), sessionExpiredNotice)
}

// TakeReturn returns the view the user was sent away from, once.
func (n *Navigator) TakeReturn() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	view := n.returnTo
	n.returnTo = ""
	return view
}

func (n *Navigator) toLogin(from, notice string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current == n.loginView {
		return false
	}
	if from != "" && from != n.loginView {
		n.returnTo = from
	}
	n.current = n.loginView
	fmt.Fprintln(n.out, notice)
	return true
}
