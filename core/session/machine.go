package session

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core"
)

var eventTimeout = 10 * time.Second

type State int

const (
	Unknown State = iota
	Unauthenticated
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// LoginResult is the outcome of Machine.Login. Err carries the remote reason on failure.
type LoginResult struct {
	Success bool
	Err     error
}

// Machine tracks one console session and the roles of its user.
// All state changes go through its methods.
type Machine struct {
	auth   Authenticator
	roles  RoleResolver
	logger core.Logger

	mu      sync.RWMutex
	state   State
	session *Session
	roleSet map[string]struct{}

	unsubscribe func()
	closeOnce   sync.Once
}

// NewMachine returns a Machine in the Unknown state, subscribed to the provider's session events.
func NewMachine(auth Authenticator, roles RoleResolver, logger core.Logger) *Machine {
	m := &Machine{
		auth:    auth,
		roles:   roles,
		logger:  logger,
		roleSet: make(map[string]struct{}),
	}
	m.unsubscribe = auth.Subscribe(m.HandleEvent)
	return m
}

// Initialize adopts the provider's current session, if any. It never leaves the machine Unknown.
func (m *Machine) Initialize(ctx context.Context) {
	sess, err := m.auth.CurrentSession(ctx)
	if err != nil {
		m.logger.Error(fmt.Sprintf("fetching current session: %v", err), err)
		m.signOutLocally()
		return
	}
	if sess == nil {
		m.signOutLocally()
		return
	}
	m.adopt(sess, true)
	m.ResolveRoles(ctx, sess.UserID)
}

// Login signs in against the provider. It never panics: every failure is returned in the result.
func (m *Machine) Login(ctx context.Context, identifier, secret string) (res LoginResult) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("unexpected login failure: %v", r)
			m.logger.Error(err.Error(), err)
			m.signOutLocally()
			res = LoginResult{Err: err}
		}
	}()

	sess, err := m.auth.SignIn(ctx, identifier, secret)
	if err != nil {
		m.signOutLocally()
		return LoginResult{Err: err}
	}
	if sess == nil {
		m.signOutLocally()
		return LoginResult{Err: core.NewAuthError("no session returned")}
	}

	m.adopt(sess, true)
	m.ResolveRoles(ctx, sess.UserID)
	return LoginResult{Success: true}
}

// Logout signs out against the provider. Local state is cleared only once the provider confirms.
func (m *Machine) Logout(ctx context.Context) error {
	if err := m.auth.SignOut(ctx); err != nil {
		return errors.Wrap(err, "signing out")
	}
	m.signOutLocally()
	return nil
}

// ResolveRoles replaces the role set with the user's roles.
// Failures keep the previous role set and are only logged.
func (m *Machine) ResolveRoles(ctx context.Context, userID string) {
	labels, err := m.roles.RolesForUser(ctx, userID)
	if err != nil {
		m.logger.Warn(fmt.Sprintf("role resolution failure: %v", err), err, core.LogUser{ID: userID})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// the session may have moved on while the lookup was in flight
	if m.session == nil || m.session.UserID != userID {
		return
	}
	m.roleSet = make(map[string]struct{}, len(labels))
	for _, l := range labels {
		m.roleSet[l] = struct{}{}
	}
}

// HandleEvent applies a session change pushed by the provider.
func (m *Machine) HandleEvent(ev Event) {
	if ev.Session == nil {
		m.signOutLocally()
		return
	}

	m.adopt(ev.Session, false)
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	m.ResolveRoles(ctx, ev.Session.UserID)
}

// Close stops listening to provider events and releases the provider.
func (m *Machine) Close() {
	m.closeOnce.Do(func() {
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		if c, ok := m.auth.(io.Closer); ok {
			if err := c.Close(); err != nil {
				m.logger.Warn(fmt.Sprintf("closing auth provider: %v", err), err)
			}
		}
	})
}

func (m *Machine) adopt(sess *Session, resetRoles bool) {
	s := *sess

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil && m.session.UserID != s.UserID {
		resetRoles = true
	}
	m.state = Authenticated
	m.session = &s
	if resetRoles {
		m.roleSet = make(map[string]struct{})
	}
}

func (m *Machine) signOutLocally() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Unauthenticated
	m.session = nil
	m.roleSet = make(map[string]struct{})
}

func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Machine) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil
}

func (m *Machine) IsAdmin() bool {
	return m.HasRole(RoleAdmin)
}

func (m *Machine) HasRole(role string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.roleSet[role]
	return ok
}

// Session returns a copy of the current session.
func (m *Machine) Session() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// Roles returns the sorted role labels.
func (m *Machine) Roles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roles := make([]string, 0, len(m.roleSet))
	for r := range m.roleSet {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}
