package dummydb

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/core/session"
)

var sessionTTL = time.Hour

// Auth signs in the users of a DB. Sessions never expire on their own.
type Auth struct {
	db *DB

	mu      sync.Mutex
	sess    *session.Session
	subs    map[int]func(session.Event)
	nextSub int
}

var _ session.Authenticator = (*Auth)(nil)

func NewAuth(db *DB) *Auth {
	return &Auth{db: db, subs: make(map[int]func(session.Event))}
}

// NewFactory returns a session.Factory of providers backed by db.
func NewFactory(db *DB) session.Factory {
	return func() (session.Authenticator, session.RoleResolver, error) {
		return NewAuth(db), db, nil
	}
}

func (a *Auth) SignIn(_ context.Context, identifier, secret string) (*session.Session, error) {
	u, ok := a.db.authenticate(identifier, secret)
	if !ok {
		return nil, core.NewAuthError("Invalid login credentials")
	}
	sess := &session.Session{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		UserID:       u.id,
		Email:        u.email,
		ExpiresAt:    a.db.now().Add(sessionTTL),
	}

	a.mu.Lock()
	a.sess = sess
	a.mu.Unlock()
	s := *sess
	return &s, nil
}

func (a *Auth) SignOut(context.Context) error {
	a.mu.Lock()
	a.sess = nil
	a.mu.Unlock()
	return nil
}

func (a *Auth) CurrentSession(context.Context) (*session.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sess == nil {
		return nil, nil
	}
	s := *a.sess
	return &s, nil
}

func (a *Auth) Subscribe(fn func(session.Event)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// RequestPasswordReset never tells whether the email is known.
func (a *Auth) RequestPasswordReset(context.Context, string) error {
	return nil
}

// Revoke ends the session from the provider's side, as an expired refresh token would.
func (a *Auth) Revoke() {
	a.mu.Lock()
	a.sess = nil
	subs := make([]func(session.Event), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, fn := range subs {
		fn(session.Event{Kind: session.SignedOut})
	}
}
