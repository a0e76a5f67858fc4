package session

import (
	"context"
	"time"
)

// RoleAdmin is the role label granting access to admin-only operations.
const RoleAdmin = "admin"

// Session mirrors the remote auth session.
type Session struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
	TokenRefreshed
	UserUpdated
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "SIGNED_IN"
	case SignedOut:
		return "SIGNED_OUT"
	case TokenRefreshed:
		return "TOKEN_REFRESHED"
	case UserUpdated:
		return "USER_UPDATED"
	default:
		return "UNKNOWN"
	}
}

// Event is an asynchronous session change pushed by the auth provider.
// A nil Session means the session is gone.
type Event struct {
	Kind    EventKind
	Session *Session
}

type (
	// Authenticator is the remote auth service, as seen by one console session.
	// Implementations only publish events for changes they make on their own
	// (token refresh, revocation); SignIn and SignOut results are returned, not published.
	Authenticator interface {
		SignIn(ctx context.Context, identifier, secret string) (*Session, error)
		SignOut(ctx context.Context) error
		CurrentSession(ctx context.Context) (*Session, error)
		Subscribe(fn func(Event)) (unsubscribe func())
		RequestPasswordReset(ctx context.Context, email string) error
	}

	RoleResolver interface {
		RolesForUser(ctx context.Context, userID string) ([]string, error)
	}

	// Factory builds the collaborators of a new console session.
	Factory func() (Authenticator, RoleResolver, error)
)
