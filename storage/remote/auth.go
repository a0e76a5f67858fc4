package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/core/session"
)

var refreshRetryDelay = 15 * time.Second

type (
	tokenResponse struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
		ExpiresAt    int64  `json:"expires_at"`
		RefreshToken string `json:"refresh_token"`
		User         struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}

	roleRow struct {
		Role string `json:"role"`
	}
)

// Auth is the remote auth service of one console session.
// It keeps the session's tokens and refreshes the access token before it expires.
type Auth struct {
	client        *Client
	logger        core.Logger
	refreshMargin time.Duration
	now           func() time.Time

	mu      sync.Mutex
	sess    *session.Session
	subs    map[int]func(session.Event)
	nextSub int
	timer   *time.Timer
	closed  bool
}

var (
	_ session.Authenticator = (*Auth)(nil)
	_ session.RoleResolver  = (*Auth)(nil)
)

func NewAuth(client *Client, conf *core.Config, logger core.Logger) *Auth {
	return &Auth{
		client:        client,
		logger:        logger,
		refreshMargin: conf.Remote.RefreshMargin,
		now:           time.Now,
		subs:          make(map[int]func(session.Event)),
	}
}

// NewFactory returns a session.Factory of remote auth providers that also resolve roles.
func NewFactory(client *Client, conf *core.Config, logger core.Logger) session.Factory {
	return func() (session.Authenticator, session.RoleResolver, error) {
		a := NewAuth(client, conf, logger)
		return a, a, nil
	}
}

func (a *Auth) SignIn(ctx context.Context, identifier, secret string) (*session.Session, error) {
	var tok tokenResponse
	_, err := a.client.do(ctx, request{
		api:    apiAuth,
		method: http.MethodPost,
		path:   "/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": identifier, "password": secret},
		token:  a.client.apiKey,
	}, &tok)
	if err != nil {
		return nil, err
	}

	sess, err := a.toSession(tok)
	if err != nil {
		return nil, err
	}
	a.setSession(sess)
	return copySession(sess), nil
}

// SignOut revokes the session. The session is kept if the service refuses.
func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	sess := a.sess
	a.mu.Unlock()
	if sess == nil {
		return nil
	}

	_, err := a.client.do(ctx, request{
		api:    apiAuth,
		method: http.MethodPost,
		path:   "/logout",
		token:  sess.AccessToken,
	}, nil)
	if err != nil {
		return err
	}
	a.setSession(nil)
	return nil
}

// CurrentSession returns the session, refreshing it first if its access token has expired.
func (a *Auth) CurrentSession(ctx context.Context) (*session.Session, error) {
	a.mu.Lock()
	sess := a.sess
	a.mu.Unlock()
	if sess == nil {
		return nil, nil
	}
	if !sess.Expired(a.now()) {
		return copySession(sess), nil
	}

	fresh, err := a.refresh(ctx, sess.RefreshToken)
	if err != nil {
		if core.IsAuthError(err) {
			a.setSession(nil)
			return nil, nil
		}
		return nil, err
	}
	a.setSession(fresh)
	a.publish(session.Event{Kind: session.TokenRefreshed, Session: copySession(fresh)})
	return copySession(fresh), nil
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

func (a *Auth) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := a.client.do(ctx, request{
		api:    apiAuth,
		method: http.MethodPost,
		path:   "/recover",
		body:   map[string]string{"email": email},
		token:  a.client.apiKey,
	}, nil)
	return err
}

// RolesForUser reads the user's role labels, acting as the signed-in user.
func (a *Auth) RolesForUser(ctx context.Context, userID string) ([]string, error) {
	a.mu.Lock()
	var token string
	if a.sess != nil {
		token = a.sess.AccessToken
	}
	a.mu.Unlock()

	var rows []roleRow
	_, err := a.client.do(ctx, request{
		api:    apiRest,
		method: http.MethodGet,
		path:   "/user_roles",
		query:  url.Values{"select": {"role"}, "user_id": {eq(userID)}},
		token:  token,
	}, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying user roles")
	}

	roles := make([]string, 0, len(rows))
	for _, r := range rows {
		roles = append(roles, r.Role)
	}
	return roles, nil
}

// Close stops the background refresh and drops the subscribers.
func (a *Auth) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.subs = make(map[int]func(session.Event))
	return nil
}

func (a *Auth) refresh(ctx context.Context, refreshToken string) (*session.Session, error) {
	var tok tokenResponse
	_, err := a.client.do(ctx, request{
		api:    apiAuth,
		method: http.MethodPost,
		path:   "/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
		token:  a.client.apiKey,
	}, &tok)
	if err != nil {
		return nil, err
	}
	return a.toSession(tok)
}

// setSession replaces the session and (re)schedules its refresh.
func (a *Auth) setSession(sess *session.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sess = sess
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if sess == nil || a.closed || sess.ExpiresAt.IsZero() {
		return
	}
	wait := sess.ExpiresAt.Sub(a.now()) - a.refreshMargin
	if wait < 0 {
		wait = 0
	}
	a.timer = time.AfterFunc(wait, a.refreshInBackground)
}

func (a *Auth) refreshInBackground() {
	a.mu.Lock()
	sess := a.sess
	closed := a.closed
	a.mu.Unlock()
	if sess == nil || closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.client.http.Timeout+time.Second)
	defer cancel()

	fresh, err := a.refresh(ctx, sess.RefreshToken)
	switch {
	case err == nil:
		a.setSession(fresh)
		a.publish(session.Event{Kind: session.TokenRefreshed, Session: copySession(fresh)})
	case core.IsAuthError(err):
		a.logger.Info(fmt.Sprintf("session revoked: %v", err), core.LogUser{ID: sess.UserID, Email: sess.Email})
		a.setSession(nil)
		a.publish(session.Event{Kind: session.SignedOut})
	default:
		a.logger.Warn(fmt.Sprintf("refreshing session: %v", err), err, core.LogUser{ID: sess.UserID, Email: sess.Email})
		a.mu.Lock()
		if a.sess == sess && !a.closed {
			a.timer = time.AfterFunc(refreshRetryDelay, a.refreshInBackground)
		}
		a.mu.Unlock()
	}
}

func (a *Auth) publish(ev session.Event) {
	a.mu.Lock()
	subs := make([]func(session.Event), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// toSession maps a token response. The user id & expiry are read from the access token when the response lacks them.
func (a *Auth) toSession(tok tokenResponse) (*session.Session, error) {
	if tok.AccessToken == "" {
		return nil, core.NewAuthError("no access token returned")
	}
	sess := &session.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		UserID:       tok.User.ID,
		Email:        tok.User.Email,
	}
	switch {
	case tok.ExpiresAt > 0:
		sess.ExpiresAt = time.Unix(tok.ExpiresAt, 0)
	case tok.ExpiresIn > 0:
		sess.ExpiresAt = a.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}

	if sess.UserID == "" || sess.ExpiresAt.IsZero() {
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(tok.AccessToken, claims); err != nil {
			return nil, core.NewAuthError("malformed access token", err)
		}
		if sess.UserID == "" {
			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				return nil, core.NewAuthError("access token has no subject", err)
			}
			sess.UserID = sub
		}
		if sess.ExpiresAt.IsZero() {
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				sess.ExpiresAt = exp.Time
			}
		}
		if sess.Email == "" {
			if email, ok := claims["email"].(string); ok {
				sess.Email = email
			}
		}
	}
	return sess, nil
}

func copySession(sess *session.Session) *session.Session {
	if sess == nil {
		return nil
	}
	s := *sess
	return &s
}
